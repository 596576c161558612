package api

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/redialhq/redial/pkg/auth"
	"github.com/redialhq/redial/pkg/completion"
	"github.com/redialhq/redial/pkg/memstore"
	"github.com/redialhq/redial/pkg/worker"
)

// searchResultLimit is how many memories one search returns.
const searchResultLimit = 10

// handleHealth reports liveness.
func (s *Server) handleHealth(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"status":    "healthy",
		"service":   "redial",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

// handleInitiate serves the conversation-initiation webhook. The path is
// read-only: tier lookups plus a memory summary, and every internal
// failure degrades to an empty response so the call always starts.
func (s *Server) handleInitiate(c *fiber.Ctx) error {
	if s.config.ClientDataKey != "" {
		if err := auth.VerifyAPIKey(s.config.ClientDataKey, c.Get("X-Api-Key")); err != nil {
			return c.Status(fiber.StatusUnauthorized).JSON(ErrorResponse{Error: "invalid api key"})
		}
	}

	var req InitiateRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{Error: "invalid request body"})
	}
	if err := req.Validate(); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{Error: err.Error()})
	}

	ctx := c.Context()

	identity, err := s.profiles.Identity(ctx, req.CallerID)
	if err != nil {
		s.logger.Warn("identity lookup failed, degrading to empty",
			zap.String("caller_id", req.CallerID),
			zap.Error(err))
	}

	state, err := s.profiles.State(ctx, req.AgentID, req.CallerID)
	if err != nil {
		s.logger.Warn("state lookup failed, degrading",
			zap.String("caller_id", req.CallerID),
			zap.String("agent_id", req.AgentID),
			zap.Error(err))
	}

	// The memory summary only feeds the fallback template; skip the round
	// trip when a synthesized greeting already exists.
	var summary *memstore.OwnerSummary
	if state == nil || state.NextGreeting == "" {
		s2, err := s.memories.Summary(ctx, req.CallerID)
		if err != nil {
			s.logger.Warn("memory summary unavailable, degrading",
				zap.String("caller_id", req.CallerID),
				zap.Error(err))
		} else {
			summary = s2
		}
	}

	response := buildInitiateResponse(identity, state, summary)

	s.logger.Info("initiation served",
		zap.String("caller_id", req.CallerID),
		zap.String("agent_id", req.AgentID),
		zap.Bool("override", response.ConversationConfigOverride != nil),
		zap.Int("dynamic_variables", len(response.DynamicVariables)),
	)

	return c.JSON(response)
}

// handleSearch serves the mid-call memory tool. Failures degrade to an
// empty result set, never an error the agent would have to voice.
func (s *Server) handleSearch(c *fiber.Ctx) error {
	var req SearchRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{Error: "invalid request body"})
	}
	if err := req.Validate(); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{Error: err.Error()})
	}

	matches, err := s.memories.Query(c.Context(), req.Query, req.UserID, searchResultLimit)
	if err != nil {
		s.logger.Warn("memory query failed, returning empty",
			zap.String("caller_id", req.UserID),
			zap.Error(err))
		return c.JSON(SearchResponse{Memories: []MemoryItem{}})
	}

	response := buildSearchResponse(req.UserID, matches)

	s.logger.Info("search served",
		zap.String("caller_id", req.UserID),
		zap.Int("memories", len(response.Memories)),
	)

	return c.JSON(response)
}

// handlePostCall authenticates a completion webhook, acknowledges it, and
// hands the event to the worker pool. Processing never runs on this path.
func (s *Server) handlePostCall(c *fiber.Ctx) error {
	body := c.Body()

	header := c.Get(s.config.SignatureHeader)
	if err := auth.VerifySignature(s.config.PostCallSecret, header, body, time.Now()); err != nil {
		s.logger.Warn("completion webhook rejected", zap.Error(err))
		return c.Status(fiber.StatusUnauthorized).JSON(ErrorResponse{Error: "signature verification failed"})
	}

	event, err := completion.Parse(body)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{Error: err.Error()})
	}

	job := worker.NewJob(event)
	if !s.pool.Enqueue(job) {
		// The queue is saturated; the platform will retry delivery.
		return c.Status(fiber.StatusServiceUnavailable).JSON(ErrorResponse{Error: "processing queue full"})
	}

	return c.JSON(AckResponse{
		Status:         "received",
		Type:           event.Type,
		ConversationID: event.Data.ConversationID,
	})
}
