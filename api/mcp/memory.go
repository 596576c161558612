package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"go.uber.org/zap"
)

const (
	memorySearchToolName    = "memory_search"
	memorySearchDescription = "Search a caller's long-term conversational memory. " +
		"Returns stored facts and past utterances ranked by relevance to the query."

	callerProfileToolName    = "caller_profile"
	callerProfileDescription = "Look up a caller's identity profile by phone number. " +
		"Returns the caller's name, first-seen time, and total interaction count."

	defaultTopK = 5
	maxTopK     = 25
)

type MemorySearchInput struct {
	Query  string `json:"query" jsonschema:"the search query"`
	UserID string `json:"user_id" jsonschema:"the caller's phone number in E.164 format"`
	TopK   int    `json:"top_k,omitempty" jsonschema:"maximum number of memories to return (default 5)"`
}

type MemorySearchOutput struct {
	Memories []MemoryResult `json:"memories"`
	Count    int            `json:"count"`
}

type MemoryResult struct {
	Content  string  `json:"content"`
	Sector   string  `json:"sector,omitempty"`
	Salience float64 `json:"salience,omitempty"`
}

func (s *Server) handleMemorySearch(ctx context.Context, _ *mcp.CallToolRequest, input MemorySearchInput) (*mcp.CallToolResult, MemorySearchOutput, error) {
	if strings.TrimSpace(input.Query) == "" {
		return errorResult("query is required"), MemorySearchOutput{}, nil
	}
	if strings.TrimSpace(input.UserID) == "" {
		return errorResult("user_id is required"), MemorySearchOutput{}, nil
	}

	topK := input.TopK
	if topK <= 0 {
		topK = defaultTopK
	}
	if topK > maxTopK {
		topK = maxTopK
	}

	results, err := s.config.Memories.Query(ctx, input.Query, input.UserID, topK)
	if err != nil {
		s.config.Logger.Error("mcp memory search failed",
			zap.String("user_id", input.UserID),
			zap.Error(err))
		return errorResult(fmt.Sprintf("memory search failed: %v", err)), MemorySearchOutput{}, nil
	}

	output := MemorySearchOutput{
		Memories: make([]MemoryResult, 0, len(results)),
	}
	for _, r := range results {
		output.Memories = append(output.Memories, MemoryResult{
			Content:  r.Content,
			Sector:   r.Sector,
			Salience: r.Salience,
		})
	}
	output.Count = len(output.Memories)

	return jsonResult(output), output, nil
}

type CallerProfileInput struct {
	PhoneNumber string `json:"phone_number" jsonschema:"the caller's phone number in E.164 format"`
}

type CallerProfileOutput struct {
	Found             bool   `json:"found"`
	Name              string `json:"name,omitempty"`
	FirstSeen         string `json:"first_seen,omitempty"`
	TotalInteractions int    `json:"total_interactions,omitempty"`
}

func (s *Server) handleCallerProfile(ctx context.Context, _ *mcp.CallToolRequest, input CallerProfileInput) (*mcp.CallToolResult, CallerProfileOutput, error) {
	if strings.TrimSpace(input.PhoneNumber) == "" {
		return errorResult("phone_number is required"), CallerProfileOutput{}, nil
	}

	identity, err := s.config.Profiles.Identity(ctx, input.PhoneNumber)
	if err != nil {
		s.config.Logger.Error("mcp caller profile lookup failed",
			zap.String("phone_number", input.PhoneNumber),
			zap.Error(err))
		return errorResult(fmt.Sprintf("profile lookup failed: %v", err)), CallerProfileOutput{}, nil
	}

	output := CallerProfileOutput{}
	if identity != nil {
		output.Found = true
		output.Name = identity.Name
		output.FirstSeen = identity.FirstSeen.UTC().Format("2006-01-02T15:04:05Z07:00")
		output.TotalInteractions = identity.TotalInteractionCount
	}

	return jsonResult(output), output, nil
}

func errorResult(msg string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		IsError: true,
		Content: []mcp.Content{
			&mcp.TextContent{Text: msg},
		},
	}
}

func jsonResult(v any) *mcp.CallToolResult {
	data, err := json.Marshal(v)
	if err != nil {
		return errorResult(fmt.Sprintf("failed to serialize result: %v", err))
	}
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			&mcp.TextContent{Text: string(data)},
		},
	}
}
