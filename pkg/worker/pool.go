// Package worker provides the asynchronous pool that processes completion
// events: persisting artifacts, writing memories, and synthesizing the
// next-call greeting.
//
// The pool decouples event processing from the webhook hot path so the
// platform's delivery timeout is never at the mercy of model latency.
package worker

import (
	"context"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/redialhq/redial/pkg/agents"
	"github.com/redialhq/redial/pkg/artifacts"
	"github.com/redialhq/redial/pkg/completion"
	"github.com/redialhq/redial/pkg/eventstream"
	"github.com/redialhq/redial/pkg/greeting"
	"github.com/redialhq/redial/pkg/memstore"
	"github.com/redialhq/redial/pkg/profile"
	"github.com/redialhq/redial/pkg/transcript"
)

var (
	defaultNumWorkers   uint = 3
	defaultJobQueueSize uint = 256
)

// Job is one completion event awaiting processing.
type Job struct {
	ID         string
	Event      *completion.Event
	EnqueuedAt time.Time
}

// NewJob wraps a completion event with a fresh job id.
func NewJob(event *completion.Event) Job {
	return Job{
		ID:         uuid.NewString(),
		Event:      event,
		EnqueuedAt: time.Now(),
	}
}

// Config is the configuration options for the worker pool.
type Config struct {
	// Artifacts persists raw payloads before any processing.
	Artifacts *artifacts.Store

	// Profiles is the two-tier relationship store.
	Profiles profile.Store

	// Memories is the long-term memory store client.
	Memories memstore.Store

	// Agents resolves agent configuration for greeting synthesis.
	// Optional; synthesis degrades to a generic persona without it.
	Agents *agents.Cache

	// Synthesizer produces the next-call relationship state.
	// Optional; transcription events still store memories without it.
	Synthesizer *greeting.Synthesizer

	// Publisher emits a call event after each processed job.
	Publisher eventstream.Publisher

	// NumWorkers is the number of background workers in the pool.
	NumWorkers uint

	// QueueSize is the capacity of the buffered job channel (defaults to 256).
	QueueSize uint

	// Logger is the provided zap logger
	Logger *zap.Logger
}

// Pool processes completion events asynchronously via a worker pool.
// Jobs whose processing fails are kept on a dead-letter list and can be
// re-enqueued with Replay.
type Pool struct {
	config *Config
	queue  chan Job
	wg     sync.WaitGroup
	logger *zap.Logger

	mu   sync.Mutex
	dead []Job
}

// NewPool creates a new Pool and starts its worker goroutines.
func NewPool(c *Config) (*Pool, error) {
	if c.NumWorkers == 0 {
		c.NumWorkers = defaultNumWorkers
	}

	if c.QueueSize == 0 {
		c.QueueSize = defaultJobQueueSize
	}

	if c.NumWorkers > uint(math.MaxInt) {
		return nil, fmt.Errorf("NumWorkers %d exceeds max int", c.NumWorkers)
	}

	wp := &Pool{
		config: c,
		queue:  make(chan Job, c.QueueSize),
		logger: c.Logger,
	}

	wp.wg.Add(int(c.NumWorkers))
	for i := range c.NumWorkers {
		go wp.worker(i)
	}

	return wp, nil
}

// Enqueue submits a job for processing by the worker pool.
// Returns true if enqueued, false if the queue is full, resulting in the job being dropped
func (p *Pool) Enqueue(job Job) bool {
	select {
	case p.queue <- job:
		p.logger.Debug("job queued",
			zap.String("job_id", job.ID),
			zap.String("type", job.Event.Type),
			zap.String("conversation_id", job.Event.Data.ConversationID),
		)
		return true
	default:
		p.logger.Error("job not queued, queue full, job dropped",
			zap.String("job_id", job.ID),
			zap.String("conversation_id", job.Event.Data.ConversationID),
		)
		return false
	}
}

// Close signals workers to stop and waits for in-flight jobs to drain.
// Call this during graceful shutdown after the gateway has stopped.
func (p *Pool) Close() {
	close(p.queue)
	p.wg.Wait()
}

// DeadLetters returns a copy of the jobs whose processing failed.
func (p *Pool) DeadLetters() []Job {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]Job(nil), p.dead...)
}

// Replay re-enqueues dead-lettered jobs and returns how many were
// accepted. Jobs the queue cannot take stay on the dead-letter list.
func (p *Pool) Replay() int {
	p.mu.Lock()
	dead := p.dead
	p.dead = nil
	p.mu.Unlock()

	accepted := 0
	for i, job := range dead {
		if p.Enqueue(job) {
			accepted++
			continue
		}
		p.mu.Lock()
		p.dead = append(p.dead, dead[i:]...)
		p.mu.Unlock()
		break
	}

	return accepted
}

// worker is the inner worker thread that continuously pulls jobs off the jobs queue
func (p *Pool) worker(id uint) {
	defer p.wg.Done()
	p.logger.Debug("worker started", zap.Uint("worker_id", id))

	for job := range p.queue {
		p.processJob(job)
	}

	p.logger.Debug("worker stopped", zap.Uint("worker_id", id))
}

// processJob routes a completion event to its handler and dead-letters
// jobs whose processing failed.
func (p *Pool) processJob(job Job) {
	ctx := context.Background()
	started := time.Now()

	outcome, err := p.handle(ctx, job.Event)
	outcome.ProcessingDuration = time.Since(started).Milliseconds()

	eventType := eventstream.EventTypeCallProcessed
	if err != nil {
		eventType = eventstream.EventTypeCallFailed
		outcome.Error = err.Error()

		p.logger.Error("completion processing failed",
			zap.String("job_id", job.ID),
			zap.String("type", job.Event.Type),
			zap.String("conversation_id", job.Event.Data.ConversationID),
			zap.Error(err),
		)

		// Leave a trace on disk next to the raw payload, even when the
		// failure came from a downstream step.
		if _, saveErr := p.config.Artifacts.SaveError(job.Event.Data.ConversationID, artifacts.ProcessingError{
			ConversationID: job.Event.Data.ConversationID,
			CompletionType: job.Event.Type,
			Error:          err.Error(),
			OccurredAt:     time.Now().UTC().Format(time.RFC3339),
		}); saveErr != nil {
			p.logger.Warn("failed to write error artifact",
				zap.String("conversation_id", job.Event.Data.ConversationID),
				zap.Error(saveErr))
		}

		p.mu.Lock()
		p.dead = append(p.dead, job)
		p.mu.Unlock()
	} else {
		p.logger.Info("completion processed",
			zap.String("job_id", job.ID),
			zap.String("type", job.Event.Type),
			zap.String("conversation_id", job.Event.Data.ConversationID),
			zap.Int("profile_facts", outcome.ProfileFacts),
			zap.Int("utterances", outcome.UtterancesStored),
			zap.Bool("greeting_updated", outcome.GreetingUpdated),
		)
	}

	p.publish(ctx, job, eventType, outcome)
}

func (p *Pool) handle(ctx context.Context, event *completion.Event) (eventstream.CallOutcome, error) {
	switch event.Type {
	case completion.TypeTranscription:
		return p.handleTranscription(ctx, event)
	case completion.TypeAudio:
		return p.handleAudio(event)
	case completion.TypeFailure:
		return p.handleFailure(event)
	default:
		// Unknown sub-types are persisted verbatim and acknowledged.
		path, err := p.config.Artifacts.SaveRaw(event.Data.ConversationID, event.Raw)
		if err != nil {
			return eventstream.CallOutcome{}, err
		}
		p.logger.Warn("unknown completion type saved verbatim",
			zap.String("type", event.Type),
			zap.String("conversation_id", event.Data.ConversationID),
		)
		return eventstream.CallOutcome{ArtifactPath: path}, nil
	}
}

// handleTranscription runs the full pipeline: artifact, identity touch,
// memory emission, greeting synthesis.
func (p *Pool) handleTranscription(ctx context.Context, event *completion.Event) (eventstream.CallOutcome, error) {
	var outcome eventstream.CallOutcome

	path, err := p.config.Artifacts.SaveTranscription(event.Data.ConversationID, event.Raw)
	if err != nil {
		return outcome, fmt.Errorf("persisting transcription: %w", err)
	}
	outcome.ArtifactPath = path

	callerID := event.CallerID()
	if callerID == "" {
		p.logger.Warn("no caller id on transcription, skipping memory processing",
			zap.String("conversation_id", event.Data.ConversationID),
		)
		return outcome, nil
	}

	var userInfo map[string]string
	if event.Data.Analysis != nil {
		userInfo = transcript.ExtractUserInfo(event.Data.Analysis.DataCollectionResults)
	}

	name := transcript.ExtractName(userInfo, event.Data.Transcript)
	endedAt := event.CallEndedAt()

	identity, err := p.config.Profiles.RecordCall(ctx, callerID, name, time.Unix(endedAt, 0).UTC())
	if err != nil {
		return outcome, fmt.Errorf("recording call for %s: %w", callerID, err)
	}

	corr := transcript.Correlation{
		ConversationID: event.Data.ConversationID,
		EventTimestamp: event.EventTimestamp,
	}

	// Memory writes are best-effort: a degraded memory store must not
	// dead-letter the job and lose the artifact trail.
	for _, record := range transcript.ProfileRecords(userInfo, callerID, corr) {
		if err := p.config.Memories.Add(ctx, record); err != nil {
			p.logger.Warn("failed to store profile memory",
				zap.String("caller_id", callerID),
				zap.Error(err))
			continue
		}
		outcome.ProfileFacts++
	}

	userMessages := transcript.ExtractUserMessages(event.Data.Transcript)
	for _, record := range transcript.UtteranceRecords(userMessages, callerID, corr) {
		if err := p.config.Memories.Add(ctx, record); err != nil {
			p.logger.Warn("failed to store conversation memory",
				zap.String("caller_id", callerID),
				zap.Error(err))
			continue
		}
		outcome.UtterancesStored++
	}

	outcome.GreetingUpdated = p.synthesizeGreeting(ctx, event, identity, endedAt)

	return outcome, nil
}

// synthesizeGreeting updates the tier-two state. Failures leave the
// previous state in place; a stale greeting beats a broken one.
func (p *Pool) synthesizeGreeting(ctx context.Context, event *completion.Event, identity *profile.CallerIdentity, endedAt int64) bool {
	if p.config.Synthesizer == nil {
		return false
	}

	agentID := event.Data.AgentID
	callerID := identity.CallerID

	var agentConfig *agents.Config
	if p.config.Agents != nil {
		var err error
		agentConfig, err = p.config.Agents.Get(ctx, agentID)
		if err != nil {
			p.logger.Warn("agent config unavailable for synthesis",
				zap.String("agent_id", agentID),
				zap.Error(err))
		}
	}

	previous, err := p.config.Profiles.State(ctx, agentID, callerID)
	if err != nil {
		p.logger.Warn("failed to load previous state",
			zap.String("caller_id", callerID),
			zap.Error(err))
	}

	state, err := p.config.Synthesizer.Synthesize(ctx, greeting.PromptInput{
		Agent:      agentConfig,
		Identity:   identity,
		Previous:   previous,
		Transcript: transcript.BuildString(event.Data.Transcript),
	}, endedAt)
	if err != nil {
		p.logger.Warn("greeting synthesis skipped",
			zap.String("caller_id", callerID),
			zap.Error(err))
		return false
	}

	if err := p.config.Profiles.PutState(ctx, agentID, callerID, *state); err != nil {
		p.logger.Error("failed to persist relationship state",
			zap.String("caller_id", callerID),
			zap.Error(err))
		return false
	}

	return true
}

func (p *Pool) handleAudio(event *completion.Event) (eventstream.CallOutcome, error) {
	var outcome eventstream.CallOutcome

	if event.Data.AudioBase64 == "" {
		p.logger.Warn("audio completion without audio data",
			zap.String("conversation_id", event.Data.ConversationID),
		)
		return outcome, nil
	}

	path, err := p.config.Artifacts.SaveAudio(event.Data.ConversationID, event.Data.AudioBase64)
	if err != nil {
		return outcome, fmt.Errorf("persisting audio: %w", err)
	}

	outcome.ArtifactPath = path
	return outcome, nil
}

func (p *Pool) handleFailure(event *completion.Event) (eventstream.CallOutcome, error) {
	var outcome eventstream.CallOutcome

	path, err := p.config.Artifacts.SaveFailure(event.Data.ConversationID, event.Raw)
	if err != nil {
		return outcome, fmt.Errorf("persisting failure log: %w", err)
	}

	outcome.ArtifactPath = path
	return outcome, nil
}

func (p *Pool) publish(ctx context.Context, job Job, eventType string, outcome eventstream.CallOutcome) {
	if p.config.Publisher == nil {
		return
	}

	err := p.config.Publisher.PublishCall(ctx, &eventstream.CallProcessedEvent{
		SchemaVersion:  eventstream.SchemaVersionV1,
		EventType:      eventType,
		EventID:        uuid.NewString(),
		EmittedAt:      time.Now().UTC(),
		AgentID:        job.Event.Data.AgentID,
		CallerID:       job.Event.CallerID(),
		ConversationID: job.Event.Data.ConversationID,
		CompletionType: job.Event.Type,
		Outcome:        outcome,
	})
	if err != nil {
		p.logger.Warn("failed to publish call event",
			zap.String("job_id", job.ID),
			zap.Error(err))
	}
}
