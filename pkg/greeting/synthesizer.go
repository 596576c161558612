// Package greeting turns a finished call into the relationship state
// served at the start of the caller's next call. Synthesis is
// all-or-nothing: a failed synthesis leaves the previous state untouched
// rather than writing a partial one.
package greeting

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/redialhq/redial/pkg/greeting/provider"
	"github.com/redialhq/redial/pkg/profile"
	"github.com/redialhq/redial/pkg/transcript"
)

const (
	// DefaultMaxTokens caps the synthesis completion.
	DefaultMaxTokens = 150

	// DefaultTemperature keeps greetings varied without drifting.
	DefaultTemperature = 0.7

	maxAttempts  = 3
	retryBackoff = time.Second

	maxKeyTopics = 5
)

// Synthesizer produces relationship state from call transcripts.
type Synthesizer struct {
	provider    provider.Provider
	model       string
	maxTokens   int
	temperature float64
	logger      *zap.Logger
}

// Options tune the synthesis completion. Zero values take defaults.
type Options struct {
	Model       string
	MaxTokens   int
	Temperature float64
}

// NewSynthesizer creates a synthesizer on top of a completion provider.
func NewSynthesizer(p provider.Provider, opts Options, logger *zap.Logger) *Synthesizer {
	maxTokens := opts.MaxTokens
	if maxTokens <= 0 {
		maxTokens = DefaultMaxTokens
	}

	temperature := opts.Temperature
	if temperature <= 0 {
		temperature = DefaultTemperature
	}

	return &Synthesizer{
		provider:    p,
		model:       opts.Model,
		maxTokens:   maxTokens,
		temperature: temperature,
		logger:      logger,
	}
}

// synthesisResult mirrors the JSON contract stated in the system prompt.
type synthesisResult struct {
	NextGreeting        string   `json:"next_greeting"`
	KeyTopics           []string `json:"key_topics"`
	Sentiment           string   `json:"sentiment"`
	ConversationSummary string   `json:"conversation_summary"`
}

// Synthesize builds the next-call relationship state. It retries transient
// provider failures, and returns an error once attempts are exhausted so
// the caller can skip the tier-two write entirely.
func (s *Synthesizer) Synthesize(ctx context.Context, in PromptInput, callEndedAt int64) (*profile.RelationshipState, error) {
	req := provider.Request{
		System:      BuildSystemPrompt(in.Agent),
		User:        BuildUserPrompt(in),
		Model:       s.model,
		MaxTokens:   s.maxTokens,
		Temperature: s.temperature,
	}

	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		if attempt > 1 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(retryBackoff * time.Duration(attempt-1)):
			}
		}

		raw, err := s.provider.Complete(ctx, req)
		if err != nil {
			lastErr = err
			s.logger.Warn("greeting synthesis attempt failed",
				zap.Int("attempt", attempt),
				zap.String("provider", s.provider.Name()),
				zap.Error(err))
			continue
		}

		result, err := parseSynthesis(raw)
		if err != nil {
			lastErr = err
			s.logger.Warn("greeting synthesis returned unparseable output",
				zap.Int("attempt", attempt),
				zap.Error(err))
			continue
		}

		conversationCount := 1
		if in.Previous != nil {
			conversationCount = in.Previous.ConversationCount + 1
		}

		return &profile.RelationshipState{
			NextGreeting:        strings.TrimSpace(result.NextGreeting),
			KeyTopics:           cleanTopics(result.KeyTopics),
			Sentiment:           profile.NormalizeSentiment(result.Sentiment),
			ConversationSummary: strings.TrimSpace(result.ConversationSummary),
			LastCallTimestamp:   callEndedAt,
			ConversationCount:   conversationCount,
		}, nil
	}

	return nil, fmt.Errorf("greeting synthesis failed after %d attempts: %w", maxAttempts, lastErr)
}

// parseSynthesis decodes model output, tolerating markdown code fences
// around the JSON object.
func parseSynthesis(raw string) (*synthesisResult, error) {
	raw = strings.TrimSpace(raw)
	raw = strings.TrimPrefix(raw, "```json")
	raw = strings.TrimPrefix(raw, "```")
	raw = strings.TrimSuffix(raw, "```")
	raw = strings.TrimSpace(raw)

	var result synthesisResult
	if err := json.Unmarshal([]byte(raw), &result); err != nil {
		return nil, fmt.Errorf("failed to parse synthesis output: %w", err)
	}

	if result.NextGreeting == "" {
		return nil, fmt.Errorf("synthesis output missing next_greeting")
	}

	return &result, nil
}

// cleanTopics drops filler topics and clamps the list.
func cleanTopics(topics []string) []string {
	cleaned := make([]string, 0, len(topics))
	for _, topic := range topics {
		topic = strings.TrimSpace(topic)
		if topic == "" || transcript.IsFillerPhrase(topic) {
			continue
		}
		cleaned = append(cleaned, topic)
		if len(cleaned) == maxKeyTopics {
			break
		}
	}
	return cleaned
}
