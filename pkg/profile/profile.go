// Package profile holds the two-tier relationship model the gateway serves
// from: a caller identity (tier one, written once and touched on every
// call) and a synthesized relationship state (tier two, replaced wholesale
// after each processed call).
package profile

import (
	"context"
	"strings"
	"time"
)

// Sentiment classifies the caller's disposition in the most recent
// conversation.
const (
	SentimentEngaged    = "engaged"
	SentimentSatisfied  = "satisfied"
	SentimentNeutral    = "neutral"
	SentimentFrustrated = "frustrated"
	SentimentConfused   = "confused"
)

// CallerIdentity is the tier-one record for one caller, shared across
// every agent. The name is write-once: the first confidently extracted
// name sticks, later extractions never overwrite it.
type CallerIdentity struct {
	CallerID              string    `json:"caller_id"`
	Name                  string    `json:"name,omitempty"`
	FirstSeen             time.Time `json:"first_seen"`
	TotalInteractionCount int       `json:"total_interaction_count"`
}

// RelationshipState is the tier-two record: the synthesized continuity
// payload served verbatim at the start of the caller's next call.
type RelationshipState struct {
	NextGreeting        string   `json:"next_greeting"`
	KeyTopics           []string `json:"key_topics"`
	Sentiment           string   `json:"sentiment"`
	ConversationSummary string   `json:"conversation_summary"`
	LastCallTimestamp   int64    `json:"last_call_timestamp"`
	ConversationCount   int      `json:"conversation_count"`
}

// Store persists both tiers. Lookups for callers never seen return
// (nil, nil); absence is an expected state, not an error.
type Store interface {
	// Identity returns the tier-one record, or nil when the caller has
	// never been seen by any agent.
	Identity(ctx context.Context, callerID string) (*CallerIdentity, error)

	// RecordCall creates or touches the tier-one record: first call seeds
	// FirstSeen and the name, every call increments the interaction count.
	// The name merge is write-once via MergeName.
	RecordCall(ctx context.Context, callerID, name string, at time.Time) (*CallerIdentity, error)

	// State returns the tier-two record, or nil when no call has been
	// processed for this caller yet.
	State(ctx context.Context, agentID, callerID string) (*RelationshipState, error)

	// PutState replaces the tier-two record wholesale.
	PutState(ctx context.Context, agentID, callerID string, state RelationshipState) error

	Close() error
}

// MergeName applies the write-once name policy shared by every driver: an
// established name is never displaced by a later extraction.
func MergeName(existing, extracted string) string {
	if strings.TrimSpace(existing) != "" {
		return existing
	}
	return strings.TrimSpace(extracted)
}

// NormalizeSentiment clamps free-form model output to the known sentiment
// values, defaulting to neutral.
func NormalizeSentiment(s string) string {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case SentimentEngaged:
		return SentimentEngaged
	case SentimentSatisfied:
		return SentimentSatisfied
	case SentimentFrustrated:
		return SentimentFrustrated
	case SentimentConfused:
		return SentimentConfused
	default:
		return SentimentNeutral
	}
}
