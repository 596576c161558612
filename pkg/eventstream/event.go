package eventstream

import "time"

const (
	// SchemaVersionV1 is the first version of the event payload schema.
	SchemaVersionV1 = 1

	// EventTypeCallProcessed is emitted after a completed call has been
	// fully processed: artifacts persisted, memories written, greeting
	// synthesized.
	EventTypeCallProcessed = "redial.call.processed"

	// EventTypeCallFailed is emitted when processing a completion event
	// exhausted its attempts and was dead-lettered.
	EventTypeCallFailed = "redial.call.failed"
)

// CallProcessedEvent is a transport-neutral payload describing the outcome
// of one processed call.
type CallProcessedEvent struct {
	SchemaVersion int       `json:"schema_version"`
	EventType     string    `json:"event_type"`
	EventID       string    `json:"event_id"`
	EmittedAt     time.Time `json:"emitted_at"`

	AgentID        string `json:"agent_id"`
	CallerID       string `json:"caller_id,omitempty"`
	ConversationID string `json:"conversation_id"`
	CompletionType string `json:"completion_type"`

	Outcome CallOutcome `json:"outcome"`
}

// CallOutcome summarizes what the pipeline produced for the call.
type CallOutcome struct {
	ProfileFacts       int    `json:"profile_facts"`
	UtterancesStored   int    `json:"utterances_stored"`
	GreetingUpdated    bool   `json:"greeting_updated"`
	ArtifactPath       string `json:"artifact_path,omitempty"`
	ProcessingDuration int64  `json:"processing_duration_ms"`
	Error              string `json:"error,omitempty"`
}
