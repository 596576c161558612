// Package completion models the post-call webhook payloads the platform
// delivers when a call finishes: a transcription, an audio recording, or
// an initiation failure.
package completion

import (
	"encoding/json"
	"fmt"

	"github.com/redialhq/redial/pkg/transcript"
)

// Completion event types delivered on the post-call webhook.
const (
	TypeTranscription = "post_call_transcription"
	TypeAudio         = "post_call_audio"
	TypeFailure       = "call_initiation_failure"
)

// Event is one post-call webhook delivery. Raw holds the verbatim body so
// artifacts preserve fields the typed model does not carry.
type Event struct {
	Type           string `json:"type"`
	EventTimestamp int64  `json:"event_timestamp"`
	Data           Data   `json:"data"`

	Raw json.RawMessage `json:"-"`
}

// Data is the conversation payload common to all completion types.
type Data struct {
	AgentID        string            `json:"agent_id"`
	ConversationID string            `json:"conversation_id"`
	Status         string            `json:"status,omitempty"`
	Transcript     []transcript.Turn `json:"transcript,omitempty"`
	Metadata       *CallMetadata     `json:"metadata,omitempty"`
	Analysis       *Analysis         `json:"analysis,omitempty"`

	ConversationInitiationClientData *InitiationClientData `json:"conversation_initiation_client_data,omitempty"`

	// AudioBase64 is present on post_call_audio events.
	AudioBase64 string `json:"audio_base64,omitempty"`
}

// CallMetadata is the slice of platform call metadata the pipeline uses.
type CallMetadata struct {
	StartTimeUnixSecs int64  `json:"start_time_unix_secs,omitempty"`
	EndTimeUnixSecs   int64  `json:"end_time_unix_secs,omitempty"`
	CallDurationSecs  int    `json:"call_duration_secs,omitempty"`
	TerminationReason string `json:"termination_reason,omitempty"`
	Error             string `json:"error,omitempty"`
}

// Analysis carries the platform's post-call analysis block.
type Analysis struct {
	DataCollectionResults map[string]transcript.AnalysisResult `json:"data_collection_results,omitempty"`
	CallSuccessful        string                               `json:"call_successful,omitempty"`
	TranscriptSummary     string                               `json:"transcript_summary,omitempty"`
}

// InitiationClientData echoes back what the platform was given when the
// call started, including the system dynamic variables.
type InitiationClientData struct {
	DynamicVariables map[string]any `json:"dynamic_variables,omitempty"`
}

// Parse decodes a webhook body into an Event, keeping the raw bytes.
func Parse(body []byte) (*Event, error) {
	var event Event
	if err := json.Unmarshal(body, &event); err != nil {
		return nil, fmt.Errorf("failed to parse completion event: %w", err)
	}
	if event.Type == "" {
		return nil, fmt.Errorf("completion event missing type")
	}

	event.Raw = json.RawMessage(body)
	return &event, nil
}

// CallerID extracts the caller's phone number from the initiation client
// data, or "" when the platform did not pass it through.
func (e *Event) CallerID() string {
	cd := e.Data.ConversationInitiationClientData
	if cd == nil {
		return ""
	}
	if v, ok := cd.DynamicVariables["system__caller_id"].(string); ok {
		return v
	}
	return ""
}

// CallEndedAt returns when the call ended, falling back to the event
// timestamp when the metadata does not say.
func (e *Event) CallEndedAt() int64 {
	if e.Data.Metadata != nil && e.Data.Metadata.EndTimeUnixSecs > 0 {
		return e.Data.Metadata.EndTimeUnixSecs
	}
	return e.EventTimestamp
}
