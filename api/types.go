package api

import (
	"fmt"
	"regexp"
)

// e164 matches international phone numbers as the platform sends them.
var e164 = regexp.MustCompile(`^\+[1-9]\d{1,14}$`)

// InitiateRequest is the conversation-initiation webhook body.
type InitiateRequest struct {
	CallerID     string `json:"caller_id"`
	AgentID      string `json:"agent_id"`
	CalledNumber string `json:"called_number"`
	CallSID      string `json:"call_sid"`
}

// Validate checks required fields and phone formats.
func (r *InitiateRequest) Validate() error {
	if r.CallerID == "" {
		return fmt.Errorf("caller_id is required")
	}
	if !e164.MatchString(r.CallerID) {
		return fmt.Errorf("caller_id must be E.164 format")
	}
	if r.AgentID == "" {
		return fmt.Errorf("agent_id is required")
	}
	if r.CalledNumber != "" && !e164.MatchString(r.CalledNumber) {
		return fmt.Errorf("called_number must be E.164 format")
	}
	return nil
}

// InitiateResponse carries what the platform injects into the starting
// conversation. DynamicVariables is always present, possibly empty.
type InitiateResponse struct {
	DynamicVariables           map[string]string `json:"dynamic_variables"`
	ConversationConfigOverride *ConfigOverride   `json:"conversation_config_override,omitempty"`
}

// ConfigOverride overrides parts of the agent's conversation config.
type ConfigOverride struct {
	Agent AgentOverride `json:"agent"`
}

// AgentOverride overrides the agent's opening line.
type AgentOverride struct {
	FirstMessage string `json:"first_message"`
}

// SearchRequest is the mid-call memory search body, sent when the agent
// invokes its memory tool.
type SearchRequest struct {
	Query   string `json:"query"`
	UserID  string `json:"user_id"`
	AgentID string `json:"agent_id,omitempty"`
}

// Validate checks required fields.
func (r *SearchRequest) Validate() error {
	if r.Query == "" {
		return fmt.Errorf("query is required")
	}
	if r.UserID == "" {
		return fmt.Errorf("user_id is required")
	}
	return nil
}

// SearchResponse returns profile context plus matching memories.
type SearchResponse struct {
	Profile  *ProfileData `json:"profile"`
	Memories []MemoryItem `json:"memories"`
}

// ProfileData is the caller context assembled from search results.
type ProfileData struct {
	Name        string `json:"name,omitempty"`
	Summary     string `json:"summary,omitempty"`
	PhoneNumber string `json:"phone_number"`
}

// MemoryItem is one memory match returned to the agent.
type MemoryItem struct {
	Content  string  `json:"content"`
	Sector   string  `json:"sector"`
	Salience float64 `json:"salience"`
}

// AckResponse acknowledges a completion webhook before processing runs.
type AckResponse struct {
	Status         string `json:"status"`
	Type           string `json:"type"`
	ConversationID string `json:"conversation_id"`
	Message        string `json:"message,omitempty"`
}

// ErrorResponse is the uniform error body.
type ErrorResponse struct {
	Error string `json:"error"`
}
