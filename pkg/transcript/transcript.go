// Package transcript turns a completed call's transcript and analysis block
// into identity facts and discrete memory records.
//
// The pipeline has three stages: extraction (who spoke, what the analysis
// collected), quality filtering (drop conversational filler), and emission
// (memory records with salience weights). Each stage is a pure function so
// the whole pipeline is testable without any upstream service.
package transcript

import (
	"strconv"
	"strings"
)

// Speaker roles in a transcript turn.
const (
	RoleAgent = "agent"
	RoleUser  = "user"
)

// Turn is one entry in the ordered call transcript.
type Turn struct {
	Role           string `json:"role"`
	Message        string `json:"message"`
	TimeInCallSecs int    `json:"time_in_call_secs"`
}

// AnalysisResult is one extracted field from the platform's post-call
// analysis block.
type AnalysisResult struct {
	DataCollectionID string `json:"data_collection_id"`
	Value            any    `json:"value"`
	Rationale        string `json:"rationale,omitempty"`
}

// UserMessage is a user utterance with its in-call offset, kept for temporal
// ordering within the conversation.
type UserMessage struct {
	Message        string
	TimeInCallSecs int
}

// ExtractUserInfo flattens the analysis block into normalized key/value
// pairs. Keys are lowercased with separators collapsed to underscores;
// fields the analysis failed to collect (nil values) are skipped.
func ExtractUserInfo(results map[string]AnalysisResult) map[string]string {
	info := make(map[string]string)

	for fieldID, result := range results {
		if result.Value == nil {
			continue
		}

		value := strings.TrimSpace(stringify(result.Value))
		if value == "" {
			continue
		}

		key := strings.ToLower(fieldID)
		key = strings.ReplaceAll(key, "-", "_")
		key = strings.ReplaceAll(key, " ", "_")
		info[key] = value
	}

	return info
}

// ExtractUserMessages filters the transcript down to non-empty user turns.
func ExtractUserMessages(turns []Turn) []UserMessage {
	var messages []UserMessage

	for _, turn := range turns {
		if turn.Role != RoleUser {
			continue
		}
		if strings.TrimSpace(turn.Message) == "" {
			continue
		}
		messages = append(messages, UserMessage{
			Message:        turn.Message,
			TimeInCallSecs: turn.TimeInCallSecs,
		})
	}

	return messages
}

// BuildString renders the transcript as role-prefixed lines for prompt
// construction.
func BuildString(turns []Turn) string {
	var b strings.Builder

	for _, turn := range turns {
		if turn.Message == "" {
			continue
		}
		if b.Len() > 0 {
			b.WriteByte('\n')
		}
		b.WriteString(capitalize(turn.Role))
		b.WriteString(": ")
		b.WriteString(turn.Message)
	}

	return b.String()
}

func stringify(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case bool:
		if t {
			return "true"
		}
		return "false"
	case float64:
		// JSON numbers decode as float64.
		return strconv.FormatFloat(t, 'f', -1, 64)
	default:
		return ""
	}
}
