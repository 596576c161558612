package transcript

import (
	"strings"

	"github.com/redialhq/redial/pkg/memstore"
)

// Correlation ties emitted records back to the completion event that
// produced them.
type Correlation struct {
	ConversationID string
	EventTimestamp int64
}

// profileFactFormats maps recognized analysis fields to readable fact text.
var profileFactFormats = map[string]string{
	"first_name": "User's name is %s",
	"name":       "User's name is %s",
	"last_name":  "User's last name is %s",
	"full_name":  "User's full name is %s",
	"email":      "User prefers contact via email at %s",
	"preference": "User preference: %s",
	"topic":      "User is interested in %s",
	"issue":      "User reported issue: %s",
	"request":    "User requested: %s",
	"feedback":   "User feedback: %s",
}

// ProfileRecords emits one high-salience, permanent record per identity fact.
func ProfileRecords(info map[string]string, owner string, corr Correlation) []memstore.Record {
	records := make([]memstore.Record, 0, len(info))

	for key, value := range info {
		content := FormatProfileFact(key, value)
		if content == "" {
			continue
		}

		metadata := map[string]any{
			"field": key,
			"value": value,
		}
		addCorrelation(metadata, corr)

		records = append(records, memstore.Record{
			Content:     content,
			Tags:        []string{"profile", key},
			Salience:    memstore.HighSalience,
			DecayLambda: memstore.PermanentDecay,
			OwnerID:     owner,
			Metadata:    metadata,
		})
	}

	return records
}

// UtteranceRecords emits one medium-salience, permanent record per user
// utterance. Utterances shorter than three characters are dropped.
func UtteranceRecords(messages []UserMessage, owner string, corr Correlation) []memstore.Record {
	var records []memstore.Record

	for idx, msg := range messages {
		if len(strings.TrimSpace(msg.Message)) < 3 {
			continue
		}

		metadata := map[string]any{
			"message_index":     idx,
			"type":              "user_utterance",
			"time_in_call_secs": msg.TimeInCallSecs,
		}
		addCorrelation(metadata, corr)

		records = append(records, memstore.Record{
			Content:     msg.Message,
			Tags:        []string{"conversation", "user_message"},
			Salience:    memstore.MediumSalience,
			DecayLambda: memstore.PermanentDecay,
			OwnerID:     owner,
			Metadata:    metadata,
		})
	}

	return records
}

// FormatProfileFact renders an identity fact as readable text. Unrecognized
// fields fall back to a "Key: value" rendering.
func FormatProfileFact(key, value string) string {
	if value == "" {
		return ""
	}

	if format, ok := profileFactFormats[key]; ok {
		return strings.Replace(format, "%s", value, 1)
	}

	readable := strings.ReplaceAll(key, "_", " ")
	words := strings.Fields(readable)
	for i, w := range words {
		words[i] = capitalize(w)
	}
	return strings.Join(words, " ") + ": " + value
}

func addCorrelation(metadata map[string]any, corr Correlation) {
	if corr.ConversationID != "" {
		metadata["conversation_id"] = corr.ConversationID
	}
	if corr.EventTimestamp != 0 {
		metadata["event_timestamp"] = corr.EventTimestamp
	}
}
