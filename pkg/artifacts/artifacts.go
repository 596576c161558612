// Package artifacts persists raw completion payloads to disk before any
// processing happens, so a failed pipeline run can always be replayed
// from the original event.
package artifacts

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Store writes one directory per conversation under a payload root.
type Store struct {
	root string
}

// NewStore creates an artifact store rooted at root, creating the
// directory if needed.
func NewStore(root string) (*Store, error) {
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create payload root: %w", err)
	}
	return &Store{root: root}, nil
}

// SaveTranscription writes the full transcription payload as indented JSON.
func (s *Store) SaveTranscription(conversationID string, payload any) (string, error) {
	data, err := json.MarshalIndent(payload, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to marshal transcription: %w", err)
	}
	return s.write(conversationID, conversationID+"_transcription.json", data)
}

// SaveAudio decodes base64 audio and writes it as an mp3 file.
func (s *Store) SaveAudio(conversationID, audioBase64 string) (string, error) {
	data, err := base64.StdEncoding.DecodeString(audioBase64)
	if err != nil {
		return "", fmt.Errorf("failed to decode audio: %w", err)
	}
	return s.write(conversationID, conversationID+"_audio.mp3", data)
}

// SaveFailure writes a call-initiation failure payload as indented JSON.
func (s *Store) SaveFailure(conversationID string, payload any) (string, error) {
	data, err := json.MarshalIndent(payload, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to marshal failure: %w", err)
	}
	return s.write(conversationID, conversationID+"_failure.json", data)
}

// ProcessingError is the error artifact written when pipeline processing
// fails after ingestion.
type ProcessingError struct {
	ConversationID string `json:"conversation_id"`
	CompletionType string `json:"completion_type"`
	Error          string `json:"error"`
	OccurredAt     string `json:"occurred_at"`
}

// SaveError writes the processing-error artifact for a conversation, so a
// failed run leaves a trace on disk next to the raw payload.
func (s *Store) SaveError(conversationID string, record ProcessingError) (string, error) {
	data, err := json.MarshalIndent(record, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to marshal error record: %w", err)
	}
	return s.write(conversationID, conversationID+"_error.json", data)
}

// SaveRaw writes an unrecognized or unparseable payload verbatim so it is
// never lost.
func (s *Store) SaveRaw(conversationID string, body []byte) (string, error) {
	return s.write(conversationID, conversationID+"_raw.json", body)
}

func (s *Store) write(conversationID, filename string, data []byte) (string, error) {
	id := sanitize(conversationID)
	if id == "" {
		return "", fmt.Errorf("invalid conversation id %q", conversationID)
	}

	dir := filepath.Join(s.root, id)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create conversation dir: %w", err)
	}

	path := filepath.Join(dir, sanitize(filename))
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("failed to write artifact: %w", err)
	}

	return path, nil
}

// sanitize strips path separators so a hostile conversation id cannot
// escape the payload root.
func sanitize(name string) string {
	name = strings.ReplaceAll(name, "/", "_")
	name = strings.ReplaceAll(name, "\\", "_")
	name = strings.ReplaceAll(name, "..", "_")
	return strings.TrimSpace(name)
}
