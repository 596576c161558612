// Package sqlite provides a SQLite-backed profile store, the default
// driver for single-node deployments.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"github.com/redialhq/redial/pkg/profile"
)

// Store implements profile.Store using SQLite as the storage backend.
type Store struct {
	db *sql.DB
}

var _ profile.Store = (*Store)(nil)

// NewStore opens (or creates) the database at dbPath and runs migrations.
// The dbPath can be a file path or ":memory:" for an in-memory database.
func NewStore(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	s := &Store{db: db}

	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return s, nil
}

// migrate creates the necessary tables if they don't exist. Identities are
// keyed by caller alone; relationship state is scoped per agent.
func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS caller_identities (
		caller_id TEXT PRIMARY KEY,
		name TEXT NOT NULL DEFAULT '',
		first_seen DATETIME NOT NULL,
		total_interaction_count INTEGER NOT NULL DEFAULT 0
	);

	CREATE TABLE IF NOT EXISTS relationship_states (
		agent_id TEXT NOT NULL,
		caller_id TEXT NOT NULL,
		next_greeting TEXT NOT NULL DEFAULT '',
		key_topics TEXT NOT NULL DEFAULT '[]',
		sentiment TEXT NOT NULL DEFAULT '',
		conversation_summary TEXT NOT NULL DEFAULT '',
		last_call_timestamp INTEGER NOT NULL DEFAULT 0,
		conversation_count INTEGER NOT NULL DEFAULT 0,
		PRIMARY KEY (agent_id, caller_id)
	);
	`

	_, err := s.db.Exec(schema)
	return err
}

func (s *Store) Identity(ctx context.Context, callerID string) (*profile.CallerIdentity, error) {
	query := `SELECT name, first_seen, total_interaction_count
	          FROM caller_identities WHERE caller_id = ?`

	row := s.db.QueryRowContext(ctx, query, callerID)

	identity := profile.CallerIdentity{CallerID: callerID}
	err := row.Scan(&identity.Name, &identity.FirstSeen, &identity.TotalInteractionCount)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan identity: %w", err)
	}

	return &identity, nil
}

func (s *Store) RecordCall(ctx context.Context, callerID, name string, at time.Time) (*profile.CallerIdentity, error) {
	// The ON CONFLICT branch enforces the write-once name policy in SQL so
	// concurrent writers cannot race the merge.
	query := `
	INSERT INTO caller_identities (caller_id, name, first_seen, total_interaction_count)
	VALUES (?, ?, ?, 1)
	ON CONFLICT (caller_id) DO UPDATE SET
		name = CASE WHEN caller_identities.name = '' THEN excluded.name ELSE caller_identities.name END,
		total_interaction_count = caller_identities.total_interaction_count + 1
	`

	_, err := s.db.ExecContext(ctx, query, callerID, profile.MergeName("", name), at)
	if err != nil {
		return nil, fmt.Errorf("failed to upsert identity: %w", err)
	}

	return s.Identity(ctx, callerID)
}

func (s *Store) State(ctx context.Context, agentID, callerID string) (*profile.RelationshipState, error) {
	query := `SELECT next_greeting, key_topics, sentiment, conversation_summary,
	                 last_call_timestamp, conversation_count
	          FROM relationship_states WHERE agent_id = ? AND caller_id = ?`

	row := s.db.QueryRowContext(ctx, query, agentID, callerID)

	var state profile.RelationshipState
	var topicsJSON string

	err := row.Scan(&state.NextGreeting, &topicsJSON, &state.Sentiment,
		&state.ConversationSummary, &state.LastCallTimestamp, &state.ConversationCount)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan state: %w", err)
	}

	if err := json.Unmarshal([]byte(topicsJSON), &state.KeyTopics); err != nil {
		return nil, fmt.Errorf("failed to unmarshal key topics: %w", err)
	}

	return &state, nil
}

func (s *Store) PutState(ctx context.Context, agentID, callerID string, state profile.RelationshipState) error {
	topicsJSON, err := json.Marshal(state.KeyTopics)
	if err != nil {
		return fmt.Errorf("failed to marshal key topics: %w", err)
	}

	query := `
	INSERT INTO relationship_states (agent_id, caller_id, next_greeting, key_topics,
		sentiment, conversation_summary, last_call_timestamp, conversation_count)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	ON CONFLICT (agent_id, caller_id) DO UPDATE SET
		next_greeting = excluded.next_greeting,
		key_topics = excluded.key_topics,
		sentiment = excluded.sentiment,
		conversation_summary = excluded.conversation_summary,
		last_call_timestamp = excluded.last_call_timestamp,
		conversation_count = excluded.conversation_count
	`

	_, err = s.db.ExecContext(ctx, query, agentID, callerID, state.NextGreeting,
		string(topicsJSON), state.Sentiment, state.ConversationSummary,
		state.LastCallTimestamp, state.ConversationCount)
	if err != nil {
		return fmt.Errorf("failed to upsert state: %w", err)
	}

	return nil
}

func (s *Store) Close() error {
	return s.db.Close()
}
