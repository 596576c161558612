// Package inmemory provides a map-backed profile store for tests and
// single-process development runs.
package inmemory

import (
	"context"
	"sync"
	"time"

	"github.com/redialhq/redial/pkg/profile"
)

type stateKey struct {
	agentID  string
	callerID string
}

// Store keeps both tiers in process memory. Safe for concurrent use.
type Store struct {
	mu         sync.RWMutex
	identities map[string]profile.CallerIdentity
	states     map[stateKey]profile.RelationshipState
}

var _ profile.Store = (*Store)(nil)

// NewStore creates an empty in-memory profile store.
func NewStore() *Store {
	return &Store{
		identities: make(map[string]profile.CallerIdentity),
		states:     make(map[stateKey]profile.RelationshipState),
	}
}

func (s *Store) Identity(_ context.Context, callerID string) (*profile.CallerIdentity, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	identity, ok := s.identities[callerID]
	if !ok {
		return nil, nil
	}
	return &identity, nil
}

func (s *Store) RecordCall(_ context.Context, callerID, name string, at time.Time) (*profile.CallerIdentity, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	identity, ok := s.identities[callerID]
	if !ok {
		identity = profile.CallerIdentity{
			CallerID:  callerID,
			FirstSeen: at,
		}
	}

	identity.Name = profile.MergeName(identity.Name, name)
	identity.TotalInteractionCount++
	s.identities[callerID] = identity

	return &identity, nil
}

func (s *Store) State(_ context.Context, agentID, callerID string) (*profile.RelationshipState, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	state, ok := s.states[stateKey{agentID, callerID}]
	if !ok {
		return nil, nil
	}
	return &state, nil
}

func (s *Store) PutState(_ context.Context, agentID, callerID string, state profile.RelationshipState) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.states[stateKey{agentID, callerID}] = state
	return nil
}

func (s *Store) Close() error {
	return nil
}
