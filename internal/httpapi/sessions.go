package httpapi

import (
	"fmt"
	"sync"

	"github.com/google/uuid"

	"github.com/spigell/cv-screener/internal/screening"
)

// EngineFactory builds the engine of a new conversation.
type EngineFactory func(id string) *screening.Engine

// Sessions keeps the live conversations of the server.
type Sessions struct {
	mu      sync.RWMutex
	engines map[string]*screening.Engine
	factory EngineFactory
}

func NewSessions(factory EngineFactory) *Sessions {
	return &Sessions{engines: make(map[string]*screening.Engine), factory: factory}
}

// Create starts a conversation under a fresh id.
func (s *Sessions) Create() *screening.Engine {
	id := uuid.NewString()
	e := s.factory(id)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.engines[id] = e
	return e
}

// Get returns the conversation with id.
func (s *Sessions) Get(id string) (*screening.Engine, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	e, ok := s.engines[id]
	if !ok {
		return nil, fmt.Errorf("%w: session %q", screening.ErrNotFound, id)
	}
	return e, nil
}

// Delete drops the conversation with id.
func (s *Sessions) Delete(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.engines[id]; !ok {
		return fmt.Errorf("%w: session %q", screening.ErrNotFound, id)
	}
	delete(s.engines, id)
	return nil
}

// Len returns the number of live conversations.
func (s *Sessions) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.engines)
}
