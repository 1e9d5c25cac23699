package memory

import (
	"context"
	"sync"

	"quiz-attempt-service/internal/app"
)

// AttemptStore is an in-memory implementation of app.AttemptStore.
type AttemptStore struct {
	mu       sync.RWMutex
	attempts map[string]*app.Attempt
}

func NewAttemptStore() *AttemptStore {
	return &AttemptStore{
		attempts: make(map[string]*app.Attempt),
	}
}

func (s *AttemptStore) Save(_ context.Context, attempt *app.Attempt) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.attempts[attempt.ID()] = attempt
	return nil
}

func (s *AttemptStore) Get(_ context.Context, attemptID string) (*app.Attempt, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	attempt, ok := s.attempts[attemptID]
	return attempt, ok
}

func (s *AttemptStore) Delete(_ context.Context, attemptID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.attempts, attemptID)
}

func (s *AttemptStore) All() []*app.Attempt {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*app.Attempt, 0, len(s.attempts))
	for _, attempt := range s.attempts {
		out = append(out, attempt)
	}
	return out
}
