package memory

import (
	"context"
	"sync"

	"github.com/Tarasyah/TriviaQuiz/internal/domain"
)

// SessionStore is an in-memory implementation of app.SessionRepository,
// used in tests and redis-less deployments. States are stored by value so a
// caller mutating its copy only becomes visible through Save.
type SessionStore struct {
	mu     sync.RWMutex
	states map[string]domain.QuizState
}

func NewSessionStore() *SessionStore {
	return &SessionStore{states: make(map[string]domain.QuizState)}
}

func (s *SessionStore) Save(_ context.Context, sessionID string, state *domain.QuizState) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.states[sessionID] = cloneState(state)
	return nil
}

func (s *SessionStore) Load(_ context.Context, sessionID string) (*domain.QuizState, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	state, ok := s.states[sessionID]
	if !ok {
		return nil, domain.ErrSessionNotFound
	}
	copied := cloneState(&state)
	return &copied, nil
}

func (s *SessionStore) Delete(_ context.Context, sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.states[sessionID]; !ok {
		return domain.ErrSessionNotFound
	}
	delete(s.states, sessionID)
	return nil
}

func cloneState(state *domain.QuizState) domain.QuizState {
	copied := *state
	copied.Questions = append([]domain.Question(nil), state.Questions...)
	copied.Answers = append([]string(nil), state.Answers...)
	return copied
}
