package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/Tarasyah/TriviaQuiz/internal/domain"
	"github.com/redis/go-redis/v9"
)

// stateSchemaVersion guards the persisted blob shape. Loads reject any
// envelope with a different version instead of trusting the stored shape.
const stateSchemaVersion = 1

// stateEnvelope is the versioned wire form of a QuizState in Redis.
type stateEnvelope struct {
	Version int               `json:"v"`
	State   *domain.QuizState `json:"state"`
}

// SessionStore persists in-progress quiz state in Redis, one JSON blob per
// session, so a quiz survives a full page reload. The TTL bounds how long an
// abandoned quiz lingers.
type SessionStore struct {
	client *redis.Client
	ttl    time.Duration
}

func NewSessionStore(client *redis.Client, ttl time.Duration) *SessionStore {
	return &SessionStore{client: client, ttl: ttl}
}

func (s *SessionStore) Save(ctx context.Context, sessionID string, state *domain.QuizState) error {
	data, err := json.Marshal(stateEnvelope{Version: stateSchemaVersion, State: state})
	if err != nil {
		return fmt.Errorf("marshal quiz state: %w", err)
	}
	if err := s.client.Set(ctx, s.key(sessionID), data, s.ttl).Err(); err != nil {
		return fmt.Errorf("save quiz state: %w", err)
	}
	return nil
}

func (s *SessionStore) Load(ctx context.Context, sessionID string) (*domain.QuizState, error) {
	data, err := s.client.Get(ctx, s.key(sessionID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, domain.ErrSessionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load quiz state: %w", err)
	}

	var envelope stateEnvelope
	if err := json.Unmarshal(data, &envelope); err != nil || envelope.State == nil {
		// Unreadable blob: drop it and report no session rather than handing
		// corrupt state to the quiz.
		_ = s.client.Del(ctx, s.key(sessionID)).Err()
		return nil, domain.ErrSessionNotFound
	}
	if envelope.Version != stateSchemaVersion {
		_ = s.client.Del(ctx, s.key(sessionID)).Err()
		return nil, domain.ErrSessionNotFound
	}
	if len(envelope.State.Answers) != len(envelope.State.Questions) {
		_ = s.client.Del(ctx, s.key(sessionID)).Err()
		return nil, domain.ErrSessionNotFound
	}
	return envelope.State, nil
}

func (s *SessionStore) Delete(ctx context.Context, sessionID string) error {
	deleted, err := s.client.Del(ctx, s.key(sessionID)).Result()
	if err != nil {
		return fmt.Errorf("delete quiz state: %w", err)
	}
	if deleted == 0 {
		return domain.ErrSessionNotFound
	}
	return nil
}

func (s *SessionStore) key(sessionID string) string {
	return "quiz:state:" + sessionID
}
