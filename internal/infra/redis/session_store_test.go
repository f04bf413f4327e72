package redis

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/Tarasyah/TriviaQuiz/internal/domain"
	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func TestSessionStoreRoundTrip(t *testing.T) {
	mr, client := newTestRedis(t)
	defer mr.Close()

	store := NewSessionStore(client, time.Minute)
	ctx := context.Background()

	state := domain.NewQuizState(sampleQuestions(), 3*time.Minute, time.Now().UTC().Truncate(time.Second))
	if err := state.RecordAnswer(0, "Mars"); err != nil {
		t.Fatalf("record answer: %v", err)
	}
	state.Advance()

	if err := store.Save(ctx, "s1", state); err != nil {
		t.Fatalf("save: %v", err)
	}

	loaded, err := store.Load(ctx, "s1")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if loaded.CurrentIndex != 1 || loaded.Answers[0] != "Mars" {
		t.Fatalf("unexpected state after load: %+v", loaded)
	}
	if loaded.TimeBudget != state.TimeBudget || !loaded.StartedAt.Equal(state.StartedAt) {
		t.Fatalf("timer fields did not survive: %+v", loaded)
	}

	if err := store.Delete(ctx, "s1"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := store.Load(ctx, "s1"); !errors.Is(err, domain.ErrSessionNotFound) {
		t.Fatalf("expected ErrSessionNotFound after delete, got %v", err)
	}
}

func TestSessionStoreDeleteMissing(t *testing.T) {
	mr, client := newTestRedis(t)
	defer mr.Close()

	store := NewSessionStore(client, time.Minute)
	if err := store.Delete(context.Background(), "nope"); !errors.Is(err, domain.ErrSessionNotFound) {
		t.Fatalf("expected ErrSessionNotFound, got %v", err)
	}
}

func TestSessionStoreRejectsBadBlobs(t *testing.T) {
	cases := []struct {
		name string
		blob string
	}{
		{"corrupt", `not json at all`},
		{"wrong version", `{"v":99,"state":{"questions":[],"answers":[],"currentIndex":0}}`},
		{"answers length mismatch", `{"v":1,"state":{"questions":[{"text":"q","correctAnswer":"a","incorrectAnswers":["b"]}],"answers":[],"currentIndex":0}}`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			mr, client := newTestRedis(t)
			defer mr.Close()

			if err := mr.Set("quiz:state:s1", tc.blob); err != nil {
				t.Fatalf("seed blob: %v", err)
			}

			store := NewSessionStore(client, time.Minute)
			if _, err := store.Load(context.Background(), "s1"); !errors.Is(err, domain.ErrSessionNotFound) {
				t.Fatalf("expected ErrSessionNotFound, got %v", err)
			}
			// The bad blob must be gone so the next start is clean.
			if mr.Exists("quiz:state:s1") {
				t.Fatal("expected bad blob to be dropped")
			}
		})
	}
}

func newTestRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("run miniredis: %v", err)
	}
	return mr, redis.NewClient(&redis.Options{Addr: mr.Addr()})
}

func sampleQuestions() []domain.Question {
	return []domain.Question{
		{
			Category:         "Science",
			Difficulty:       domain.DifficultyEasy,
			Text:             "What planet is known as the Red Planet?",
			CorrectAnswer:    "Mars",
			IncorrectAnswers: []string{"Venus", "Jupiter", "Mercury"},
		},
		{
			Category:         "History",
			Difficulty:       domain.DifficultyMedium,
			Text:             "In which year did the Berlin Wall fall?",
			CorrectAnswer:    "1989",
			IncorrectAnswers: []string{"1987", "1991", "1993"},
		},
	}
}
