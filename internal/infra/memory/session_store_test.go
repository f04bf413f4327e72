package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/Tarasyah/TriviaQuiz/internal/domain"
)

func TestSessionStoreIsolatesStoredState(t *testing.T) {
	store := NewSessionStore()
	ctx := context.Background()

	state := domain.NewQuizState(sampleBatch(), 0, time.Now())
	if err := store.Save(ctx, "s1", state); err != nil {
		t.Fatalf("save: %v", err)
	}

	// Mutating the caller's copy must not leak into the store.
	state.Advance()
	if err := state.RecordAnswer(1, "1989"); err != nil {
		t.Fatalf("record answer: %v", err)
	}

	loaded, err := store.Load(ctx, "s1")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if loaded.CurrentIndex != 0 || loaded.Answers[1] != "" {
		t.Fatalf("stored state was mutated through the caller's copy: %+v", loaded)
	}

	// And mutating a loaded copy must not leak back either.
	loaded.Advance()
	again, err := store.Load(ctx, "s1")
	if err != nil {
		t.Fatalf("load again: %v", err)
	}
	if again.CurrentIndex != 0 {
		t.Fatalf("stored state was mutated through a loaded copy: %+v", again)
	}
}

func TestSessionStoreDelete(t *testing.T) {
	store := NewSessionStore()
	ctx := context.Background()

	if err := store.Save(ctx, "s1", domain.NewQuizState(sampleBatch(), 0, time.Now())); err != nil {
		t.Fatalf("save: %v", err)
	}
	if err := store.Delete(ctx, "s1"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := store.Load(ctx, "s1"); !errors.Is(err, domain.ErrSessionNotFound) {
		t.Fatalf("expected ErrSessionNotFound, got %v", err)
	}
	if err := store.Delete(ctx, "s1"); !errors.Is(err, domain.ErrSessionNotFound) {
		t.Fatalf("expected ErrSessionNotFound on double delete, got %v", err)
	}
}
