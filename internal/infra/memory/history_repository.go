package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/Tarasyah/TriviaQuiz/internal/domain"
	"github.com/google/uuid"
)

// HistoryRepository is an in-memory implementation of app.HistoryRepository
// with the same per-user isolation semantics as the Postgres store.
type HistoryRepository struct {
	mu      sync.RWMutex
	entries map[string]domain.HistoryEntry // by entry ID
}

func NewHistoryRepository() *HistoryRepository {
	return &HistoryRepository{entries: make(map[string]domain.HistoryEntry)}
}

func (r *HistoryRepository) Append(_ context.Context, userID string, result domain.QuizResult) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if result.ID == "" {
		result.ID = uuid.NewString()
	}
	if _, exists := r.entries[result.ID]; exists {
		// Entries are write-once; a colliding ID gets a fresh one instead of
		// overwriting.
		result.ID = uuid.NewString()
	}
	result.UserID = userID
	r.entries[result.ID] = result
	return result.ID, nil
}

func (r *HistoryRepository) List(_ context.Context, userID string, order domain.HistoryOrder) ([]domain.HistoryEntry, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	entries := make([]domain.HistoryEntry, 0)
	for _, entry := range r.entries {
		if entry.UserID == userID {
			entries = append(entries, entry)
		}
	}
	sort.Slice(entries, func(i, j int) bool {
		if order == domain.HistoryOrderAsc {
			return entries[i].CompletedAt.Before(entries[j].CompletedAt)
		}
		return entries[i].CompletedAt.After(entries[j].CompletedAt)
	})
	return entries, nil
}

func (r *HistoryRepository) Remove(_ context.Context, userID, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	entry, ok := r.entries[id]
	if !ok {
		return domain.ErrNotFound
	}
	if entry.UserID != userID {
		return domain.ErrForbidden
	}
	delete(r.entries, id)
	return nil
}
