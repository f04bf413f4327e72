package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/Tarasyah/TriviaQuiz/internal/domain"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"
)

// HistoryRepository persists completed quiz results in Postgres, one row per
// quiz, scoped to a user. Rows are write-once; there is no update path.
type HistoryRepository struct {
	pool *pgxpool.Pool
}

func NewHistoryRepository(pool *pgxpool.Pool) *HistoryRepository {
	return &HistoryRepository{pool: pool}
}

func (r *HistoryRepository) Append(ctx context.Context, userID string, result domain.QuizResult) (string, error) {
	if result.ID == "" {
		result.ID = uuid.NewString()
	}
	_, err := r.pool.Exec(ctx,
		`INSERT INTO quiz_results (id, user_id, score, incorrect, unanswered, total, completed_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		result.ID, userID, result.Score, result.Incorrect, result.Unanswered, result.Total, result.CompletedAt,
	)
	if err != nil {
		return "", fmt.Errorf("append history: %w", err)
	}
	return result.ID, nil
}

func (r *HistoryRepository) List(ctx context.Context, userID string, order domain.HistoryOrder) ([]domain.HistoryEntry, error) {
	direction := "DESC"
	if order == domain.HistoryOrderAsc {
		direction = "ASC"
	}
	rows, err := r.pool.Query(ctx,
		`SELECT id, user_id, score, incorrect, unanswered, total, completed_at
		 FROM quiz_results
		 WHERE user_id = $1
		 ORDER BY completed_at `+direction,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("list history: %w", err)
	}
	defer rows.Close()

	entries := make([]domain.HistoryEntry, 0)
	for rows.Next() {
		var entry domain.HistoryEntry
		if err := rows.Scan(&entry.ID, &entry.UserID, &entry.Score, &entry.Incorrect, &entry.Unanswered, &entry.Total, &entry.CompletedAt); err != nil {
			return nil, fmt.Errorf("scan history entry: %w", err)
		}
		entries = append(entries, entry)
	}
	return entries, rows.Err()
}

func (r *HistoryRepository) Remove(ctx context.Context, userID, id string) error {
	var owner string
	err := r.pool.QueryRow(ctx, `SELECT user_id FROM quiz_results WHERE id = $1`, id).Scan(&owner)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("lookup history entry: %w", err)
	}
	if owner != userID {
		return domain.ErrForbidden
	}

	if _, err := r.pool.Exec(ctx, `DELETE FROM quiz_results WHERE id = $1 AND user_id = $2`, id, userID); err != nil {
		return fmt.Errorf("remove history entry: %w", err)
	}
	return nil
}
