package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v4/pgxpool"

	"quiz-bot/internal/domain"
)

// ResultsRepository stores attempts in the quiz_results table (see migrations).
type ResultsRepository struct {
	pool *pgxpool.Pool
}

func NewResultsRepository(pool *pgxpool.Pool) *ResultsRepository {
	return &ResultsRepository{pool: pool}
}

func (r *ResultsRepository) ReadAll(ctx context.Context) (domain.Results, error) {
	rows, err := r.pool.Query(ctx, `SELECT user_id, answers, score FROM quiz_results`)
	if err != nil {
		return domain.Results{}, fmt.Errorf("%w: query results: %v", domain.ErrResultsUnavailable, err)
	}
	defer rows.Close()

	results := domain.NewResults()
	for rows.Next() {
		var (
			userID string
			raw    []byte
			score  int
		)
		if err := rows.Scan(&userID, &raw, &score); err != nil {
			return domain.Results{}, fmt.Errorf("%w: scan result: %v", domain.ErrResultsUnavailable, err)
		}
		var answers domain.AttemptAnswers
		if err := json.Unmarshal(raw, &answers); err != nil {
			return domain.Results{}, fmt.Errorf("%w: unmarshal answers: %v", domain.ErrResultsUnavailable, err)
		}
		results.Results[userID] = answers
		results.Totals[userID] = score
	}
	if err := rows.Err(); err != nil {
		return domain.Results{}, fmt.Errorf("%w: %v", domain.ErrResultsUnavailable, err)
	}
	return results, nil
}

func (r *ResultsRepository) Put(ctx context.Context, userID string, answers domain.AttemptAnswers, score int) error {
	raw, err := json.Marshal(answers)
	if err != nil {
		return fmt.Errorf("marshal answers: %w", err)
	}
	_, err = r.pool.Exec(ctx, `
		INSERT INTO quiz_results (user_id, answers, score, updated_at)
		VALUES ($1, $2::jsonb, $3, now())
		ON CONFLICT (user_id) DO UPDATE
		SET answers = EXCLUDED.answers, score = EXCLUDED.score, updated_at = EXCLUDED.updated_at`,
		userID, string(raw), score)
	if err != nil {
		return fmt.Errorf("upsert result: %w", err)
	}
	return nil
}
