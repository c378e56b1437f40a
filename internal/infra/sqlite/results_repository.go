package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"quiz-bot/internal/domain"
)

// ResultsRepository stores one row per user: the latest answers as JSON plus the score.
type ResultsRepository struct {
	db  *sql.DB
	now func() time.Time
}

func NewResultsRepository(path string) (*ResultsRepository, error) {
	if strings.TrimSpace(path) == "" {
		path = "results.db"
	}

	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, err
	}

	db.SetMaxOpenConns(1)

	if _, err := db.Exec(`PRAGMA busy_timeout = 5000;`); err != nil {
		_ = db.Close()
		return nil, err
	}

	repo := &ResultsRepository{db: db, now: time.Now}
	if err := repo.initSchema(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return repo, nil
}

func (r *ResultsRepository) Close() error {
	return r.db.Close()
}

func (r *ResultsRepository) initSchema(ctx context.Context) error {
	_, err := r.db.ExecContext(ctx, `CREATE TABLE IF NOT EXISTS quiz_results (
		user_id TEXT PRIMARY KEY,
		answers_json TEXT NOT NULL,
		score INTEGER NOT NULL,
		updated_at_unix INTEGER NOT NULL
	);`)
	return err
}

func (r *ResultsRepository) ReadAll(ctx context.Context) (domain.Results, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT user_id, answers_json, score FROM quiz_results`)
	if err != nil {
		return domain.Results{}, fmt.Errorf("%w: %v", domain.ErrResultsUnavailable, err)
	}
	defer rows.Close()

	results := domain.NewResults()
	for rows.Next() {
		var (
			userID  string
			raw     string
			score   int
			answers domain.AttemptAnswers
		)
		if err := rows.Scan(&userID, &raw, &score); err != nil {
			return domain.Results{}, fmt.Errorf("%w: %v", domain.ErrResultsUnavailable, err)
		}
		if err := json.Unmarshal([]byte(raw), &answers); err != nil {
			return domain.Results{}, fmt.Errorf("%w: answers of %s: %v", domain.ErrResultsUnavailable, userID, err)
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
		return err
	}
	_, err = r.db.ExecContext(
		ctx,
		`INSERT INTO quiz_results (user_id, answers_json, score, updated_at_unix)
		 VALUES (?, ?, ?, ?)
		 ON CONFLICT(user_id) DO UPDATE SET
			answers_json = excluded.answers_json,
			score = excluded.score,
			updated_at_unix = excluded.updated_at_unix`,
		userID,
		string(raw),
		score,
		r.now().UnixNano(),
	)
	return err
}
