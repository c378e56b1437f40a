package app

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"golang.org/x/sync/singleflight"

	"quiz-bot/internal/domain"
)

// ResultsRepository abstracts where completed attempts live (JSON file, SQL, Redis, ...).
// ReadAll must wrap domain.ErrResultsUnavailable when the store is missing or corrupt.
type ResultsRepository interface {
	ReadAll(ctx context.Context) (domain.Results, error)
	Put(ctx context.Context, userID string, answers domain.AttemptAnswers, score int) error
}

const readAllKey = "all"

// ResultsStore scores attempts and keeps the latest one per user.
type ResultsStore struct {
	repo    ResultsRepository
	catalog domain.Catalog

	// writes are serialized process-wide so a read-modify-write backend never
	// loses a concurrent user's update.
	mu sync.Mutex
	sf singleflight.Group
}

func NewResultsStore(repo ResultsRepository, catalog domain.Catalog) *ResultsStore {
	return &ResultsStore{repo: repo, catalog: catalog}
}

// SaveAttempt scores answers and overwrites the user's previous attempt.
// The returned score is valid even when persisting fails.
func (s *ResultsStore) SaveAttempt(ctx context.Context, userID string, answers domain.AttemptAnswers) (int, error) {
	score := CountScore(answers, s.catalog)

	s.mu.Lock()
	defer s.mu.Unlock()

	err := s.repo.Put(ctx, userID, answers, score)
	// reads already in flight may predate this write; later callers must not join them
	s.sf.Forget(readAllKey)
	if err != nil {
		if errors.Is(err, domain.ErrPersistenceWrite) {
			return score, err
		}
		return score, fmt.Errorf("%w: %v", domain.ErrPersistenceWrite, err)
	}
	return score, nil
}

// ReadAll returns every stored attempt. Concurrent callers share one backend read,
// which is not cancelled when the caller that started it goes away.
func (s *ResultsStore) ReadAll(ctx context.Context) (domain.Results, error) {
	shared := context.WithoutCancel(ctx)
	v, err, _ := s.sf.Do(readAllKey, func() (interface{}, error) {
		return s.repo.ReadAll(shared)
	})
	if err != nil {
		return domain.Results{}, err
	}
	return v.(domain.Results), nil
}

// AggregateStats computes participant count and mean score.
func (s *ResultsStore) AggregateStats(ctx context.Context) (domain.AggregateStats, error) {
	results, err := s.ReadAll(ctx)
	if err != nil {
		return domain.AggregateStats{}, err
	}
	return Aggregate(results.Totals), nil
}

// UserAttempt returns the user's stored answers, if any, together with the aggregate.
func (s *ResultsStore) UserAttempt(ctx context.Context, userID string) (domain.AttemptAnswers, bool, domain.AggregateStats, error) {
	results, err := s.ReadAll(ctx)
	if err != nil {
		return nil, false, domain.AggregateStats{}, err
	}
	answers, ok := results.Results[userID]
	return answers, ok, Aggregate(results.Totals), nil
}

// Aggregate derives statistics from per-user totals. Zero participants yields the
// zero value, which callers render as "no participants yet".
func Aggregate(totals map[string]int) domain.AggregateStats {
	if len(totals) == 0 {
		return domain.AggregateStats{}
	}
	sum := 0
	for _, score := range totals {
		sum += score
	}
	return domain.AggregateStats{
		ParticipantCount: len(totals),
		MeanScore:        float64(sum) / float64(len(totals)),
	}
}
