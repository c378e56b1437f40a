package memory

import (
	"context"
	"sync"

	"quiz-bot/internal/domain"
)

// ResultsRepository keeps results in process memory (tests/demos).
type ResultsRepository struct {
	mu      sync.RWMutex
	results domain.Results
	// Err, when set, is returned by every call (used to simulate a broken store).
	Err error
}

func NewResultsRepository() *ResultsRepository {
	return &ResultsRepository{results: domain.NewResults()}
}

func (r *ResultsRepository) ReadAll(_ context.Context) (domain.Results, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.Err != nil {
		return domain.Results{}, r.Err
	}
	out := domain.NewResults()
	for userID, answers := range r.results.Results {
		out.Results[userID] = answers.Clone()
	}
	for userID, score := range r.results.Totals {
		out.Totals[userID] = score
	}
	return out, nil
}

func (r *ResultsRepository) Put(_ context.Context, userID string, answers domain.AttemptAnswers, score int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.Err != nil {
		return r.Err
	}
	r.results.Results[userID] = answers.Clone()
	r.results.Totals[userID] = score
	return nil
}
