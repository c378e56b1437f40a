package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/redis/go-redis/v9"

	"quiz-bot/internal/domain"
)

// ResultsRepository keeps results in two hashes:
//
//	HSET quiz:results {userID} {answers JSON}
//	HSET quiz:totals  {userID} {score}
//
// Both fields are written in one MULTI/EXEC so a reader never sees half an attempt.
type ResultsRepository struct {
	client *redis.Client
}

func NewResultsRepository(client *redis.Client) *ResultsRepository {
	return &ResultsRepository{client: client}
}

func (r *ResultsRepository) ReadAll(ctx context.Context) (domain.Results, error) {
	var answersCmd, totalsCmd *redis.MapStringStringCmd
	_, err := r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		answersCmd = pipe.HGetAll(ctx, resultsKey)
		totalsCmd = pipe.HGetAll(ctx, totalsKey)
		return nil
	})
	if err != nil {
		return domain.Results{}, fmt.Errorf("%w: %v", domain.ErrResultsUnavailable, err)
	}

	results := domain.NewResults()
	for userID, raw := range answersCmd.Val() {
		var answers domain.AttemptAnswers
		if err := json.Unmarshal([]byte(raw), &answers); err != nil {
			return domain.Results{}, fmt.Errorf("%w: answers of %s: %v", domain.ErrResultsUnavailable, userID, err)
		}
		results.Results[userID] = answers
	}
	for userID, raw := range totalsCmd.Val() {
		score, err := strconv.Atoi(raw)
		if err != nil {
			return domain.Results{}, fmt.Errorf("%w: score of %s: %v", domain.ErrResultsUnavailable, userID, err)
		}
		results.Totals[userID] = score
	}
	return results, nil
}

func (r *ResultsRepository) Put(ctx context.Context, userID string, answers domain.AttemptAnswers, score int) error {
	raw, err := json.Marshal(answers)
	if err != nil {
		return err
	}
	_, err = r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HSet(ctx, resultsKey, userID, raw)
		pipe.HSet(ctx, totalsKey, userID, score)
		return nil
	})
	return err
}

const (
	resultsKey = "quiz:results"
	totalsKey  = "quiz:totals"
)
