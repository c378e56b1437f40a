package mongo

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"quiz-bot/internal/domain"
)

type resultDocument struct {
	UserID    string                `bson:"_id"`
	Answers   domain.AttemptAnswers `bson:"answers"`
	Score     int                   `bson:"score"`
	UpdatedAt time.Time             `bson:"updated_at"`
}

// ResultsRepository keeps one document per user in the "results" collection.
type ResultsRepository struct {
	col *mongo.Collection
}

func NewResultsRepository(db *mongo.Database) *ResultsRepository {
	return &ResultsRepository{col: db.Collection("results")}
}

func (r *ResultsRepository) ReadAll(ctx context.Context) (domain.Results, error) {
	cur, err := r.col.Find(ctx, bson.M{})
	if err != nil {
		return domain.Results{}, fmt.Errorf("%w: %v", domain.ErrResultsUnavailable, err)
	}
	defer cur.Close(ctx)

	results := domain.NewResults()
	for cur.Next(ctx) {
		var doc resultDocument
		if err := cur.Decode(&doc); err != nil {
			return domain.Results{}, fmt.Errorf("%w: %v", domain.ErrResultsUnavailable, err)
		}
		if doc.Answers == nil {
			doc.Answers = domain.AttemptAnswers{}
		}
		results.Results[doc.UserID] = doc.Answers
		results.Totals[doc.UserID] = doc.Score
	}
	if err := cur.Err(); err != nil {
		return domain.Results{}, fmt.Errorf("%w: %v", domain.ErrResultsUnavailable, err)
	}
	return results, nil
}

func (r *ResultsRepository) Put(ctx context.Context, userID string, answers domain.AttemptAnswers, score int) error {
	doc := resultDocument{
		UserID:    userID,
		Answers:   answers,
		Score:     score,
		UpdatedAt: time.Now().UTC(),
	}
	_, err := r.col.ReplaceOne(ctx, bson.M{"_id": userID}, doc, options.Replace().SetUpsert(true))
	return err
}
