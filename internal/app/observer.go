package app

import (
	"context"

	"quiz-bot/internal/domain"
)

// Observer receives quiz lifecycle notifications (metrics, event buses, ...).
// Implementations must not block for long; they run on the user's event path.
type Observer interface {
	QuizStarted(ctx context.Context, userID string)
	AnswerRecorded(ctx context.Context, userID, questionID string)
	QuizCancelled(ctx context.Context, userID string)
	QuizFinished(ctx context.Context, result domain.AttemptResult)
	PersistenceFailed(ctx context.Context, userID string, err error)
}

// NopObserver ignores every notification.
type NopObserver struct{}

func (NopObserver) QuizStarted(context.Context, string)                {}
func (NopObserver) AnswerRecorded(context.Context, string, string)     {}
func (NopObserver) QuizCancelled(context.Context, string)              {}
func (NopObserver) QuizFinished(context.Context, domain.AttemptResult) {}
func (NopObserver) PersistenceFailed(context.Context, string, error)   {}

// Observers fans a notification out to every member.
type Observers []Observer

func (o Observers) QuizStarted(ctx context.Context, userID string) {
	for _, obs := range o {
		obs.QuizStarted(ctx, userID)
	}
}

func (o Observers) AnswerRecorded(ctx context.Context, userID, questionID string) {
	for _, obs := range o {
		obs.AnswerRecorded(ctx, userID, questionID)
	}
}

func (o Observers) QuizCancelled(ctx context.Context, userID string) {
	for _, obs := range o {
		obs.QuizCancelled(ctx, userID)
	}
}

func (o Observers) QuizFinished(ctx context.Context, result domain.AttemptResult) {
	for _, obs := range o {
		obs.QuizFinished(ctx, result)
	}
}

func (o Observers) PersistenceFailed(ctx context.Context, userID string, err error) {
	for _, obs := range o {
		obs.PersistenceFailed(ctx, userID, err)
	}
}
