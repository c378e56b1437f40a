package amqp

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/streadway/amqp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"quiz-bot/internal/domain"
)

type fakeChannel struct {
	published []published
	err       error
}

type published struct {
	exchange string
	key      string
	msg      amqp.Publishing
}

func (c *fakeChannel) Publish(exchange, key string, _, _ bool, msg amqp.Publishing) error {
	if c.err != nil {
		return c.err
	}
	c.published = append(c.published, published{exchange: exchange, key: key, msg: msg})
	return nil
}

func (c *fakeChannel) Close() error { return nil }

func TestPublisherRoutesByEventType(t *testing.T) {
	ch := &fakeChannel{}
	p := NewPublisher(ch, "quiz.events", nil)
	p.now = func() time.Time { return time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC) }
	ctx := context.Background()

	p.QuizFinished(ctx, domain.AttemptResult{UserID: "42", Score: 3, Total: 5, Persisted: true})
	p.QuizCancelled(ctx, "42")
	p.PersistenceFailed(ctx, "42", errors.New("disk full"))
	p.QuizStarted(ctx, "42")

	require.Len(t, ch.published, 3)
	assert.Equal(t, EventQuizFinished, ch.published[0].key)
	assert.Equal(t, EventQuizCancelled, ch.published[1].key)
	assert.Equal(t, EventPersistenceFailed, ch.published[2].key)
	assert.Equal(t, "quiz.events", ch.published[0].exchange)

	var event struct {
		Type    string                 `json:"type"`
		Payload map[string]interface{} `json:"payload"`
	}
	require.NoError(t, json.Unmarshal(ch.published[0].msg.Body, &event))
	assert.Equal(t, EventQuizFinished, event.Type)
	assert.Equal(t, float64(3), event.Payload["score"])
	assert.Equal(t, "application/json", ch.published[0].msg.ContentType)
}

func TestPublisherSwallowsErrors(t *testing.T) {
	p := NewPublisher(&fakeChannel{err: errors.New("channel closed")}, "quiz.events", nil)

	assert.NotPanics(t, func() {
		p.QuizCancelled(context.Background(), "42")
	})
}
