// Package amqp publishes quiz lifecycle events to a RabbitMQ topic exchange.
package amqp

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/streadway/amqp"

	"quiz-bot/internal/app"
	"quiz-bot/internal/domain"
)

// Routing keys.
const (
	EventQuizFinished      = "quiz.finished"
	EventQuizCancelled     = "quiz.cancelled"
	EventPersistenceFailed = "quiz.persistence_failed"
)

// Event is the message body.
type Event struct {
	Type       string      `json:"type"`
	OccurredAt time.Time   `json:"occurredAt"`
	Payload    interface{} `json:"payload"`
}

// Channel is the subset of *amqp.Channel the publisher needs.
type Channel interface {
	Publish(exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
	Close() error
}

// Publisher is an app.Observer that forwards finished, cancelled and failed
// attempts. Publishing is best effort: errors are logged and never reach the user.
type Publisher struct {
	app.NopObserver

	conn     *amqp.Connection
	channel  Channel
	exchange string
	log      *slog.Logger
	now      func() time.Time
}

// Dial connects and declares the topic exchange.
func Dial(url, exchange string, log *slog.Logger) (*Publisher, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, err
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, err
	}
	err = ch.ExchangeDeclare(
		exchange,
		"topic",
		true,
		false,
		false,
		false,
		nil,
	)
	if err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return nil, err
	}
	p := NewPublisher(ch, exchange, log)
	p.conn = conn
	return p, nil
}

// NewPublisher wraps an already opened channel.
func NewPublisher(ch Channel, exchange string, log *slog.Logger) *Publisher {
	if log == nil {
		log = slog.Default()
	}
	return &Publisher{channel: ch, exchange: exchange, log: log, now: time.Now}
}

func (p *Publisher) QuizFinished(ctx context.Context, result domain.AttemptResult) {
	p.publish(EventQuizFinished, map[string]interface{}{
		"userId":    result.UserID,
		"score":     result.Score,
		"total":     result.Total,
		"persisted": result.Persisted,
		"answers":   result.Answers,
	})
}

func (p *Publisher) QuizCancelled(ctx context.Context, userID string) {
	p.publish(EventQuizCancelled, map[string]interface{}{"userId": userID})
}

func (p *Publisher) PersistenceFailed(ctx context.Context, userID string, err error) {
	p.publish(EventPersistenceFailed, map[string]interface{}{
		"userId": userID,
		"error":  err.Error(),
	})
}

func (p *Publisher) publish(eventType string, payload interface{}) {
	body, err := json.Marshal(Event{Type: eventType, OccurredAt: p.now().UTC(), Payload: payload})
	if err != nil {
		p.log.Warn("encode event", "type", eventType, "err", err)
		return
	}
	err = p.channel.Publish(
		p.exchange,
		eventType,
		false,
		false,
		amqp.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp.Persistent,
			Timestamp:    p.now(),
			Body:         body,
		},
	)
	if err != nil {
		p.log.Warn("publish event", "type", eventType, "err", err)
	}
}

func (p *Publisher) Close() {
	if p.channel != nil {
		_ = p.channel.Close()
	}
	if p.conn != nil {
		_ = p.conn.Close()
	}
}
