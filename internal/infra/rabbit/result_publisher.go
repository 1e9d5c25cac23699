package rabbit

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	amqp "github.com/rabbitmq/amqp091-go"

	"quiz-attempt-service/internal/domain"
)

// SubmittedRoutingKey is the routing key of attempt-submitted events.
const SubmittedRoutingKey = "attempt.submitted"

// ResultPublisher announces scored attempts on a topic exchange so other
// services (analytics, notifications) can react without polling the store.
type ResultPublisher struct {
	exchange string

	mu   sync.Mutex
	conn *amqp.Connection
	ch   *amqp.Channel
}

// NewResultPublisher dials the broker and declares the exchange.
func NewResultPublisher(url, exchange string) (*ResultPublisher, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("dial rabbitmq: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("open channel: %w", err)
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
		_ = conn.Close()
		return nil, fmt.Errorf("declare exchange %q: %w", exchange, err)
	}
	return &ResultPublisher{exchange: exchange, conn: conn, ch: ch}, nil
}

// PersistResult publishes the record as a JSON event.
func (p *ResultPublisher) PersistResult(ctx context.Context, record domain.AttemptRecord) error {
	msg, err := encodeSubmitted(record)
	if err != nil {
		return err
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.ch.PublishWithContext(ctx, p.exchange, SubmittedRoutingKey, false, false, msg); err != nil {
		return fmt.Errorf("publish %s: %w", SubmittedRoutingKey, err)
	}
	return nil
}

func (p *ResultPublisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	_ = p.ch.Close()
	return p.conn.Close()
}

func encodeSubmitted(record domain.AttemptRecord) (amqp.Publishing, error) {
	body, err := json.Marshal(record)
	if err != nil {
		return amqp.Publishing{}, fmt.Errorf("marshal record: %w", err)
	}
	return amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		MessageId:    record.AttemptID,
		Timestamp:    record.SubmittedAt,
		Type:         SubmittedRoutingKey,
		Body:         body,
	}, nil
}
