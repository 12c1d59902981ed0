// Package events publishes domain notifications to RabbitMQ.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"
)

const (
	BookingPaid         = "booking.paid"
	SettlementGenerated = "settlement.generated"
)

type BookingPaidEvent struct {
	BookingID     uint    `json:"booking_id"`
	Amount        float64 `json:"amount"`
	ReceiptNumber int64   `json:"receipt_number"`
	PaidAt        string  `json:"paid_at"`
}

type SettlementGeneratedEvent struct {
	SettlementID uint    `json:"settlement_id"`
	BusinessUnit string  `json:"business_unit"`
	Month        string  `json:"month"`
	Total        float64 `json:"total"`
}

type Publisher interface {
	Publish(ctx context.Context, routingKey string, v any) error
	Close() error
}

// Emit publishes v and only logs failures. Notifications never fail the
// operation that produced them.
func Emit(ctx context.Context, p Publisher, log *zap.Logger, routingKey string, v any) {
	if p == nil {
		return
	}
	if err := p.Publish(ctx, routingKey, v); err != nil {
		log.Warn("event publish failed", zap.String("routing_key", routingKey), zap.Error(err))
	}
}

type NopPublisher struct{}

func (NopPublisher) Publish(context.Context, string, any) error { return nil }
func (NopPublisher) Close() error                               { return nil }

// AMQPPublisher sends persistent JSON messages to a durable queue named
// after the routing key.
type AMQPPublisher struct {
	conn *amqp.Connection
	ch   *amqp.Channel

	mu       sync.Mutex
	declared map[string]bool
}

func Dial(url string) (*AMQPPublisher, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("amqp dial: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("amqp channel: %w", err)
	}
	return &AMQPPublisher{conn: conn, ch: ch, declared: make(map[string]bool)}, nil
}

func (p *AMQPPublisher) Publish(ctx context.Context, routingKey string, v any) error {
	body, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshal %s: %w", routingKey, err)
	}

	// amqp channels are not safe for concurrent use.
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.declared[routingKey] {
		if _, err := p.ch.QueueDeclare(routingKey, true, false, false, false, nil); err != nil {
			return fmt.Errorf("declare %s: %w", routingKey, err)
		}
		p.declared[routingKey] = true
	}

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	return p.ch.PublishWithContext(ctx, "", routingKey, false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Timestamp:    time.Now(),
		Body:         body,
	})
}

func (p *AMQPPublisher) Close() error {
	if err := p.ch.Close(); err != nil {
		p.conn.Close()
		return err
	}
	return p.conn.Close()
}
