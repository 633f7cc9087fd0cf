// Package events fans marketplace lifecycle events out to RabbitMQ so the
// notification and reporting consumers stay off the request path. The
// engine publishes best-effort: a broker outage never fails a bid.
package events

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

const exchangeName = "vahanbid.events"

const (
	TopicBidAccepted     = "bid.accepted"
	TopicAuctionEnded    = "auction.ended"
	TopicPurchaseCreated = "purchase.created"
	TopicPaymentApplied  = "payment.applied"
)

type Publisher interface {
	Publish(ctx context.Context, topic string, payload any)
	Close() error
}

type AMQPPublisher struct {
	conn *amqp.Connection
	ch   *amqp.Channel
}

func NewAMQPPublisher(url string) (*AMQPPublisher, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, err
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, err
	}
	if err := ch.ExchangeDeclare(exchangeName, "topic", true, false, false, false, nil); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return nil, err
	}
	return &AMQPPublisher{conn: conn, ch: ch}, nil
}

func (p *AMQPPublisher) Publish(ctx context.Context, topic string, payload any) {
	body, err := json.Marshal(payload)
	if err != nil {
		slog.Error("event marshal failed", "topic", topic, "error", err)
		return
	}
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	err = p.ch.PublishWithContext(ctx, exchangeName, topic, false, false, amqp.Publishing{
		ContentType: "application/json",
		Timestamp:   time.Now(),
		Body:        body,
	})
	if err != nil {
		slog.Error("event publish failed", "topic", topic, "error", err)
	}
}

func (p *AMQPPublisher) Close() error {
	_ = p.ch.Close()
	return p.conn.Close()
}

// Noop stands in when AMQP_URL is not configured.
type Noop struct{}

func (Noop) Publish(context.Context, string, any) {}

func (Noop) Close() error { return nil }
