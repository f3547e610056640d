// Package events publishes audit events about the realtime service to a
// RabbitMQ topic exchange. Publishing is best-effort: when AMQP is not
// configured or unreachable the service runs with a noop publisher.
package events

import (
	"context"
	"encoding/json"
	"log"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

const (
	RouteConnect    = "ws.connect"
	RouteDisconnect = "ws.disconnect"
	RouteMessage    = "message.sent"
)

type Envelope struct {
	EventName  string    `json:"event_name"`
	OccurredAt time.Time `json:"occurred_at"`
	Payload    any       `json:"payload"`
}

type Publisher interface {
	Publish(ctx context.Context, routingKey string, event Envelope) error
	Close() error
}

// NewPublisher builds a RabbitMQ publisher or a noop publisher when AMQP
// is disabled.
func NewPublisher(logger *log.Logger, amqpURL, exchange string) Publisher {
	if amqpURL == "" {
		logger.Println("amqp disabled, audit events will not be published")
		return NopPublisher{}
	}

	conn, err := amqp.Dial(amqpURL)
	if err != nil {
		logger.Printf("amqp unavailable, using noop publisher: %v", err)
		return NopPublisher{}
	}

	ch, err := conn.Channel()
	if err != nil {
		logger.Printf("amqp channel failed, using noop publisher: %v", err)
		conn.Close()
		return NopPublisher{}
	}

	if err := ch.ExchangeDeclare(
		exchange,
		"topic",
		true,  // durable
		false, // auto-deleted
		false, // internal
		false, // no-wait
		nil,
	); err != nil {
		logger.Printf("amqp exchange declare failed, using noop publisher: %v", err)
		ch.Close()
		conn.Close()
		return NopPublisher{}
	}

	logger.Printf("amqp connected, exchange %q", exchange)
	return &amqpPublisher{log: logger, conn: conn, ch: ch, exchange: exchange}
}

type amqpPublisher struct {
	log      *log.Logger
	conn     *amqp.Connection
	ch       *amqp.Channel
	exchange string
}

func (p *amqpPublisher) Publish(ctx context.Context, routingKey string, event Envelope) error {
	body, err := json.Marshal(event)
	if err != nil {
		return err
	}

	err = p.ch.PublishWithContext(ctx, p.exchange, routingKey, false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Body:         body,
	})
	if err != nil {
		p.log.Printf("amqp publish failed: %v", err)
	}
	return err
}

func (p *amqpPublisher) Close() error {
	if err := p.ch.Close(); err != nil {
		p.conn.Close()
		return err
	}
	return p.conn.Close()
}

type NopPublisher struct{}

func (NopPublisher) Publish(ctx context.Context, routingKey string, event Envelope) error {
	return nil
}

func (NopPublisher) Close() error { return nil }
