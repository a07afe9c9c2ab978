package mq

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/goldenbridgewomen/gbw-tracker/internal/audit"
	"github.com/goldenbridgewomen/gbw-tracker/internal/repository"
	"github.com/goldenbridgewomen/gbw-tracker/pkg/logger"
	"github.com/rabbitmq/amqp091-go"
)

// MessageHandler processes one message body. A returned error requeues the message.
type MessageHandler func(ctx context.Context, body []byte) error

type Consumer struct {
	channel    *amqp091.Channel
	queue      amqp091.Queue
	routingKey string
	handler    MessageHandler
}

// NewConsumer declares a durable queue "<routingKey>.q" bound to the exchange.
func NewConsumer(conn *amqp091.Connection, routingKey string, handler MessageHandler) (*Consumer, error) {
	ch, err := conn.Channel()
	if err != nil {
		return nil, fmt.Errorf("failed to open channel: %w", err)
	}
	if err := DeclareExchange(ch); err != nil {
		return nil, fmt.Errorf("failed to declare exchange: %w", err)
	}

	q, err := ch.QueueDeclare(
		routingKey+".q",
		true,  // durable
		false, // delete when unused
		false, // exclusive
		false, // no-wait
		nil,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to declare queue: %w", err)
	}

	if err := ch.QueueBind(q.Name, routingKey, ExchangeName, false, nil); err != nil {
		return nil, fmt.Errorf("failed to bind queue: %w", err)
	}

	if err := ch.Qos(32, 0, false); err != nil {
		return nil, fmt.Errorf("failed to set qos: %w", err)
	}

	return &Consumer{
		channel:    ch,
		queue:      q,
		routingKey: routingKey,
		handler:    handler,
	}, nil
}

func (c *Consumer) Close() {
	if c.channel != nil {
		_ = c.channel.Close()
	}
}

// Run consumes until ctx is cancelled or the channel closes.
func (c *Consumer) Run(ctx context.Context) error {
	msgs, err := c.channel.ConsumeWithContext(ctx,
		c.queue.Name,
		"audit-worker",
		false, // manual ack
		false,
		false,
		false,
		nil,
	)
	if err != nil {
		return fmt.Errorf("failed to register consumer: %w", err)
	}

	logger.Log.WithField("queue", c.queue.Name).Info("Consumer started")

	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-msgs:
			if !ok {
				return fmt.Errorf("delivery channel closed")
			}
			if err := c.handler(ctx, msg.Body); err != nil {
				logger.Log.WithError(err).WithField("routing_key", c.routingKey).Warn("Handler failed, requeueing")
				_ = msg.Nack(false, true)
				continue
			}
			if err := msg.Ack(false); err != nil {
				logger.Log.WithError(err).Warn("Failed to ack message")
			}
		}
	}
}

// AuditHandler decodes events and persists them. Malformed bodies are acknowledged and
// dropped so they do not loop forever.
func AuditHandler(store repository.AuditStore) MessageHandler {
	return func(ctx context.Context, body []byte) error {
		var ev audit.Event
		if err := json.Unmarshal(body, &ev); err != nil {
			logger.Log.WithError(err).Warn("Dropping malformed audit event")
			return nil
		}
		return audit.Persist(ctx, store, ev)
	}
}
