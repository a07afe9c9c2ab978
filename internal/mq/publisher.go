package mq

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/goldenbridgewomen/gbw-tracker/internal/audit"
	"github.com/goldenbridgewomen/gbw-tracker/pkg/logger"
	"github.com/goldenbridgewomen/gbw-tracker/pkg/metrics"
	"github.com/rabbitmq/amqp091-go"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

const publishTimeout = 3 * time.Second

// AuditPublisher is an audit.Logger that ships events to the exchange. If publishing fails
// the event is handed to the fallback logger instead.
type AuditPublisher struct {
	conn     *amqp091.Connection
	mu       sync.Mutex
	channel  *amqp091.Channel
	fallback audit.Logger
}

func NewAuditPublisher(conn *amqp091.Connection, fallback audit.Logger) (*AuditPublisher, error) {
	ch, err := conn.Channel()
	if err != nil {
		return nil, fmt.Errorf("failed to open channel: %w", err)
	}
	if err := DeclareExchange(ch); err != nil {
		_ = ch.Close()
		return nil, fmt.Errorf("failed to declare exchange: %w", err)
	}
	if fallback == nil {
		fallback = audit.Discard{}
	}
	return &AuditPublisher{conn: conn, channel: ch, fallback: fallback}, nil
}

func (p *AuditPublisher) Log(ctx context.Context, actorID primitive.ObjectID, action string, targetID primitive.ObjectID, details map[string]any) {
	ev := audit.NewEvent(ctx, actorID, action, targetID, details)
	if err := p.Publish(ctx, ev); err != nil {
		logger.Log.WithError(err).WithField("action", action).Warn("Audit publish failed, using fallback")
		p.fallback.Log(ctx, actorID, action, targetID, details)
		return
	}
	metrics.AuditEvents.WithLabelValues("published").Inc()
}

// Publish sends one event as a persistent JSON message.
func (p *AuditPublisher) Publish(ctx context.Context, ev audit.Event) error {
	body, err := json.Marshal(ev)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), publishTimeout)
	defer cancel()

	p.mu.Lock()
	defer p.mu.Unlock()
	return p.channel.PublishWithContext(ctx,
		ExchangeName,
		AuditRoutingKey,
		false, // mandatory
		false, // immediate
		amqp091.Publishing{
			ContentType:  "application/json",
			Body:         body,
			DeliveryMode: amqp091.Persistent,
			Timestamp:    ev.Timestamp,
			MessageId:    ev.RequestID,
		},
	)
}

func (p *AuditPublisher) Close() {
	if p.channel != nil {
		_ = p.channel.Close()
	}
}
