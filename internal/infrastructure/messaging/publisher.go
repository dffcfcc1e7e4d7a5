package messaging

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/sirupsen/logrus"

	"github.com/oksasatya/go-ddd-billing/internal/domain/event"
)

// Sender is satisfied by *helpers.RabbitPublisher.
type Sender interface {
	Publish(ctx context.Context, exchange, key string, msg amqp.Publishing) error
}

// Publisher wraps events in an envelope and publishes them to the topic exchange with
// the event type as routing key.
type Publisher struct {
	sender   Sender
	exchange string
	logger   *logrus.Logger
	now      func() time.Time
}

func NewPublisher(sender Sender, exchange string, logger *logrus.Logger) *Publisher {
	return &Publisher{sender: sender, exchange: exchange, logger: logger, now: time.Now}
}

func (p *Publisher) Publish(ctx context.Context, events ...event.Event) error {
	meta := event.Metadata{CorrelationID: event.CorrelationID(ctx)}
	for _, e := range events {
		env, err := event.NewEnvelope(e, meta, p.now())
		if err != nil {
			return err
		}
		msg, err := toPublishing(env)
		if err != nil {
			return err
		}
		if err := p.sender.Publish(ctx, p.exchange, string(env.EventType), msg); err != nil {
			count(metricPublishFailed)
			return fmt.Errorf("publish %s: %w", env.EventType, err)
		}
		count(metricPublished)
		if p.logger != nil {
			p.logger.WithFields(logrus.Fields{
				"event_id":       env.EventID,
				"event_type":     env.EventType,
				"aggregate_id":   env.AggregateID,
				"correlation_id": meta.CorrelationID,
			}).Debug("event published")
		}
	}
	return nil
}

func toPublishing(env event.Envelope) (amqp.Publishing, error) {
	body, err := json.Marshal(env)
	if err != nil {
		return amqp.Publishing{}, fmt.Errorf("marshal envelope: %w", err)
	}
	return amqp.Publishing{
		ContentType:   "application/json",
		DeliveryMode:  amqp.Persistent,
		MessageId:     env.EventID,
		CorrelationId: env.Metadata.CorrelationID,
		Timestamp:     env.OccurredAt,
		Type:          string(env.EventType),
		Headers: amqp.Table{
			HeaderEventType:     string(env.EventType),
			HeaderAggregateType: env.AggregateType,
		},
		Body: body,
	}, nil
}
