// Package messaging carries domain events over RabbitMQ: a topic exchange that every
// event is published to, one durable queue per event type, and a TTL retry loop built
// from dead-letter exchanges.
package messaging

import (
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/oksasatya/go-ddd-billing/internal/domain/event"
)

const (
	HeaderEventType     = "event_type"
	HeaderAggregateType = "aggregate_type"
)

type Topology struct {
	Exchange      string
	RetryExchange string
	QueuePrefix   string
	RetryDelay    time.Duration
}

// QueueName is the work queue subscribed to one event type.
func (t Topology) QueueName(typ event.Type) string {
	return t.QueuePrefix + "." + string(typ)
}

// RetryQueueName parks rejected messages for RetryDelay before they are routed back.
func (t Topology) RetryQueueName(typ event.Type) string {
	return t.QueueName(typ) + ".retry"
}

// DeadQueueName parks messages that exhausted their retries for manual inspection.
func (t Topology) DeadQueueName(typ event.Type) string {
	return t.QueueName(typ) + ".dead"
}

// Declarer is the subset of *amqp.Channel used to declare the topology.
type Declarer interface {
	ExchangeDeclare(name, kind string, durable, autoDelete, internal, noWait bool, args amqp.Table) error
	QueueDeclare(name string, durable, autoDelete, exclusive, noWait bool, args amqp.Table) (amqp.Queue, error)
	QueueBind(name, key, exchange string, noWait bool, args amqp.Table) error
}

// Declare is idempotent; the API and the worker both call it on startup.
func (t Topology) Declare(ch Declarer, types []event.Type) error {
	if err := ch.ExchangeDeclare(t.Exchange, amqp.ExchangeTopic, true, false, false, false, nil); err != nil {
		return fmt.Errorf("declare exchange %s: %w", t.Exchange, err)
	}
	if err := ch.ExchangeDeclare(t.RetryExchange, amqp.ExchangeDirect, true, false, false, false, nil); err != nil {
		return fmt.Errorf("declare exchange %s: %w", t.RetryExchange, err)
	}
	for _, typ := range types {
		key := string(typ)

		queue := t.QueueName(typ)
		if _, err := ch.QueueDeclare(queue, true, false, false, false, amqp.Table{
			"x-dead-letter-exchange": t.RetryExchange,
		}); err != nil {
			return fmt.Errorf("declare queue %s: %w", queue, err)
		}
		if err := ch.QueueBind(queue, key, t.Exchange, false, nil); err != nil {
			return fmt.Errorf("bind queue %s: %w", queue, err)
		}

		retry := t.RetryQueueName(typ)
		if _, err := ch.QueueDeclare(retry, true, false, false, false, amqp.Table{
			"x-message-ttl":          t.RetryDelay.Milliseconds(),
			"x-dead-letter-exchange": t.Exchange,
		}); err != nil {
			return fmt.Errorf("declare queue %s: %w", retry, err)
		}
		if err := ch.QueueBind(retry, key, t.RetryExchange, false, nil); err != nil {
			return fmt.Errorf("bind queue %s: %w", retry, err)
		}

		dead := t.DeadQueueName(typ)
		if _, err := ch.QueueDeclare(dead, true, false, false, false, nil); err != nil {
			return fmt.Errorf("declare queue %s: %w", dead, err)
		}
	}
	return nil
}

// deathCount reports how many times a message was rejected from queue, using the
// x-death header the broker maintains on dead-lettering.
func deathCount(headers amqp.Table, queue string) int64 {
	deaths, ok := headers["x-death"].([]interface{})
	if !ok {
		return 0
	}
	for _, d := range deaths {
		entry, ok := d.(amqp.Table)
		if !ok || entry["queue"] != queue || entry["reason"] != "rejected" {
			continue
		}
		switch n := entry["count"].(type) {
		case int64:
			return n
		case int32:
			return int64(n)
		case int:
			return int64(n)
		}
	}
	return 0
}
