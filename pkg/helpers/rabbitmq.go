package helpers

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

// RabbitPublisher owns one AMQP connection and a publishing channel. Publishing is
// serialised because an amqp.Channel is not safe for concurrent use.
type RabbitPublisher struct {
	mu   sync.Mutex
	conn *amqp.Connection
	ch   *amqp.Channel
}

func NewRabbitPublisher(url string) (*RabbitPublisher, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, err
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, err
	}
	return &RabbitPublisher{conn: conn, ch: ch}, nil
}

// Channel returns the publishing channel, for topology declarations at startup.
func (p *RabbitPublisher) Channel() *amqp.Channel {
	return p.ch
}

// NewChannel opens an extra channel on the same connection, e.g. one per consumer.
func (p *RabbitPublisher) NewChannel() (*amqp.Channel, error) {
	if p == nil || p.conn == nil {
		return nil, errors.New("rabbitmq not connected")
	}
	return p.conn.Channel()
}

// DeclareQueue declares a durable queue.
func (p *RabbitPublisher) DeclareQueue(name string, args amqp.Table) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	_, err := p.ch.QueueDeclare(
		name,
		true,  // durable
		false, // autoDelete
		false, // exclusive
		false, // noWait
		args,
	)
	return err
}

func (p *RabbitPublisher) Close() {
	if p == nil {
		return
	}
	if p.ch != nil {
		_ = p.ch.Close()
	}
	if p.conn != nil {
		_ = p.conn.Close()
	}
}

// Publish sends msg to exchange with the given routing key. An empty exchange is the
// default exchange, where the key is the queue name.
func (p *RabbitPublisher) Publish(ctx context.Context, exchange, key string, msg amqp.Publishing) error {
	if p == nil || p.ch == nil {
		return errors.New("rabbitmq not connected")
	}
	if msg.DeliveryMode == 0 {
		msg.DeliveryMode = amqp.Persistent
	}
	if msg.Timestamp.IsZero() {
		msg.Timestamp = time.Now().UTC()
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.ch.PublishWithContext(ctx,
		exchange,
		key,
		false, // mandatory
		false, // immediate
		msg,
	)
}

// PublishJSON publishes a JSON-encoded message.
func (p *RabbitPublisher) PublishJSON(ctx context.Context, exchange, key string, body any) error {
	b, err := json.Marshal(body)
	if err != nil {
		return err
	}
	return p.Publish(ctx, exchange, key, amqp.Publishing{ContentType: "application/json", Body: b})
}
