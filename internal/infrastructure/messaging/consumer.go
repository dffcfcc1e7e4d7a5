package messaging

import (
	"context"
	"fmt"
	"sync"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/sirupsen/logrus"
)

// ChannelOpener is satisfied by *helpers.RabbitPublisher.
type ChannelOpener interface {
	NewChannel() (*amqp.Channel, error)
}

// Consumer runs one goroutine per registered event type, each on its own channel with
// a prefetch of one, so messages of a type are handled strictly one at a time.
type Consumer struct {
	opener     ChannelOpener
	parker     Sender
	topology   Topology
	dispatcher *Dispatcher
	maxRetries int64
	logger     *logrus.Logger
}

// NewConsumer builds a consumer. parker publishes exhausted messages to their dead
// queue; with a nil parker they are dropped.
func NewConsumer(opener ChannelOpener, parker Sender, topology Topology, dispatcher *Dispatcher, maxRetries int, logger *logrus.Logger) *Consumer {
	if logger == nil {
		logger = logrus.New()
	}
	return &Consumer{
		opener:     opener,
		parker:     parker,
		topology:   topology,
		dispatcher: dispatcher,
		maxRetries: int64(maxRetries),
		logger:     logger,
	}
}

// Run blocks until ctx is cancelled or a delivery channel closes unexpectedly.
func (c *Consumer) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var (
		wg      sync.WaitGroup
		errOnce sync.Once
		runErr  error
	)
	fail := func(err error) {
		errOnce.Do(func() { runErr = err })
		cancel()
	}

	for _, typ := range c.dispatcher.Types() {
		queue := c.topology.QueueName(typ)
		ch, err := c.opener.NewChannel()
		if err != nil {
			fail(fmt.Errorf("open channel for %s: %w", queue, err))
			break
		}
		if err := ch.Qos(1, 0, false); err != nil {
			_ = ch.Close()
			fail(fmt.Errorf("qos %s: %w", queue, err))
			break
		}
		msgs, err := ch.Consume(queue, "", false, false, false, false, nil)
		if err != nil {
			_ = ch.Close()
			fail(fmt.Errorf("consume %s: %w", queue, err))
			break
		}

		wg.Add(1)
		go func() {
			defer wg.Done()
			defer func() { _ = ch.Close() }()
			c.logger.WithField("queue", queue).Info("consumer listening")
			for {
				select {
				case <-ctx.Done():
					return
				case d, ok := <-msgs:
					if !ok {
						fail(fmt.Errorf("delivery channel for %s closed", queue))
						return
					}
					c.handle(ctx, queue, d)
				}
			}
		}()
	}

	<-ctx.Done()
	wg.Wait()
	return runErr
}

func (c *Consumer) handle(ctx context.Context, queue string, d amqp.Delivery) {
	headerType, _ := d.Headers[HeaderEventType].(string)
	outcome := c.dispatcher.Dispatch(ctx, headerType, d.Body)

	log := c.logger.WithFields(logrus.Fields{"queue": queue, "message_id": d.MessageId})
	if outcome == Ack {
		if err := d.Ack(false); err != nil {
			log.WithError(err).Error("ack failed")
		}
		return
	}

	attempts := deathCount(d.Headers, queue) + 1
	if c.maxRetries > 0 && attempts > c.maxRetries {
		log = log.WithField("attempts", attempts)
		if c.parker == nil {
			count(metricDropped)
			log.Error("event exceeded max retries, dropping")
			if err := d.Ack(false); err != nil {
				log.WithError(err).Error("ack failed")
			}
			return
		}
		dead := queue + ".dead"
		if err := c.parker.Publish(ctx, "", dead, parked(d, attempts)); err != nil {
			// Still rejected, so the message stays in the retry loop instead of being lost.
			log.WithError(err).Error("park event failed")
			if err := d.Nack(false, false); err != nil {
				log.WithError(err).Error("nack failed")
			}
			return
		}
		count(metricParked)
		log.WithField("dead_queue", dead).Error("event exceeded max retries, parked")
		if err := d.Ack(false); err != nil {
			log.WithError(err).Error("ack failed")
		}
		return
	}
	// Not requeued in place: the queue dead-letters it into the delayed retry queue.
	if err := d.Nack(false, false); err != nil {
		log.WithError(err).Error("nack failed")
	}
}

// parked copies a delivery for the dead queue, dropping x-death so the broker's
// bookkeeping does not follow it.
func parked(d amqp.Delivery, attempts int64) amqp.Publishing {
	headers := amqp.Table{}
	for k, v := range d.Headers {
		if k != "x-death" {
			headers[k] = v
		}
	}
	headers["x-attempts"] = attempts
	return amqp.Publishing{
		Headers:       headers,
		ContentType:   d.ContentType,
		CorrelationId: d.CorrelationId,
		MessageId:     d.MessageId,
		Type:          d.Type,
		Timestamp:     d.Timestamp,
		DeliveryMode:  amqp.Persistent,
		Body:          d.Body,
	}
}
