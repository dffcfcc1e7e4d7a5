package messaging

import (
	"context"
	"encoding/json"
	"sort"

	"github.com/sirupsen/logrus"

	"github.com/oksasatya/go-ddd-billing/internal/domain/event"
)

// Outcome tells the consumer what to do with a delivery.
type Outcome int

const (
	Ack Outcome = iota
	Retry
)

func (o Outcome) String() string {
	if o == Retry {
		return "retry"
	}
	return "ack"
}

// Handler processes one decoded event. A returned error schedules a redelivery.
type Handler func(ctx context.Context, e event.Event) error

type Dispatcher struct {
	handlers map[event.Type]Handler
	dedupe   Deduper
	logger   *logrus.Logger
}

// NewDispatcher builds a dispatcher; dedupe may be nil.
func NewDispatcher(dedupe Deduper, logger *logrus.Logger) *Dispatcher {
	if logger == nil {
		logger = logrus.New()
	}
	return &Dispatcher{handlers: map[event.Type]Handler{}, dedupe: dedupe, logger: logger}
}

func (d *Dispatcher) Register(t event.Type, h Handler) {
	d.handlers[t] = h
}

// Types returns the registered event types in a stable order.
func (d *Dispatcher) Types() []event.Type {
	out := make([]event.Type, 0, len(d.handlers))
	for t := range d.handlers {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Dispatch decodes body and runs the matching handler. Messages that can never succeed
// (malformed, unknown type, undecodable payload) are acknowledged so they do not loop.
func (d *Dispatcher) Dispatch(ctx context.Context, headerType string, body []byte) Outcome {
	count(metricConsumed)

	var env event.Envelope
	if err := json.Unmarshal(body, &env); err != nil {
		count(metricMalformed)
		d.logger.WithError(err).Error("malformed event envelope, dropping")
		return Ack
	}

	typ := event.Type(headerType)
	switch {
	case typ == "":
		typ = env.EventType
	case env.EventType != "" && env.EventType != typ:
		d.logger.WithFields(logrus.Fields{
			"header_type":   headerType,
			"envelope_type": env.EventType,
			"event_id":      env.EventID,
		}).Warn("event type header disagrees with envelope, using header")
	}

	log := d.logger.WithFields(logrus.Fields{
		"event_id":       env.EventID,
		"event_type":     typ,
		"aggregate_id":   env.AggregateID,
		"correlation_id": env.Metadata.CorrelationID,
	})

	h, ok := d.handlers[typ]
	if !ok {
		count(metricUnknown)
		log.Warn("no handler registered for event type")
		return Ack
	}

	e, err := event.Decode(typ, env.Payload)
	if err != nil {
		count(metricMalformed)
		log.WithError(err).Error("cannot decode event payload, dropping")
		return Ack
	}

	if d.dedupe != nil && env.EventID != "" {
		seen, err := d.dedupe.Seen(ctx, env.EventID)
		if err != nil {
			log.WithError(err).Warn("dedupe lookup failed, processing anyway")
		} else if seen {
			count(metricDuplicates)
			log.Info("event already processed")
			return Ack
		}
	}

	if env.Metadata.CorrelationID != "" {
		ctx = event.WithCorrelationID(ctx, env.Metadata.CorrelationID)
	}
	if err := h(ctx, e); err != nil {
		count(metricRetried)
		log.WithError(err).Error("event handler failed")
		return Retry
	}

	if d.dedupe != nil && env.EventID != "" {
		if err := d.dedupe.MarkProcessed(ctx, env.EventID); err != nil {
			log.WithError(err).Warn("mark event processed failed")
		}
	}
	count(metricAcked)
	log.Debug("event processed")
	return Ack
}
