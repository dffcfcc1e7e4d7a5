// Package event defines the domain events emitted after a committed change and the
// envelope they travel in.
package event

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Type is the wire tag used for routing and decoding.
type Type string

const (
	TypeUserCreated             Type = "user.created"
	TypeUserUpdated             Type = "user.updated"
	TypeInvoiceCreated          Type = "invoice.created"
	TypeInvoicePaymentRequested Type = "invoice.payment_requested"
	TypeInvoicePaid             Type = "invoice.paid"
)

const (
	AggregateUser    = "user"
	AggregateInvoice = "invoice"
)

// Version of the envelope layout.
const Version = 1

type Event interface {
	EventType() Type
	AggregateID() string
	AggregateType() string
}

type Metadata struct {
	CorrelationID string `json:"correlation_id,omitempty"`
}

// Envelope is what goes on the wire. It is built once per publish and never mutated.
type Envelope struct {
	EventID       string          `json:"event_id"`
	EventType     Type            `json:"event_type"`
	AggregateID   string          `json:"aggregate_id"`
	AggregateType string          `json:"aggregate_type"`
	OccurredAt    time.Time       `json:"occurred_at"`
	Version       int             `json:"version"`
	Metadata      Metadata        `json:"metadata"`
	Payload       json.RawMessage `json:"payload"`
}

func NewEnvelope(e Event, meta Metadata, at time.Time) (Envelope, error) {
	payload, err := json.Marshal(e)
	if err != nil {
		return Envelope{}, fmt.Errorf("marshal %s payload: %w", e.EventType(), err)
	}
	return Envelope{
		EventID:       uuid.NewString(),
		EventType:     e.EventType(),
		AggregateID:   e.AggregateID(),
		AggregateType: e.AggregateType(),
		OccurredAt:    at.UTC(),
		Version:       Version,
		Metadata:      meta,
		Payload:       payload,
	}, nil
}

var ErrUnknownType = errors.New("unknown event type")

type decoder func(json.RawMessage) (Event, error)

func decodeAs[T Event](raw json.RawMessage) (Event, error) {
	var v T
	if err := json.Unmarshal(raw, &v); err != nil {
		return nil, err
	}
	return v, nil
}

var registry = map[Type]decoder{
	TypeUserCreated:             decodeAs[UserCreated],
	TypeUserUpdated:             decodeAs[UserUpdated],
	TypeInvoiceCreated:          decodeAs[InvoiceCreated],
	TypeInvoicePaymentRequested: decodeAs[InvoicePaymentRequested],
	TypeInvoicePaid:             decodeAs[InvoicePaid],
}

// Types lists every registered tag.
func Types() []Type {
	return []Type{
		TypeUserCreated,
		TypeUserUpdated,
		TypeInvoiceCreated,
		TypeInvoicePaymentRequested,
		TypeInvoicePaid,
	}
}

func Known(t Type) bool {
	_, ok := registry[t]
	return ok
}

// Decode turns a payload into the concrete event registered for t.
func Decode(t Type, payload json.RawMessage) (Event, error) {
	dec, ok := registry[t]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownType, t)
	}
	e, err := dec(payload)
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", t, err)
	}
	return e, nil
}

type ctxKey struct{}

// WithCorrelationID stores the id that ties an event back to the request that caused it.
func WithCorrelationID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, ctxKey{}, id)
}

func CorrelationID(ctx context.Context) string {
	id, _ := ctx.Value(ctxKey{}).(string)
	return id
}
