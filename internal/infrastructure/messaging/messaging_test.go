package messaging

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/sirupsen/logrus"

	"github.com/oksasatya/go-ddd-billing/internal/domain/event"
)

func quietLogger() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

var testTopology = Topology{
	Exchange:      "domain.events",
	RetryExchange: "domain.events.retry",
	QueuePrefix:   "billing",
	RetryDelay:    5 * time.Second,
}

type declared struct {
	exchanges map[string]string
	queues    map[string]amqp.Table
	bindings  map[string]string // queue -> exchange/key
}

func (d *declared) ExchangeDeclare(name, kind string, _, _, _, _ bool, _ amqp.Table) error {
	d.exchanges[name] = kind
	return nil
}

func (d *declared) QueueDeclare(name string, _, _, _, _ bool, args amqp.Table) (amqp.Queue, error) {
	d.queues[name] = args
	return amqp.Queue{Name: name}, nil
}

func (d *declared) QueueBind(name, key, exchange string, _ bool, _ amqp.Table) error {
	d.bindings[name] = exchange + "/" + key
	return nil
}

func TestTopologyDeclare(t *testing.T) {
	d := &declared{exchanges: map[string]string{}, queues: map[string]amqp.Table{}, bindings: map[string]string{}}
	if err := testTopology.Declare(d, []event.Type{event.TypeInvoicePaid}); err != nil {
		t.Fatal(err)
	}
	if d.exchanges["domain.events"] != amqp.ExchangeTopic || d.exchanges["domain.events.retry"] != amqp.ExchangeDirect {
		t.Errorf("exchanges = %v", d.exchanges)
	}
	if got := d.bindings["billing.invoice.paid"]; got != "domain.events/invoice.paid" {
		t.Errorf("work queue binding = %q", got)
	}
	if got := d.bindings["billing.invoice.paid.retry"]; got != "domain.events.retry/invoice.paid" {
		t.Errorf("retry queue binding = %q", got)
	}
	if d.queues["billing.invoice.paid"]["x-dead-letter-exchange"] != "domain.events.retry" {
		t.Error("work queue does not dead-letter into the retry exchange")
	}
	if _, ok := d.queues["billing.invoice.paid.dead"]; !ok {
		t.Error("dead queue not declared")
	}
	retry := d.queues["billing.invoice.paid.retry"]
	if retry["x-message-ttl"] != int64(5000) || retry["x-dead-letter-exchange"] != "domain.events" {
		t.Errorf("retry queue args = %v", retry)
	}
}

func TestDeathCount(t *testing.T) {
	headers := amqp.Table{"x-death": []interface{}{
		amqp.Table{"queue": "billing.invoice.paid.retry", "reason": "expired", "count": int64(3)},
		amqp.Table{"queue": "billing.invoice.paid", "reason": "rejected", "count": int64(2)},
	}}
	if n := deathCount(headers, "billing.invoice.paid"); n != 2 {
		t.Errorf("deathCount = %d, want 2", n)
	}
	if n := deathCount(amqp.Table{}, "billing.invoice.paid"); n != 0 {
		t.Errorf("no header should be 0, got %d", n)
	}
}

type sent struct {
	exchange, key string
	msg           amqp.Publishing
}

type fakeSender struct {
	out []sent
	err error
}

func (f *fakeSender) Publish(_ context.Context, exchange, key string, msg amqp.Publishing) error {
	if f.err != nil {
		return f.err
	}
	f.out = append(f.out, sent{exchange, key, msg})
	return nil
}

func TestPublisherEnvelope(t *testing.T) {
	s := &fakeSender{}
	p := NewPublisher(s, "domain.events", quietLogger())
	id := uuid.New()
	ctx := event.WithCorrelationID(context.Background(), "req-9")

	before := metricValue(metricPublished)
	if err := p.Publish(ctx, event.InvoicePaymentRequested{InvoiceID: id, UserID: uuid.New()}); err != nil {
		t.Fatal(err)
	}
	if len(s.out) != 1 {
		t.Fatalf("sent %d messages", len(s.out))
	}
	got := s.out[0]
	if got.exchange != "domain.events" || got.key != "invoice.payment_requested" {
		t.Errorf("routed to %s/%s", got.exchange, got.key)
	}
	if got.msg.Headers[HeaderEventType] != "invoice.payment_requested" || got.msg.Headers[HeaderAggregateType] != "invoice" {
		t.Errorf("headers = %v", got.msg.Headers)
	}
	var env event.Envelope
	if err := json.Unmarshal(got.msg.Body, &env); err != nil {
		t.Fatal(err)
	}
	if env.AggregateID != id.String() || env.Metadata.CorrelationID != "req-9" || env.EventID != got.msg.MessageId {
		t.Errorf("envelope = %+v", env)
	}
	if metricValue(metricPublished) != before+1 {
		t.Error("published counter not incremented")
	}
}

func TestPublisherError(t *testing.T) {
	p := NewPublisher(&fakeSender{err: errors.New("channel closed")}, "domain.events", quietLogger())
	if err := p.Publish(context.Background(), event.UserCreated{UserID: uuid.New()}); err == nil {
		t.Fatal("expected error")
	}
}

type fakeDeduper struct {
	seen    map[string]bool
	seenErr error
}

func (f *fakeDeduper) Seen(_ context.Context, id string) (bool, error) {
	return f.seen[id], f.seenErr
}

func (f *fakeDeduper) MarkProcessed(_ context.Context, id string) error {
	f.seen[id] = true
	return nil
}

func envelopeBody(t *testing.T, e event.Event) ([]byte, event.Envelope) {
	t.Helper()
	env, err := event.NewEnvelope(e, event.Metadata{CorrelationID: "corr-1"}, time.Now())
	if err != nil {
		t.Fatal(err)
	}
	b, err := json.Marshal(env)
	if err != nil {
		t.Fatal(err)
	}
	return b, env
}

func TestDispatch(t *testing.T) {
	paid := event.InvoicePaid{InvoiceID: uuid.New(), UserID: uuid.New(), PaidAt: time.Now().UTC()}
	body, env := envelopeBody(t, paid)

	tests := []struct {
		name       string
		headerType string
		body       []byte
		handlerErr error
		seen       bool
		want       Outcome
		wantCalls  int
	}{
		{"success", "invoice.paid", body, nil, false, Ack, 1},
		{"header missing falls back to envelope", "", body, nil, false, Ack, 1},
		{"handler error retries", "invoice.paid", body, errors.New("gcs down"), false, Retry, 1},
		{"duplicate is acked", "invoice.paid", body, nil, true, Ack, 0},
		{"unknown type is acked", "invoice.voided", body, nil, false, Ack, 0},
		{"malformed body is acked", "invoice.paid", []byte("{not json"), nil, false, Ack, 0},
		{"bad payload is acked", "invoice.paid", []byte(`{"event_type":"invoice.paid","payload":{"invoice_id":1}}`), nil, false, Ack, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dd := &fakeDeduper{seen: map[string]bool{}}
			if tt.seen {
				dd.seen[env.EventID] = true
			}
			calls := 0
			d := NewDispatcher(dd, quietLogger())
			d.Register(event.TypeInvoicePaid, func(ctx context.Context, e event.Event) error {
				calls++
				if _, ok := e.(event.InvoicePaid); !ok {
					t.Errorf("handler got %T", e)
				}
				if event.CorrelationID(ctx) != "corr-1" {
					t.Error("correlation id not propagated")
				}
				return tt.handlerErr
			})
			if got := d.Dispatch(context.Background(), tt.headerType, tt.body); got != tt.want {
				t.Errorf("outcome = %s, want %s", got, tt.want)
			}
			if calls != tt.wantCalls {
				t.Errorf("handler calls = %d, want %d", calls, tt.wantCalls)
			}
			if tt.want == Ack && tt.wantCalls == 1 && !dd.seen[env.EventID] {
				t.Error("processed event not marked")
			}
			if tt.want == Retry && dd.seen[env.EventID] {
				t.Error("failed event marked processed")
			}
		})
	}
}

func TestDispatchDedupeFailureStillProcesses(t *testing.T) {
	body, _ := envelopeBody(t, event.UserCreated{UserID: uuid.New()})
	d := NewDispatcher(&fakeDeduper{seen: map[string]bool{}, seenErr: errors.New("redis down")}, quietLogger())
	called := false
	d.Register(event.TypeUserCreated, func(context.Context, event.Event) error { called = true; return nil })
	if d.Dispatch(context.Background(), "user.created", body) != Ack || !called {
		t.Error("dedupe outage should not block processing")
	}
}

func TestDispatcherTypesSorted(t *testing.T) {
	d := NewDispatcher(nil, nil)
	noop := func(context.Context, event.Event) error { return nil }
	d.Register(event.TypeUserUpdated, noop)
	d.Register(event.TypeInvoicePaid, noop)
	got := d.Types()
	if len(got) != 2 || got[0] != event.TypeInvoicePaid || got[1] != event.TypeUserUpdated {
		t.Errorf("Types() = %v", got)
	}
}

type ackRecorder struct {
	acked, nacked, requeued int
}

func (a *ackRecorder) Ack(uint64, bool) error { a.acked++; return nil }
func (a *ackRecorder) Nack(_ uint64, _ bool, requeue bool) error {
	a.nacked++
	if requeue {
		a.requeued++
	}
	return nil
}
func (a *ackRecorder) Reject(uint64, bool) error { return nil }

func TestConsumerHandle(t *testing.T) {
	body, _ := envelopeBody(t, event.InvoicePaid{InvoiceID: uuid.New()})
	queue := testTopology.QueueName(event.TypeInvoicePaid)

	tests := []struct {
		name       string
		deaths     int64
		handlerErr error
		wantAck    int
		wantNack   int
	}{
		{"success acks", 0, nil, 1, 0},
		{"failure nacks into retry queue", 0, errors.New("boom"), 0, 1},
		{"last retry still nacks", 2, errors.New("boom"), 0, 1},
		{"retries exhausted drops", 3, errors.New("boom"), 1, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := NewDispatcher(nil, quietLogger())
			d.Register(event.TypeInvoicePaid, func(context.Context, event.Event) error { return tt.handlerErr })
			c := NewConsumer(nil, nil, testTopology, d, 3, quietLogger())

			rec := &ackRecorder{}
			headers := amqp.Table{HeaderEventType: "invoice.paid"}
			if tt.deaths > 0 {
				headers["x-death"] = []interface{}{amqp.Table{"queue": queue, "reason": "rejected", "count": tt.deaths}}
			}
			c.handle(context.Background(), queue, amqp.Delivery{Acknowledger: rec, DeliveryTag: 1, Headers: headers, Body: body})

			if rec.acked != tt.wantAck || rec.nacked != tt.wantNack {
				t.Errorf("acked=%d nacked=%d, want %d %d", rec.acked, rec.nacked, tt.wantAck, tt.wantNack)
			}
			if rec.requeued != 0 {
				t.Error("messages must not be requeued in place")
			}
		})
	}
}

func TestConsumerParksExhaustedMessages(t *testing.T) {
	body, _ := envelopeBody(t, event.InvoicePaid{InvoiceID: uuid.New()})
	queue := testTopology.QueueName(event.TypeInvoicePaid)
	headers := amqp.Table{
		HeaderEventType: "invoice.paid",
		"x-death":       []interface{}{amqp.Table{"queue": queue, "reason": "rejected", "count": int64(3)}},
	}

	tests := []struct {
		name     string
		parkErr  error
		wantAck  int
		wantNack int
		wantSent int
	}{
		{"parked then acked", nil, 1, 0, 1},
		{"park failure keeps retrying", errors.New("channel closed"), 0, 1, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := NewDispatcher(nil, quietLogger())
			d.Register(event.TypeInvoicePaid, func(context.Context, event.Event) error { return errors.New("boom") })
			parker := &fakeSender{err: tt.parkErr}
			c := NewConsumer(nil, parker, testTopology, d, 3, quietLogger())

			before := metricValue(metricParked)
			rec := &ackRecorder{}
			c.handle(context.Background(), queue, amqp.Delivery{
				Acknowledger: rec, DeliveryTag: 1, MessageId: "evt-1", Headers: headers, Body: body,
			})

			if rec.acked != tt.wantAck || rec.nacked != tt.wantNack {
				t.Errorf("acked=%d nacked=%d, want %d %d", rec.acked, rec.nacked, tt.wantAck, tt.wantNack)
			}
			if len(parker.out) != tt.wantSent {
				t.Fatalf("parked %d messages, want %d", len(parker.out), tt.wantSent)
			}
			if tt.wantSent == 0 {
				return
			}
			got := parker.out[0]
			if got.exchange != "" || got.key != testTopology.DeadQueueName(event.TypeInvoicePaid) {
				t.Errorf("parked to %q/%q", got.exchange, got.key)
			}
			if _, ok := got.msg.Headers["x-death"]; ok {
				t.Error("x-death must not be copied")
			}
			if got.msg.Headers["x-attempts"] != int64(4) || got.msg.MessageId != "evt-1" || string(got.msg.Body) != string(body) {
				t.Errorf("parked message = %+v", got.msg)
			}
			if metricValue(metricParked) != before+1 {
				t.Error("parked counter not incremented")
			}
		})
	}
}
