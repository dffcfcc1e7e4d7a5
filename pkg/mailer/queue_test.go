package mailer

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/oksasatya/go-ddd-billing/pkg/mailer/templates"
)

type publishCall struct {
	exchange, key string
	body          any
}

type fakePublisher struct{ calls []publishCall }

func (f *fakePublisher) PublishJSON(_ context.Context, exchange, key string, body any) error {
	f.calls = append(f.calls, publishCall{exchange, key, body})
	return nil
}

type fakeSender struct {
	to, subject, text, html string
	err                     error
}

func (f *fakeSender) Send(_ context.Context, to, subject, text, html string) error {
	f.to, f.subject, f.text, f.html = to, subject, text, html
	return f.err
}

func TestQueueEnqueue(t *testing.T) {
	pub := &fakePublisher{}
	q := NewQueue(pub, "emails", true)
	job := EmailJob{To: "ada@example.com", Template: templates.Welcome, Data: map[string]any{"Name": "Ada"}}
	if err := q.Enqueue(context.Background(), job); err != nil {
		t.Fatal(err)
	}
	if len(pub.calls) != 1 || pub.calls[0].exchange != "" || pub.calls[0].key != "emails" {
		t.Errorf("calls = %+v", pub.calls)
	}
}

func TestQueueDisabled(t *testing.T) {
	pub := &fakePublisher{}
	q := NewQueue(pub, "emails", false)
	if err := q.Enqueue(context.Background(), EmailJob{To: "a@x.com", Subject: "s"}); err != nil {
		t.Fatal(err)
	}
	if len(pub.calls) != 0 {
		t.Error("disabled queue published")
	}
}

func TestEnqueueRejectsBadJob(t *testing.T) {
	q := NewQueue(&fakePublisher{}, "emails", true)
	err := q.Enqueue(context.Background(), EmailJob{To: "not-an-email", Subject: "x"})
	if !errors.Is(err, ErrBadJob) {
		t.Fatalf("err = %v, want ErrBadJob", err)
	}
}

func TestDeliver(t *testing.T) {
	s := &fakeSender{}
	data := templates.NewInvoiceCreatedData(templates.Brand{CompanyName: "Acme"}, "Ada", "ada@example.com", "inv-9", "12.50")
	if err := Deliver(context.Background(), s, EmailJob{To: "ada@example.com", Template: templates.InvoiceCreated, Data: data}); err != nil {
		t.Fatal(err)
	}
	if s.subject != "New invoice for 12.50" || !strings.Contains(s.text, "inv-9") || s.html == "" {
		t.Errorf("sent subject=%q text=%q", s.subject, s.text)
	}
}

func TestDeliverErrors(t *testing.T) {
	if err := Deliver(context.Background(), &fakeSender{}, EmailJob{To: "a@x.com", Template: "missing"}); !errors.Is(err, ErrBadJob) {
		t.Errorf("unknown template err = %v", err)
	}
	sendErr := errors.New("mailgun 503")
	err := Deliver(context.Background(), &fakeSender{err: sendErr}, EmailJob{To: "a@x.com", Subject: "hi", Text: "x"})
	if !errors.Is(err, sendErr) || errors.Is(err, ErrBadJob) {
		t.Errorf("send failure err = %v, want transient", err)
	}
}
