package mailer

import (
	"context"
	"fmt"

	"github.com/oksasatya/go-ddd-billing/pkg/mailer/templates"
)

// JSONPublisher is satisfied by *helpers.RabbitPublisher.
type JSONPublisher interface {
	PublishJSON(ctx context.Context, exchange, key string, body any) error
}

// Queue enqueues email jobs for cmd/email_worker via the default exchange.
type Queue struct {
	pub   JSONPublisher
	queue string
}

// NewQueue returns nil when sending is disabled; a nil Queue drops jobs silently.
func NewQueue(pub JSONPublisher, queue string, enabled bool) *Queue {
	if !enabled || pub == nil || queue == "" {
		return nil
	}
	return &Queue{pub: pub, queue: queue}
}

func (q *Queue) Enqueue(ctx context.Context, job EmailJob) error {
	if q == nil {
		return nil
	}
	if err := job.Validate(); err != nil {
		return err
	}
	if err := q.pub.PublishJSON(ctx, "", q.queue, job); err != nil {
		return fmt.Errorf("enqueue email %s: %w", job.Template, err)
	}
	return nil
}

// Deliver renders job (when it names a template) and sends it. Errors wrapping
// ErrBadJob are permanent.
func Deliver(ctx context.Context, s Sender, job EmailJob) error {
	if err := job.Validate(); err != nil {
		return err
	}
	subject, text, html := job.Subject, job.Text, job.HTML
	if job.Template != "" {
		var err error
		subject, text, html, err = templates.Render(job.Template, job.Data)
		if err != nil {
			return fmt.Errorf("%w: render %s: %v", ErrBadJob, job.Template, err)
		}
	}
	return s.Send(ctx, job.To, subject, text, html)
}
