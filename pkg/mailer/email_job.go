package mailer

import (
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"
)

// EmailJob is the JSON payload put on the RabbitMQ queue for sending email.
// Html is optional; Text is recommended as fallback.
// You can also use a template by specifying Template and Data.
type EmailJob struct {
	To       string         `json:"to" validate:"required,email"`
	Subject  string         `json:"subject,omitempty"`
	Text     string         `json:"text,omitempty"`
	HTML     string         `json:"html,omitempty"`
	Template string         `json:"template,omitempty"` // "welcome", "invoice_created", "invoice_paid"
	Data     map[string]any `json:"data,omitempty"`
}

// ErrBadJob marks jobs that will never succeed; the worker drops them.
var ErrBadJob = errors.New("bad email job")

var validate = validator.New()

func (j EmailJob) Validate() error {
	if err := validate.Struct(j); err != nil {
		return fmt.Errorf("%w: %v", ErrBadJob, err)
	}
	if j.Template == "" && j.Subject == "" {
		return fmt.Errorf("%w: subject or template required", ErrBadJob)
	}
	return nil
}
