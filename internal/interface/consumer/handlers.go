// Package consumer holds the worker-side reactions to domain events.
package consumer

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/oksasatya/go-ddd-billing/internal/domain/entity"
	"github.com/oksasatya/go-ddd-billing/internal/domain/errs"
	"github.com/oksasatya/go-ddd-billing/internal/domain/event"
	"github.com/oksasatya/go-ddd-billing/internal/infrastructure/archive"
	"github.com/oksasatya/go-ddd-billing/internal/infrastructure/messaging"
	"github.com/oksasatya/go-ddd-billing/pkg/mailer"
	"github.com/oksasatya/go-ddd-billing/pkg/mailer/templates"
)

type UserReader interface {
	GetUser(ctx context.Context, id uuid.UUID) (*entity.User, error)
}

type InvoicePayer interface {
	MarkPaid(ctx context.Context, id uuid.UUID) (*entity.Invoice, error)
}

type UserIndexer interface {
	Index(ctx context.Context, u *entity.User) error
	Delete(ctx context.Context, id string) error
}

type ReceiptArchiver interface {
	Save(ctx context.Context, r archive.Receipt) (string, error)
}

type EmailEnqueuer interface {
	Enqueue(ctx context.Context, job mailer.EmailJob) error
}

// Handlers wires event types to their side effects. Users and Invoices are required;
// the rest are optional and skipped when nil.
type Handlers struct {
	Users    UserReader
	Invoices InvoicePayer
	Index    UserIndexer
	Receipts ReceiptArchiver
	Mail     EmailEnqueuer
	Brand    templates.Brand
	Logger   *logrus.Logger
}

func (h *Handlers) Register(d *messaging.Dispatcher) {
	d.Register(event.TypeUserCreated, h.onUserCreated)
	d.Register(event.TypeUserUpdated, h.onUserUpdated)
	d.Register(event.TypeInvoiceCreated, h.onInvoiceCreated)
	d.Register(event.TypeInvoicePaymentRequested, h.onPaymentRequested)
	d.Register(event.TypeInvoicePaid, h.onInvoicePaid)
}

func (h *Handlers) log() *logrus.Logger {
	if h.Logger == nil {
		return logrus.StandardLogger()
	}
	return h.Logger
}

// loadUser returns nil without error when the user no longer exists.
func (h *Handlers) loadUser(ctx context.Context, id uuid.UUID) (*entity.User, error) {
	u, err := h.Users.GetUser(ctx, id)
	if errors.Is(err, errs.ErrNotFound) {
		h.log().WithField("user_id", id).Info("user gone, skipping")
		return nil, nil
	}
	return u, err
}

func (h *Handlers) onUserCreated(ctx context.Context, e event.Event) error {
	ev := e.(event.UserCreated)
	u, err := h.loadUser(ctx, ev.UserID)
	if err != nil || u == nil {
		return err
	}
	if h.Index != nil {
		if err := h.Index.Index(ctx, u); err != nil {
			return err
		}
	}
	return h.enqueue(ctx, mailer.EmailJob{
		To:       u.Email,
		Template: templates.Welcome,
		Data:     templates.NewWelcomeData(h.Brand, u.Name, u.Email),
	})
}

func (h *Handlers) onUserUpdated(ctx context.Context, e event.Event) error {
	ev := e.(event.UserUpdated)
	h.log().WithFields(logrus.Fields{"user_id": ev.UserID, "changed": len(ev.Changes)}).Info("user updated")
	if h.Index == nil {
		return nil
	}
	u, err := h.loadUser(ctx, ev.UserID)
	if err != nil {
		return err
	}
	if u == nil {
		return h.Index.Delete(ctx, ev.UserID.String())
	}
	return h.Index.Index(ctx, u)
}

func (h *Handlers) onInvoiceCreated(ctx context.Context, e event.Event) error {
	ev := e.(event.InvoiceCreated)
	u, err := h.loadUser(ctx, ev.UserID)
	if err != nil || u == nil {
		return err
	}
	return h.enqueue(ctx, mailer.EmailJob{
		To:       u.Email,
		Template: templates.InvoiceCreated,
		Data:     templates.NewInvoiceCreatedData(h.Brand, u.Name, u.Email, ev.InvoiceID.String(), ev.Amount.StringFixed(2)),
	})
}

// onPaymentRequested settles the invoice. Redeliveries for an invoice that is already
// paid or deleted are expected and acknowledged.
func (h *Handlers) onPaymentRequested(ctx context.Context, e event.Event) error {
	ev := e.(event.InvoicePaymentRequested)
	log := h.log().WithField("invoice_id", ev.InvoiceID)

	_, err := h.Invoices.MarkPaid(ctx, ev.InvoiceID)
	switch {
	case err == nil:
		return nil
	case errors.Is(err, errs.ErrConflict):
		log.Info("invoice already paid, ignoring")
		return nil
	case errors.Is(err, errs.ErrNotFound):
		log.Warn("invoice not found, ignoring")
		return nil
	case errors.Is(err, errs.ErrMessaging):
		// Paid and committed; a retry would only hit the conflict branch.
		log.WithError(err).Error("invoice paid but InvoicePaid was not published")
		return nil
	default:
		return fmt.Errorf("mark invoice %s paid: %w", ev.InvoiceID, err)
	}
}

func (h *Handlers) onInvoicePaid(ctx context.Context, e event.Event) error {
	ev := e.(event.InvoicePaid)
	var receiptURL string
	if h.Receipts != nil {
		url, err := h.Receipts.Save(ctx, archive.Receipt{
			InvoiceID: ev.InvoiceID,
			UserID:    ev.UserID,
			Amount:    ev.Amount,
			PaidAt:    ev.PaidAt,
			IssuedAt:  ev.PaidAt,
		})
		if err != nil {
			return err
		}
		receiptURL = url
	}

	u, err := h.loadUser(ctx, ev.UserID)
	if err != nil || u == nil {
		return err
	}
	var opts []templates.Option
	if receiptURL != "" {
		opts = append(opts, templates.WithReceiptURL(receiptURL))
	}
	return h.enqueue(ctx, mailer.EmailJob{
		To:       u.Email,
		Template: templates.InvoicePaid,
		Data:     templates.NewInvoicePaidData(h.Brand, u.Name, u.Email, ev.InvoiceID.String(), ev.Amount.StringFixed(2), ev.PaidAt, opts...),
	})
}

func (h *Handlers) enqueue(ctx context.Context, job mailer.EmailJob) error {
	if h.Mail == nil {
		return nil
	}
	return h.Mail.Enqueue(ctx, job)
}
