package application

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/oksasatya/go-ddd-billing/internal/domain/entity"
	"github.com/oksasatya/go-ddd-billing/internal/domain/errs"
	"github.com/oksasatya/go-ddd-billing/internal/domain/event"
	repo "github.com/oksasatya/go-ddd-billing/internal/domain/repository"
)

// maxAmount fits NUMERIC(12,2).
var maxAmount = decimal.RequireFromString("9999999999.99")

type InvoiceService[C any] struct {
	tx        repo.TransactionManager[C]
	invoices  repo.InvoiceRepository[C]
	users     repo.UserRepository[C]
	publisher EventPublisher
	logger    *logrus.Logger
	now       func() time.Time
}

func NewInvoiceService[C any](tx repo.TransactionManager[C], invoices repo.InvoiceRepository[C], users repo.UserRepository[C], pub EventPublisher, logger *logrus.Logger) *InvoiceService[C] {
	return &InvoiceService[C]{
		tx:        tx,
		invoices:  invoices,
		users:     users,
		publisher: pub,
		logger:    logger,
		now:       time.Now,
	}
}

func (s *InvoiceService[C]) CreateInvoice(ctx context.Context, userID uuid.UUID, amount decimal.Decimal) (*entity.Invoice, error) {
	if err := validateAmount(amount); err != nil {
		return nil, err
	}

	var created *entity.Invoice
	err := s.tx.Transaction(ctx, func(ctx context.Context, tx C) error {
		owner, err := s.users.GetByID(ctx, tx, userID)
		if err != nil {
			return err
		}
		if owner == nil {
			return errs.NotFound("User", userID.String())
		}
		id, err := uuid.NewV7()
		if err != nil {
			return errs.Storage("generate invoice id", err)
		}
		now := s.now().UTC()
		created, err = s.invoices.Create(ctx, tx, entity.CreateInvoice{
			ID:        id,
			UserID:    userID,
			Amount:    amount,
			Status:    entity.InvoiceStatusCreated,
			CreatedAt: now,
			UpdatedAt: now,
		})
		return err
	})
	if err != nil {
		return nil, err
	}

	if s.logger != nil {
		s.logger.WithFields(logrus.Fields{"invoice_id": created.ID, "user_id": userID}).Info("invoice created")
	}
	ev := event.InvoiceCreated{InvoiceID: created.ID, UserID: created.UserID, Amount: created.Amount}
	return created, publishCommitted(ctx, s.publisher, s.logger, []event.Event{ev})
}

func (s *InvoiceService[C]) GetInvoice(ctx context.Context, id uuid.UUID) (*entity.Invoice, error) {
	var inv *entity.Invoice
	err := s.tx.Transaction(ctx, func(ctx context.Context, tx C) error {
		var err error
		inv, err = s.invoices.GetByID(ctx, tx, id)
		return err
	})
	if err != nil {
		return nil, err
	}
	if inv == nil {
		return nil, errs.NotFound("Invoice", id.String())
	}
	return inv, nil
}

func (s *InvoiceService[C]) ListInvoices(ctx context.Context, filter entity.InvoiceFilter, limit, offset int) ([]entity.Invoice, int64, error) {
	var (
		invoices []entity.Invoice
		total    int64
	)
	err := s.tx.Transaction(ctx, func(ctx context.Context, tx C) error {
		var err error
		if invoices, err = s.invoices.List(ctx, tx, filter, limit, offset); err != nil {
			return err
		}
		total, err = s.invoices.Count(ctx, tx, filter)
		return err
	})
	if err != nil {
		return nil, 0, err
	}
	return invoices, total, nil
}

// RequestPayment flags the invoice and emits InvoicePaymentRequested for the worker.
func (s *InvoiceService[C]) RequestPayment(ctx context.Context, id uuid.UUID) (*entity.Invoice, error) {
	inv, err := s.transition(ctx, id, func(inv *entity.Invoice, at time.Time) error {
		return inv.RequestPayment(at)
	})
	if err != nil {
		return nil, err
	}
	ev := event.InvoicePaymentRequested{InvoiceID: inv.ID, UserID: inv.UserID}
	return inv, publishCommitted(ctx, s.publisher, s.logger, []event.Event{ev})
}

// MarkPaid settles the invoice. The row lock makes concurrent calls serialise, so only
// one of them can observe a non-paid status.
func (s *InvoiceService[C]) MarkPaid(ctx context.Context, id uuid.UUID) (*entity.Invoice, error) {
	inv, err := s.transition(ctx, id, func(inv *entity.Invoice, at time.Time) error {
		return inv.MarkPaid(at)
	})
	if err != nil {
		return nil, err
	}
	if s.logger != nil {
		s.logger.WithFields(logrus.Fields{"invoice_id": inv.ID, "amount": inv.Amount.StringFixed(2)}).Info("invoice paid")
	}
	ev := event.InvoicePaid{InvoiceID: inv.ID, UserID: inv.UserID, Amount: inv.Amount, PaidAt: *inv.PaidAt}
	return inv, publishCommitted(ctx, s.publisher, s.logger, []event.Event{ev})
}

func (s *InvoiceService[C]) transition(ctx context.Context, id uuid.UUID, apply func(*entity.Invoice, time.Time) error) (*entity.Invoice, error) {
	var inv *entity.Invoice
	err := s.tx.Transaction(ctx, func(ctx context.Context, tx C) error {
		var err error
		inv, err = s.invoices.GetByIDForUpdate(ctx, tx, id)
		if err != nil {
			return err
		}
		if inv == nil {
			return errs.NotFound("Invoice", id.String())
		}
		if err := apply(inv, s.now().UTC()); err != nil {
			return err
		}
		return s.invoices.Update(ctx, tx, inv)
	})
	if err != nil {
		return nil, err
	}
	return inv, nil
}

// DeleteInvoicesForUserInTx runs inside the caller's transaction and never opens its own.
func (s *InvoiceService[C]) DeleteInvoicesForUserInTx(ctx context.Context, tx C, userID uuid.UUID) (int64, error) {
	return s.invoices.DeleteByUserID(ctx, tx, userID)
}

func validateAmount(amount decimal.Decimal) error {
	if !amount.IsPositive() {
		return errs.Validation("amount", "Amount must be greater than zero")
	}
	if amount.Exponent() < -2 && !amount.Equal(amount.Truncate(2)) {
		return errs.Validation("amount", "Amount must have at most 2 decimal places")
	}
	if amount.GreaterThan(maxAmount) {
		return errs.Validation("amount", "Amount exceeds the maximum of 9999999999.99")
	}
	return nil
}
