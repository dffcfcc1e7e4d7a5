package entity

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/oksasatya/go-ddd-billing/internal/domain/errs"
)

type InvoiceStatus string

const (
	InvoiceStatusCreated          InvoiceStatus = "created"
	InvoiceStatusPaymentRequested InvoiceStatus = "payment-requested"
	InvoiceStatusPaid             InvoiceStatus = "paid"
)

func (s InvoiceStatus) Valid() bool {
	switch s {
	case InvoiceStatusCreated, InvoiceStatusPaymentRequested, InvoiceStatusPaid:
		return true
	}
	return false
}

// Invoice belongs to exactly one user. Status only moves forward:
// created -> payment-requested -> paid, and paid is terminal.
type Invoice struct {
	ID        uuid.UUID
	UserID    uuid.UUID
	Amount    decimal.Decimal
	Status    InvoiceStatus
	PaidAt    *time.Time
	CreatedAt time.Time
	UpdatedAt time.Time
}

type CreateInvoice struct {
	ID        uuid.UUID
	UserID    uuid.UUID
	Amount    decimal.Decimal
	Status    InvoiceStatus
	CreatedAt time.Time
	UpdatedAt time.Time
}

// InvoiceFilter narrows list queries; a nil UserID means all users.
type InvoiceFilter struct {
	UserID *uuid.UUID
}

const errAlreadyPaid = "invoice is already paid"

// RequestPayment moves the invoice to payment-requested. Asking again while a request
// is outstanding is allowed so a lost event can be re-emitted.
func (i *Invoice) RequestPayment(at time.Time) error {
	if i.Status == InvoiceStatusPaid {
		return errs.Conflict("Invoice", errAlreadyPaid)
	}
	i.Status = InvoiceStatusPaymentRequested
	i.UpdatedAt = at
	return nil
}

// MarkPaid is the double-payment guard.
func (i *Invoice) MarkPaid(at time.Time) error {
	if i.Status == InvoiceStatusPaid {
		return errs.Conflict("Invoice", errAlreadyPaid)
	}
	i.Status = InvoiceStatusPaid
	i.PaidAt = &at
	i.UpdatedAt = at
	return nil
}
