package event

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type InvoiceCreated struct {
	InvoiceID uuid.UUID       `json:"invoice_id"`
	UserID    uuid.UUID       `json:"user_id"`
	Amount    decimal.Decimal `json:"amount"`
}

func (InvoiceCreated) EventType() Type       { return TypeInvoiceCreated }
func (e InvoiceCreated) AggregateID() string { return e.InvoiceID.String() }
func (InvoiceCreated) AggregateType() string { return AggregateInvoice }

type InvoicePaymentRequested struct {
	InvoiceID uuid.UUID `json:"invoice_id"`
	UserID    uuid.UUID `json:"user_id"`
}

func (InvoicePaymentRequested) EventType() Type       { return TypeInvoicePaymentRequested }
func (e InvoicePaymentRequested) AggregateID() string { return e.InvoiceID.String() }
func (InvoicePaymentRequested) AggregateType() string { return AggregateInvoice }

type InvoicePaid struct {
	InvoiceID uuid.UUID       `json:"invoice_id"`
	UserID    uuid.UUID       `json:"user_id"`
	Amount    decimal.Decimal `json:"amount"`
	PaidAt    time.Time       `json:"paid_at"`
}

func (InvoicePaid) EventType() Type       { return TypeInvoicePaid }
func (e InvoicePaid) AggregateID() string { return e.InvoiceID.String() }
func (InvoicePaid) AggregateType() string { return AggregateInvoice }
