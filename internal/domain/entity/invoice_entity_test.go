package entity

import (
	"errors"
	"testing"
	"time"

	"github.com/oksasatya/go-ddd-billing/internal/domain/errs"
)

func TestInvoiceTransitions(t *testing.T) {
	at := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

	tests := []struct {
		name    string
		from    InvoiceStatus
		apply   func(*Invoice) error
		want    InvoiceStatus
		wantErr error
	}{
		{"request from created", InvoiceStatusCreated, func(i *Invoice) error { return i.RequestPayment(at) }, InvoiceStatusPaymentRequested, nil},
		{"request again", InvoiceStatusPaymentRequested, func(i *Invoice) error { return i.RequestPayment(at) }, InvoiceStatusPaymentRequested, nil},
		{"request on paid", InvoiceStatusPaid, func(i *Invoice) error { return i.RequestPayment(at) }, InvoiceStatusPaid, errs.ErrConflict},
		{"pay requested", InvoiceStatusPaymentRequested, func(i *Invoice) error { return i.MarkPaid(at) }, InvoiceStatusPaid, nil},
		{"pay twice", InvoiceStatusPaid, func(i *Invoice) error { return i.MarkPaid(at) }, InvoiceStatusPaid, errs.ErrConflict},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			inv := &Invoice{Status: tt.from}
			err := tt.apply(inv)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("err = %v, want %v", err, tt.wantErr)
			}
			if inv.Status != tt.want {
				t.Errorf("status = %s, want %s", inv.Status, tt.want)
			}
		})
	}
}

func TestMarkPaidSetsPaidAt(t *testing.T) {
	at := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	inv := &Invoice{Status: InvoiceStatusPaymentRequested}
	if err := inv.MarkPaid(at); err != nil {
		t.Fatal(err)
	}
	if inv.PaidAt == nil || !inv.PaidAt.Equal(at) {
		t.Errorf("paid_at = %v, want %v", inv.PaidAt, at)
	}
}

func TestInvoiceStatusValid(t *testing.T) {
	if !InvoiceStatus("payment-requested").Valid() {
		t.Error("payment-requested should be valid")
	}
	if InvoiceStatus("refunded").Valid() {
		t.Error("refunded should not be valid")
	}
}
