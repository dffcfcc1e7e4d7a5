package templates

import (
	"fmt"
	"strings"
	"time"
)

// Brand carries the sender-side details every email shows.
type Brand struct {
	AppName        string
	CompanyName    string
	CompanyAddress string
	LogoURL        string
	SupportURL     string
	InvoiceURL     string // format string with one %s for the invoice id
}

// Option pattern
type Option func(*EmailData)

func WithTime(t time.Time) Option {
	return func(d *EmailData) {
		utc := t.UTC()
		d.TimeAt = utc
		d.Time = utc.Format("02 January 2006, 15:04")
	}
}

func WithReceiptURL(url string) Option { return func(d *EmailData) { d.ReceiptURL = url } }

func WithInvoice(b Brand, id, amount string) Option {
	return func(d *EmailData) {
		d.InvoiceID = id
		d.Amount = amount
		if strings.Contains(b.InvoiceURL, "%s") {
			d.InvoiceURL = fmt.Sprintf(b.InvoiceURL, id)
		}
	}
}

// NewBaseEmailData fills the common fields from b, then applies opts.
func NewBaseEmailData(b Brand, typ, name, email string, opts ...Option) EmailData {
	d := EmailData{
		Name:           name,
		Email:          email,
		RecipientEmail: email,
		Type:           typ,

		CompanyName:    b.CompanyName,
		CompanyAddress: b.CompanyAddress,
		AppName:        b.AppName,

		LogoURL:    b.LogoURL,
		SupportURL: b.SupportURL,
	}
	for _, opt := range opts {
		opt(&d)
	}
	return d
}

func NewWelcomeData(b Brand, name, email string, opts ...Option) map[string]any {
	return ToMap(NewBaseEmailData(b, Welcome, name, email, opts...))
}

func NewInvoiceCreatedData(b Brand, name, email, invoiceID, amount string, opts ...Option) map[string]any {
	opts = append([]Option{WithInvoice(b, invoiceID, amount)}, opts...)
	return ToMap(NewBaseEmailData(b, InvoiceCreated, name, email, opts...))
}

func NewInvoicePaidData(b Brand, name, email, invoiceID, amount string, paidAt time.Time, opts ...Option) map[string]any {
	opts = append([]Option{WithInvoice(b, invoiceID, amount), WithTime(paidAt)}, opts...)
	return ToMap(NewBaseEmailData(b, InvoicePaid, name, email, opts...))
}
