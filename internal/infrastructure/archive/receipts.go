// Package archive stores paid-invoice receipts in Google Cloud Storage.
package archive

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"path"
	"time"

	"cloud.google.com/go/storage"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/oksasatya/go-ddd-billing/pkg/helpers"
)

type Receipt struct {
	InvoiceID uuid.UUID       `json:"invoice_id"`
	UserID    uuid.UUID       `json:"user_id"`
	Amount    decimal.Decimal `json:"amount"`
	PaidAt    time.Time       `json:"paid_at"`
	IssuedAt  time.Time       `json:"issued_at"`
}

// uploadFunc matches helpers.UploadObject minus the client.
type uploadFunc func(ctx context.Context, bucket, objectPath, contentType string, metadata map[string]string, body []byte) (string, error)

type ReceiptStore struct {
	bucket string
	prefix string
	upload uploadFunc
}

// NewReceiptStore returns nil when GCS is not configured.
func NewReceiptStore(client *storage.Client, bucket, prefix string) *ReceiptStore {
	if client == nil || bucket == "" {
		return nil
	}
	return &ReceiptStore{
		bucket: bucket,
		prefix: prefix,
		upload: func(ctx context.Context, bucket, objectPath, contentType string, metadata map[string]string, body []byte) (string, error) {
			return helpers.UploadObject(ctx, client, bucket, objectPath, contentType, metadata, bytes.NewReader(body))
		},
	}
}

// ObjectPath is deterministic per invoice, so a redelivered event overwrites the same
// object instead of creating a second receipt.
func (s *ReceiptStore) ObjectPath(r Receipt) string {
	return path.Join(s.prefix, r.PaidAt.UTC().Format("2006/01"), r.InvoiceID.String()+".json")
}

func (s *ReceiptStore) Save(ctx context.Context, r Receipt) (string, error) {
	if s == nil {
		return "", nil
	}
	body, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return "", err
	}
	meta := map[string]string{"invoice_id": r.InvoiceID.String(), "user_id": r.UserID.String()}
	url, err := s.upload(ctx, s.bucket, s.ObjectPath(r), "application/json", meta, body)
	if err != nil {
		return "", fmt.Errorf("upload receipt %s: %w", r.InvoiceID, err)
	}
	return url, nil
}
