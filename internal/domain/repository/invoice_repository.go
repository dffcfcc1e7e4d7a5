package repository

import (
	"context"

	"github.com/google/uuid"

	"github.com/oksasatya/go-ddd-billing/internal/domain/entity"
)

// InvoiceRepository defines invoice persistence. GetByIDForUpdate locks the row until
// the surrounding transaction ends.
type InvoiceRepository[C any] interface {
	Create(ctx context.Context, tx C, in entity.CreateInvoice) (*entity.Invoice, error)
	GetByID(ctx context.Context, tx C, id uuid.UUID) (*entity.Invoice, error)
	GetByIDForUpdate(ctx context.Context, tx C, id uuid.UUID) (*entity.Invoice, error)
	Update(ctx context.Context, tx C, inv *entity.Invoice) error
	Delete(ctx context.Context, tx C, id uuid.UUID) (bool, error)
	DeleteByUserID(ctx context.Context, tx C, userID uuid.UUID) (int64, error)
	List(ctx context.Context, tx C, filter entity.InvoiceFilter, limit, offset int) ([]entity.Invoice, error)
	Count(ctx context.Context, tx C, filter entity.InvoiceFilter) (int64, error)
}
