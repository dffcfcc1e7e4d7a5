package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"github.com/oksasatya/go-ddd-billing/internal/domain/entity"
	"github.com/oksasatya/go-ddd-billing/internal/domain/errs"
	"github.com/oksasatya/go-ddd-billing/internal/domain/repository"
)

// amount is read as text so NUMERIC keeps its exact scale.
const invoiceColumns = `id, user_id, amount::text, status, paid_at, created_at, updated_at`

type InvoiceRepository struct{}

func NewInvoiceRepository() *InvoiceRepository {
	return &InvoiceRepository{}
}

func scanInvoice(row pgx.Row) (*entity.Invoice, error) {
	var (
		inv    entity.Invoice
		amount string
		status string
		paidAt *time.Time
	)
	if err := row.Scan(&inv.ID, &inv.UserID, &amount, &status, &paidAt, &inv.CreatedAt, &inv.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	d, err := decimal.NewFromString(amount)
	if err != nil {
		return nil, fmt.Errorf("parse amount %q: %w", amount, err)
	}
	inv.Amount = d
	inv.Status = entity.InvoiceStatus(status)
	inv.PaidAt = paidAt
	return &inv, nil
}

func (r *InvoiceRepository) Create(ctx context.Context, tx pgx.Tx, in entity.CreateInvoice) (*entity.Invoice, error) {
	row := tx.QueryRow(ctx, `
		INSERT INTO invoices (id, user_id, amount, status, created_at, updated_at)
		VALUES ($1, $2, $3::numeric, $4, $5, $6)
		RETURNING `+invoiceColumns,
		in.ID, in.UserID, in.Amount.String(), string(in.Status), in.CreatedAt, in.UpdatedAt)
	inv, err := scanInvoice(row)
	if err != nil {
		return nil, translate("insert invoice", err)
	}
	return inv, nil
}

func (r *InvoiceRepository) GetByID(ctx context.Context, tx pgx.Tx, id uuid.UUID) (*entity.Invoice, error) {
	inv, err := scanInvoice(tx.QueryRow(ctx, `SELECT `+invoiceColumns+` FROM invoices WHERE id = $1`, id))
	if err != nil {
		return nil, translate("get invoice", err)
	}
	return inv, nil
}

// GetByIDForUpdate holds a row lock until the transaction ends.
func (r *InvoiceRepository) GetByIDForUpdate(ctx context.Context, tx pgx.Tx, id uuid.UUID) (*entity.Invoice, error) {
	inv, err := scanInvoice(tx.QueryRow(ctx, `SELECT `+invoiceColumns+` FROM invoices WHERE id = $1 FOR UPDATE`, id))
	if err != nil {
		return nil, translate("lock invoice", err)
	}
	return inv, nil
}

func (r *InvoiceRepository) Update(ctx context.Context, tx pgx.Tx, inv *entity.Invoice) error {
	tag, err := tx.Exec(ctx, `
		UPDATE invoices
		SET amount = $1::numeric, status = $2, paid_at = $3, updated_at = $4
		WHERE id = $5
	`, inv.Amount.String(), string(inv.Status), inv.PaidAt, inv.UpdatedAt, inv.ID)
	if err != nil {
		return translate("update invoice", err)
	}
	if tag.RowsAffected() == 0 {
		return errs.NotFound("Invoice", inv.ID.String())
	}
	return nil
}

func (r *InvoiceRepository) Delete(ctx context.Context, tx pgx.Tx, id uuid.UUID) (bool, error) {
	tag, err := tx.Exec(ctx, `DELETE FROM invoices WHERE id = $1`, id)
	if err != nil {
		return false, translate("delete invoice", err)
	}
	return tag.RowsAffected() > 0, nil
}

func (r *InvoiceRepository) DeleteByUserID(ctx context.Context, tx pgx.Tx, userID uuid.UUID) (int64, error) {
	tag, err := tx.Exec(ctx, `DELETE FROM invoices WHERE user_id = $1`, userID)
	if err != nil {
		return 0, translate("delete invoices by user", err)
	}
	return tag.RowsAffected(), nil
}

func (r *InvoiceRepository) List(ctx context.Context, tx pgx.Tx, filter entity.InvoiceFilter, limit, offset int) ([]entity.Invoice, error) {
	rows, err := tx.Query(ctx, `
		SELECT `+invoiceColumns+`
		FROM invoices
		WHERE ($1::uuid IS NULL OR user_id = $1)
		ORDER BY id
		LIMIT $2 OFFSET $3
	`, filter.UserID, limit, offset)
	if err != nil {
		return nil, translate("list invoices", err)
	}
	defer rows.Close()

	out := make([]entity.Invoice, 0, limit)
	for rows.Next() {
		inv, err := scanInvoice(rows)
		if err != nil {
			return nil, translate("scan invoice", err)
		}
		out = append(out, *inv)
	}
	if err := rows.Err(); err != nil {
		return nil, translate("list invoices", err)
	}
	return out, nil
}

func (r *InvoiceRepository) Count(ctx context.Context, tx pgx.Tx, filter entity.InvoiceFilter) (int64, error) {
	var n int64
	err := tx.QueryRow(ctx, `SELECT count(*) FROM invoices WHERE ($1::uuid IS NULL OR user_id = $1)`, filter.UserID).Scan(&n)
	if err != nil {
		return 0, translate("count invoices", err)
	}
	return n, nil
}

var _ repository.InvoiceRepository[pgx.Tx] = (*InvoiceRepository)(nil)
