package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/sirupsen/logrus"

	"github.com/oksasatya/go-ddd-billing/internal/domain/errs"
	repo "github.com/oksasatya/go-ddd-billing/internal/domain/repository"
)

// Beginner is satisfied by *pgxpool.Pool.
type Beginner interface {
	Begin(ctx context.Context) (pgx.Tx, error)
}

// TxManager implements repository.TransactionManager on top of a pgx pool.
type TxManager struct {
	pool   Beginner
	logger *logrus.Logger
}

func NewTxManager(pool Beginner, logger *logrus.Logger) *TxManager {
	return &TxManager{pool: pool, logger: logger}
}

func (m *TxManager) Transaction(ctx context.Context, fn func(ctx context.Context, tx pgx.Tx) error) error {
	tx, err := m.pool.Begin(ctx)
	if err != nil {
		return errs.Storage("begin transaction", err)
	}

	defer func() {
		if p := recover(); p != nil {
			m.rollback(tx)
			panic(p)
		}
	}()

	if err := fn(ctx, tx); err != nil {
		m.rollback(tx)
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		if translated := translate("commit transaction", err); errs.KindOf(translated) == errs.KindConflict {
			return errs.Storage("commit transaction", translated)
		}
		return errs.Storage("commit transaction", err)
	}
	return nil
}

// rollback uses a fresh context so a cancelled request still releases the connection.
func (m *TxManager) rollback(tx pgx.Tx) {
	if err := tx.Rollback(context.Background()); err != nil && !errors.Is(err, pgx.ErrTxClosed) && m.logger != nil {
		m.logger.WithError(err).Warn("rollback failed")
	}
}

var _ repo.TransactionManager[pgx.Tx] = (*TxManager)(nil)
