package postgres

import (
	"context"
	"errors"
	"io"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/sirupsen/logrus"

	"github.com/oksasatya/go-ddd-billing/internal/domain/errs"
)

// fakeTx records Commit and Rollback; every other pgx.Tx method is unused here.
type fakeTx struct {
	pgx.Tx
	commitErr error
	commits   int
	rollbacks int
}

func (f *fakeTx) Commit(context.Context) error {
	f.commits++
	return f.commitErr
}

func (f *fakeTx) Rollback(context.Context) error {
	f.rollbacks++
	return nil
}

type fakeBeginner struct {
	tx  *fakeTx
	err error
}

func (f *fakeBeginner) Begin(context.Context) (pgx.Tx, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.tx, nil
}

func quietLogger() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

func TestTxManagerTransaction(t *testing.T) {
	fnErr := errs.Validation("name", "Name cannot be empty")
	uniqueErr := &pgconn.PgError{Code: uniqueViolation, ConstraintName: "users_email_key"}

	tests := []struct {
		name          string
		beginErr      error
		commitErr     error
		fnErr         error
		wantCommits   int
		wantRollbacks int
		check         func(t *testing.T, err error)
	}{
		{
			name:        "success commits",
			wantCommits: 1,
			check: func(t *testing.T, err error) {
				if err != nil {
					t.Fatalf("err = %v", err)
				}
			},
		},
		{
			name:          "fn error rolls back and comes back unchanged",
			fnErr:         fnErr,
			wantRollbacks: 1,
			check: func(t *testing.T, err error) {
				if err != fnErr {
					t.Fatalf("err = %v, want the fn error itself", err)
				}
			},
		},
		{
			name:        "commit failure is a storage error",
			commitErr:   errors.New("connection reset"),
			wantCommits: 1,
			check: func(t *testing.T, err error) {
				if errs.KindOf(err) != errs.KindStorage {
					t.Fatalf("kind = %s", errs.KindOf(err))
				}
			},
		},
		{
			name:        "unique violation at commit keeps the conflict",
			commitErr:   uniqueErr,
			wantCommits: 1,
			check: func(t *testing.T, err error) {
				if errs.KindOf(err) != errs.KindStorage || !errors.Is(err, errs.ErrConflict) {
					t.Fatalf("err = %v, want storage wrapping a conflict", err)
				}
			},
		},
		{
			name:     "begin failure is a storage error",
			beginErr: errors.New("pool closed"),
			check: func(t *testing.T, err error) {
				if errs.KindOf(err) != errs.KindStorage {
					t.Fatalf("kind = %s", errs.KindOf(err))
				}
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tx := &fakeTx{commitErr: tt.commitErr}
			m := NewTxManager(&fakeBeginner{tx: tx, err: tt.beginErr}, quietLogger())

			called := false
			err := m.Transaction(context.Background(), func(_ context.Context, got pgx.Tx) error {
				called = true
				if got != tx {
					t.Error("fn did not receive the begun transaction")
				}
				return tt.fnErr
			})

			tt.check(t, err)
			if called == (tt.beginErr != nil) {
				t.Errorf("fn called = %v", called)
			}
			if tx.commits != tt.wantCommits || tx.rollbacks != tt.wantRollbacks {
				t.Errorf("commits=%d rollbacks=%d, want %d %d", tx.commits, tx.rollbacks, tt.wantCommits, tt.wantRollbacks)
			}
		})
	}
}

func TestTxManagerPanicRollsBackAndRepanics(t *testing.T) {
	tx := &fakeTx{}
	m := NewTxManager(&fakeBeginner{tx: tx}, quietLogger())

	defer func() {
		if p := recover(); p != "boom" {
			t.Fatalf("recovered %v, want the original panic", p)
		}
		if tx.rollbacks != 1 || tx.commits != 0 {
			t.Errorf("commits=%d rollbacks=%d", tx.commits, tx.rollbacks)
		}
	}()
	_ = m.Transaction(context.Background(), func(context.Context, pgx.Tx) error {
		panic("boom")
	})
	t.Fatal("panic was swallowed")
}
