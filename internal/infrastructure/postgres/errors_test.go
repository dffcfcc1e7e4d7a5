package postgres

import (
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"

	"github.com/oksasatya/go-ddd-billing/internal/domain/errs"
)

func TestTranslate(t *testing.T) {
	tests := []struct {
		name  string
		err   error
		want  errs.Kind
		field string
	}{
		{"unique email", &pgconn.PgError{Code: "23505", ConstraintName: "users_email_key"}, errs.KindConflict, "email"},
		{"foreign key", fmt.Errorf("insert: %w", &pgconn.PgError{Code: "23503"}), errs.KindNotFound, ""},
		{"other pg error", &pgconn.PgError{Code: "40001"}, errs.KindStorage, ""},
		{"plain error", errors.New("conn closed"), errs.KindStorage, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := translate("op", tt.err)
			var e *errs.Error
			if !errors.As(got, &e) {
				t.Fatalf("translate returned %T", got)
			}
			if e.Kind != tt.want || e.Field != tt.field {
				t.Errorf("kind=%s field=%q, want %s %q", e.Kind, e.Field, tt.want, tt.field)
			}
			if !errors.Is(got, tt.err) {
				t.Error("driver error should stay in the chain")
			}
		})
	}
	if translate("op", nil) != nil {
		t.Error("nil must stay nil")
	}
}
