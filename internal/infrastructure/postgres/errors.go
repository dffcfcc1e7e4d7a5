package postgres

import (
	"errors"

	"github.com/jackc/pgx/v5/pgconn"

	"github.com/oksasatya/go-ddd-billing/internal/domain/errs"
)

const (
	uniqueViolation     = "23505"
	foreignKeyViolation = "23503"
)

// translate maps driver errors onto the domain taxonomy.
func translate(op string, err error) error {
	if err == nil {
		return nil
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case uniqueViolation:
			return &errs.Error{Kind: errs.KindConflict, Field: columnFor(pgErr.ConstraintName), Message: "duplicate value violates " + pgErr.ConstraintName, Err: err}
		case foreignKeyViolation:
			return &errs.Error{Kind: errs.KindNotFound, Message: "referenced row does not exist", Err: err}
		}
	}
	return errs.Storage(op, err)
}

func columnFor(constraint string) string {
	switch constraint {
	case "users_email_key":
		return "email"
	}
	return ""
}
