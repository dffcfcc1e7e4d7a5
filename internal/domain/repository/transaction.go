package repository

import "context"

// TransactionManager runs fn inside one unit of work. A nil return commits; an error
// rolls back and is returned unchanged; a panic rolls back and re-panics.
// Calls must not be nested.
type TransactionManager[C any] interface {
	Transaction(ctx context.Context, fn func(ctx context.Context, tx C) error) error
}
