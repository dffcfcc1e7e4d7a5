package repository

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/oksasatya/go-ddd-billing/internal/domain/entity"
)

// UserRepository defines the interface for user-related database operations.
// C is the transaction handle type of the backing store; a missing row is (nil, nil).
type UserRepository[C any] interface {
	Create(ctx context.Context, tx C, in entity.CreateUser) (*entity.User, error)
	GetByID(ctx context.Context, tx C, id uuid.UUID) (*entity.User, error)
	GetByEmail(ctx context.Context, tx C, email string) (*entity.User, error)
	Update(ctx context.Context, tx C, id uuid.UUID, patch entity.UserUpdate, now time.Time) (*entity.User, error)
	Delete(ctx context.Context, tx C, id uuid.UUID) (bool, error)
	List(ctx context.Context, tx C, limit, offset int) ([]entity.User, error)
	Count(ctx context.Context, tx C) (int64, error)
}
