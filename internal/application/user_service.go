package application

import (
	"context"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/oksasatya/go-ddd-billing/internal/domain/entity"
	"github.com/oksasatya/go-ddd-billing/internal/domain/errs"
	"github.com/oksasatya/go-ddd-billing/internal/domain/event"
	repo "github.com/oksasatya/go-ddd-billing/internal/domain/repository"
)

const (
	maxNameLength = 255
	maxAge        = 150
)

var validate = validator.New()

type UserService[C any] struct {
	tx        repo.TransactionManager[C]
	users     repo.UserRepository[C]
	invoices  *InvoiceService[C]
	publisher EventPublisher
	logger    *logrus.Logger
	now       func() time.Time
}

func NewUserService[C any](tx repo.TransactionManager[C], users repo.UserRepository[C], invoices *InvoiceService[C], pub EventPublisher, logger *logrus.Logger) *UserService[C] {
	return &UserService[C]{
		tx:        tx,
		users:     users,
		invoices:  invoices,
		publisher: pub,
		logger:    logger,
		now:       time.Now,
	}
}

type CreateUserInput struct {
	Email string
	Name  string
	Age   *int
}

func (s *UserService[C]) CreateUser(ctx context.Context, in CreateUserInput) (*entity.User, error) {
	email := strings.TrimSpace(in.Email)
	if err := validateEmail(email); err != nil {
		return nil, err
	}
	if err := validateName(in.Name); err != nil {
		return nil, err
	}
	if err := validateAge(in.Age); err != nil {
		return nil, err
	}

	var created *entity.User
	err := s.tx.Transaction(ctx, func(ctx context.Context, tx C) error {
		existing, err := s.users.GetByEmail(ctx, tx, email)
		if err != nil {
			return err
		}
		if existing != nil {
			return errs.Duplicate("User", "email", email)
		}
		id, err := uuid.NewV7()
		if err != nil {
			return errs.Storage("generate user id", err)
		}
		now := s.now().UTC()
		created, err = s.users.Create(ctx, tx, entity.CreateUser{
			ID:        id,
			Email:     email,
			Name:      in.Name,
			Age:       in.Age,
			CreatedAt: now,
			UpdatedAt: now,
		})
		return err
	})
	if err != nil {
		return nil, err
	}

	if s.logger != nil {
		s.logger.WithField("user_id", created.ID).Info("user created")
	}
	ev := event.UserCreated{UserID: created.ID, Email: created.Email, Name: created.Name, Age: created.Age}
	return created, publishCommitted(ctx, s.publisher, s.logger, []event.Event{ev})
}

func (s *UserService[C]) GetUser(ctx context.Context, id uuid.UUID) (*entity.User, error) {
	var u *entity.User
	err := s.tx.Transaction(ctx, func(ctx context.Context, tx C) error {
		var err error
		u, err = s.users.GetByID(ctx, tx, id)
		return err
	})
	if err != nil {
		return nil, err
	}
	if u == nil {
		return nil, errs.NotFound("User", id.String())
	}
	return u, nil
}

// ListUsers returns one page of users and the total count.
func (s *UserService[C]) ListUsers(ctx context.Context, limit, offset int) ([]entity.User, int64, error) {
	var (
		users []entity.User
		total int64
	)
	err := s.tx.Transaction(ctx, func(ctx context.Context, tx C) error {
		var err error
		if users, err = s.users.List(ctx, tx, limit, offset); err != nil {
			return err
		}
		total, err = s.users.Count(ctx, tx)
		return err
	})
	if err != nil {
		return nil, 0, err
	}
	return users, total, nil
}

// UpdateUser applies a sparse patch. UserUpdated is only published when at least one
// field really changed.
func (s *UserService[C]) UpdateUser(ctx context.Context, id uuid.UUID, patch entity.UserUpdate) (*entity.User, error) {
	if patch.IsEmpty() {
		return nil, errs.Validation("", "At least one field must be provided")
	}
	if patch.Email != nil {
		email := strings.TrimSpace(*patch.Email)
		if err := validateEmail(email); err != nil {
			return nil, err
		}
		patch.Email = &email
	}
	if patch.Name != nil {
		if err := validateName(*patch.Name); err != nil {
			return nil, err
		}
	}
	if patch.Age.Set {
		if err := validateAge(patch.Age.Value); err != nil {
			return nil, err
		}
	}

	var (
		updated *entity.User
		changes map[string]entity.FieldChange
	)
	err := s.tx.Transaction(ctx, func(ctx context.Context, tx C) error {
		current, err := s.users.GetByID(ctx, tx, id)
		if err != nil {
			return err
		}
		if current == nil {
			return errs.NotFound("User", id.String())
		}
		if patch.Email != nil && *patch.Email != current.Email {
			other, err := s.users.GetByEmail(ctx, tx, *patch.Email)
			if err != nil {
				return err
			}
			if other != nil {
				return errs.Duplicate("User", "email", *patch.Email)
			}
		}
		changes = current.Diff(patch)
		if len(changes) == 0 {
			updated = current
			return nil
		}
		updated, err = s.users.Update(ctx, tx, id, patch, s.now().UTC())
		if err != nil {
			return err
		}
		if updated == nil {
			return errs.NotFound("User", id.String())
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	if len(changes) == 0 {
		return updated, nil
	}

	ev := event.UserUpdated{UserID: updated.ID, Changes: changes}
	return updated, publishCommitted(ctx, s.publisher, s.logger, []event.Event{ev})
}

// DeleteUser removes the user and all of its invoices in one transaction.
func (s *UserService[C]) DeleteUser(ctx context.Context, id uuid.UUID) error {
	var removed int64
	err := s.tx.Transaction(ctx, func(ctx context.Context, tx C) error {
		u, err := s.users.GetByID(ctx, tx, id)
		if err != nil {
			return err
		}
		if u == nil {
			return errs.NotFound("User", id.String())
		}
		if s.invoices != nil {
			if removed, err = s.invoices.DeleteInvoicesForUserInTx(ctx, tx, id); err != nil {
				return err
			}
		}
		ok, err := s.users.Delete(ctx, tx, id)
		if err != nil {
			return err
		}
		if !ok {
			return errs.NotFound("User", id.String())
		}
		return nil
	})
	if err != nil {
		return err
	}
	if s.logger != nil {
		s.logger.WithFields(logrus.Fields{"user_id": id, "invoices_deleted": removed}).Info("user deleted")
	}
	return nil
}

func validateEmail(email string) error {
	if email == "" {
		return errs.Validation("email", "Email is required")
	}
	if err := validate.Var(email, "email"); err != nil {
		return errs.Validation("email", "Email must be a valid email address")
	}
	return nil
}

func validateName(name string) error {
	if strings.TrimSpace(name) == "" {
		return errs.Validation("name", "Name cannot be empty")
	}
	if len([]rune(name)) > maxNameLength {
		return errs.Validation("name", "Name must be at most 255 characters")
	}
	return nil
}

func validateAge(age *int) error {
	if age == nil {
		return nil
	}
	if *age < 0 || *age > maxAge {
		return errs.Validation("age", "Age must be between 0 and 150")
	}
	return nil
}
