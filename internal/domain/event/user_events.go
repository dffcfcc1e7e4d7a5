package event

import (
	"github.com/google/uuid"

	"github.com/oksasatya/go-ddd-billing/internal/domain/entity"
)

type UserCreated struct {
	UserID uuid.UUID `json:"user_id"`
	Email  string    `json:"email"`
	Name   string    `json:"name"`
	Age    *int      `json:"age"`
}

func (UserCreated) EventType() Type       { return TypeUserCreated }
func (e UserCreated) AggregateID() string { return e.UserID.String() }
func (UserCreated) AggregateType() string { return AggregateUser }

// UserUpdated carries only the fields that actually changed.
type UserUpdated struct {
	UserID  uuid.UUID                     `json:"user_id"`
	Changes map[string]entity.FieldChange `json:"changes"`
}

func (UserUpdated) EventType() Type       { return TypeUserUpdated }
func (e UserUpdated) AggregateID() string { return e.UserID.String() }
func (UserUpdated) AggregateType() string { return AggregateUser }
