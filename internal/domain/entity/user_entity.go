package entity

import (
	"time"

	"github.com/google/uuid"
)

// User is the aggregate root for the user domain.
// Invoices hang off a user and are removed together with it.
type User struct {
	ID        uuid.UUID
	Email     string
	Name      string
	Age       *int
	CreatedAt time.Time
	UpdatedAt time.Time
}

// CreateUser carries the fully prepared row for insertion; IDs and timestamps are
// assigned by the service, not the database.
type CreateUser struct {
	ID        uuid.UUID
	Email     string
	Name      string
	Age       *int
	CreatedAt time.Time
	UpdatedAt time.Time
}

// UserUpdate is a sparse patch. Nil pointers leave the column untouched; Age uses
// Optional so that an explicit null can clear it.
type UserUpdate struct {
	Email *string
	Name  *string
	Age   Optional[int]
}

func (u UserUpdate) IsEmpty() bool {
	return u.Email == nil && u.Name == nil && !u.Age.Set
}

// FieldChange records the old and new rendering of a changed field.
type FieldChange struct {
	Old string `json:"old"`
	New string `json:"new"`
}

// Diff returns the fields of patch that differ from u.
func (u *User) Diff(patch UserUpdate) map[string]FieldChange {
	changes := map[string]FieldChange{}
	if patch.Email != nil && *patch.Email != u.Email {
		changes["email"] = FieldChange{Old: u.Email, New: *patch.Email}
	}
	if patch.Name != nil && *patch.Name != u.Name {
		changes["name"] = FieldChange{Old: u.Name, New: *patch.Name}
	}
	if patch.Age.Set && !sameInt(patch.Age.Value, u.Age) {
		changes["age"] = FieldChange{Old: intString(u.Age), New: intString(patch.Age.Value)}
	}
	return changes
}
