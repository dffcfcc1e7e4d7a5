// Package errs holds the error taxonomy shared by the domain, application and
// infrastructure layers. The HTTP boundary maps a Kind to a status code.
package errs

import (
	"errors"
	"fmt"
)

type Kind uint8

const (
	KindUnknown Kind = iota
	KindValidation
	KindNotFound
	KindConflict
	KindStorage
	KindMessaging
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindNotFound:
		return "not_found"
	case KindConflict:
		return "conflict"
	case KindStorage:
		return "storage"
	case KindMessaging:
		return "messaging"
	default:
		return "unknown"
	}
}

// Sentinels for errors.Is checks against any *Error of the same kind.
var (
	ErrValidation = &Error{Kind: KindValidation}
	ErrNotFound   = &Error{Kind: KindNotFound}
	ErrConflict   = &Error{Kind: KindConflict}
	ErrStorage    = &Error{Kind: KindStorage}
	ErrMessaging  = &Error{Kind: KindMessaging}
)

// Error is a typed application error.
type Error struct {
	Kind    Kind
	Entity  string
	Field   string
	Message string
	Err     error
}

func (e *Error) Error() string {
	msg := e.Message
	if msg == "" {
		msg = e.Kind.String()
	}
	if e.Err != nil {
		return msg + ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches sentinels by kind only, so errors.Is(err, ErrNotFound) works for every
// not-found error regardless of entity.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Message == "" && t.Entity == "" && t.Err == nil && t.Kind == e.Kind
}

func Validation(field, message string) *Error {
	return &Error{Kind: KindValidation, Field: field, Message: message}
}

func NotFound(entity, id string) *Error {
	msg := entity + " not found"
	if id != "" {
		msg += " with identifier: " + id
	}
	return &Error{Kind: KindNotFound, Entity: entity, Message: msg}
}

func Duplicate(entity, field, value string) *Error {
	return &Error{
		Kind:    KindConflict,
		Entity:  entity,
		Field:   field,
		Message: fmt.Sprintf("%s with %s '%s' already exists", entity, field, value),
	}
}

func Conflict(entity, message string) *Error {
	return &Error{Kind: KindConflict, Entity: entity, Message: message}
}

func Storage(op string, err error) *Error {
	return &Error{Kind: KindStorage, Message: op, Err: err}
}

func Messaging(op string, err error) *Error {
	return &Error{Kind: KindMessaging, Message: op, Err: err}
}

// KindOf returns the kind of the first *Error in err's chain.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}
