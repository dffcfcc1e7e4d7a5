package entity

import (
	"bytes"
	"encoding/json"
	"strconv"
)

// Optional distinguishes "not provided" from "provided as null" in sparse updates.
type Optional[T any] struct {
	Set   bool
	Value *T
}

func Some[T any](v T) Optional[T] { return Optional[T]{Set: true, Value: &v} }

func Null[T any]() Optional[T] { return Optional[T]{Set: true} }

// UnmarshalJSON is only invoked for keys present in the payload, so an absent key
// leaves Set false while an explicit null yields Set with a nil Value.
func (o *Optional[T]) UnmarshalJSON(b []byte) error {
	o.Set = true
	if bytes.Equal(bytes.TrimSpace(b), []byte("null")) {
		o.Value = nil
		return nil
	}
	var v T
	if err := json.Unmarshal(b, &v); err != nil {
		return err
	}
	o.Value = &v
	return nil
}

func sameInt(a, b *int) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}

func intString(v *int) string {
	if v == nil {
		return "None"
	}
	return strconv.Itoa(*v)
}
