package domain

import (
	"bytes"
	"encoding/json"
)

// Field distinguishes a JSON property that is absent, explicitly null, or set.
type Field[T any] struct {
	Set   bool // property present in the payload
	Null  bool // property present with a null value
	Value T
}

// Some returns a set field holding v
func Some[T any](v T) Field[T] {
	return Field[T]{Set: true, Value: v}
}

// Null returns a set field holding null
func Null[T any]() Field[T] {
	return Field[T]{Set: true, Null: true}
}

// UnmarshalJSON is only called when the property is present
func (f *Field[T]) UnmarshalJSON(data []byte) error {
	f.Set = true
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		f.Null = true
		var zero T
		f.Value = zero
		return nil
	}
	f.Null = false
	return json.Unmarshal(data, &f.Value)
}

// Ptr returns nil for null or absent fields, otherwise a pointer to the value
func (f Field[T]) Ptr() *T {
	if !f.Set || f.Null {
		return nil
	}
	v := f.Value
	return &v
}
