package model

import (
	"bytes"
	"encoding/json"
)

type optionalState uint8

const (
	stateAbsent optionalState = iota
	stateNull
	stateValue
)

// Optional is a tri-state field of a partial update: absent (not sent),
// null (explicit clear) or a concrete value. The zero value is absent.
type Optional[T any] struct {
	state optionalState
	value T
}

// Some returns an Optional holding v.
func Some[T any](v T) Optional[T] {
	return Optional[T]{state: stateValue, value: v}
}

// Null returns an Optional requesting the field be cleared.
func Null[T any]() Optional[T] {
	return Optional[T]{state: stateNull}
}

// IsAbsent reports whether the field was not sent.
func (o Optional[T]) IsAbsent() bool { return o.state == stateAbsent }

// IsNull reports whether the field was sent as an explicit clear.
func (o Optional[T]) IsNull() bool { return o.state == stateNull }

// Get returns the value and whether one is present.
func (o Optional[T]) Get() (T, bool) {
	return o.value, o.state == stateValue
}

// UnmarshalJSON implements json.Unmarshaler. A missing key never reaches this
// method, so it stays absent.
func (o *Optional[T]) UnmarshalJSON(data []byte) error {
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		*o = Null[T]()
		return nil
	}
	var v T
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	*o = Some(v)
	return nil
}

// blankAsAbsent turns an explicit empty string into a no-op.
func blankAsAbsent(o Optional[string]) Optional[string] {
	if v, ok := o.Get(); ok && v == "" {
		return Optional[string]{}
	}
	return o
}
