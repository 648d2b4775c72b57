package domain

import (
	"errors"
	"fmt"
)

var (
	ErrIndexOutOfRange = errors.New("index out of range")
	ErrUnknownColumn   = errors.New("unknown column")
	ErrUnknownRecord   = errors.New("unknown record")
	ErrDuplicateKey    = errors.New("duplicate key")
	ErrEmptyKey        = errors.New("empty key")
	ErrNotFound        = errors.New("not found")
)

// IndexOutOfRangeError reports a reorder index outside [0, Length).
// It usually means the caller holds a stale position.
type IndexOutOfRangeError struct {
	Index  int
	Length int
}

func (e *IndexOutOfRangeError) Error() string {
	return fmt.Sprintf("index %d out of range [0, %d)", e.Index, e.Length)
}

func (e *IndexOutOfRangeError) Is(target error) bool {
	return target == ErrIndexOutOfRange
}

// UnknownColumnError reports a column key absent from the registry.
type UnknownColumnError struct {
	Key string
}

func (e *UnknownColumnError) Error() string {
	return fmt.Sprintf("unknown column %q", e.Key)
}

func (e *UnknownColumnError) Is(target error) bool {
	return target == ErrUnknownColumn
}

// KeyError reports a record key that breaks the identity invariant.
type KeyError struct {
	Key string
	Err error
}

func (e *KeyError) Error() string {
	if e.Key == "" {
		return e.Err.Error()
	}
	return fmt.Sprintf("%s: %q", e.Err, e.Key)
}

func (e *KeyError) Unwrap() error { return e.Err }
