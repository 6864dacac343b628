package soa

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound is returned by queries against an unknown key.
	ErrNotFound = errors.New("not found")

	// ErrExists is returned by Insert when the key is already taken.
	ErrExists = errors.New("already exists")

	// ErrEmptyBook is returned when a book query needs both sides populated.
	ErrEmptyBook = errors.New("empty book")

	// ErrListenerFailure marks an error raised inside a downstream listener.
	ErrListenerFailure = errors.New("listener failure")
)

// ListenerError wraps the error returned by the listener at Index.
// Listeners registered after Index were not invoked.
type ListenerError struct {
	Index int
	Err   error
}

func (e *ListenerError) Error() string {
	return fmt.Sprintf("listener %d: %v", e.Index, e.Err)
}

// Unwrap lets errors.Is match both ErrListenerFailure and the cause.
func (e *ListenerError) Unwrap() []error {
	return []error{ErrListenerFailure, e.Err}
}
