// Package api is the board client's view of the gateway. Every call goes
// through the offline layer and comes back as a Result.
package api

import (
	"errors"
)

var (
	// ErrOffline means the network was unreachable and nothing usable was cached.
	ErrOffline = errors.New("offline")
	// ErrValidation mirrors a 400 from the gateway.
	ErrValidation = errors.New("validation failed")
	// ErrNotFound mirrors a 404 from the gateway.
	ErrNotFound = errors.New("not found")
	// ErrServer covers 5xx and any other unexpected status.
	ErrServer = errors.New("server error")
)

// State tags a Result.
type State int

const (
	// StateOK carries decoded data.
	StateOK State = iota
	// StateOffline means the call did not reach the gateway.
	StateOffline
	// StateError carries a classified failure in Err.
	StateError
)

func (s State) String() string {
	switch s {
	case StateOK:
		return "ok"
	case StateOffline:
		return "offline"
	default:
		return "error"
	}
}

// Result is the outcome of one gateway call.
type Result[T any] struct {
	State State
	Data  T
	Err   error
	// Stale is set when Data was replayed from the offline cache.
	Stale bool
}

// Ok wraps data in a successful result.
func Ok[T any](data T) Result[T] {
	return Result[T]{State: StateOK, Data: data}
}

// Offline returns an offline result.
func Offline[T any]() Result[T] {
	return Result[T]{State: StateOffline, Err: ErrOffline}
}

// Fail returns an error result.
func Fail[T any](err error) Result[T] {
	return Result[T]{State: StateError, Err: err}
}

// IsOK reports whether data is usable.
func (r Result[T]) IsOK() bool {
	return r.State == StateOK
}

// Ack is the gateway's write acknowledgement.
type Ack struct {
	Success bool   `json:"success"`
	ID      string `json:"id,omitempty"`
}
