package domain

import (
	"errors"
	"fmt"
)

// ErrInvalidConfig marks configuration problems detected at bootstrap.
var ErrInvalidConfig = errors.New("invalid configuration")

// ConnectError is returned when a controller or the database cannot be reached.
type ConnectError struct {
	Target string
	Err    error
}

func (e *ConnectError) Error() string {
	return fmt.Sprintf("connect %s: %v", e.Target, e.Err)
}

func (e *ConnectError) Unwrap() error { return e.Err }

// ResolveError is returned when a node address cannot be mapped to a handle.
type ResolveError struct {
	Source string
	Node   string
	Err    error
}

func (e *ResolveError) Error() string {
	return fmt.Sprintf("resolve %s/%s: %v", e.Source, e.Node, e.Err)
}

func (e *ResolveError) Unwrap() error { return e.Err }

// ReadError is returned when fetching the value of a resolved node fails.
type ReadError struct {
	Source string
	Node   string
	Err    error
}

func (e *ReadError) Error() string {
	return fmt.Sprintf("read %s/%s: %v", e.Source, e.Node, e.Err)
}

func (e *ReadError) Unwrap() error { return e.Err }

// WriteError is a row-level persistence failure that left the connection usable.
type WriteError struct {
	Reading Reading
	Err     error
}

func (e *WriteError) Error() string {
	return fmt.Sprintf("write %s/%s: %v", e.Reading.Source, e.Reading.Node, e.Err)
}

func (e *WriteError) Unwrap() error { return e.Err }

// ConnectionLostError means the persistence connection is gone and the sink
// must be re-acquired before any further write.
type ConnectionLostError struct {
	Err error
}

func (e *ConnectionLostError) Error() string {
	return fmt.Sprintf("persistence connection lost: %v", e.Err)
}

func (e *ConnectionLostError) Unwrap() error { return e.Err }

// IsConnectionLost reports whether err carries a ConnectionLostError.
func IsConnectionLost(err error) bool {
	var lost *ConnectionLostError
	return errors.As(err, &lost)
}
