package config

import (
	"errors"
	"fmt"
)

// Reason classifies why a configuration value was rejected.
type Reason int

const (
	// Missing means a required key or section is absent.
	Missing Reason = iota
	// ParseFailure means a raw value is present but could not be parsed or validated.
	ParseFailure
	// ComputeFailure means a compound extraction step failed or produced nothing usable.
	ComputeFailure
)

func (r Reason) String() string {
	switch r {
	case Missing:
		return "missing"
	case ParseFailure:
		return "parse_failure"
	case ComputeFailure:
		return "compute_failure"
	default:
		return fmt.Sprintf("reason(%d)", int(r))
	}
}

// ErrNilResult is the cause attached when a parser or getter returns nothing.
var ErrNilResult = errors.New("result must not be nil or empty")

// Error describes an invalid configuration value and where it lives.
// Path is always relative to the document root.
type Error struct {
	Path    string
	Reason  Reason
	Message string
	Err     error
}

func newError(n *Node, key string, reason Reason, message string, cause error) *Error {
	return &Error{
		Path:    n.Qualify(key),
		Reason:  reason,
		Message: message,
		Err:     cause,
	}
}

func (e *Error) Error() string {
	msg := "invalid configuration: " + e.Message + "; location: " + e.Path
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error {
	return e.Err
}

// AsError extracts the first *Error in err's chain.
func AsError(err error) (*Error, bool) {
	var cfgErr *Error
	if errors.As(err, &cfgErr) {
		return cfgErr, true
	}
	return nil, false
}
