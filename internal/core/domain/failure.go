package domain

import (
	"errors"
	"fmt"
)

// FailureKind separates failures a caller may retry from ones it must not.
type FailureKind string

const (
	// FailureUnavailable covers transport and backend errors: the action
	// could not be completed and may be retried by the caller.
	FailureUnavailable FailureKind = "unavailable"
	// FailureRejected means a precondition did not hold (role not held,
	// duplicate role, missing business name). Retrying will not help.
	FailureRejected FailureKind = "rejected"
)

// Failure is the tagged error returned across the session module boundary.
type Failure struct {
	Kind    FailureKind
	Message string
	Err     error
}

func (f *Failure) Error() string {
	if f.Err != nil && f.Message == "" {
		return fmt.Sprintf("%s: %v", f.Kind, f.Err)
	}
	return fmt.Sprintf("%s: %s", f.Kind, f.Message)
}

func (f *Failure) Unwrap() error { return f.Err }

// Unavailable wraps a transport or backend error.
func Unavailable(err error) *Failure {
	return &Failure{Kind: FailureUnavailable, Message: "could not complete action", Err: err}
}

// Rejected builds a precondition failure around a sentinel error.
func Rejected(err error) *Failure {
	return &Failure{Kind: FailureRejected, Message: err.Error(), Err: err}
}

// RejectedMessage builds a precondition failure from a message reported by
// the backend.
func RejectedMessage(msg string) *Failure {
	return &Failure{Kind: FailureRejected, Message: msg}
}

// IsRejected reports whether err carries a rejected-precondition failure.
func IsRejected(err error) bool {
	var f *Failure
	return errors.As(err, &f) && f.Kind == FailureRejected
}

// IsUnavailable reports whether err carries a transport failure.
func IsUnavailable(err error) bool {
	var f *Failure
	return errors.As(err, &f) && f.Kind == FailureUnavailable
}
