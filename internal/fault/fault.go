// Package fault defines the error taxonomy shared by the sync services.
// Services return fault errors; HTTP handlers map kinds to status codes.
package fault

import (
	"errors"
	"fmt"
)

// Kind classifies an error for callers and the HTTP edge.
type Kind int

const (
	// KindUnknown is the zero value; errors of unknown kind are treated as upstream failures at component boundaries.
	KindUnknown Kind = iota
	// KindPreconditionFailed means a state/ordering invariant was violated; user-correctable.
	KindPreconditionFailed
	// KindNotFound means the entity is absent or not owned by the caller.
	KindNotFound
	// KindUpstream means the remote CRM/billing service failed; safe to retry the whole operation.
	KindUpstream
	// KindInvalidResponse means the remote service returned malformed data.
	KindInvalidResponse
	// KindExpired means a signup link is past its expiry.
	KindExpired
	// KindLimitExceeded means a signup link has no remaining uses.
	KindLimitExceeded
)

// String returns the kind name used in logs and audit detail.
func (k Kind) String() string {
	switch k {
	case KindPreconditionFailed:
		return "precondition_failed"
	case KindNotFound:
		return "not_found"
	case KindUpstream:
		return "upstream_error"
	case KindInvalidResponse:
		return "invalid_response"
	case KindExpired:
		return "expired"
	case KindLimitExceeded:
		return "limit_exceeded"
	default:
		return "unknown"
	}
}

// Error is a classified error. Message is safe to surface to the caller.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

// Unwrap returns the wrapped cause, if any.
func (e *Error) Unwrap() error { return e.Err }

// New returns a fault error of the given kind.
func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// Newf returns a fault error with a formatted message.
func Newf(kind Kind, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// Wrap returns a fault error of the given kind wrapping cause.
// If cause is already a fault error it is returned unchanged so domain
// errors are never downgraded crossing component boundaries.
func Wrap(kind Kind, message string, cause error) error {
	if cause == nil {
		return nil
	}
	var fe *Error
	if errors.As(cause, &fe) {
		return cause
	}
	return &Error{Kind: kind, Message: message, Err: cause}
}

// KindOf returns the kind of err, or KindUnknown for unclassified errors.
func KindOf(err error) Kind {
	var fe *Error
	if errors.As(err, &fe) {
		return fe.Kind
	}
	return KindUnknown
}

// IsKind reports whether err is a fault error of the given kind.
func IsKind(err error, kind Kind) bool {
	return KindOf(err) == kind
}

// MessageOf returns the caller-safe message of err, or a generic fallback.
func MessageOf(err error) string {
	var fe *Error
	if errors.As(err, &fe) {
		return fe.Message
	}
	return "internal error"
}
