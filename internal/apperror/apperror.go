// Package apperror defines the classified errors every API operation returns.
//
// A Kind maps one to one to an HTTP status, so handlers return errors and the
// fiber error handler renders them.
package apperror

import (
	"errors"
	"fmt"
	"net/http"
	"time"
)

// Kind classifies an Error.
type Kind uint8

const (
	// KindInternal is an unexpected failure, rendered without detail.
	KindInternal Kind = iota
	// KindValidation is a malformed or rejected input.
	KindValidation
	// KindAuthentication means the caller is not authenticated.
	KindAuthentication
	// KindAuthorization means the caller lacks a permission.
	KindAuthorization
	// KindNotFound means the addressed resource does not exist.
	KindNotFound
	// KindConflict means the resource already exists.
	KindConflict
	// KindRateLimit means the caller exhausted its quota.
	KindRateLimit
	// KindCredentialProcessing is a failure of the password hashing primitive.
	KindCredentialProcessing
	// KindTokenIssuance is a failure to sign a token.
	KindTokenIssuance
)

var kindNames = map[Kind]string{ //nolint:gochecknoglobals
	KindInternal:             "internal",
	KindValidation:           "validation",
	KindAuthentication:       "authentication",
	KindAuthorization:        "authorization",
	KindNotFound:             "not_found",
	KindConflict:             "conflict",
	KindRateLimit:            "rate_limit",
	KindCredentialProcessing: "credential_processing",
	KindTokenIssuance:        "token_issuance",
}

func (k Kind) String() string {
	if n, ok := kindNames[k]; ok {
		return n
	}

	return "unknown"
}

// Status returns the HTTP status of the kind.
func (k Kind) Status() int {
	switch k {
	case KindValidation:
		return http.StatusBadRequest
	case KindAuthentication:
		return http.StatusUnauthorized
	case KindAuthorization:
		return http.StatusForbidden
	case KindNotFound:
		return http.StatusNotFound
	case KindConflict:
		return http.StatusConflict
	case KindRateLimit:
		return http.StatusTooManyRequests
	default:
		return http.StatusInternalServerError
	}
}

// Error is a classified error. Message is safe to show to the client.
type Error struct {
	Kind    Kind
	Message string

	// RetryAfter is set on KindRateLimit.
	RetryAfter time.Duration

	// Feedback carries the unmet password rules on weak password errors.
	Feedback []string

	// Err is the cause, never rendered to the client.
	Err error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}

	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Status returns the HTTP status of the error.
func (e *Error) Status() int {
	return e.Kind.Status()
}

// New returns an Error of the given kind.
func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// Wrap returns an Error of the given kind with cause err.
func Wrap(kind Kind, message string, err error) *Error {
	return &Error{Kind: kind, Message: message, Err: err}
}

// Validation returns a KindValidation error.
func Validation(message string) *Error {
	return New(KindValidation, message)
}

// WeakPassword returns a KindValidation error listing the unmet rules.
func WeakPassword(message string, feedback []string) *Error {
	return &Error{Kind: KindValidation, Message: message, Feedback: feedback}
}

// Authentication returns a KindAuthentication error.
func Authentication(message string) *Error {
	return New(KindAuthentication, message)
}

// Authorization returns a KindAuthorization error.
func Authorization(message string) *Error {
	return New(KindAuthorization, message)
}

// NotFound returns a KindNotFound error.
func NotFound(message string) *Error {
	return New(KindNotFound, message)
}

// Conflict returns a KindConflict error.
func Conflict(message string) *Error {
	return New(KindConflict, message)
}

// RateLimited returns a KindRateLimit error.
func RateLimited(message string, retryAfter time.Duration) *Error {
	return &Error{Kind: KindRateLimit, Message: message, RetryAfter: retryAfter}
}

// CredentialProcessing wraps a hashing primitive failure.
func CredentialProcessing(err error) *Error {
	return Wrap(KindCredentialProcessing, "credential processing failed", err)
}

// TokenIssuance wraps a signing failure.
func TokenIssuance(err error) *Error {
	return Wrap(KindTokenIssuance, "token issuance failed", err)
}

// Internal wraps an unexpected failure.
func Internal(err error) *Error {
	return Wrap(KindInternal, "internal server error", err)
}

// As returns the first *Error in err's chain.
func As(err error) (*Error, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e, true
	}

	return nil, false
}

// KindOf returns the kind of err, KindInternal for unclassified errors.
func KindOf(err error) Kind {
	if e, ok := As(err); ok {
		return e.Kind
	}

	return KindInternal
}

// Is reports whether err carries the given kind.
func Is(err error, kind Kind) bool {
	e, ok := As(err)

	return ok && e.Kind == kind
}
