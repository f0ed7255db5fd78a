// Package domainerrors defines the closed set of domain error codes and their
// HTTP mapping. Services raise these; the transport boundary translates them.
// Status selection never depends on error message contents.
package domainerrors

import (
	"errors"
	"fmt"
	"net/http"
)

// Code tags a domain error with its category.
type Code string

const (
	// CodeBadRequest covers malformed requests (unparseable body, bad id format).
	CodeBadRequest Code = "bad_request"
	// CodeInvalidInput covers well-formed requests with semantically invalid
	// fields (bad email, weak password).
	CodeInvalidInput Code = "invalid_input"
	// CodeDuplicate signals a uniqueness conflict, e.g. an email already registered.
	CodeDuplicate Code = "duplicate"
	// CodeNotFound signals a missing resource on direct access.
	CodeNotFound Code = "not_found"
	// CodeRateLimited signals too many failed attempts.
	CodeRateLimited Code = "rate_limited"
	// CodeInternal covers everything the client cannot act on.
	CodeInternal Code = "internal"

	// Authentication failures. All of these surface as 401 and clients must not
	// be able to tell them apart; the distinct codes exist for logs and tests.
	CodeInvalidCredentials Code = "invalid_credentials"
	CodeMissingToken       Code = "missing_token"
	CodeInvalidToken       Code = "invalid_token"
	CodeTokenExpired       Code = "token_expired"
	CodeTokenRevoked       Code = "token_revoked"
)

// Error is a tagged domain error. Construct with New or Wrap.
type Error struct {
	Code    Code
	Message string
	cause   error
}

func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error {
	return e.cause
}

// Is makes two domain errors equal when their codes match, so tests can use
// errors.Is against a freshly constructed expectation.
func (e *Error) Is(target error) bool {
	var other *Error
	if !errors.As(target, &other) {
		return false
	}
	return e.Code == other.Code
}

// New creates a tagged domain error.
func New(code Code, message string) *Error {
	return &Error{Code: code, Message: message}
}

// Wrap tags an underlying error with a domain code while preserving the chain.
func Wrap(err error, code Code, message string) *Error {
	return &Error{Code: code, Message: message, cause: err}
}

// HasCode reports whether err carries the given code anywhere in its chain.
func HasCode(err error, code Code) bool {
	var domainErr *Error
	if !errors.As(err, &domainErr) {
		return false
	}
	return domainErr.Code == code
}

// CodeOf extracts the code from err, defaulting to CodeInternal for untagged errors.
func CodeOf(err error) Code {
	var domainErr *Error
	if errors.As(err, &domainErr) {
		return domainErr.Code
	}
	return CodeInternal
}

// ToHTTPStatus maps a code to its response status. Authentication failures
// collapse onto 401 so responses never reveal which check failed.
func ToHTTPStatus(code Code) int {
	switch code {
	case CodeBadRequest:
		return http.StatusBadRequest
	case CodeInvalidInput:
		return http.StatusUnprocessableEntity
	case CodeDuplicate:
		return http.StatusConflict
	case CodeNotFound:
		return http.StatusNotFound
	case CodeRateLimited:
		return http.StatusTooManyRequests
	case CodeInvalidCredentials, CodeMissingToken, CodeInvalidToken, CodeTokenExpired, CodeTokenRevoked:
		return http.StatusUnauthorized
	default:
		return http.StatusInternalServerError
	}
}

// PublicMessage returns the sanitized message for a code. Internal error text
// never reaches clients; auth failures share one generic message.
func PublicMessage(code Code) string {
	switch code {
	case CodeInvalidCredentials:
		return "invalid credentials"
	case CodeMissingToken, CodeInvalidToken, CodeTokenExpired, CodeTokenRevoked:
		return "invalid or expired token"
	case CodeInternal:
		return "internal server error"
	default:
		return ""
	}
}
