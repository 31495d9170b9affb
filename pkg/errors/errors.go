package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
)

// ErrorType classifies failures so callers can decide whether to retry,
// skip the current item, or abort the run.
type ErrorType string

const (
	ErrorTypeNetwork     ErrorType = "network"
	ErrorTypeRateLimit   ErrorType = "rate_limit"
	ErrorTypeAuth        ErrorType = "auth"
	ErrorTypeParsing     ErrorType = "parsing"
	ErrorTypeNotFound    ErrorType = "not_found"
	ErrorTypeServerError ErrorType = "server_error"
	ErrorTypeBrowser     ErrorType = "browser"
	ErrorTypeExtraction  ErrorType = "extraction"
	ErrorTypeStorage     ErrorType = "storage"
	ErrorTypeUnknown     ErrorType = "unknown"
)

// Error is a typed failure. Code carries the HTTP status when there is one.
type Error struct {
	Type    ErrorType
	Message string
	Code    int
	Err     error
}

func (e *Error) Error() string {
	msg := e.Message
	if e.Err != nil {
		msg = fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	if e.Code != 0 {
		return fmt.Sprintf("%s error (code %d): %s", e.Type, e.Code, msg)
	}
	return fmt.Sprintf("%s error: %s", e.Type, msg)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// New creates a typed error without a cause.
func New(t ErrorType, message string) *Error {
	return &Error{Type: t, Message: message}
}

// Wrap attaches a type and message to an underlying error.
func Wrap(t ErrorType, err error, message string) *Error {
	return &Error{Type: t, Message: message, Err: err}
}

// FromStatus maps an unexpected HTTP status to a typed error.
func FromStatus(code int, url string) *Error {
	var t ErrorType
	switch {
	case code == http.StatusTooManyRequests:
		t = ErrorTypeRateLimit
	case code == http.StatusUnauthorized || code == http.StatusForbidden:
		t = ErrorTypeAuth
	case code == http.StatusNotFound || code == http.StatusGone:
		t = ErrorTypeNotFound
	case code >= 500:
		t = ErrorTypeServerError
	default:
		t = ErrorTypeUnknown
	}
	return &Error{
		Type:    t,
		Message: fmt.Sprintf("unexpected status %d for %s", code, url),
		Code:    code,
	}
}

// TypeOf returns the type of a typed error anywhere in err's chain.
func TypeOf(err error) ErrorType {
	var e *Error
	if stderrors.As(err, &e) {
		return e.Type
	}
	return ErrorTypeUnknown
}

// IsType reports whether err carries the given type.
func IsType(err error, t ErrorType) bool {
	return err != nil && TypeOf(err) == t
}

// IsRetryable checks if an error type should be retried
func IsRetryable(errorType ErrorType) bool {
	switch errorType {
	case ErrorTypeNetwork, ErrorTypeRateLimit, ErrorTypeServerError:
		return true
	case ErrorTypeAuth, ErrorTypeNotFound, ErrorTypeParsing,
		ErrorTypeBrowser, ErrorTypeExtraction, ErrorTypeStorage:
		return false
	default:
		return false
	}
}

// IsRetryableStatusCode checks if an HTTP status code indicates a retryable error
func IsRetryableStatusCode(statusCode int) bool {
	switch statusCode {
	case 0: // Network error
		return true
	case 429:
		return true
	case 401, 403, 404, 410:
		return false
	default:
		return statusCode >= 500
	}
}
