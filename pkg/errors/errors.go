package errors

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	ErrValidation        = errors.New("validation error")
	ErrUnauthorized      = errors.New("unauthorized")
	ErrAuthorization     = errors.New("forbidden")
	ErrNotFound          = errors.New("not found")
	ErrInvalidTransition = errors.New("invalid transition")
	ErrInvalidState      = errors.New("invalid state")
	ErrConflict          = errors.New("conflict")
	ErrRateLimited       = errors.New("rate limit exceeded")
	ErrInternalServer    = errors.New("internal server error")
)

// Error carries one of the sentinel kinds above plus a caller-facing message.
type Error struct {
	Kind    error
	Message string
}

func (e *Error) Error() string {
	if e.Message == "" {
		return e.Kind.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Kind
}

func New(kind error, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

func Validation(format string, args ...interface{}) *Error {
	return New(ErrValidation, format, args...)
}

func Forbidden(format string, args ...interface{}) *Error {
	return New(ErrAuthorization, format, args...)
}

func NotFound(format string, args ...interface{}) *Error {
	return New(ErrNotFound, format, args...)
}

func InvalidTransition(from, to string) *Error {
	return New(ErrInvalidTransition, "cannot move inquiry from %s to %s", from, to)
}

func InvalidState(format string, args ...interface{}) *Error {
	return New(ErrInvalidState, format, args...)
}

type APIError struct {
	Message string `json:"error"`
	Code    string `json:"code"`
}

func (e *APIError) Error() string {
	return e.Message
}

// NewAPIError builds the response body for err. Unknown errors are masked.
func NewAPIError(err error) *APIError {
	kind := KindOf(err)
	if kind == ErrInternalServer {
		return &APIError{Message: ErrInternalServer.Error(), Code: codeOf(kind)}
	}
	return &APIError{Message: err.Error(), Code: codeOf(kind)}
}

// KindOf returns the sentinel kind wrapped by err, or ErrInternalServer.
func KindOf(err error) error {
	for _, kind := range []error{
		ErrValidation, ErrUnauthorized, ErrAuthorization, ErrNotFound,
		ErrInvalidTransition, ErrInvalidState, ErrConflict, ErrRateLimited,
	} {
		if errors.Is(err, kind) {
			return kind
		}
	}
	return ErrInternalServer
}

func codeOf(kind error) string {
	switch kind {
	case ErrValidation:
		return "validation_error"
	case ErrUnauthorized:
		return "unauthorized"
	case ErrAuthorization:
		return "authorization_error"
	case ErrNotFound:
		return "not_found"
	case ErrInvalidTransition:
		return "invalid_transition"
	case ErrInvalidState:
		return "invalid_state"
	case ErrConflict:
		return "conflict"
	case ErrRateLimited:
		return "rate_limited"
	default:
		return "internal_error"
	}
}

func HTTPStatusFromError(err error) int {
	switch KindOf(err) {
	case ErrValidation:
		return http.StatusBadRequest
	case ErrUnauthorized:
		return http.StatusUnauthorized
	case ErrAuthorization:
		return http.StatusForbidden
	case ErrNotFound:
		return http.StatusNotFound
	case ErrInvalidTransition, ErrInvalidState, ErrConflict:
		return http.StatusConflict
	case ErrRateLimited:
		return http.StatusTooManyRequests
	default:
		return http.StatusInternalServerError
	}
}
