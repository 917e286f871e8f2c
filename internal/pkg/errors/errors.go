package errors

import (
	"encoding/json"
	stderrors "errors"
	"net/http"
)

type ErrorResponse struct {
	Error   string      `json:"error"`
	Message string      `json:"message"`
	Code    string      `json:"code"`
	Details interface{} `json:"details,omitempty"`
}

const (
	ErrCodeInvalidInput      = "INVALID_INPUT"
	ErrCodeNotFound          = "NOT_FOUND"
	ErrCodeRateLimitExceeded = "RATE_LIMIT_EXCEEDED"
	ErrCodeInternal          = "INTERNAL_ERROR"
)

type Kind string

const (
	KindInvalidRequest Kind = "invalid_request"
	KindNotFound       Kind = "not_found"
	KindInternal       Kind = "internal"
	KindRateLimited    Kind = "rate_limited"
)

// Error is the error type surfaced by the roadmap and webhook engines.
// Details is safe to render to clients for every kind but internal, where it
// carries the raw upstream payload.
type Error struct {
	Kind    Kind
	Message string
	Details interface{}
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

func BadRequest(message string, details interface{}) *Error {
	return &Error{Kind: KindInvalidRequest, Message: message, Details: details}
}

func NotFound(message string, details interface{}) *Error {
	return &Error{Kind: KindNotFound, Message: message, Details: details}
}

func Internal(message string, details interface{}, err error) *Error {
	return &Error{Kind: KindInternal, Message: message, Details: details, Err: err}
}

// KindOf reports the kind of err. Errors not produced by this package are internal.
func KindOf(err error) Kind {
	var e *Error
	if stderrors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

func Is(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}

func statusFor(kind Kind) (int, string) {
	switch kind {
	case KindInvalidRequest:
		return http.StatusBadRequest, ErrCodeInvalidInput
	case KindNotFound:
		return http.StatusNotFound, ErrCodeNotFound
	case KindRateLimited:
		return http.StatusTooManyRequests, ErrCodeRateLimitExceeded
	default:
		return http.StatusInternalServerError, ErrCodeInternal
	}
}

// Write renders err as an ErrorResponse.
func Write(w http.ResponseWriter, err error, exposeDetails bool) {
	var e *Error
	if !stderrors.As(err, &e) {
		e = Internal("Internal server error", nil, err)
	}

	status, code := statusFor(e.Kind)
	details := e.Details
	if e.Kind == KindInternal && !exposeDetails {
		details = nil
	}

	WriteError(w, status, code, e.Message, details)
}

func WriteError(w http.ResponseWriter, status int, code, message string, details interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	json.NewEncoder(w).Encode(ErrorResponse{
		Error:   http.StatusText(status),
		Message: message,
		Code:    code,
		Details: details,
	})
}
