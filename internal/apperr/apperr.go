package apperr

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// Code identifies a class of failure.
type Code string

const (
	CodeConfiguration   Code = "CONFIGURATION"    // fatal at startup
	CodeNotFound        Code = "NOT_FOUND"        // 404
	CodeUnauthorized    Code = "UNAUTHORIZED"     // 401/403
	CodeVersionConflict Code = "VERSION_CONFLICT" // 409 on document write
	CodeValidation      Code = "VALIDATION"       // 400
	CodeParse           Code = "PARSE"            // model output not valid JSON
	CodeTransport       Code = "TRANSPORT"        // network/timeout
	CodeUpstream        Code = "UPSTREAM"         // any other non-2xx
)

// Error is a structured error with code, upstream status, and details.
type Error struct {
	Code    Code
	Status  int
	Message string
	Details map[string]any
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

// NewConfiguration reports missing or invalid settings.
func NewConfiguration(missing []string) *Error {
	return &Error{
		Code:    CodeConfiguration,
		Message: "missing required settings: " + strings.Join(missing, ", "),
		Details: map[string]any{"missing": missing},
	}
}

// NewNotFound creates a 404 error for the named resource.
func NewNotFound(what string) *Error {
	return &Error{
		Code:    CodeNotFound,
		Status:  http.StatusNotFound,
		Message: what + " not found",
	}
}

// NewUnauthorized creates an auth error carrying the upstream status.
func NewUnauthorized(service string, status int, body string) *Error {
	return &Error{
		Code:    CodeUnauthorized,
		Status:  status,
		Message: fmt.Sprintf("%s rejected credentials", service),
		Details: map[string]any{"body": body},
	}
}

// NewVersionConflict reports an optimistic concurrency failure.
func NewVersionConflict(pageID string, attempted int) *Error {
	return &Error{
		Code:    CodeVersionConflict,
		Status:  http.StatusConflict,
		Message: fmt.Sprintf("page %s changed since version %d was read; re-read and retry", pageID, attempted-1),
		Details: map[string]any{"page_id": pageID, "attempted_version": attempted},
	}
}

// NewValidation creates a 400 error. fieldErrors are surfaced verbatim.
func NewValidation(msg string, fieldErrors []string) *Error {
	e := &Error{
		Code:    CodeValidation,
		Status:  http.StatusBadRequest,
		Message: msg,
	}
	if len(fieldErrors) > 0 {
		e.Details = map[string]any{"errors": fieldErrors}
	}
	return e
}

// NewParse wraps a decode failure of model output.
func NewParse(err error) *Error {
	return &Error{Code: CodeParse, Message: "model response is not valid JSON", Err: err}
}

// NewTransport wraps a network-level failure talking to service.
func NewTransport(service string, err error) *Error {
	return &Error{Code: CodeTransport, Message: service + " request failed", Err: err}
}

// FromStatus maps an upstream HTTP status to an error. body is kept as detail.
func FromStatus(service string, status int, body string) *Error {
	switch {
	case status == http.StatusNotFound:
		e := NewNotFound(service + " resource")
		e.Details = map[string]any{"body": body}
		return e
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return NewUnauthorized(service, status, body)
	case status == http.StatusBadRequest:
		return NewValidation(service+" rejected the request", nil)
	default:
		return &Error{
			Code:    CodeUpstream,
			Status:  status,
			Message: fmt.Sprintf("%s returned status %d", service, status),
			Details: map[string]any{"body": body},
		}
	}
}

// Is reports whether err (or anything it wraps) is an *Error with code.
func Is(err error, code Code) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Code == code
	}
	return false
}

// As returns the first *Error in err's chain.
func As(err error) (*Error, bool) {
	var e *Error
	ok := errors.As(err, &e)
	return e, ok
}

// HTTPStatus picks the status a server should answer with for err.
func HTTPStatus(err error) int {
	e, ok := As(err)
	if !ok {
		return http.StatusInternalServerError
	}
	switch e.Code {
	case CodeNotFound:
		return http.StatusNotFound
	case CodeUnauthorized:
		return http.StatusBadGateway
	case CodeVersionConflict:
		return http.StatusConflict
	case CodeValidation:
		return http.StatusBadRequest
	case CodeConfiguration:
		return http.StatusInternalServerError
	default:
		return http.StatusBadGateway
	}
}
