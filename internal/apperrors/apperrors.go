// Package apperrors defines the machine-readable error codes shared by the
// workflow engine and the HTTP layer.
package apperrors

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
)

type Code string

const (
	CodeValidation Code = "VALIDATION_ERROR"
	CodePermission Code = "PERMISSION_DENIED"
	CodeConflict   Code = "CONFLICT"
	CodeStaleState Code = "STALE_STATE"
	CodeNotFound   Code = "NOT_FOUND"
	CodeInternal   Code = "INTERNAL_ERROR"
)

var statusByCode = map[Code]int{
	CodeValidation: http.StatusBadRequest,
	CodePermission: http.StatusForbidden,
	CodeConflict:   http.StatusConflict,
	CodeStaleState: http.StatusConflict,
	CodeNotFound:   http.StatusNotFound,
	CodeInternal:   http.StatusInternalServerError,
}

// AppError carries a code, a human-readable message and optional structured
// details (conflicting merge scopes, incomplete checklist keys, ...) so the
// caller can drive a retry without parsing the message.
type AppError struct {
	Code    Code
	Message string
	Details []string
}

func (e *AppError) Error() string {
	if e == nil {
		return "<nil>"
	}
	if len(e.Details) > 0 {
		return fmt.Sprintf("%s: %s [%s]", e.Code, e.Message, strings.Join(e.Details, ", "))
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *AppError) HTTPStatus() int {
	if s, ok := statusByCode[e.Code]; ok {
		return s
	}
	return http.StatusInternalServerError
}

func newError(code Code, msg string, details ...string) *AppError {
	return &AppError{Code: code, Message: msg, Details: details}
}

func Validation(msg string, details ...string) *AppError {
	return newError(CodeValidation, msg, details...)
}

func Permission(msg string, details ...string) *AppError {
	return newError(CodePermission, msg, details...)
}

func Conflict(msg string, details ...string) *AppError {
	return newError(CodeConflict, msg, details...)
}

func StaleState(msg string, details ...string) *AppError {
	return newError(CodeStaleState, msg, details...)
}

func NotFound(msg string, details ...string) *AppError {
	return newError(CodeNotFound, msg, details...)
}

func Internal(msg string) *AppError {
	return newError(CodeInternal, msg)
}

// IllegalTransition names the rejected (from, to) pair.
func IllegalTransition(from, to string) *AppError {
	return Validation(fmt.Sprintf("illegal revision transition from %q to %q", from, to))
}

// HasCode reports whether err is an *AppError with the given code.
func HasCode(err error, code Code) bool {
	var ae *AppError
	if errors.As(err, &ae) {
		return ae.Code == code
	}
	return false
}

// From extracts the *AppError from err, wrapping unknown errors as internal.
func From(err error) *AppError {
	var ae *AppError
	if errors.As(err, &ae) {
		return ae
	}
	return Internal(err.Error())
}
