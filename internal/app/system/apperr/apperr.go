// Package apperr defines the coded errors returned by the access layer.
//
// Services return *Error values; handlers map the Code to an HTTP status.
// Matching is by code:
//
//	if errors.Is(err, apperr.ErrForbidden) { ... }
package apperr

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	wafflemongo "github.com/dalemusser/waffle/pantry/mongo"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/x/mongo/driver/topology"
	"go.uber.org/zap"
)

// Code is a machine-readable error code.
type Code string

const (
	CodeNotFound     Code = "NOT_FOUND"
	CodeForbidden    Code = "FORBIDDEN"
	CodeValidation   Code = "VALIDATION"
	CodeConflict     Code = "CONFLICT"
	CodeConnectivity Code = "CONNECTIVITY"
	CodeUnauthorized Code = "UNAUTHORIZED"
	CodeRateLimited  Code = "RATE_LIMITED"
	CodeInternal     Code = "INTERNAL"
)

// HTTPStatus returns the status code handlers write for c.
func (c Code) HTTPStatus() int {
	switch c {
	case CodeNotFound:
		return http.StatusNotFound
	case CodeForbidden:
		return http.StatusForbidden
	case CodeValidation:
		return http.StatusBadRequest
	case CodeConflict:
		return http.StatusConflict
	case CodeConnectivity:
		return http.StatusServiceUnavailable
	case CodeUnauthorized:
		return http.StatusUnauthorized
	case CodeRateLimited:
		return http.StatusTooManyRequests
	default:
		return http.StatusInternalServerError
	}
}

// Error is a coded error with an optional cause.
type Error struct {
	Code    Code   `json:"code"`
	Message string `json:"message"`
	cause   error
}

func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.cause)
	}
	return e.Message
}

// Unwrap returns the underlying cause.
func (e *Error) Unwrap() error { return e.cause }

// Is matches any *Error with the same Code.
func (e *Error) Is(target error) bool {
	var t *Error
	if errors.As(target, &t) {
		return e.Code == t.Code
	}
	return false
}

// Sentinels for errors.Is.
var (
	ErrNotFound     = &Error{Code: CodeNotFound, Message: "not found"}
	ErrForbidden    = &Error{Code: CodeForbidden, Message: "forbidden"}
	ErrValidation   = &Error{Code: CodeValidation, Message: "validation failed"}
	ErrConflict     = &Error{Code: CodeConflict, Message: "conflict"}
	ErrConnectivity = &Error{Code: CodeConnectivity, Message: "store unavailable"}
	ErrUnauthorized = &Error{Code: CodeUnauthorized, Message: "unauthorized"}
)

func NotFound(msg string) *Error     { return &Error{Code: CodeNotFound, Message: msg} }
func Forbidden(msg string) *Error    { return &Error{Code: CodeForbidden, Message: msg} }
func Validation(msg string) *Error   { return &Error{Code: CodeValidation, Message: msg} }
func Conflict(msg string) *Error     { return &Error{Code: CodeConflict, Message: msg} }
func Unauthorized(msg string) *Error { return &Error{Code: CodeUnauthorized, Message: msg} }
func RateLimited(msg string) *Error  { return &Error{Code: CodeRateLimited, Message: msg} }

// CodeOf returns the Code carried by err, or CodeInternal.
func CodeOf(err error) Code {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return CodeInternal
}

// FromStore classifies a MongoDB driver error. Already-coded errors pass
// through unchanged; nil stays nil.
func FromStore(err error, msg string) error {
	if err == nil {
		return nil
	}
	var e *Error
	if errors.As(err, &e) {
		return err
	}
	switch {
	case errors.Is(err, mongo.ErrNoDocuments):
		return &Error{Code: CodeNotFound, Message: msg, cause: err}
	case wafflemongo.IsDup(err) || mongo.IsDuplicateKeyError(err):
		return &Error{Code: CodeConflict, Message: msg, cause: err}
	case isConnectivity(err):
		return &Error{Code: CodeConnectivity, Message: msg, cause: err}
	}
	return &Error{Code: CodeInternal, Message: msg, cause: err}
}

func isConnectivity(err error) bool {
	if mongo.IsNetworkError(err) || mongo.IsTimeout(err) {
		return true
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, mongo.ErrClientDisconnected) {
		return true
	}
	var sse topology.ServerSelectionError
	return errors.As(err, &sse)
}

// Log records a failed access-layer operation and returns err unchanged.
// Client errors (not found, forbidden, validation, conflict) log at debug;
// everything else at error.
func Log(l *zap.Logger, op string, err error, fields ...zap.Field) error {
	if err == nil || l == nil {
		return err
	}
	fields = append(fields, zap.String("op", op), zap.String("code", string(CodeOf(err))), zap.Error(err))
	switch CodeOf(err) {
	case CodeNotFound, CodeForbidden, CodeValidation, CodeConflict, CodeUnauthorized, CodeRateLimited:
		l.Debug("operation rejected", fields...)
	default:
		l.Error("operation failed", fields...)
	}
	return err
}
