// Package httpjson writes JSON responses and coded JSON errors for the API.
//
// Error bodies have the shape {"error": {"code": "...", "message": "..."}}
// with the status taken from the apperr code.
package httpjson

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/dalemusser/bookclub/internal/app/system/apperr"
	"github.com/dalemusser/bookclub/internal/app/system/limits"
	"go.uber.org/zap"
)

// WriteJSON writes v with the given status.
func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if v == nil {
		return
	}
	_ = json.NewEncoder(w).Encode(v)
}

// OK writes v with 200.
func OK(w http.ResponseWriter, v any) { WriteJSON(w, http.StatusOK, v) }

// Created writes v with 201.
func Created(w http.ResponseWriter, v any) { WriteJSON(w, http.StatusCreated, v) }

type errorBody struct {
	Error errorDetail `json:"error"`
}

type errorDetail struct {
	Code    apperr.Code `json:"code"`
	Message string      `json:"message"`
}

// WriteError writes err as a coded JSON error. Internal errors never expose
// their message.
func WriteError(w http.ResponseWriter, err error) {
	code := apperr.CodeOf(err)
	msg := "internal error"
	if code != apperr.CodeInternal {
		var e *apperr.Error
		if errors.As(err, &e) {
			msg = e.Message
		}
	}
	WriteJSON(w, code.HTTPStatus(), errorBody{Error: errorDetail{Code: code, Message: msg}})
}

// Decode reads a JSON request body into dst. Bodies above limits.MaxJSONBody,
// malformed JSON and unknown fields are validation errors.
func Decode(w http.ResponseWriter, r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, limits.MaxJSONBody)
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		var mbe *http.MaxBytesError
		switch {
		case errors.As(err, &mbe):
			return apperr.Validation("request body too large")
		case errors.Is(err, io.EOF):
			return apperr.Validation("request body is empty")
		default:
			return apperr.Validation("malformed JSON: " + err.Error())
		}
	}
	return nil
}

// ErrorLogger logs failed requests and writes the JSON error.
type ErrorLogger struct {
	log *zap.Logger
}

// NewErrorLogger returns an ErrorLogger writing to log.
func NewErrorLogger(log *zap.Logger) *ErrorLogger {
	return &ErrorLogger{log: log}
}

// Write logs err (error level for 5xx, debug otherwise) and writes the
// JSON error response.
func (e *ErrorLogger) Write(w http.ResponseWriter, r *http.Request, op string, err error) {
	code := apperr.CodeOf(err)
	fields := []zap.Field{
		zap.String("op", op),
		zap.String("code", string(code)),
		zap.String("method", r.Method),
		zap.String("path", r.URL.Path),
		zap.String("request_id", RequestIDFrom(r.Context())),
		zap.Error(err),
	}
	if code.HTTPStatus() >= http.StatusInternalServerError {
		e.log.Error("request failed", fields...)
	} else {
		e.log.Debug("request rejected", fields...)
	}
	WriteError(w, err)
}
