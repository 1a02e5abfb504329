package httpjson

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/dalemusser/bookclub/internal/app/system/apperr"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) errorDetail {
	t.Helper()
	var body errorBody
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("decode error body: %v", err)
	}
	return body.Error
}

func TestWriteError_StatusByCode(t *testing.T) {
	tests := []struct {
		name    string
		err     error
		status  int
		code    apperr.Code
		wantMsg string
	}{
		{"not found", apperr.NotFound("chat not found"), http.StatusNotFound, apperr.CodeNotFound, "chat not found"},
		{"forbidden wrapped", fmt.Errorf("send: %w", apperr.Forbidden("not a participant")), http.StatusForbidden, apperr.CodeForbidden, "not a participant"},
		{"validation", apperr.Validation("text is required"), http.StatusBadRequest, apperr.CodeValidation, "text is required"},
		{"conflict", apperr.Conflict("email already in use"), http.StatusConflict, apperr.CodeConflict, "email already in use"},
		{"connectivity", apperr.FromStore(context.DeadlineExceeded, "store unavailable"), http.StatusServiceUnavailable, apperr.CodeConnectivity, "store unavailable"},
		{"unclassified store error", apperr.FromStore(errors.New("x"), "y"), http.StatusInternalServerError, apperr.CodeInternal, "internal error"},
		{"plain error hides message", errors.New("secret detail"), http.StatusInternalServerError, apperr.CodeInternal, "internal error"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			WriteError(rec, tt.err)

			if rec.Code != tt.status {
				t.Errorf("status = %d, want %d", rec.Code, tt.status)
			}
			got := decodeError(t, rec)
			if got.Code != tt.code {
				t.Errorf("code = %s, want %s", got.Code, tt.code)
			}
			if got.Message != tt.wantMsg {
				t.Errorf("message = %q, want %q", got.Message, tt.wantMsg)
			}
		})
	}
}

func TestDecode(t *testing.T) {
	type payload struct {
		Text string `json:"text"`
	}

	t.Run("valid", func(t *testing.T) {
		r := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"text":"hi"}`))
		var p payload
		if err := Decode(httptest.NewRecorder(), r, &p); err != nil {
			t.Fatalf("Decode: %v", err)
		}
		if p.Text != "hi" {
			t.Errorf("Text = %q", p.Text)
		}
	})

	for name, body := range map[string]string{
		"empty":         "",
		"malformed":     `{"text":`,
		"unknown field": `{"text":"hi","extra":1}`,
	} {
		t.Run(name, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body))
			var p payload
			err := Decode(httptest.NewRecorder(), r, &p)
			if !errors.Is(err, apperr.ErrValidation) {
				t.Errorf("Decode(%q) err = %v, want validation error", body, err)
			}
		})
	}
}

func TestErrorLogger_Write(t *testing.T) {
	el := NewErrorLogger(zap.NewNop())
	rec := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodGet, "/api/chats/x", nil)

	el.Write(rec, r, "get chat", apperr.NotFound("chat not found"))

	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); !strings.HasPrefix(ct, "application/json") {
		t.Errorf("Content-Type = %q", ct)
	}
}

func TestRequestID(t *testing.T) {
	var seen string
	h := RequestID(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = RequestIDFrom(r.Context())
	}))

	t.Run("generates", func(t *testing.T) {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
		if _, err := uuid.Parse(seen); err != nil {
			t.Errorf("generated id %q is not a UUID", seen)
		}
		if rec.Header().Get(RequestIDHeader) != seen {
			t.Error("response header should echo the request id")
		}
	})

	t.Run("keeps caller id", func(t *testing.T) {
		r := httptest.NewRequest(http.MethodGet, "/", nil)
		r.Header.Set(RequestIDHeader, "abc-123")
		h.ServeHTTP(httptest.NewRecorder(), r)
		if seen != "abc-123" {
			t.Errorf("request id = %q, want abc-123", seen)
		}
	})
}
