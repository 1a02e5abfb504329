package testutil

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"

	"github.com/dalemusser/bookclub/internal/app/system/auth"
)

// NewRequest creates an anonymous request. A non-nil body is encoded as JSON.
func NewRequest(method, target string, body any) *http.Request {
	var rdr io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			panic(err)
		}
		rdr = bytes.NewReader(b)
	}
	r := httptest.NewRequest(method, target, rdr)
	if body != nil {
		r.Header.Set("Content-Type", "application/json")
	}
	return r
}

// NewAuthenticatedRequest creates a request carrying uid as the caller, both
// in the context (for direct handler calls) and as the trust-mode header
// (for calls through the router).
func NewAuthenticatedRequest(method, target, uid string, body any) *http.Request {
	r := NewRequest(method, target, body)
	r.Header.Set(auth.HeaderUserID, uid)
	return auth.WithIdentity(r, auth.Identity{UID: uid})
}

// ResponseRecorder wraps httptest.ResponseRecorder with assertions.
type ResponseRecorder struct {
	*httptest.ResponseRecorder
}

// NewRecorder creates a new ResponseRecorder.
func NewRecorder() *ResponseRecorder {
	return &ResponseRecorder{httptest.NewRecorder()}
}

// AssertStatus checks the response status code.
func (r *ResponseRecorder) AssertStatus(t interface{ Errorf(string, ...any) }, expected int) {
	if r.Code != expected {
		t.Errorf("expected status %d, got %d (body: %s)", expected, r.Code, r.Body.String())
	}
}

// AssertContains checks that the body contains expected.
func (r *ResponseRecorder) AssertContains(t interface{ Errorf(string, ...any) }, expected string) {
	if !strings.Contains(r.Body.String(), expected) {
		t.Errorf("expected body to contain %q, got: %s", expected, r.Body.String())
	}
}

// AssertErrorCode checks the "error.code" field of a JSON error body.
func (r *ResponseRecorder) AssertErrorCode(t interface{ Errorf(string, ...any) }, code string) {
	var body struct {
		Error struct {
			Code string `json:"code"`
		} `json:"error"`
	}
	if err := json.Unmarshal(r.Body.Bytes(), &body); err != nil {
		t.Errorf("decode error body: %v (body: %s)", err, r.Body.String())
		return
	}
	if body.Error.Code != code {
		t.Errorf("expected error code %q, got %q", code, body.Error.Code)
	}
}

// DecodeJSON decodes the response body into v.
func (r *ResponseRecorder) DecodeJSON(t interface {
	Fatalf(string, ...any)
}, v any) {
	if err := json.Unmarshal(r.Body.Bytes(), v); err != nil {
		t.Fatalf("decode response: %v (body: %s)", err, r.Body.String())
	}
}
