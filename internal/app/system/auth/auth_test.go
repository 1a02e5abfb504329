package auth_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	firebaseauth "firebase.google.com/go/v4/auth"
	"github.com/dalemusser/bookclub/internal/app/system/auth"
	"go.uber.org/zap"
)

type stubVerifier struct {
	tokens map[string]*firebaseauth.Token
}

func (s stubVerifier) VerifyIDToken(_ context.Context, idToken string) (*firebaseauth.Token, error) {
	if tok, ok := s.tokens[idToken]; ok {
		return tok, nil
	}
	return nil, errors.New("invalid token")
}

func captureIdentity(a *auth.Authenticator, r *http.Request) (auth.Identity, bool) {
	var (
		got auth.Identity
		ok  bool
	)
	a.LoadIdentity(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got, ok = auth.CurrentIdentity(r)
	})).ServeHTTP(httptest.NewRecorder(), r)
	return got, ok
}

func TestBearerToken(t *testing.T) {
	tests := []struct {
		header string
		want   string
		ok     bool
	}{
		{"Bearer abc.def.ghi", "abc.def.ghi", true},
		{"bearer   abc", "abc", true},
		{"Basic dXNlcjpwYXNz", "", false},
		{"Bearer", "", false},
		{"Bearer   ", "", false},
		{"", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.header, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodGet, "/", nil)
			if tt.header != "" {
				r.Header.Set("Authorization", tt.header)
			}
			got, ok := auth.BearerToken(r)
			if got != tt.want || ok != tt.ok {
				t.Errorf("BearerToken(%q) = (%q, %v), want (%q, %v)", tt.header, got, ok, tt.want, tt.ok)
			}
		})
	}
}

func TestTrustMode(t *testing.T) {
	a := auth.NewTrustAuthenticator(zap.NewNop())

	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.Header.Set(auth.HeaderUserID, "reader-1")
	r.Header.Set(auth.HeaderUserName, "Ada")
	id, ok := captureIdentity(a, r)
	if !ok || id.UID != "reader-1" || id.Name != "Ada" {
		t.Errorf("identity = %+v, %v", id, ok)
	}

	r = httptest.NewRequest(http.MethodGet, "/", nil)
	if _, ok := captureIdentity(a, r); ok {
		t.Error("no header should yield no identity")
	}

	r = httptest.NewRequest(http.MethodGet, "/", nil)
	r.Header.Set(auth.HeaderUserID, "$bad.id")
	if _, ok := captureIdentity(a, r); ok {
		t.Error("uid unusable as a document key should be rejected")
	}
}

func TestFirebaseMode(t *testing.T) {
	v := stubVerifier{tokens: map[string]*firebaseauth.Token{
		"good": {UID: "fb-uid", Claims: map[string]interface{}{"name": "Grace", "email": "grace@example.com", "picture": "https://p/x.png"}},
	}}
	a := auth.NewFirebaseAuthenticator(v, zap.NewNop())

	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.Header.Set("Authorization", "Bearer good")
	id, ok := captureIdentity(a, r)
	if !ok {
		t.Fatal("expected identity for a valid token")
	}
	want := auth.Identity{UID: "fb-uid", Name: "Grace", Email: "grace@example.com", PhotoURL: "https://p/x.png"}
	if id != want {
		t.Errorf("identity = %+v, want %+v", id, want)
	}

	r = httptest.NewRequest(http.MethodGet, "/", nil)
	r.Header.Set("Authorization", "Bearer forged")
	if _, ok := captureIdentity(a, r); ok {
		t.Error("invalid token should yield no identity")
	}

	// Trust headers are ignored in firebase mode.
	r = httptest.NewRequest(http.MethodGet, "/", nil)
	r.Header.Set(auth.HeaderUserID, "someone")
	if _, ok := captureIdentity(a, r); ok {
		t.Error("X-User-ID must not be honoured in firebase mode")
	}
}

func TestRequireSignedIn(t *testing.T) {
	a := auth.NewTrustAuthenticator(zap.NewNop())
	h := a.LoadIdentity(a.RequireSignedIn(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/chats", nil))
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("anonymous status = %d, want 401", rec.Code)
	}

	rec = httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodGet, "/api/chats", nil)
	r.Header.Set(auth.HeaderUserID, "reader-1")
	h.ServeHTTP(rec, r)
	if rec.Code != http.StatusNoContent {
		t.Errorf("signed-in status = %d, want 204", rec.Code)
	}
}
