// Package auth resolves the caller's identity for API requests.
//
// Two modes are supported:
//   - firebase: the client sends "Authorization: Bearer <Firebase ID token>";
//     the token is verified with the Firebase Admin SDK.
//   - trust: the uid is taken from the X-User-ID header. Local development
//     and tests only.
//
// LoadIdentity attaches the Identity to the request context when one can be
// resolved; RequireSignedIn rejects requests without one.
package auth

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	firebase "firebase.google.com/go/v4"
	firebaseauth "firebase.google.com/go/v4/auth"
	"github.com/dalemusser/bookclub/internal/app/system/apperr"
	"github.com/dalemusser/bookclub/internal/app/system/httpjson"
	"github.com/dalemusser/bookclub/internal/app/system/inputval"
	"go.uber.org/zap"
	"google.golang.org/api/option"
)

// Modes accepted by the auth_mode config key.
const (
	ModeTrust    = "trust"
	ModeFirebase = "firebase"
)

// Trust-mode headers.
const (
	HeaderUserID    = "X-User-ID"
	HeaderUserName  = "X-User-Name"
	HeaderUserEmail = "X-User-Email"
)

// Identity is the authenticated caller.
type Identity struct {
	UID      string
	Name     string
	Email    string
	PhotoURL string
}

type ctxKey string

const identityKey ctxKey = "identity"

// CurrentIdentity returns the identity attached by LoadIdentity.
func CurrentIdentity(r *http.Request) (Identity, bool) {
	return IdentityFrom(r.Context())
}

// IdentityFrom returns the identity stored in ctx.
func IdentityFrom(ctx context.Context) (Identity, bool) {
	id, ok := ctx.Value(identityKey).(Identity)
	return id, ok
}

// WithIdentity returns a copy of r carrying id.
func WithIdentity(r *http.Request, id Identity) *http.Request {
	return r.WithContext(context.WithValue(r.Context(), identityKey, id))
}

// TokenVerifier verifies Firebase ID tokens. *firebaseauth.Client satisfies it.
type TokenVerifier interface {
	VerifyIDToken(ctx context.Context, idToken string) (*firebaseauth.Token, error)
}

// NewFirebaseClient builds a Firebase Auth client. With an empty
// credentialsFile the SDK falls back to Application Default Credentials.
func NewFirebaseClient(ctx context.Context, projectID, credentialsFile string) (*firebaseauth.Client, error) {
	var opts []option.ClientOption
	if credentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(credentialsFile))
	}
	var cfg *firebase.Config
	if projectID != "" {
		cfg = &firebase.Config{ProjectID: projectID}
	}
	app, err := firebase.NewApp(ctx, cfg, opts...)
	if err != nil {
		return nil, fmt.Errorf("firebase app: %w", err)
	}
	client, err := app.Auth(ctx)
	if err != nil {
		return nil, fmt.Errorf("firebase auth client: %w", err)
	}
	return client, nil
}

// Authenticator resolves identities in one of the two modes.
type Authenticator struct {
	mode     string
	verifier TokenVerifier
	log      *zap.Logger
}

// NewTrustAuthenticator trusts the X-User-ID header.
func NewTrustAuthenticator(log *zap.Logger) *Authenticator {
	return &Authenticator{mode: ModeTrust, log: log}
}

// NewFirebaseAuthenticator verifies bearer tokens with v.
func NewFirebaseAuthenticator(v TokenVerifier, log *zap.Logger) *Authenticator {
	return &Authenticator{mode: ModeFirebase, verifier: v, log: log}
}

// Mode returns ModeTrust or ModeFirebase.
func (a *Authenticator) Mode() string { return a.mode }

// LoadIdentity attaches the caller's identity to the context when the
// request carries a valid one. It never rejects a request.
func (a *Authenticator) LoadIdentity(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id, err := a.resolve(r)
		switch {
		case err != nil:
			a.log.Debug("identity rejected", zap.String("mode", a.mode), zap.Error(err))
		case id.UID != "":
			r = WithIdentity(r, id)
		}
		next.ServeHTTP(w, r)
	})
}

// RequireSignedIn answers 401 with a JSON error when no identity is attached.
func (a *Authenticator) RequireSignedIn(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := CurrentIdentity(r); !ok {
			httpjson.WriteError(w, apperr.Unauthorized("sign-in required"))
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (a *Authenticator) resolve(r *http.Request) (Identity, error) {
	if a.mode == ModeTrust {
		uid := strings.TrimSpace(r.Header.Get(HeaderUserID))
		if uid == "" {
			return Identity{}, nil
		}
		if !inputval.IsValidDocID(uid) {
			return Identity{}, errors.New("invalid user id header")
		}
		return Identity{
			UID:   uid,
			Name:  strings.TrimSpace(r.Header.Get(HeaderUserName)),
			Email: strings.TrimSpace(r.Header.Get(HeaderUserEmail)),
		}, nil
	}

	token, ok := BearerToken(r)
	if !ok {
		return Identity{}, nil
	}
	tok, err := a.verifier.VerifyIDToken(r.Context(), token)
	if err != nil {
		return Identity{}, err
	}
	if !inputval.IsValidDocID(tok.UID) {
		return Identity{}, errors.New("token uid is not usable as a document key")
	}
	return identityFromToken(tok), nil
}

func identityFromToken(tok *firebaseauth.Token) Identity {
	claim := func(k string) string {
		s, _ := tok.Claims[k].(string)
		return s
	}
	return Identity{
		UID:      tok.UID,
		Name:     claim("name"),
		Email:    claim("email"),
		PhotoURL: claim("picture"),
	}
}

// BearerToken extracts the token from an "Authorization: Bearer <token>"
// header. The scheme is matched case-insensitively.
func BearerToken(r *http.Request) (string, bool) {
	h := strings.TrimSpace(r.Header.Get("Authorization"))
	scheme, token, found := strings.Cut(h, " ")
	if !found || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}
