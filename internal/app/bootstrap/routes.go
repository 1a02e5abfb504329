// internal/app/bootstrap/routes.go
package bootstrap

import (
	"context"
	"net/http"
	"time"

	auditfeature "github.com/dalemusser/bookclub/internal/app/features/auditlog"
	chatsfeature "github.com/dalemusser/bookclub/internal/app/features/chats"
	healthfeature "github.com/dalemusser/bookclub/internal/app/features/health"
	peoplefeature "github.com/dalemusser/bookclub/internal/app/features/people"
	spacesfeature "github.com/dalemusser/bookclub/internal/app/features/spaces"
	chatsvc "github.com/dalemusser/bookclub/internal/app/services/chats"
	peoplesvc "github.com/dalemusser/bookclub/internal/app/services/people"
	spacesvc "github.com/dalemusser/bookclub/internal/app/services/spaces"
	"github.com/dalemusser/bookclub/internal/app/store/audit"
	"github.com/dalemusser/bookclub/internal/app/system/apperr"
	"github.com/dalemusser/bookclub/internal/app/system/auditlog"
	"github.com/dalemusser/bookclub/internal/app/system/auth"
	"github.com/dalemusser/bookclub/internal/app/system/httpjson"
	"github.com/dalemusser/bookclub/internal/app/system/ratelimit"
	"github.com/dalemusser/bookclub/internal/app/system/timeouts"
	"github.com/dalemusser/waffle/config"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// BuildHandler constructs the root HTTP handler for this WAFFLE app.
//
// WAFFLE calls this after configuration, DB connections, schema setup, and
// the Startup hook have completed. The identity mode decides how callers are
// recognized; everything under /api requires a signed-in caller.
func BuildHandler(coreCfg *config.CoreConfig, appCfg AppConfig, deps DBDeps, logger *zap.Logger) (http.Handler, error) {
	authn, err := newAuthenticator(appCfg, logger)
	if err != nil {
		logger.Error("authenticator init failed", zap.Error(err))
		return nil, err
	}

	auditLog := auditlog.New(audit.New(deps.MongoDatabase), logger, auditlog.Config{
		Membership: appCfg.AuditLogMembership,
		Social:     appCfg.AuditLogSocial,
	})

	return newRouter(routerDeps{
		client:  deps.MongoClient,
		db:      deps.MongoDatabase,
		authn:   authn,
		audit:   auditLog,
		origins: appCfg.CORSAllowedOrigins,
		writes:  deps.WriteLimiter,
	}, logger), nil
}

func newAuthenticator(appCfg AppConfig, logger *zap.Logger) (*auth.Authenticator, error) {
	if appCfg.AuthMode == auth.ModeTrust {
		return auth.NewTrustAuthenticator(logger), nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), timeouts.Long())
	defer cancel()
	client, err := auth.NewFirebaseClient(ctx, appCfg.FirebaseProjectID, appCfg.FirebaseCredentialsFile)
	if err != nil {
		return nil, err
	}
	return auth.NewFirebaseAuthenticator(client, logger), nil
}

// newWriteLimiter returns nil, which disables limiting, when perMinute <= 0.
func newWriteLimiter(perMinute int) *ratelimit.Limiter {
	if perMinute <= 0 {
		return nil
	}
	return ratelimit.New(perMinute, time.Minute)
}

type routerDeps struct {
	client  *mongo.Client
	db      *mongo.Database
	authn   *auth.Authenticator
	audit   *auditlog.Logger
	origins []string
	writes  *ratelimit.Limiter
}

func newRouter(d routerDeps, logger *zap.Logger) chi.Router {
	r := chi.NewRouter()

	r.Use(httpjson.RequestID)
	r.Use(middleware.Recoverer)
	if len(d.origins) > 0 {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins: d.origins,
			AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
			AllowedHeaders: []string{"Authorization", "Content-Type", httpjson.RequestIDHeader},
			ExposedHeaders: []string{httpjson.RequestIDHeader},
			MaxAge:         300,
		}))
	}
	r.Use(d.authn.LoadIdentity)

	// Health check endpoint for load balancers and orchestrators
	healthHandler := healthfeature.NewHandler(d.client, logger)
	r.Mount("/health", healthfeature.Routes(healthHandler))

	peopleHandler := peoplefeature.NewHandler(peoplesvc.New(d.db, d.audit, logger), logger)
	chatsHandler := chatsfeature.NewHandler(chatsvc.New(d.db, logger), logger)
	spacesHandler := spacesfeature.NewHandler(spacesvc.New(d.db, d.audit, logger), logger)
	auditHandler := auditfeature.NewHandler(d.db, logger)

	r.Route("/api", func(r chi.Router) {
		r.Use(d.authn.RequireSignedIn)
		r.Use(ratelimit.Writes(d.writes, logger))

		r.Route("/me", func(r chi.Router) {
			peoplefeature.MountMe(r, peopleHandler)
			spacesfeature.MountMe(r, spacesHandler)
		})
		r.Mount("/users", peoplefeature.Routes(peopleHandler))
		r.Mount("/chats", chatsfeature.Routes(chatsHandler))
		r.Mount("/spaces", spacesfeature.Routes(spacesHandler))
		r.Mount("/audit", auditfeature.Routes(auditHandler))
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		httpjson.WriteError(w, apperr.NotFound("no such route"))
	})

	return r
}
