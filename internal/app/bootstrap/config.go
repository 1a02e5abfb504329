// internal/app/bootstrap/config.go
package bootstrap

import (
	"fmt"
	"strings"
	"time"

	"github.com/dalemusser/bookclub/internal/app/system/auditlog"
	"github.com/dalemusser/bookclub/internal/app/system/auth"
	"github.com/dalemusser/waffle/config"
	wafflemongo "github.com/dalemusser/waffle/pantry/mongo"
	"go.uber.org/zap"
)

// appConfigKeys defines the configuration keys for the book club service.
// These are loaded via WAFFLE's config system with support for:
//   - Config files: mongo_uri, auth_mode, etc.
//   - Environment variables: BOOKCLUB_MONGO_URI, BOOKCLUB_AUTH_MODE, etc.
//   - Command-line flags: --mongo_uri, --auth_mode, etc.
var appConfigKeys = []config.AppKey{
	{Name: "mongo_uri", Default: "mongodb://localhost:27017", Desc: "MongoDB connection URI"},
	{Name: "mongo_database", Default: "bookclub", Desc: "MongoDB database name"},
	{Name: "mongo_max_pool_size", Default: 100, Desc: "MongoDB max connection pool size (default: 100)"},
	{Name: "mongo_min_pool_size", Default: 10, Desc: "MongoDB min connection pool size (default: 10)"},

	// Identity
	{Name: "auth_mode", Default: auth.ModeFirebase, Desc: "Identity mode: 'firebase' (verify ID tokens) or 'trust' (X-User-ID header, dev only)"},
	{Name: "firebase_project_id", Default: "", Desc: "Firebase project ID"},
	{Name: "firebase_credentials_file", Default: "", Desc: "Path to a Firebase service account file (blank uses default credentials)"},

	// CORS
	{Name: "cors_allowed_origins", Default: "", Desc: "Comma-separated origins allowed to call the API"},

	// Audit logging settings
	{Name: "audit_log_membership", Default: "all", Desc: "Membership event logging: 'all' (db+log), 'db', 'log', or 'off'"},
	{Name: "audit_log_social", Default: "log", Desc: "Follow/unfollow event logging: 'all' (db+log), 'db', 'log', or 'off'"},

	// Abuse protection
	{Name: "write_rate_limit", Default: 120, Desc: "Write requests allowed per caller per minute (0 disables)"},

	// Background work
	{Name: "reconcile_interval", Default: "15m", Desc: "Membership reconciliation interval (0 disables)"},

	// Message windows
	{Name: "message_limit_default", Default: 50, Desc: "Messages returned when no limit is given"},
	{Name: "message_limit_max", Default: 200, Desc: "Largest message window a client may request"},

	// Timeouts
	{Name: "timeout_short", Default: "5s", Desc: "Timeout for single-document operations"},
	{Name: "timeout_medium", Default: "10s", Desc: "Timeout for multi-document operations"},
	{Name: "timeout_long", Default: "30s", Desc: "Timeout for scans and batch work"},
}

// LoadConfig loads WAFFLE core config and app-specific config.
//
// WAFFLE's config.LoadWithAppConfig merges .env files, config files,
// BOOKCLUB_* environment variables and flags, with precedence
// flags > env > files > defaults.
func LoadConfig(logger *zap.Logger) (*config.CoreConfig, AppConfig, error) {
	coreCfg, appValues, err := config.LoadWithAppConfig(logger, "BOOKCLUB", appConfigKeys)
	if err != nil {
		return nil, AppConfig{}, err
	}

	appCfg := AppConfig{
		MongoURI:         appValues.String("mongo_uri"),
		MongoDatabase:    appValues.String("mongo_database"),
		MongoMaxPoolSize: uint64(appValues.Int("mongo_max_pool_size")),
		MongoMinPoolSize: uint64(appValues.Int("mongo_min_pool_size")),

		// Identity
		AuthMode:                strings.ToLower(strings.TrimSpace(appValues.String("auth_mode"))),
		FirebaseProjectID:       appValues.String("firebase_project_id"),
		FirebaseCredentialsFile: appValues.String("firebase_credentials_file"),

		CORSAllowedOrigins: splitList(appValues.String("cors_allowed_origins")),

		// Audit logging
		AuditLogMembership: appValues.String("audit_log_membership"),
		AuditLogSocial:     appValues.String("audit_log_social"),

		WriteRateLimit: appValues.Int("write_rate_limit"),

		ReconcileInterval: appValues.Duration("reconcile_interval", 15*time.Minute),

		MessageLimitDefault: appValues.Int("message_limit_default"),
		MessageLimitMax:     appValues.Int("message_limit_max"),

		TimeoutShort:  appValues.Duration("timeout_short", 5*time.Second),
		TimeoutMedium: appValues.Duration("timeout_medium", 10*time.Second),
		TimeoutLong:   appValues.Duration("timeout_long", 30*time.Second),
	}

	return coreCfg, appCfg, nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// ValidateConfig performs app-specific config validation.
//
// The MongoDB URI is checked before attempting to connect, and the
// identity and audit settings must name known modes.
func ValidateConfig(coreCfg *config.CoreConfig, appCfg AppConfig, logger *zap.Logger) error {
	if err := wafflemongo.ValidateURI(appCfg.MongoURI); err != nil {
		logger.Error("invalid MongoDB URI", zap.Error(err))
		return fmt.Errorf("invalid MongoDB URI: %w", err)
	}

	switch appCfg.AuthMode {
	case auth.ModeFirebase:
		if appCfg.FirebaseProjectID == "" {
			return fmt.Errorf("auth_mode %q requires firebase_project_id", auth.ModeFirebase)
		}
	case auth.ModeTrust:
		if coreCfg.Env == "prod" {
			return fmt.Errorf("auth_mode %q is not allowed in production", auth.ModeTrust)
		}
		logger.Warn("auth_mode=trust: callers are identified by the X-User-ID header")
	default:
		return fmt.Errorf("auth_mode must be %q or %q, got %q", auth.ModeFirebase, auth.ModeTrust, appCfg.AuthMode)
	}

	for key, v := range map[string]string{
		"audit_log_membership": appCfg.AuditLogMembership,
		"audit_log_social":     appCfg.AuditLogSocial,
	} {
		switch v {
		case "", auditlog.ModeAll, auditlog.ModeDB, auditlog.ModeLog, auditlog.ModeOff:
		default:
			return fmt.Errorf("%s must be all, db, log or off, got %q", key, v)
		}
	}

	if appCfg.MessageLimitDefault > appCfg.MessageLimitMax && appCfg.MessageLimitMax > 0 {
		return fmt.Errorf("message_limit_default (%d) exceeds message_limit_max (%d)",
			appCfg.MessageLimitDefault, appCfg.MessageLimitMax)
	}

	return nil
}
