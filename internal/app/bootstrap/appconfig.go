// internal/app/bootstrap/appconfig.go
package bootstrap

import "time"

// AppConfig holds service-specific configuration for this WAFFLE app.
//
// These values come from environment variables, configuration files, or
// command-line flags (loaded in LoadConfig). WAFFLE's CoreConfig covers the
// framework-level settings (ports, TLS, log level); everything below is
// specific to the book club service.
type AppConfig struct {
	// MongoDB connection configuration
	MongoURI         string // MongoDB connection string (e.g., mongodb://localhost:27017)
	MongoDatabase    string // Database name within MongoDB
	MongoMaxPoolSize uint64 // Maximum connections in the driver pool
	MongoMinPoolSize uint64 // Minimum idle connections kept open

	// Identity
	AuthMode                string // "firebase" (verify ID tokens) or "trust" (X-User-ID header, dev/test only)
	FirebaseProjectID       string // Firebase project that issued the ID tokens
	FirebaseCredentialsFile string // Service account JSON; blank means Application Default Credentials

	// Browser clients allowed to call the API. Empty disables CORS headers.
	CORSAllowedOrigins []string

	// Audit logging destinations: "all", "db", "log" or "off"
	AuditLogMembership string
	AuditLogSocial     string

	// Writes (POST/PUT/DELETE) allowed per caller per minute; zero disables
	WriteRateLimit int

	// Membership reconciliation interval; zero disables the worker
	ReconcileInterval time.Duration

	// Message windows
	MessageLimitDefault int
	MessageLimitMax     int

	// Operation timeouts; zero keeps the built-in default
	TimeoutShort  time.Duration
	TimeoutMedium time.Duration
	TimeoutLong   time.Duration
}
