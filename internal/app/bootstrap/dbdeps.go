// internal/app/bootstrap/dbdeps.go
package bootstrap

import (
	"github.com/dalemusser/bookclub/internal/app/system/ratelimit"
	"github.com/dalemusser/bookclub/internal/app/system/workers"
	"go.mongodb.org/mongo-driver/mongo"
)

// DBDeps holds database/back-end dependencies for the app.
type DBDeps struct {
	MongoClient   *mongo.Client
	MongoDatabase *mongo.Database

	// Reconciler is built with the connection so Startup can start it and
	// Shutdown can stop the same instance.
	Reconciler *workers.MembershipReconciler

	// WriteLimiter is nil when write limiting is disabled. Shutdown stops its
	// cleanup loop.
	WriteLimiter *ratelimit.Limiter
}
