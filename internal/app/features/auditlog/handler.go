// internal/app/features/auditlog/handler.go
package auditlog

import (
	"github.com/dalemusser/bookclub/internal/app/system/httpjson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// Handler serves a space's audit history to its admins.
type Handler struct {
	DB   *mongo.Database
	Log  *zap.Logger
	errs *httpjson.ErrorLogger
}

// NewHandler constructs an audit log feature handler bound to the given
// Mongo database and logger.
func NewHandler(db *mongo.Database, logger *zap.Logger) *Handler {
	return &Handler{
		DB:   db,
		Log:  logger,
		errs: httpjson.NewErrorLogger(logger),
	}
}
