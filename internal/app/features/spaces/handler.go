// internal/app/features/spaces/handler.go
package spaces

import (
	"net/http"

	spacesvc "github.com/dalemusser/bookclub/internal/app/services/spaces"
	"github.com/dalemusser/bookclub/internal/app/system/apperr"
	"github.com/dalemusser/bookclub/internal/app/system/auth"
	"github.com/dalemusser/bookclub/internal/app/system/httpjson"
	"go.uber.org/zap"
)

// Handler serves communities and groups.
type Handler struct {
	Svc  *spacesvc.Service
	Log  *zap.Logger
	errs *httpjson.ErrorLogger
}

func NewHandler(svc *spacesvc.Service, logger *zap.Logger) *Handler {
	return &Handler{
		Svc:  svc,
		Log:  logger,
		errs: httpjson.NewErrorLogger(logger),
	}
}

func (h *Handler) caller(w http.ResponseWriter, r *http.Request, op string) (string, bool) {
	id, ok := auth.CurrentIdentity(r)
	if !ok || id.UID == "" {
		h.errs.Write(w, r, op, apperr.Unauthorized("sign in required"))
		return "", false
	}
	return id.UID, true
}
