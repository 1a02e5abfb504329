// internal/app/features/people/handler.go
package people

import (
	"net/http"

	peoplesvc "github.com/dalemusser/bookclub/internal/app/services/people"
	"github.com/dalemusser/bookclub/internal/app/system/apperr"
	"github.com/dalemusser/bookclub/internal/app/system/auth"
	"github.com/dalemusser/bookclub/internal/app/system/httpjson"
	"go.uber.org/zap"
)

// Handler serves profiles, user search, follows and reading lists.
type Handler struct {
	Svc  *peoplesvc.Service
	Log  *zap.Logger
	errs *httpjson.ErrorLogger
}

func NewHandler(svc *peoplesvc.Service, logger *zap.Logger) *Handler {
	return &Handler{
		Svc:  svc,
		Log:  logger,
		errs: httpjson.NewErrorLogger(logger),
	}
}

// caller returns the signed-in identity or writes a 401.
func (h *Handler) caller(w http.ResponseWriter, r *http.Request, op string) (auth.Identity, bool) {
	id, ok := auth.CurrentIdentity(r)
	if !ok || id.UID == "" {
		h.errs.Write(w, r, op, apperr.Unauthorized("sign in required"))
		return auth.Identity{}, false
	}
	return id, true
}
