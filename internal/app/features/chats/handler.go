// internal/app/features/chats/handler.go
package chats

import (
	"net/http"

	chatsvc "github.com/dalemusser/bookclub/internal/app/services/chats"
	"github.com/dalemusser/bookclub/internal/app/system/apperr"
	"github.com/dalemusser/bookclub/internal/app/system/auth"
	"github.com/dalemusser/bookclub/internal/app/system/httpjson"
	"go.uber.org/zap"
)

// Handler serves personal chats for the signed-in user.
type Handler struct {
	Svc  *chatsvc.Service
	Log  *zap.Logger
	errs *httpjson.ErrorLogger
}

func NewHandler(svc *chatsvc.Service, logger *zap.Logger) *Handler {
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
