// internal/app/features/chats/chats.go
package chats

import (
	"net/http"

	"github.com/dalemusser/bookclub/internal/app/system/httpjson"
	"github.com/dalemusser/bookclub/internal/app/system/inputval"
	"github.com/dalemusser/bookclub/internal/app/system/timeouts"
	"github.com/go-chi/chi/v5"
)

type createChatRequest struct {
	UserID string `json:"user_id" label:"User" validate:"required,docid"`
}

// ServeList handles GET /api/chats: the caller's chats, most recent first.
func (h *Handler) ServeList(w http.ResponseWriter, r *http.Request) {
	const op = "chats.list"
	uid, ok := h.caller(w, r, op)
	if !ok {
		return
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Medium(), h.Log, op)
	defer cancel()

	list, err := h.Svc.ListForUser(ctx, uid)
	if err != nil {
		h.errs.Write(w, r, op, err)
		return
	}
	httpjson.OK(w, list)
}

// HandleCreate handles POST /api/chats. It returns the existing chat with
// the other user when there is one.
func (h *Handler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	const op = "chats.create"
	uid, ok := h.caller(w, r, op)
	if !ok {
		return
	}

	var req createChatRequest
	if err := httpjson.Decode(w, r, &req); err != nil {
		h.errs.Write(w, r, op, err)
		return
	}
	if err := inputval.Validate(req).Err(); err != nil {
		h.errs.Write(w, r, op, err)
		return
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Medium(), h.Log, op)
	defer cancel()

	c, err := h.Svc.GetOrCreate(ctx, uid, req.UserID)
	if err != nil {
		h.errs.Write(w, r, op, err)
		return
	}
	httpjson.OK(w, c)
}

// ServeChat handles GET /api/chats/{chatID}.
func (h *Handler) ServeChat(w http.ResponseWriter, r *http.Request) {
	const op = "chats.get"
	uid, ok := h.caller(w, r, op)
	if !ok {
		return
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Short(), h.Log, op)
	defer cancel()

	c, err := h.Svc.Get(ctx, chi.URLParam(r, "chatID"), uid)
	if err != nil {
		h.errs.Write(w, r, op, err)
		return
	}
	httpjson.OK(w, c)
}

// HandleMarkRead handles POST /api/chats/{chatID}/read.
func (h *Handler) HandleMarkRead(w http.ResponseWriter, r *http.Request) {
	const op = "chats.mark_read"
	uid, ok := h.caller(w, r, op)
	if !ok {
		return
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Short(), h.Log, op)
	defer cancel()

	if err := h.Svc.MarkRead(ctx, chi.URLParam(r, "chatID"), uid); err != nil {
		h.errs.Write(w, r, op, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
