// internal/app/features/chats/messages.go
package chats

import (
	"net/http"

	"github.com/dalemusser/bookclub/internal/app/system/httpjson"
	"github.com/dalemusser/bookclub/internal/app/system/inputval"
	"github.com/dalemusser/bookclub/internal/app/system/paging"
	"github.com/dalemusser/bookclub/internal/app/system/timeouts"
	"github.com/go-chi/chi/v5"
)

type messageRequest struct {
	Text        string   `json:"text" validate:"required,max=4000"`
	Attachments []string `json:"attachments" validate:"max=10,dive,max=2048"`
}

// ServeMessages handles GET /api/chats/{chatID}/messages?limit=N. Messages
// come back oldest first.
func (h *Handler) ServeMessages(w http.ResponseWriter, r *http.Request) {
	const op = "chats.list_messages"
	uid, ok := h.caller(w, r, op)
	if !ok {
		return
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Medium(), h.Log, op)
	defer cancel()

	msgs, err := h.Svc.ListMessagesFor(ctx, uid, chi.URLParam(r, "chatID"), paging.ParseLimit(r))
	if err != nil {
		h.errs.Write(w, r, op, err)
		return
	}
	httpjson.OK(w, msgs)
}

// HandleSend handles POST /api/chats/{chatID}/messages.
func (h *Handler) HandleSend(w http.ResponseWriter, r *http.Request) {
	const op = "chats.send_message"
	uid, ok := h.caller(w, r, op)
	if !ok {
		return
	}

	var req messageRequest
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

	msg, err := h.Svc.SendMessage(ctx, chi.URLParam(r, "chatID"), uid, req.Text, req.Attachments)
	if err != nil {
		h.errs.Write(w, r, op, err)
		return
	}
	httpjson.Created(w, msg)
}
