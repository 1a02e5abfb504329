// internal/app/features/spaces/messages.go
package spaces

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

// ServeMessages handles GET /api/spaces/{spaceID}/messages?limit=N.
func (h *Handler) ServeMessages(w http.ResponseWriter, r *http.Request) {
	const op = "spaces.list_messages"
	uid, ok := h.caller(w, r, op)
	if !ok {
		return
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Medium(), h.Log, op)
	defer cancel()

	msgs, err := h.Svc.ListMessagesFor(ctx, uid, chi.URLParam(r, "spaceID"), paging.ParseLimit(r))
	if err != nil {
		h.errs.Write(w, r, op, err)
		return
	}
	httpjson.OK(w, msgs)
}

// HandlePost handles POST /api/spaces/{spaceID}/messages. Members only.
func (h *Handler) HandlePost(w http.ResponseWriter, r *http.Request) {
	const op = "spaces.post_message"
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

	msg, err := h.Svc.PostMessage(ctx, chi.URLParam(r, "spaceID"), uid, req.Text, req.Attachments)
	if err != nil {
		h.errs.Write(w, r, op, err)
		return
	}
	httpjson.Created(w, msg)
}
