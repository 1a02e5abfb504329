// internal/app/features/people/books.go
package people

import (
	"net/http"

	peoplesvc "github.com/dalemusser/bookclub/internal/app/services/people"
	"github.com/dalemusser/bookclub/internal/app/system/httpjson"
	"github.com/dalemusser/bookclub/internal/app/system/inputval"
	"github.com/dalemusser/bookclub/internal/app/system/timeouts"
	"github.com/go-chi/chi/v5"
)

type setStatusRequest struct {
	Status string `json:"status" validate:"required,readingstatus"`
	Title  string `json:"title" validate:"max=300"`
	Author string `json:"author" validate:"max=300"`
}

// HandleSetStatus handles PUT /api/me/books/{bookID}.
func (h *Handler) HandleSetStatus(w http.ResponseWriter, r *http.Request) {
	const op = "people.set_status"
	id, ok := h.caller(w, r, op)
	if !ok {
		return
	}

	var req setStatusRequest
	if err := httpjson.Decode(w, r, &req); err != nil {
		h.errs.Write(w, r, op, err)
		return
	}
	if err := inputval.Validate(req).Err(); err != nil {
		h.errs.Write(w, r, op, err)
		return
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Short(), h.Log, op)
	defer cancel()

	entry, err := h.Svc.SetStatus(ctx, id.UID, chi.URLParam(r, "bookID"), req.Status,
		peoplesvc.BookInfo{Title: req.Title, Author: req.Author})
	if err != nil {
		h.errs.Write(w, r, op, err)
		return
	}
	httpjson.OK(w, entry)
}

// ServeReadingList handles GET /api/users/{uid}/books.
func (h *Handler) ServeReadingList(w http.ResponseWriter, r *http.Request) {
	const op = "people.reading_list"
	if _, ok := h.caller(w, r, op); !ok {
		return
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Short(), h.Log, op)
	defer cancel()

	list, err := h.Svc.ReadingList(ctx, chi.URLParam(r, "uid"))
	if err != nil {
		h.errs.Write(w, r, op, err)
		return
	}
	httpjson.OK(w, list)
}
