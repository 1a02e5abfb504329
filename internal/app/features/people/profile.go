// internal/app/features/people/profile.go
package people

import (
	"net/http"

	peoplesvc "github.com/dalemusser/bookclub/internal/app/services/people"
	"github.com/dalemusser/bookclub/internal/app/system/httpjson"
	"github.com/dalemusser/bookclub/internal/app/system/inputval"
	"github.com/dalemusser/bookclub/internal/app/system/timeouts"
	"github.com/dalemusser/waffle/pantry/query"
	"github.com/go-chi/chi/v5"
)

// syncProfileRequest overrides identity-provider fields. All optional.
type syncProfileRequest struct {
	Name     string `json:"name" validate:"max=200"`
	Email    string `json:"email" validate:"omitempty,email,max=254"`
	PhotoURL string `json:"photo_url" label:"Photo URL" validate:"omitempty,url,max=2048"`
}

// HandleSyncProfile handles PUT /api/me: create or refresh the caller's
// user record from the verified identity, with optional body overrides.
func (h *Handler) HandleSyncProfile(w http.ResponseWriter, r *http.Request) {
	const op = "people.sync_profile"
	id, ok := h.caller(w, r, op)
	if !ok {
		return
	}

	var req syncProfileRequest
	if r.ContentLength != 0 {
		if err := httpjson.Decode(w, r, &req); err != nil {
			h.errs.Write(w, r, op, err)
			return
		}
		if err := inputval.Validate(req).Err(); err != nil {
			h.errs.Write(w, r, op, err)
			return
		}
	}

	in := peoplesvc.Identity{UID: id.UID, Name: id.Name, Email: id.Email, PhotoURL: id.PhotoURL}
	if req.Name != "" {
		in.Name = req.Name
	}
	if req.Email != "" {
		in.Email = req.Email
	}
	if req.PhotoURL != "" {
		in.PhotoURL = req.PhotoURL
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Medium(), h.Log, op)
	defer cancel()

	p, err := h.Svc.SyncProfile(ctx, in)
	if err != nil {
		h.errs.Write(w, r, op, err)
		return
	}
	httpjson.OK(w, p)
}

// ServeProfile handles GET /api/users/{uid}.
func (h *Handler) ServeProfile(w http.ResponseWriter, r *http.Request) {
	const op = "people.get_profile"
	id, ok := h.caller(w, r, op)
	if !ok {
		return
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Short(), h.Log, op)
	defer cancel()

	p, err := h.Svc.GetProfile(ctx, id.UID, chi.URLParam(r, "uid"))
	if err != nil {
		h.errs.Write(w, r, op, err)
		return
	}
	httpjson.OK(w, p)
}

// ServeSearch handles GET /api/users/search?q=.
func (h *Handler) ServeSearch(w http.ResponseWriter, r *http.Request) {
	const op = "people.search"
	if _, ok := h.caller(w, r, op); !ok {
		return
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Short(), h.Log, op)
	defer cancel()

	users, err := h.Svc.SearchUsers(ctx, query.Get(r, "q"))
	if err != nil {
		h.errs.Write(w, r, op, err)
		return
	}
	httpjson.OK(w, users)
}

// ServeSuggested handles GET /api/users/suggested.
func (h *Handler) ServeSuggested(w http.ResponseWriter, r *http.Request) {
	const op = "people.suggested"
	id, ok := h.caller(w, r, op)
	if !ok {
		return
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Short(), h.Log, op)
	defer cancel()

	users, err := h.Svc.Suggested(ctx, id.UID)
	if err != nil {
		h.errs.Write(w, r, op, err)
		return
	}
	httpjson.OK(w, users)
}

// HandleFollow handles POST /api/users/{uid}/follow.
func (h *Handler) HandleFollow(w http.ResponseWriter, r *http.Request) {
	const op = "people.follow"
	id, ok := h.caller(w, r, op)
	if !ok {
		return
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Medium(), h.Log, op)
	defer cancel()

	if err := h.Svc.Follow(ctx, id.UID, chi.URLParam(r, "uid")); err != nil {
		h.errs.Write(w, r, op, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// HandleUnfollow handles DELETE /api/users/{uid}/follow.
func (h *Handler) HandleUnfollow(w http.ResponseWriter, r *http.Request) {
	const op = "people.unfollow"
	id, ok := h.caller(w, r, op)
	if !ok {
		return
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Medium(), h.Log, op)
	defer cancel()

	if err := h.Svc.Unfollow(ctx, id.UID, chi.URLParam(r, "uid")); err != nil {
		h.errs.Write(w, r, op, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
