// internal/app/features/spaces/space.go
package spaces

import (
	"net/http"
	"slices"

	spacesvc "github.com/dalemusser/bookclub/internal/app/services/spaces"
	"github.com/dalemusser/bookclub/internal/app/system/apperr"
	"github.com/dalemusser/bookclub/internal/app/system/httpjson"
	"github.com/dalemusser/bookclub/internal/app/system/inputval"
	"github.com/dalemusser/bookclub/internal/app/system/timeouts"
	"github.com/dalemusser/bookclub/internal/domain/models"
	"github.com/go-chi/chi/v5"
)

type createSpaceRequest struct {
	Name        string   `json:"name" validate:"required,max=120"`
	Description string   `json:"description" validate:"max=2000"`
	Type        string   `json:"type" validate:"required,spacetype"`
	IsPublic    *bool    `json:"is_public"`
	Tags        []string `json:"tags" validate:"max=20,dive,max=40"`
	ImageURL    string   `json:"image_url" label:"Image URL" validate:"omitempty,url,max=2048"`
}

type addMemberRequest struct {
	UserID string `json:"user_id" label:"User" validate:"required,docid"`
}

// HandleCreate handles POST /api/spaces. The caller becomes the first
// member and admin.
func (h *Handler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	const op = "spaces.create"
	uid, ok := h.caller(w, r, op)
	if !ok {
		return
	}

	var req createSpaceRequest
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

	sp, err := h.Svc.Create(ctx, uid, spacesvc.CreateInput{
		Name:        req.Name,
		Description: req.Description,
		Type:        req.Type,
		IsPublic:    req.IsPublic,
		Tags:        req.Tags,
		ImageURL:    req.ImageURL,
	})
	if err != nil {
		h.errs.Write(w, r, op, err)
		return
	}
	httpjson.Created(w, sp)
}

// ServeSpace handles GET /api/spaces/{spaceID}. Groups are visible to
// their members only.
func (h *Handler) ServeSpace(w http.ResponseWriter, r *http.Request) {
	const op = "spaces.get"
	uid, ok := h.caller(w, r, op)
	if !ok {
		return
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Short(), h.Log, op)
	defer cancel()

	sp, err := h.Svc.Get(ctx, chi.URLParam(r, "spaceID"))
	if err != nil {
		h.errs.Write(w, r, op, err)
		return
	}
	if sp.Type == models.SpaceTypeGroup && !slices.Contains(sp.Members, uid) {
		h.errs.Write(w, r, op, apperr.Forbidden("You are not a member of this group."))
		return
	}
	httpjson.OK(w, sp)
}

// HandleJoin handles POST /api/spaces/{spaceID}/join.
func (h *Handler) HandleJoin(w http.ResponseWriter, r *http.Request) {
	const op = "spaces.join"
	uid, ok := h.caller(w, r, op)
	if !ok {
		return
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Medium(), h.Log, op)
	defer cancel()

	sp, err := h.Svc.Join(ctx, uid, chi.URLParam(r, "spaceID"))
	if err != nil {
		h.errs.Write(w, r, op, err)
		return
	}
	httpjson.OK(w, sp)
}

// HandleLeave handles POST /api/spaces/{spaceID}/leave.
func (h *Handler) HandleLeave(w http.ResponseWriter, r *http.Request) {
	const op = "spaces.leave"
	uid, ok := h.caller(w, r, op)
	if !ok {
		return
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Medium(), h.Log, op)
	defer cancel()

	if err := h.Svc.Leave(ctx, uid, chi.URLParam(r, "spaceID")); err != nil {
		h.errs.Write(w, r, op, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// HandleAddMember handles POST /api/spaces/{spaceID}/members. Admins only.
func (h *Handler) HandleAddMember(w http.ResponseWriter, r *http.Request) {
	const op = "spaces.add_member"
	uid, ok := h.caller(w, r, op)
	if !ok {
		return
	}

	var req addMemberRequest
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

	sp, err := h.Svc.AddMember(ctx, uid, chi.URLParam(r, "spaceID"), req.UserID)
	if err != nil {
		h.errs.Write(w, r, op, err)
		return
	}
	httpjson.OK(w, sp)
}
