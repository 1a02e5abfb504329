// internal/app/features/spaces/discover.go
package spaces

import (
	"net/http"

	"github.com/dalemusser/bookclub/internal/app/system/httpjson"
	"github.com/dalemusser/bookclub/internal/app/system/paging"
	"github.com/dalemusser/bookclub/internal/app/system/timeouts"
	"github.com/dalemusser/waffle/pantry/query"
)

// ServePublic handles GET /api/spaces/public?limit=N: public communities, newest
// first.
func (h *Handler) ServePublic(w http.ResponseWriter, r *http.Request) {
	const op = "spaces.list_public"
	if _, ok := h.caller(w, r, op); !ok {
		return
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Medium(), h.Log, op)
	defer cancel()

	list, err := h.Svc.ListPublic(ctx, paging.ParseLimit(r))
	if err != nil {
		h.errs.Write(w, r, op, err)
		return
	}
	httpjson.OK(w, list)
}

// ServeSearch handles GET /api/spaces/search?q=&after=&limit=.
func (h *Handler) ServeSearch(w http.ResponseWriter, r *http.Request) {
	const op = "spaces.search"
	if _, ok := h.caller(w, r, op); !ok {
		return
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Medium(), h.Log, op)
	defer cancel()

	page, err := h.Svc.SearchPage(ctx, query.Get(r, "q"), query.Get(r, "after"), paging.ParseLimit(r))
	if err != nil {
		h.errs.Write(w, r, op, err)
		return
	}
	httpjson.OK(w, page)
}

// ServeMyCommunities handles GET /api/me/communities.
func (h *Handler) ServeMyCommunities(w http.ResponseWriter, r *http.Request) {
	const op = "spaces.my_communities"
	uid, ok := h.caller(w, r, op)
	if !ok {
		return
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Medium(), h.Log, op)
	defer cancel()

	list, err := h.Svc.ListUserCommunities(ctx, uid)
	if err != nil {
		h.errs.Write(w, r, op, err)
		return
	}
	httpjson.OK(w, list)
}

// ServeMyGroups handles GET /api/me/groups.
func (h *Handler) ServeMyGroups(w http.ResponseWriter, r *http.Request) {
	const op = "spaces.my_groups"
	uid, ok := h.caller(w, r, op)
	if !ok {
		return
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Medium(), h.Log, op)
	defer cancel()

	list, err := h.Svc.ListUserGroups(ctx, uid)
	if err != nil {
		h.errs.Write(w, r, op, err)
		return
	}
	httpjson.OK(w, list)
}
