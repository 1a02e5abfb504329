// internal/app/features/spaces/routes.go
package spaces

import "github.com/go-chi/chi/v5"

// Routes serves /api/spaces.
func Routes(h *Handler) chi.Router {
	r := chi.NewRouter()
	r.Get("/public", h.ServePublic)
	r.Post("/", h.HandleCreate)
	r.Get("/search", h.ServeSearch)
	r.Route("/{spaceID}", func(r chi.Router) {
		r.Get("/", h.ServeSpace)
		r.Post("/join", h.HandleJoin)
		r.Post("/leave", h.HandleLeave)
		r.Post("/members", h.HandleAddMember)
		r.Get("/messages", h.ServeMessages)
		r.Post("/messages", h.HandlePost)
	})
	return r
}

// MountMe registers the caller's community and group lists on the /api/me
// router.
func MountMe(r chi.Router, h *Handler) {
	r.Get("/communities", h.ServeMyCommunities)
	r.Get("/groups", h.ServeMyGroups)
}
