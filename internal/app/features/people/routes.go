// internal/app/features/people/routes.go
package people

import "github.com/go-chi/chi/v5"

// Routes serves /api/users.
func Routes(h *Handler) chi.Router {
	r := chi.NewRouter()
	r.Get("/search", h.ServeSearch)
	r.Get("/suggested", h.ServeSuggested)
	r.Get("/{uid}", h.ServeProfile)
	r.Get("/{uid}/books", h.ServeReadingList)
	r.Post("/{uid}/follow", h.HandleFollow)
	r.Delete("/{uid}/follow", h.HandleUnfollow)
	return r
}

// MountMe registers the caller's own profile endpoints on the /api/me router.
func MountMe(r chi.Router, h *Handler) {
	r.Put("/", h.HandleSyncProfile)
	r.Put("/books/{bookID}", h.HandleSetStatus)
}
