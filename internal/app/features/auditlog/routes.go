// internal/app/features/auditlog/routes.go
package auditlog

import "github.com/go-chi/chi/v5"

// Routes mounts the audit log routes (typically at "/api/audit" from
// bootstrap). Callers must be signed in. The space history is further limited
// to admins of the requested space; /mine lists the caller's own events.
func Routes(h *Handler) chi.Router {
	r := chi.NewRouter()
	r.Get("/", h.ServeList)
	r.Get("/mine", h.ServeMine)
	return r
}
