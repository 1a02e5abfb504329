// internal/app/features/chats/routes.go
package chats

import "github.com/go-chi/chi/v5"

// Routes serves /api/chats.
func Routes(h *Handler) chi.Router {
	r := chi.NewRouter()
	r.Get("/", h.ServeList)
	r.Post("/", h.HandleCreate)
	r.Route("/{chatID}", func(r chi.Router) {
		r.Get("/", h.ServeChat)
		r.Get("/messages", h.ServeMessages)
		r.Post("/messages", h.HandleSend)
		r.Post("/read", h.HandleMarkRead)
	})
	return r
}
