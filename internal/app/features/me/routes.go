// internal/app/features/me/routes.go
package me

import (
	"github.com/dalemusser/memberhub/internal/app/system/auth"
	"github.com/go-chi/chi/v5"
)

// Routes mounts the self-service pages (typically under "/me").
func Routes(h *Handler, sm *auth.SessionManager) chi.Router {
	r := chi.NewRouter()
	r.Use(sm.RequireSignedIn)

	r.Get("/", h.ServeMe)
	r.Get("/related/{id}", h.ServeRelated)
	r.Get("/password", h.ServePassword)
	r.Post("/password", h.HandlePassword)
	return r
}
