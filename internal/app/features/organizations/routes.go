// internal/app/features/organizations/routes.go
package organizations

import (
	"github.com/dalemusser/memberhub/internal/app/system/auth"
	"github.com/go-chi/chi/v5"
)

// Routes mounts all Organization routes under the base path
// (typically "/organizations" from bootstrap). Every route is admin-only.
func Routes(h *Handler, sm *auth.SessionManager) chi.Router {
	r := chi.NewRouter()
	r.Use(sm.RequireSignedIn)
	r.Use(sm.RequireRole("admin"))

	r.Get("/", h.ServeList)
	r.Get("/new", h.ServeNew)
	r.Post("/", h.HandleCreate)

	r.Get("/{id}", h.ServeView)
	r.Get("/{id}/edit", h.ServeEdit)
	r.Post("/{id}/edit", h.HandleEdit)
	r.Post("/{id}/delete", h.HandleDelete)

	// Payment schedule
	r.Get("/{id}/payments/new", h.ServeNewPayment)
	r.Post("/{id}/payments", h.HandleCreatePayment)
	r.Get("/{id}/payments/{pid}/edit", h.ServeEditPayment)
	r.Post("/{id}/payments/{pid}/edit", h.HandleEditPayment)
	r.Post("/{id}/payments/{pid}/delete", h.HandleDeletePayment)

	return r
}
