// internal/app/features/persons/routes.go
package persons

import (
	"github.com/dalemusser/memberhub/internal/app/system/auth"
	"github.com/go-chi/chi/v5"
)

// Routes mounts the persons admin pages (typically under "/persons").
// The CSV export lives at "/persons.csv" and is mounted by bootstrap.
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
	r.Post("/{id}/disable", h.HandleDisable)
	r.Post("/{id}/enable", h.HandleEnable)

	// Login identity
	r.Post("/{id}/login", h.HandleSetLogin)
	r.Post("/{id}/login/delete", h.HandleDeleteLogin)

	// Address
	r.Post("/{id}/address", h.HandleAddress)
	r.Post("/{id}/address/clear", h.HandleClearAddress)

	// Relations
	r.Post("/{id}/relations", h.HandleAddRelation)
	r.Post("/{id}/relations/{rid}/delete", h.HandleRemoveRelation)
	r.Post("/{id}/relations/{rid}/access", h.HandleRelationAccess)

	// Payment status
	r.Post("/{id}/payments", h.HandleMarkPayment)

	return r
}
