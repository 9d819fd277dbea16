// internal/app/features/persons/status.go
package persons

import (
	"context"
	"errors"
	"net/http"

	"github.com/dalemusser/memberhub/internal/app/store/audit"
	personstore "github.com/dalemusser/memberhub/internal/app/store/persons"
	"github.com/dalemusser/memberhub/internal/app/system/authz"
	"github.com/dalemusser/memberhub/internal/app/system/timeouts"
	"github.com/dalemusser/memberhub/internal/domain/models"
)

// HandleDisable soft-disables a person. Disabled persons keep their
// memberships and history but can no longer sign in.
func (h *Handler) HandleDisable(w http.ResponseWriter, r *http.Request) {
	h.setStatus(w, r, models.StatusDisabled, audit.EventPersonDisabled)
}

func (h *Handler) HandleEnable(w http.ResponseWriter, r *http.Request) {
	h.setStatus(w, r, models.StatusActive, audit.EventPersonEnabled)
}

func (h *Handler) setStatus(w http.ResponseWriter, r *http.Request, status, event string) {
	id, ok := personID(r)
	if !ok {
		h.ErrLog.NotFound(w, r, "Person not found.", listURL)
		return
	}
	if status == models.StatusDisabled && authz.IsSelf(r, id) {
		backToView(w, r, id, "You cannot disable your own account.")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	err := h.Persons.SetStatus(ctx, id, status)
	if errors.Is(err, personstore.ErrNotFound) {
		h.ErrLog.NotFound(w, r, "Person not found.", listURL)
		return
	}
	if err != nil {
		h.ErrLog.LogServerError(w, r, "set person status failed", err, "Could not change status.", viewURL(id))
		return
	}
	h.invalidate(ctx, id)
	h.AuditLog.Admin(ctx, r, event, &id, nil, nil)
	backToView(w, r, id, "")
}
