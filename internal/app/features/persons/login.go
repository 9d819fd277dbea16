// internal/app/features/persons/login.go
package persons

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/dalemusser/memberhub/internal/app/store/audit"
	personstore "github.com/dalemusser/memberhub/internal/app/store/persons"
	"github.com/dalemusser/memberhub/internal/app/system/authutil"
	"github.com/dalemusser/memberhub/internal/app/system/authz"
	"github.com/dalemusser/memberhub/internal/app/system/timeouts"
	"github.com/dalemusser/memberhub/internal/domain/models"
)

// HandleSetLogin links (or replaces) the login identity of a person.
//
// Route: POST /persons/{id}/login
func (h *Handler) HandleSetLogin(w http.ResponseWriter, r *http.Request) {
	id, ok := personID(r)
	if !ok {
		h.ErrLog.NotFound(w, r, "Person not found.", listURL)
		return
	}
	if err := r.ParseForm(); err != nil {
		h.ErrLog.LogBadRequest(w, r, "parse form failed", err, "Invalid form submission.", viewURL(id))
		return
	}

	loginID, _, err := authutil.NormalizeLoginID(r.FormValue("login_id"))
	if err != nil {
		backToView(w, r, id, capitalize(err.Error())+".")
		return
	}
	password := r.FormValue("password")
	if err := authutil.ValidatePassword(password); err != nil {
		backToView(w, r, id, capitalize(err.Error())+".")
		return
	}
	role := strings.ToLower(strings.TrimSpace(r.FormValue("role")))
	if role != models.RoleAdmin {
		role = models.RoleMember
	}
	if role != models.RoleAdmin && authz.IsSelf(r, id) {
		backToView(w, r, id, "You cannot remove your own admin role.")
		return
	}
	hash, err := authutil.HashPassword(password)
	if err != nil {
		h.ErrLog.LogServerError(w, r, "hash password failed", err, "Could not save login.", viewURL(id))
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	err = h.Persons.SetLogin(ctx, id, loginID, hash, role)
	switch {
	case errors.Is(err, personstore.ErrNotFound):
		h.ErrLog.NotFound(w, r, "Person not found.", listURL)
		return
	case errors.Is(err, personstore.ErrDuplicateLogin):
		backToView(w, r, id, "That login is already linked to another person.")
		return
	case err != nil:
		h.ErrLog.LogServerError(w, r, "set login failed", err, "Could not save login.", viewURL(id))
		return
	}
	h.invalidate(ctx, id)
	h.AuditLog.Admin(ctx, r, audit.EventLoginSet, &id, nil, map[string]string{"login_id": loginID, "role": role})
	backToView(w, r, id, "Login saved.")
}

// HandleDeleteLogin removes the login identity; the person record stays.
//
// Route: POST /persons/{id}/login/delete
func (h *Handler) HandleDeleteLogin(w http.ResponseWriter, r *http.Request) {
	id, ok := personID(r)
	if !ok {
		h.ErrLog.NotFound(w, r, "Person not found.", listURL)
		return
	}
	if authz.IsSelf(r, id) {
		backToView(w, r, id, "You cannot remove your own login.")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	err := h.Persons.ClearLogin(ctx, id)
	if errors.Is(err, personstore.ErrNotFound) {
		h.ErrLog.NotFound(w, r, "Person not found.", listURL)
		return
	}
	if err != nil {
		h.ErrLog.LogServerError(w, r, "clear login failed", err, "Could not remove login.", viewURL(id))
		return
	}
	h.invalidate(ctx, id)
	h.AuditLog.Admin(ctx, r, audit.EventLoginRemoved, &id, nil, nil)
	backToView(w, r, id, "Login removed.")
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
