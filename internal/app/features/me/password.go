// internal/app/features/me/password.go
package me

import (
	"context"
	"errors"
	"net/http"

	personstore "github.com/dalemusser/memberhub/internal/app/store/persons"
	"github.com/dalemusser/memberhub/internal/app/system/authutil"
	"github.com/dalemusser/memberhub/internal/app/system/authz"
	"github.com/dalemusser/memberhub/internal/app/system/formutil"
	"github.com/dalemusser/memberhub/internal/app/system/timeouts"
	"github.com/dalemusser/waffle/pantry/templates"
	"go.uber.org/zap"
)

/*─────────────────────────────────────────────────────────────────────────────*
| GET /me/password                                                            |
*─────────────────────────────────────────────────────────────────────────────*/

func (h *Handler) ServePassword(w http.ResponseWriter, r *http.Request) {
	h.renderPassword(w, r, "")
}

/*─────────────────────────────────────────────────────────────────────────────*
| POST /me/password                                                           |
*─────────────────────────────────────────────────────────────────────────────*/

func (h *Handler) HandlePassword(w http.ResponseWriter, r *http.Request) {
	_, _, uid, ok := authz.UserCtx(r)
	if !ok {
		http.Redirect(w, r, "/login", http.StatusSeeOther)
		return
	}
	if err := r.ParseForm(); err != nil {
		h.ErrLog.LogBadRequest(w, r, "parse form failed", err, "Invalid form data.", homeURL)
		return
	}
	current := r.FormValue("current_password")
	next := r.FormValue("new_password")
	confirm := r.FormValue("confirm_password")

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	p, err := h.Persons.GetByID(ctx, uid)
	if errors.Is(err, personstore.ErrNotFound) {
		h.ErrLog.NotFound(w, r, "Person not found.", "/")
		return
	}
	if err != nil {
		h.ErrLog.LogServerError(w, r, "load person failed", err, "Could not change password.", homeURL)
		return
	}
	if p.PasswordHash == nil || !authutil.CheckPassword(current, *p.PasswordHash) {
		h.renderPassword(w, r, "Current password is incorrect.")
		return
	}
	if err := authutil.ValidatePassword(next); err != nil {
		h.renderPassword(w, r, err.Error())
		return
	}
	if next != confirm {
		h.renderPassword(w, r, "New passwords do not match.")
		return
	}
	if authutil.CheckPassword(next, *p.PasswordHash) {
		h.renderPassword(w, r, "New password cannot be the same as your current password.")
		return
	}

	hash, err := authutil.HashPassword(next)
	if err != nil {
		h.ErrLog.LogServerError(w, r, "hash password failed", err, "Could not change password.", homeURL)
		return
	}
	if err := h.Persons.SetPasswordHash(ctx, uid, hash); err != nil {
		h.ErrLog.LogServerError(w, r, "update password failed", err, "Could not change password.", homeURL)
		return
	}
	h.AuditLog.PasswordChanged(ctx, r, uid)
	h.Log.Info("password changed", zap.String("person_id", uid.Hex()))
	http.Redirect(w, r, homeURL+"?flash=Password+changed.", http.StatusSeeOther)
}

func (h *Handler) renderPassword(w http.ResponseWriter, r *http.Request, msg string) {
	var data passwordData
	formutil.SetBase(&data.Base, r, "Change password", homeURL)
	data.PasswordRules = authutil.PasswordRules()
	if msg != "" {
		data.SetError(msg)
	}
	templates.Render(w, r, "me_password", data)
}
