// internal/app/features/organizations/form.go
package organizations

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/dalemusser/memberhub/internal/app/store/audit"
	organizationstore "github.com/dalemusser/memberhub/internal/app/store/organizations"
	"github.com/dalemusser/memberhub/internal/app/system/formutil"
	"github.com/dalemusser/memberhub/internal/app/system/inputval"
	"github.com/dalemusser/memberhub/internal/app/system/timeouts"
	"github.com/dalemusser/memberhub/internal/domain/models"
	"github.com/dalemusser/waffle/pantry/templates"
	"github.com/dalemusser/waffle/pantry/urlutil"
)

// orgInput defines validation rules for the organization form.
type orgInput struct {
	Name               string `validate:"required,max=200" label:"Organization name"`
	BankAccount        string `validate:"max=64" label:"Bank account"`
	RegistrationNumber string `validate:"max=64" label:"Registration number"`
}

func readOrgForm(r *http.Request) orgInput {
	return orgInput{
		Name:               strings.TrimSpace(r.FormValue("name")),
		BankAccount:        strings.ToUpper(strings.ReplaceAll(strings.TrimSpace(r.FormValue("bank_account")), " ", "")),
		RegistrationNumber: strings.TrimSpace(r.FormValue("registration_number")),
	}
}

func (h *Handler) renderForm(w http.ResponseWriter, r *http.Request, id string, in orgInput, msg string) {
	title, tmpl := "New Organization", "organization_new"
	if id != "" {
		title, tmpl = "Edit Organization", "organization_edit"
	}
	data := orgFormData{
		ID:                 id,
		Name:               in.Name,
		BankAccount:        in.BankAccount,
		RegistrationNumber: in.RegistrationNumber,
	}
	formutil.SetBase(&data.Base, r, title, listURL)
	if msg != "" {
		data.SetError(msg)
	}
	templates.Render(w, r, tmpl, data)
}

// validate returns the message to show, or "" when in is acceptable.
func validate(in orgInput) string {
	res, err := inputval.Validate(in)
	if err != nil {
		return "Invalid form submission."
	}
	return res.First()
}

/*─────────────────────────────────────────────────────────────────────────────*
| GET /organizations/new, POST /organizations                                 |
*─────────────────────────────────────────────────────────────────────────────*/

func (h *Handler) ServeNew(w http.ResponseWriter, r *http.Request) {
	h.renderForm(w, r, "", orgInput{}, "")
}

func (h *Handler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		h.ErrLog.LogBadRequest(w, r, "parse form failed", err, "Invalid form submission.", listURL)
		return
	}
	in := readOrgForm(r)
	if msg := validate(in); msg != "" {
		h.renderForm(w, r, "", in, msg)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	org, err := h.Orgs.Create(ctx, models.Organization{
		Name:               in.Name,
		BankAccount:        in.BankAccount,
		RegistrationNumber: in.RegistrationNumber,
	})
	if err != nil {
		msg := "Database error while creating organization."
		if errors.Is(err, organizationstore.ErrDuplicateOrganization) {
			msg = "An organization with that name already exists."
		}
		h.renderForm(w, r, "", in, msg)
		return
	}
	h.AuditLog.Admin(ctx, r, audit.EventOrgCreated, nil, &org.ID, map[string]string{"name": org.Name})

	http.Redirect(w, r, urlutil.SafeReturn(r.FormValue("return"), "", listURL+"/"+org.ID.Hex()), http.StatusSeeOther)
}

/*─────────────────────────────────────────────────────────────────────────────*
| GET/POST /organizations/{id}/edit                                           |
*─────────────────────────────────────────────────────────────────────────────*/

func (h *Handler) ServeEdit(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	org, ok := h.loadOrg(ctx, w, r)
	if !ok {
		return
	}
	h.renderForm(w, r, org.ID.Hex(), orgInput{
		Name:               org.Name,
		BankAccount:        org.BankAccount,
		RegistrationNumber: org.RegistrationNumber,
	}, "")
}

func (h *Handler) HandleEdit(w http.ResponseWriter, r *http.Request) {
	id, ok := orgID(r)
	if !ok {
		h.ErrLog.NotFound(w, r, "Organization not found.", listURL)
		return
	}
	if err := r.ParseForm(); err != nil {
		h.ErrLog.LogBadRequest(w, r, "parse form failed", err, "Invalid form submission.", listURL)
		return
	}
	in := readOrgForm(r)
	if msg := validate(in); msg != "" {
		h.renderForm(w, r, id.Hex(), in, msg)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	exists, err := h.Orgs.NameExistsForOther(ctx, in.Name, id)
	if err != nil {
		h.renderForm(w, r, id.Hex(), in, "Database error checking organization name.")
		return
	}
	if exists {
		h.renderForm(w, r, id.Hex(), in, "Another organization already uses that name.")
		return
	}

	err = h.Orgs.Update(ctx, id, models.Organization{
		Name:               in.Name,
		BankAccount:        in.BankAccount,
		RegistrationNumber: in.RegistrationNumber,
	})
	switch {
	case errors.Is(err, organizationstore.ErrNotFound):
		h.ErrLog.NotFound(w, r, "Organization not found.", listURL)
		return
	case errors.Is(err, organizationstore.ErrDuplicateOrganization):
		h.renderForm(w, r, id.Hex(), in, "Another organization already uses that name.")
		return
	case err != nil:
		h.renderForm(w, r, id.Hex(), in, "Database error while updating organization.")
		return
	}
	h.invalidate(ctx, id)
	h.AuditLog.Admin(ctx, r, audit.EventOrgUpdated, nil, &id, map[string]string{"name": in.Name})

	http.Redirect(w, r, urlutil.SafeReturn(r.FormValue("return"), "", listURL+"/"+id.Hex()), http.StatusSeeOther)
}
