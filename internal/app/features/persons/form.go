// internal/app/features/persons/form.go
package persons

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/dalemusser/memberhub/internal/app/store/audit"
	personstore "github.com/dalemusser/memberhub/internal/app/store/persons"
	"github.com/dalemusser/memberhub/internal/app/system/format"
	"github.com/dalemusser/memberhub/internal/app/system/formutil"
	"github.com/dalemusser/memberhub/internal/app/system/htmlsanitize"
	"github.com/dalemusser/memberhub/internal/app/system/inputval"
	"github.com/dalemusser/memberhub/internal/app/system/membersync"
	"github.com/dalemusser/memberhub/internal/app/system/timeouts"
	"github.com/dalemusser/memberhub/internal/domain/reconcile"
	"github.com/dalemusser/waffle/pantry/templates"
	"go.uber.org/zap"
)

// personInput defines validation rules for the person form.
type personInput struct {
	FirstName string `validate:"required,max=100" label:"First name"`
	LastName  string `validate:"required,max=100" label:"Last name"`
	Email     string `validate:"omitempty,email,max=254" label:"Email"`
	Phone     string `validate:"max=40" label:"Phone"`
	Notes     string `validate:"max=4000" label:"Notes"`
}

// submission is a parsed person form.
type submission struct {
	input     personInput
	birthDate string
	orgs      []string // organization ids as posted
}

func readForm(r *http.Request) submission {
	return submission{
		input: personInput{
			FirstName: htmlsanitize.PlainText(r.FormValue("first_name")),
			LastName:  htmlsanitize.PlainText(r.FormValue("last_name")),
			Email:     strings.TrimSpace(r.FormValue("email")),
			Phone:     htmlsanitize.PlainText(r.FormValue("phone")),
			Notes:     htmlsanitize.Sanitize(strings.TrimSpace(r.FormValue("notes"))),
		},
		birthDate: strings.TrimSpace(r.FormValue("birth_date")),
		orgs:      r.Form["org"],
	}
}

// contact validates s and converts it for the store. msg is non-empty when
// the form must be shown again.
func (s submission) contact() (personstore.Contact, string) {
	res, err := inputval.Validate(s.input)
	if err != nil {
		return personstore.Contact{}, "Invalid form submission."
	}
	if !res.OK() {
		return personstore.Contact{}, res.First()
	}
	birth, err := format.ParseDate(s.birthDate)
	if err != nil {
		return personstore.Contact{}, "Birth date must be a date (YYYY-MM-DD)."
	}
	if _, err := reconcile.ParseDesired(s.orgs); err != nil {
		return personstore.Contact{}, membersync.Describe(err)
	}
	return personstore.Contact{
		FirstName: s.input.FirstName,
		LastName:  s.input.LastName,
		Email:     s.input.Email,
		Phone:     s.input.Phone,
		BirthDate: birth,
		Notes:     s.input.Notes,
	}, ""
}

// orgOptions lists every organization, checking those in selected.
func (h *Handler) orgOptions(ctx context.Context, selected []string) ([]orgOption, error) {
	orgs, err := h.Orgs.List(ctx)
	if err != nil {
		return nil, err
	}
	checked := make(map[string]bool, len(selected))
	for _, s := range selected {
		checked[strings.ToLower(strings.TrimSpace(s))] = true
	}
	out := make([]orgOption, 0, len(orgs))
	for _, o := range orgs {
		out = append(out, orgOption{ID: o.ID.Hex(), Name: o.Name, Checked: checked[o.ID.Hex()]})
	}
	return out, nil
}

func (h *Handler) renderForm(w http.ResponseWriter, r *http.Request, id string, s submission, msg string) {
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()
	orgs, err := h.orgOptions(ctx, s.orgs)
	if err != nil {
		h.ErrLog.LogServerError(w, r, "list organizations failed", err, "Could not load the form.", listURL)
		return
	}

	title, tmpl := "New person", "person_new"
	if id != "" {
		title, tmpl = "Edit person", "person_edit"
	}
	data := formData{
		ID:        id,
		FirstName: s.input.FirstName,
		LastName:  s.input.LastName,
		Email:     s.input.Email,
		Phone:     s.input.Phone,
		BirthDate: s.birthDate,
		Notes:     s.input.Notes,
		Orgs:      orgs,
	}
	formutil.SetBase(&data.Base, r, title, listURL)
	if msg != "" {
		data.SetError(msg)
	}
	templates.Render(w, r, tmpl, data)
}

/*─────────────────────────────────────────────────────────────────────────────*
| GET /persons/new, POST /persons                                             |
*─────────────────────────────────────────────────────────────────────────────*/

func (h *Handler) ServeNew(w http.ResponseWriter, r *http.Request) {
	h.renderForm(w, r, "", submission{}, "")
}

// HandleCreate stores a new person and joins the checked organizations by
// reconciling against an empty membership history.
func (h *Handler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		h.ErrLog.LogBadRequest(w, r, "parse form failed", err, "Invalid form submission.", listURL)
		return
	}
	s := readForm(r)
	c, msg := s.contact()
	if msg != "" {
		h.renderForm(w, r, "", s, msg)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	p, err := h.Persons.Create(ctx, c)
	if err != nil {
		h.Log.Error("create person failed", zap.Error(err))
		h.renderForm(w, r, "", s, "Database error while creating person.")
		return
	}
	h.invalidate(ctx, p.ID)
	h.AuditLog.Admin(ctx, r, audit.EventPersonCreated, &p.ID, nil, map[string]string{"name": p.FullName()})

	if len(s.orgs) > 0 {
		if _, _, err := h.Syncer.Reconcile(ctx, p.ID, s.orgs, actor(r)); err != nil {
			h.Log.Warn("initial memberships failed", zap.String("person_id", p.ID.Hex()), zap.Error(err))
			backToView(w, r, p.ID, "Person created. "+membersync.Describe(err))
			return
		}
	}
	backToView(w, r, p.ID, "")
}

/*─────────────────────────────────────────────────────────────────────────────*
| GET/POST /persons/{id}/edit                                                 |
*─────────────────────────────────────────────────────────────────────────────*/

func (h *Handler) ServeEdit(w http.ResponseWriter, r *http.Request) {
	id, ok := personID(r)
	if !ok {
		h.ErrLog.NotFound(w, r, "Person not found.", listURL)
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	d, err := h.Details.LoadFresh(ctx, id)
	if errors.Is(err, personstore.ErrNotFound) {
		h.ErrLog.NotFound(w, r, "Person not found.", listURL)
		return
	}
	if err != nil {
		h.ErrLog.LogServerError(w, r, "load person failed", err, "Could not load person.", listURL)
		return
	}

	p := d.Person
	s := submission{
		input: personInput{
			FirstName: p.FirstName,
			LastName:  p.LastName,
			Email:     p.Email,
			Phone:     p.Phone,
			Notes:     p.Notes,
		},
		birthDate: format.Date(p.BirthDate),
	}
	for _, md := range d.Active {
		if hex := md.Membership.OrgHex(); hex != "" {
			s.orgs = append(s.orgs, hex)
		}
	}
	h.renderForm(w, r, p.ID.Hex(), s, "")
}

// HandleEdit saves the contact fields, then brings the memberships in line
// with the checked organizations.
func (h *Handler) HandleEdit(w http.ResponseWriter, r *http.Request) {
	id, ok := personID(r)
	if !ok {
		h.ErrLog.NotFound(w, r, "Person not found.", listURL)
		return
	}
	if err := r.ParseForm(); err != nil {
		h.ErrLog.LogBadRequest(w, r, "parse form failed", err, "Invalid form submission.", listURL)
		return
	}
	s := readForm(r)
	c, msg := s.contact()
	if msg != "" {
		h.renderForm(w, r, id.Hex(), s, msg)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Long())
	defer cancel()

	err := h.Persons.UpdateContact(ctx, id, c)
	if errors.Is(err, personstore.ErrNotFound) {
		h.ErrLog.NotFound(w, r, "Person not found.", listURL)
		return
	}
	if err != nil {
		h.Log.Error("update person failed", zap.String("person_id", id.Hex()), zap.Error(err))
		h.renderForm(w, r, id.Hex(), s, "Database error while saving person.")
		return
	}
	h.invalidate(ctx, id)

	plan, res, err := h.Syncer.Reconcile(ctx, id, s.orgs, actor(r))
	h.AuditLog.Admin(ctx, r, audit.EventPersonUpdated, &id, nil, map[string]string{
		"joined":    strconv.Itoa(len(plan.Create)),
		"left":      strconv.Itoa(len(plan.Deactivate)),
		"rejoined":  strconv.Itoa(len(plan.Reactivate)),
		"run_id":    res.RunID,
		"reconcile": outcome(err),
	})
	if err != nil {
		h.Log.Warn("membership reconcile failed", zap.String("person_id", id.Hex()), zap.Error(err))
		h.renderForm(w, r, id.Hex(), s, "Contact details were saved. "+membersync.Describe(err))
		return
	}
	backToView(w, r, id, "Saved.")
}

func outcome(err error) string {
	var pf *membersync.PartialFailure
	switch {
	case err == nil:
		return "ok"
	case errors.As(err, &pf):
		return "partial"
	}
	return "failed"
}
