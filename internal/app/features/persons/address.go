// internal/app/features/persons/address.go
package persons

import (
	"context"
	"net/http"

	"github.com/dalemusser/memberhub/internal/app/store/audit"
	"github.com/dalemusser/memberhub/internal/app/system/htmlsanitize"
	"github.com/dalemusser/memberhub/internal/app/system/inputval"
	"github.com/dalemusser/memberhub/internal/app/system/timeouts"
	"github.com/dalemusser/memberhub/internal/domain/models"
)

type addressInput struct {
	Street     string `validate:"max=200" label:"Street"`
	PostalCode string `validate:"max=20" label:"Postal code"`
	City       string `validate:"max=100" label:"City"`
	Country    string `validate:"max=100" label:"Country"`
}

// HandleAddress stores the posted address. An all-blank form clears it.
func (h *Handler) HandleAddress(w http.ResponseWriter, r *http.Request) {
	id, ok := personID(r)
	if !ok {
		h.ErrLog.NotFound(w, r, "Person not found.", listURL)
		return
	}
	if err := r.ParseForm(); err != nil {
		h.ErrLog.LogBadRequest(w, r, "parse form failed", err, "Invalid form submission.", viewURL(id))
		return
	}
	in := addressInput{
		Street:     htmlsanitize.PlainText(r.FormValue("street")),
		PostalCode: htmlsanitize.PlainText(r.FormValue("postal_code")),
		City:       htmlsanitize.PlainText(r.FormValue("city")),
		Country:    htmlsanitize.PlainText(r.FormValue("country")),
	}
	if res, _ := inputval.Validate(in); !res.OK() {
		backToView(w, r, id, res.First())
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	if _, err := h.Persons.GetByID(ctx, id); err != nil {
		h.ErrLog.NotFound(w, r, "Person not found.", listURL)
		return
	}
	err := h.Addresses.Upsert(ctx, models.Address{
		PersonID:   id,
		Street:     in.Street,
		PostalCode: in.PostalCode,
		City:       in.City,
		Country:    in.Country,
	})
	if err != nil {
		h.ErrLog.LogServerError(w, r, "save address failed", err, "Could not save address.", viewURL(id))
		return
	}
	h.invalidate(ctx, id)
	h.AuditLog.Admin(ctx, r, audit.EventAddressUpdated, &id, nil, nil)
	backToView(w, r, id, "Address saved.")
}

func (h *Handler) HandleClearAddress(w http.ResponseWriter, r *http.Request) {
	id, ok := personID(r)
	if !ok {
		h.ErrLog.NotFound(w, r, "Person not found.", listURL)
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	if err := h.Addresses.Clear(ctx, id); err != nil {
		h.ErrLog.LogServerError(w, r, "clear address failed", err, "Could not clear address.", viewURL(id))
		return
	}
	h.invalidate(ctx, id)
	h.AuditLog.Admin(ctx, r, audit.EventAddressUpdated, &id, nil, map[string]string{"cleared": "true"})
	backToView(w, r, id, "Address cleared.")
}
