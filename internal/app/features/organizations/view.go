// internal/app/features/organizations/view.go
package organizations

import (
	"context"
	"errors"
	"net/http"

	organizationstore "github.com/dalemusser/memberhub/internal/app/store/organizations"
	"github.com/dalemusser/memberhub/internal/app/system/format"
	"github.com/dalemusser/memberhub/internal/app/system/timeouts"
	"github.com/dalemusser/memberhub/internal/app/system/viewdata"
	"github.com/dalemusser/waffle/pantry/templates"
)

// ServeView shows one organization with its member count and payment
// schedule, newest year first. It reads the cached summary.
func (h *Handler) ServeView(w http.ResponseWriter, r *http.Request) {
	id, ok := orgID(r)
	if !ok {
		h.ErrLog.NotFound(w, r, "Organization not found.", listURL)
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	sum, err := h.Summary.Load(ctx, id)
	if errors.Is(err, organizationstore.ErrNotFound) {
		h.ErrLog.NotFound(w, r, "Organization not found.", listURL)
		return
	}
	if err != nil {
		h.ErrLog.LogServerError(w, r, "load organization failed", err, "Could not load organization.", listURL)
		return
	}
	org := sum.Organization

	data := viewData{
		BaseVM:             viewdata.NewBaseVM(r, org.Name, listURL),
		ID:                 org.ID.Hex(),
		Name:               org.Name,
		BankAccount:        org.BankAccount,
		RegistrationNumber: org.RegistrationNumber,
		ActiveMembers:      sum.ActiveMembers,
		CanDelete:          !sum.HasHistory,
	}
	for _, d := range sum.PaymentDetails {
		data.Payments = append(data.Payments, paymentRow{
			ID:       d.ID.Hex(),
			Year:     d.Year,
			Amount:   format.Money(d.Amount),
			LateFee:  format.Money(d.LateFee),
			Deadline: format.Date(d.Deadline),
		})
	}
	templates.Render(w, r, "organization_view", data)
}
