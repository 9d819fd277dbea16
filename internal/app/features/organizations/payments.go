// internal/app/features/organizations/payments.go
package organizations

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/dalemusser/memberhub/internal/app/store/audit"
	organizationstore "github.com/dalemusser/memberhub/internal/app/store/organizations"
	paymentdetailstore "github.com/dalemusser/memberhub/internal/app/store/paymentdetails"
	"github.com/dalemusser/memberhub/internal/app/system/format"
	"github.com/dalemusser/memberhub/internal/app/system/formutil"
	"github.com/dalemusser/memberhub/internal/app/system/inputval"
	"github.com/dalemusser/memberhub/internal/app/system/timeouts"
	"github.com/dalemusser/memberhub/internal/domain/models"
	"github.com/dalemusser/waffle/pantry/templates"
	"github.com/go-chi/chi/v5"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type paymentInput struct {
	Year int `validate:"gte=1900,lte=2200" label:"Year"`
}

// parsePaymentForm reads the payment detail form. It returns the posted
// strings for re-rendering and the first problem found, if any.
func parsePaymentForm(r *http.Request) (models.PaymentDetail, paymentFormData, string) {
	raw := paymentFormData{
		Year:     strings.TrimSpace(r.FormValue("year")),
		Amount:   strings.TrimSpace(r.FormValue("amount")),
		LateFee:  strings.TrimSpace(r.FormValue("late_fee")),
		Deadline: strings.TrimSpace(r.FormValue("deadline")),
	}
	var d models.PaymentDetail

	year, err := strconv.Atoi(raw.Year)
	if err != nil {
		return d, raw, "Year is required."
	}
	if res, _ := inputval.Validate(paymentInput{Year: year}); !res.OK() {
		return d, raw, res.First()
	}
	d.Year = year

	if d.Amount, err = format.ParseMoney(raw.Amount); err != nil || d.Amount < 0 {
		return d, raw, "Amount must be a number such as 25,00."
	}
	if raw.LateFee != "" {
		if d.LateFee, err = format.ParseMoney(raw.LateFee); err != nil || d.LateFee < 0 {
			return d, raw, "Late fee must be a number such as 5,00."
		}
	}
	if d.Deadline, err = format.ParseDate(raw.Deadline); err != nil {
		return d, raw, "Deadline must be a date (YYYY-MM-DD)."
	}
	return d, raw, ""
}

// loadOrg resolves {id} or renders the error page. ok is false when a
// response has already been written.
func (h *Handler) loadOrg(ctx context.Context, w http.ResponseWriter, r *http.Request) (models.Organization, bool) {
	id, ok := orgID(r)
	if !ok {
		h.ErrLog.NotFound(w, r, "Organization not found.", listURL)
		return models.Organization{}, false
	}
	sum, err := h.Summary.Load(ctx, id)
	if errors.Is(err, organizationstore.ErrNotFound) {
		h.ErrLog.NotFound(w, r, "Organization not found.", listURL)
		return models.Organization{}, false
	}
	if err != nil {
		h.ErrLog.LogServerError(w, r, "load organization failed", err, "Could not load organization.", listURL)
		return models.Organization{}, false
	}
	return sum.Organization, true
}

// loadDetail resolves {pid} and checks that it belongs to org.
func (h *Handler) loadDetail(ctx context.Context, w http.ResponseWriter, r *http.Request, org models.Organization) (models.PaymentDetail, bool) {
	back := listURL + "/" + org.ID.Hex()
	pid, err := primitive.ObjectIDFromHex(chi.URLParam(r, "pid"))
	if err != nil {
		h.ErrLog.NotFound(w, r, "Payment detail not found.", back)
		return models.PaymentDetail{}, false
	}
	d, err := h.Details.GetByID(ctx, pid)
	if errors.Is(err, paymentdetailstore.ErrNotFound) || (err == nil && (d.OrganizationID != org.ID || d.Deleted)) {
		h.ErrLog.NotFound(w, r, "Payment detail not found.", back)
		return models.PaymentDetail{}, false
	}
	if err != nil {
		h.ErrLog.LogServerError(w, r, "load payment detail failed", err, "Could not load payment detail.", back)
		return models.PaymentDetail{}, false
	}
	return d, true
}

func (h *Handler) renderPaymentForm(w http.ResponseWriter, r *http.Request, org models.Organization, data paymentFormData, msg string) {
	title, tmpl := "New payment", "payment_detail_new"
	if data.ID != "" {
		title, tmpl = "Edit payment", "payment_detail_edit"
	}
	data.OrgID, data.OrgName = org.ID.Hex(), org.Name
	formutil.SetBase(&data.Base, r, title, listURL+"/"+org.ID.Hex())
	if msg != "" {
		data.SetError(msg)
	}
	templates.Render(w, r, tmpl, data)
}

/*─────────────────────────────────────────────────────────────────────────────*
| GET /organizations/{id}/payments/new, POST /organizations/{id}/payments     |
*─────────────────────────────────────────────────────────────────────────────*/

func (h *Handler) ServeNewPayment(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()
	org, ok := h.loadOrg(ctx, w, r)
	if !ok {
		return
	}
	h.renderPaymentForm(w, r, org, paymentFormData{}, "")
}

func (h *Handler) HandleCreatePayment(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		h.ErrLog.LogBadRequest(w, r, "parse form failed", err, "Invalid form submission.", listURL)
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()
	org, ok := h.loadOrg(ctx, w, r)
	if !ok {
		return
	}

	d, raw, msg := parsePaymentForm(r)
	if msg != "" {
		h.renderPaymentForm(w, r, org, raw, msg)
		return
	}
	d.OrganizationID = org.ID
	created, err := h.Details.Create(ctx, d)
	if err != nil {
		h.ErrLog.LogServerError(w, r, "create payment detail failed", err, "Could not save payment detail.", listURL+"/"+org.ID.Hex())
		return
	}
	h.invalidate(ctx, org.ID)
	h.AuditLog.Admin(ctx, r, audit.EventPaymentDetailCreated, nil, &org.ID, map[string]string{
		"payment_detail_id": created.ID.Hex(),
		"year":              strconv.Itoa(created.Year),
	})
	http.Redirect(w, r, listURL+"/"+org.ID.Hex(), http.StatusSeeOther)
}

/*─────────────────────────────────────────────────────────────────────────────*
| GET/POST /organizations/{id}/payments/{pid}/edit                            |
*─────────────────────────────────────────────────────────────────────────────*/

func (h *Handler) ServeEditPayment(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()
	org, ok := h.loadOrg(ctx, w, r)
	if !ok {
		return
	}
	d, ok := h.loadDetail(ctx, w, r, org)
	if !ok {
		return
	}
	h.renderPaymentForm(w, r, org, paymentFormData{
		ID:       d.ID.Hex(),
		Year:     strconv.Itoa(d.Year),
		Amount:   format.MoneyWith(d.Amount, ""),
		LateFee:  format.MoneyWith(d.LateFee, ""),
		Deadline: format.Date(d.Deadline),
	}, "")
}

func (h *Handler) HandleEditPayment(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		h.ErrLog.LogBadRequest(w, r, "parse form failed", err, "Invalid form submission.", listURL)
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()
	org, ok := h.loadOrg(ctx, w, r)
	if !ok {
		return
	}
	existing, ok := h.loadDetail(ctx, w, r, org)
	if !ok {
		return
	}

	d, raw, msg := parsePaymentForm(r)
	raw.ID = existing.ID.Hex()
	if msg != "" {
		h.renderPaymentForm(w, r, org, raw, msg)
		return
	}
	err := h.Details.Update(ctx, existing.ID, d)
	if errors.Is(err, paymentdetailstore.ErrNotFound) {
		h.ErrLog.NotFound(w, r, "Payment detail not found.", listURL+"/"+org.ID.Hex())
		return
	}
	if err != nil {
		h.ErrLog.LogServerError(w, r, "update payment detail failed", err, "Could not save payment detail.", listURL+"/"+org.ID.Hex())
		return
	}
	h.invalidate(ctx, org.ID)
	h.AuditLog.Admin(ctx, r, audit.EventPaymentDetailUpdated, nil, &org.ID, map[string]string{
		"payment_detail_id": existing.ID.Hex(),
		"year":              strconv.Itoa(d.Year),
	})
	http.Redirect(w, r, listURL+"/"+org.ID.Hex(), http.StatusSeeOther)
}

/*─────────────────────────────────────────────────────────────────────────────*
| POST /organizations/{id}/payments/{pid}/delete                              |
*─────────────────────────────────────────────────────────────────────────────*/

// HandleDeletePayment soft-deletes a payment detail. Recorded payments
// against it are kept.
func (h *Handler) HandleDeletePayment(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()
	org, ok := h.loadOrg(ctx, w, r)
	if !ok {
		return
	}
	d, ok := h.loadDetail(ctx, w, r, org)
	if !ok {
		return
	}
	if err := h.Details.SoftDelete(ctx, d.ID); err != nil && !errors.Is(err, paymentdetailstore.ErrNotFound) {
		h.ErrLog.LogServerError(w, r, "delete payment detail failed", err, "Could not delete payment detail.", listURL+"/"+org.ID.Hex())
		return
	}
	h.invalidate(ctx, org.ID)
	h.AuditLog.Admin(ctx, r, audit.EventPaymentDetailDeleted, nil, &org.ID, map[string]string{
		"payment_detail_id": d.ID.Hex(),
	})
	http.Redirect(w, r, listURL+"/"+org.ID.Hex(), http.StatusSeeOther)
}
