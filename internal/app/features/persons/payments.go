// internal/app/features/persons/payments.go
package persons

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/dalemusser/memberhub/internal/app/store/audit"
	paymentinfostore "github.com/dalemusser/memberhub/internal/app/store/paymentinfos"
	personstore "github.com/dalemusser/memberhub/internal/app/store/persons"
	"github.com/dalemusser/memberhub/internal/app/system/format"
	"github.com/dalemusser/memberhub/internal/app/system/timeouts"
	"github.com/dalemusser/memberhub/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// HandleMarkPayment records a person's payment state against one scheduled
// due of one of their memberships. The record is created on first use.
// A paid mark without an amount records the amount due on the payment date.
//
// Route: POST /persons/{id}/payments
func (h *Handler) HandleMarkPayment(w http.ResponseWriter, r *http.Request) {
	id, ok := personID(r)
	if !ok {
		h.ErrLog.NotFound(w, r, "Person not found.", listURL)
		return
	}
	if err := r.ParseForm(); err != nil {
		h.ErrLog.LogBadRequest(w, r, "parse form failed", err, "Invalid form submission.", viewURL(id))
		return
	}
	membershipID, err1 := primitive.ObjectIDFromHex(r.FormValue("membership_id"))
	detailID, err2 := primitive.ObjectIDFromHex(r.FormValue("payment_detail_id"))
	if err1 != nil || err2 != nil {
		backToView(w, r, id, "Unknown membership or payment.")
		return
	}
	state := strings.ToLower(strings.TrimSpace(r.FormValue("state")))
	if state != models.PaymentPaid && state != models.PaymentUnpaid {
		backToView(w, r, id, "Unknown payment state.")
		return
	}
	paidAt, err := format.ParseDate(r.FormValue("paid_at"))
	if err != nil {
		backToView(w, r, id, "Payment date must be a date (YYYY-MM-DD).")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	d, err := h.Details.LoadFresh(ctx, id)
	if errors.Is(err, personstore.ErrNotFound) {
		h.ErrLog.NotFound(w, r, "Person not found.", listURL)
		return
	}
	if err != nil {
		h.ErrLog.LogServerError(w, r, "load person failed", err, "Could not record payment.", viewURL(id))
		return
	}
	detail, ok := findDue(d, membershipID, detailID)
	if !ok {
		backToView(w, r, id, "That payment does not belong to this person's memberships.")
		return
	}

	mark := paymentinfostore.Mark{
		MembershipID:    membershipID,
		PaymentDetailID: detailID,
		PersonID:        id,
		State:           state,
		PaidAt:          paidAt,
	}
	if state == models.PaymentPaid {
		at := time.Now()
		if paidAt != nil {
			at = *paidAt
		}
		mark.AmountPaid = detail.AmountDue(at)
		if raw := strings.TrimSpace(r.FormValue("amount")); raw != "" {
			if mark.AmountPaid, err = format.ParseMoney(raw); err != nil || mark.AmountPaid < 0 {
				backToView(w, r, id, "Amount must be a number such as 25,00.")
				return
			}
		}
	}
	if _, err := h.Payments.Set(ctx, mark); err != nil {
		h.ErrLog.LogServerError(w, r, "record payment failed", err, "Could not record payment.", viewURL(id))
		return
	}
	h.invalidate(ctx, id)

	var orgID *primitive.ObjectID
	if detail.OrganizationID != primitive.NilObjectID {
		o := detail.OrganizationID
		orgID = &o
	}
	h.AuditLog.Admin(ctx, r, audit.EventPaymentMarked, &id, orgID, map[string]string{
		"membership_id":     membershipID.Hex(),
		"payment_detail_id": detailID.Hex(),
		"state":             state,
		"amount":            format.Money(mark.AmountPaid),
	})
	backToView(w, r, id, "")
}

// findDue returns the scheduled due detailID if it belongs to the
// organization of the person's membership membershipID, active or not.
func findDue(d models.PersonDetail, membershipID, detailID primitive.ObjectID) (models.PaymentDetail, bool) {
	for _, group := range [][]models.MembershipDetail{d.Active, d.Inactive} {
		for _, md := range group {
			if md.Membership.ID != membershipID {
				continue
			}
			for _, pd := range md.PaymentDetails {
				if pd.ID == detailID {
					return pd, true
				}
			}
			return models.PaymentDetail{}, false
		}
	}
	return models.PaymentDetail{}, false
}
