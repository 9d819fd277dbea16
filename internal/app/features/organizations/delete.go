// internal/app/features/organizations/delete.go
package organizations

import (
	"context"
	"errors"
	"net/http"
	"net/url"

	"github.com/dalemusser/memberhub/internal/app/store/audit"
	organizationstore "github.com/dalemusser/memberhub/internal/app/store/organizations"
	"github.com/dalemusser/memberhub/internal/app/system/timeouts"
	"go.uber.org/zap"
)

// HandleDelete deletes an organization that no membership row has ever
// referenced. Organizations with history are kept so that leave/rejoin
// records and payments stay resolvable.
//
// Route: POST /organizations/{id}/delete
func (h *Handler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	id, ok := orgID(r)
	if !ok {
		h.ErrLog.NotFound(w, r, "Organization not found.", listURL)
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	used, err := h.Memberships.ExistsByOrg(ctx, id)
	if err != nil {
		h.ErrLog.LogServerError(w, r, "check membership history failed", err, "Could not delete organization.", listURL)
		return
	}
	if used {
		h.Log.Info("organization delete refused: memberships exist", zap.String("org_id", id.Hex()))
		flash := url.Values{"flash": {"This organization has membership history and cannot be deleted."}}
		http.Redirect(w, r, listURL+"/"+id.Hex()+"?"+flash.Encode(), http.StatusSeeOther)
		return
	}

	err = h.Orgs.Delete(ctx, id)
	if err != nil && !errors.Is(err, organizationstore.ErrNotFound) {
		h.ErrLog.LogServerError(w, r, "delete organization failed", err, "Could not delete organization.", listURL)
		return
	}
	if err == nil {
		h.invalidate(ctx, id)
		h.AuditLog.Admin(ctx, r, audit.EventOrgDeleted, nil, &id, nil)
	}
	http.Redirect(w, r, listURL, http.StatusSeeOther)
}
