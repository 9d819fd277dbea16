// internal/app/features/organizations/list.go
package organizations

import (
	"context"
	"net/http"

	"github.com/dalemusser/memberhub/internal/app/system/timeouts"
	"github.com/dalemusser/memberhub/internal/app/system/viewdata"
	"github.com/dalemusser/waffle/pantry/templates"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// ServeList renders every organization sorted by name with its active
// member count.
func (h *Handler) ServeList(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	orgs, err := h.Orgs.List(ctx)
	if err != nil {
		h.ErrLog.LogServerError(w, r, "list organizations failed", err, "Could not load organizations.", "/")
		return
	}
	active, err := h.Memberships.ActiveOrgsByPerson(ctx)
	if err != nil {
		h.ErrLog.LogServerError(w, r, "count active members failed", err, "Could not load organizations.", "/")
		return
	}
	counts := make(map[primitive.ObjectID]int, len(orgs))
	for _, orgIDs := range active {
		for _, id := range orgIDs {
			counts[id]++
		}
	}

	data := listData{
		BaseVM: viewdata.NewBaseVM(r, "Organizations", "/"),
		Items:  make([]listItem, 0, len(orgs)),
	}
	for _, o := range orgs {
		data.Items = append(data.Items, listItem{
			ID:            o.ID.Hex(),
			Name:          o.Name,
			BankAccount:   o.BankAccount,
			ActiveMembers: counts[o.ID],
		})
	}
	templates.Render(w, r, "organization_list", data)
}
