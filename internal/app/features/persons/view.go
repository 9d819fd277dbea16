// internal/app/features/persons/view.go
package persons

import (
	"context"
	"errors"
	"net/http"
	"time"

	personstore "github.com/dalemusser/memberhub/internal/app/store/persons"
	"github.com/dalemusser/memberhub/internal/app/system/authutil"
	"github.com/dalemusser/memberhub/internal/app/system/personview"
	"github.com/dalemusser/memberhub/internal/app/system/timeouts"
	"github.com/dalemusser/memberhub/internal/app/system/viewdata"
	"github.com/dalemusser/memberhub/internal/domain/models"
	"github.com/dalemusser/waffle/pantry/templates"
)

var relationKinds = []string{
	models.RelationParent,
	models.RelationKid,
	models.RelationSpouse,
	models.RelationSibling,
	models.RelationOther,
}

// ServeView shows a person with memberships, payment status, address,
// relations and login.
func (h *Handler) ServeView(w http.ResponseWriter, r *http.Request) {
	id, ok := personID(r)
	if !ok {
		h.ErrLog.NotFound(w, r, "Person not found.", listURL)
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	d, err := h.Details.Load(ctx, id)
	if errors.Is(err, personstore.ErrNotFound) {
		h.ErrLog.NotFound(w, r, "Person not found.", listURL)
		return
	}
	if err != nil {
		h.ErrLog.LogServerError(w, r, "load person failed", err, "Could not load person.", listURL)
		return
	}
	rows, err := h.List.Rows(ctx)
	if err != nil {
		h.ErrLog.LogServerError(w, r, "load persons list failed", err, "Could not load person.", listURL)
		return
	}

	v := personview.Build(d, time.Now())
	related := make(map[string]bool, len(v.Relations))
	for _, rel := range v.Relations {
		related[rel.RelatedID] = true
	}
	data := viewData{
		BaseVM:        viewdata.NewBaseVM(r, v.Name, listURL),
		View:          v,
		RelationKinds: relationKinds,
		PasswordRules: authutil.PasswordRules(),
	}
	for _, row := range rows {
		if row.ID == id || related[row.ID.Hex()] {
			continue
		}
		data.Others = append(data.Others, personOption{ID: row.ID.Hex(), Name: row.Name})
	}
	templates.Render(w, r, "person_view", data)
}
