// internal/app/features/me/view.go
package me

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/dalemusser/memberhub/internal/app/policy/personpolicy"
	personstore "github.com/dalemusser/memberhub/internal/app/store/persons"
	"github.com/dalemusser/memberhub/internal/app/system/authz"
	"github.com/dalemusser/memberhub/internal/app/system/personview"
	"github.com/dalemusser/memberhub/internal/app/system/timeouts"
	"github.com/dalemusser/memberhub/internal/app/system/viewdata"
	"github.com/dalemusser/waffle/pantry/templates"
	"github.com/go-chi/chi/v5"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

/*─────────────────────────────────────────────────────────────────────────────*
| GET /me                                                                     |
*─────────────────────────────────────────────────────────────────────────────*/

func (h *Handler) ServeMe(w http.ResponseWriter, r *http.Request) {
	_, _, uid, ok := authz.UserCtx(r)
	if !ok {
		http.Redirect(w, r, "/login", http.StatusSeeOther)
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	v, ok := h.load(ctx, w, r, uid, "/")
	if !ok {
		return
	}
	templates.Render(w, r, "me_view", viewData{
		BaseVM: viewdata.NewBaseVM(r, "My membership", "/"),
		View:   v,
		Self:   true,
	})
}

/*─────────────────────────────────────────────────────────────────────────────*
| GET /me/related/{id}                                                        |
*─────────────────────────────────────────────────────────────────────────────*/

// ServeRelated shows a relative's data to a person holding delegated
// access. Without the grant the page does not exist.
func (h *Handler) ServeRelated(w http.ResponseWriter, r *http.Request) {
	_, _, uid, ok := authz.UserCtx(r)
	if !ok {
		http.Redirect(w, r, "/login", http.StatusSeeOther)
		return
	}
	subject, err := primitive.ObjectIDFromHex(chi.URLParam(r, "id"))
	if err != nil {
		h.ErrLog.NotFound(w, r, "Person not found.", homeURL)
		return
	}
	if subject == uid {
		http.Redirect(w, r, homeURL, http.StatusSeeOther)
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	allowed, err := personpolicy.CanViewPerson(ctx, r, h.Relations, subject)
	if err != nil {
		h.ErrLog.LogServerError(w, r, "check relation access failed", err, "Could not load person.", homeURL)
		return
	}
	if !allowed {
		h.ErrLog.NotFound(w, r, "Person not found.", homeURL)
		return
	}
	v, ok := h.load(ctx, w, r, subject, homeURL)
	if !ok {
		return
	}
	templates.Render(w, r, "me_view", viewData{
		BaseVM: viewdata.NewBaseVM(r, v.Name, homeURL),
		View:   v,
	})
}

func (h *Handler) load(ctx context.Context, w http.ResponseWriter, r *http.Request, id primitive.ObjectID, back string) (personview.View, bool) {
	d, err := h.Details.Load(ctx, id)
	if errors.Is(err, personstore.ErrNotFound) {
		h.ErrLog.NotFound(w, r, "Person not found.", back)
		return personview.View{}, false
	}
	if err != nil {
		h.ErrLog.LogServerError(w, r, "load person failed", err, "Could not load person.", back)
		return personview.View{}, false
	}
	return personview.Build(d, time.Now()), true
}
