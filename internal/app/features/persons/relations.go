// internal/app/features/persons/relations.go
package persons

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/dalemusser/memberhub/internal/app/store/audit"
	personstore "github.com/dalemusser/memberhub/internal/app/store/persons"
	relationstore "github.com/dalemusser/memberhub/internal/app/store/relations"
	"github.com/dalemusser/memberhub/internal/app/system/htmlsanitize"
	"github.com/dalemusser/memberhub/internal/app/system/timeouts"
	"github.com/dalemusser/memberhub/internal/domain/models"
	"github.com/go-chi/chi/v5"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

const maxRelationNote = 500

// HandleAddRelation relates the person to another one. The store writes
// the mirrored row with the inverse kind.
//
// Route: POST /persons/{id}/relations
func (h *Handler) HandleAddRelation(w http.ResponseWriter, r *http.Request) {
	id, ok := personID(r)
	if !ok {
		h.ErrLog.NotFound(w, r, "Person not found.", listURL)
		return
	}
	if err := r.ParseForm(); err != nil {
		h.ErrLog.LogBadRequest(w, r, "parse form failed", err, "Invalid form submission.", viewURL(id))
		return
	}
	relatedID, err := primitive.ObjectIDFromHex(strings.TrimSpace(r.FormValue("related_id")))
	if err != nil {
		backToView(w, r, id, "Choose a person to relate.")
		return
	}
	note := htmlsanitize.PlainText(r.FormValue("note"))
	if len(note) > maxRelationNote {
		note = note[:maxRelationNote]
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	for _, pid := range []primitive.ObjectID{id, relatedID} {
		if _, err := h.Persons.GetByID(ctx, pid); errors.Is(err, personstore.ErrNotFound) {
			backToView(w, r, id, "Person not found.")
			return
		} else if err != nil {
			h.ErrLog.LogServerError(w, r, "load person failed", err, "Could not add relation.", viewURL(id))
			return
		}
	}

	rel, err := h.Relations.Add(ctx, relationstore.NewRelation{
		PersonID:  id,
		RelatedID: relatedID,
		Kind:      strings.ToLower(strings.TrimSpace(r.FormValue("kind"))),
		CanAccess: r.FormValue("can_access") != "",
		Note:      note,
	})
	switch {
	case errors.Is(err, relationstore.ErrSelfRelation),
		errors.Is(err, relationstore.ErrBadKind),
		errors.Is(err, relationstore.ErrDuplicateRelation):
		backToView(w, r, id, capitalize(err.Error())+".")
		return
	case err != nil:
		h.ErrLog.LogServerError(w, r, "add relation failed", err, "Could not add relation.", viewURL(id))
		return
	}
	h.invalidate(ctx, id, relatedID)
	h.AuditLog.Admin(ctx, r, audit.EventRelationAdded, &id, nil, map[string]string{
		"related_id": relatedID.Hex(),
		"kind":       rel.Kind,
		"inverse":    models.InverseRelationKind(rel.Kind),
	})
	backToView(w, r, id, "")
}

// relationOf resolves {rid} and checks it is one of the person's own rows.
func (h *Handler) relationOf(ctx context.Context, w http.ResponseWriter, r *http.Request, id primitive.ObjectID) (models.PersonRelation, bool) {
	rid, err := primitive.ObjectIDFromHex(chi.URLParam(r, "rid"))
	if err != nil {
		h.ErrLog.NotFound(w, r, "Relation not found.", viewURL(id))
		return models.PersonRelation{}, false
	}
	rel, err := h.Relations.GetByID(ctx, rid)
	if errors.Is(err, relationstore.ErrNotFound) || (err == nil && rel.PersonID != id) {
		h.ErrLog.NotFound(w, r, "Relation not found.", viewURL(id))
		return models.PersonRelation{}, false
	}
	if err != nil {
		h.ErrLog.LogServerError(w, r, "load relation failed", err, "Could not load relation.", viewURL(id))
		return models.PersonRelation{}, false
	}
	return rel, true
}

// HandleRemoveRelation deletes both directions of a relation.
//
// Route: POST /persons/{id}/relations/{rid}/delete
func (h *Handler) HandleRemoveRelation(w http.ResponseWriter, r *http.Request) {
	id, ok := personID(r)
	if !ok {
		h.ErrLog.NotFound(w, r, "Person not found.", listURL)
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	rel, ok := h.relationOf(ctx, w, r, id)
	if !ok {
		return
	}
	if err := h.Relations.Remove(ctx, rel.ID); err != nil && !errors.Is(err, relationstore.ErrNotFound) {
		h.ErrLog.LogServerError(w, r, "remove relation failed", err, "Could not remove relation.", viewURL(id))
		return
	}
	h.invalidate(ctx, id, rel.RelatedID)
	h.AuditLog.Admin(ctx, r, audit.EventRelationRemoved, &id, nil, map[string]string{
		"related_id": rel.RelatedID.Hex(),
		"kind":       rel.Kind,
	})
	backToView(w, r, id, "")
}

// HandleRelationAccess sets whether the person may view the related
// person's data. Only this direction changes.
//
// Route: POST /persons/{id}/relations/{rid}/access
func (h *Handler) HandleRelationAccess(w http.ResponseWriter, r *http.Request) {
	id, ok := personID(r)
	if !ok {
		h.ErrLog.NotFound(w, r, "Person not found.", listURL)
		return
	}
	if err := r.ParseForm(); err != nil {
		h.ErrLog.LogBadRequest(w, r, "parse form failed", err, "Invalid form submission.", viewURL(id))
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	rel, ok := h.relationOf(ctx, w, r, id)
	if !ok {
		return
	}
	canAccess := r.FormValue("can_access") != ""
	if err := h.Relations.SetAccess(ctx, rel.ID, canAccess); err != nil {
		h.ErrLog.LogServerError(w, r, "set relation access failed", err, "Could not change access.", viewURL(id))
		return
	}
	h.invalidate(ctx, id)
	access := "false"
	if canAccess {
		access = "true"
	}
	h.AuditLog.Admin(ctx, r, audit.EventRelationAccessChanged, &id, nil, map[string]string{
		"related_id": rel.RelatedID.Hex(),
		"can_access": access,
	})
	backToView(w, r, id, "")
}
