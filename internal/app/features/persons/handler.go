// internal/app/features/persons/handler.go
package persons

import (
	"context"
	"net/http"
	"net/url"

	uierrors "github.com/dalemusser/memberhub/internal/app/features/errors"
	addressstore "github.com/dalemusser/memberhub/internal/app/store/addresses"
	organizationstore "github.com/dalemusser/memberhub/internal/app/store/organizations"
	paymentinfostore "github.com/dalemusser/memberhub/internal/app/store/paymentinfos"
	personstore "github.com/dalemusser/memberhub/internal/app/store/persons"
	"github.com/dalemusser/memberhub/internal/app/store/queries/persondetail"
	"github.com/dalemusser/memberhub/internal/app/store/queries/personlist"
	relationstore "github.com/dalemusser/memberhub/internal/app/store/relations"
	"github.com/dalemusser/memberhub/internal/app/system/auditlog"
	"github.com/dalemusser/memberhub/internal/app/system/authz"
	"github.com/dalemusser/memberhub/internal/app/system/cache"
	"github.com/dalemusser/memberhub/internal/app/system/membersync"
	"github.com/go-chi/chi/v5"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

const listURL = "/persons"

// Handler is the feature-level entry point for the persons admin pages.
type Handler struct {
	Persons   *personstore.Store
	Orgs      *organizationstore.Store
	Addresses *addressstore.Store
	Relations *relationstore.Store
	Payments  *paymentinfostore.Store
	Details   *persondetail.Loader
	List      *personlist.Loader
	Syncer    *membersync.Syncer
	Cache     cache.Cache

	ErrLog   *uierrors.ErrorLogger
	AuditLog *auditlog.Logger
	Log      *zap.Logger
}

// NewHandler wires the stores on db. The loaders and syncer are shared with
// other features so they share one cache.
func NewHandler(db *mongo.Database, details *persondetail.Loader, list *personlist.Loader, syncer *membersync.Syncer,
	c cache.Cache, errLog *uierrors.ErrorLogger, audit *auditlog.Logger, logger *zap.Logger) *Handler {
	return &Handler{
		Persons:   personstore.New(db),
		Orgs:      organizationstore.New(db),
		Addresses: addressstore.New(db),
		Relations: relationstore.New(db, logger),
		Payments:  paymentinfostore.New(db),
		Details:   details,
		List:      list,
		Syncer:    syncer,
		Cache:     c,
		ErrLog:    errLog,
		AuditLog:  audit,
		Log:       logger,
	}
}

// personID parses the {id} URL parameter.
func personID(r *http.Request) (primitive.ObjectID, bool) {
	id, err := primitive.ObjectIDFromHex(chi.URLParam(r, "id"))
	return id, err == nil
}

func viewURL(id primitive.ObjectID) string { return listURL + "/" + id.Hex() }

// backToView redirects to the person page, optionally with a one-line notice.
func backToView(w http.ResponseWriter, r *http.Request, id primitive.ObjectID, flash string) {
	dest := viewURL(id)
	if flash != "" {
		dest += "?" + url.Values{"flash": {flash}}.Encode()
	}
	http.Redirect(w, r, dest, http.StatusSeeOther)
}

// actor is the signed-in admin, recorded on membership events.
func actor(r *http.Request) *primitive.ObjectID {
	_, _, uid, ok := authz.UserCtx(r)
	if !ok {
		return nil
	}
	return &uid
}

// invalidate drops the cached detail of every id and the persons list.
func (h *Handler) invalidate(ctx context.Context, ids ...primitive.ObjectID) {
	keys := []string{cache.PersonsListKey}
	for _, id := range ids {
		keys = append(keys, cache.PersonKey(id))
	}
	cache.Invalidate(ctx, h.Cache, h.Log, keys...)
}
