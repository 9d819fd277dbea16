// internal/app/features/organizations/handler.go
package organizations

import (
	"context"
	"net/http"

	uierrors "github.com/dalemusser/memberhub/internal/app/features/errors"
	membershipstore "github.com/dalemusser/memberhub/internal/app/store/memberships"
	organizationstore "github.com/dalemusser/memberhub/internal/app/store/organizations"
	paymentdetailstore "github.com/dalemusser/memberhub/internal/app/store/paymentdetails"
	"github.com/dalemusser/memberhub/internal/app/store/queries/orgsummary"
	"github.com/dalemusser/memberhub/internal/app/system/auditlog"
	"github.com/dalemusser/memberhub/internal/app/system/cache"
	"github.com/go-chi/chi/v5"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

const listURL = "/organizations"

// Handler is the feature-level entry point for Organizations.
type Handler struct {
	Orgs        *organizationstore.Store
	Memberships *membershipstore.Store
	Details     *paymentdetailstore.Store
	Summary     *orgsummary.Loader
	Cache       cache.Cache
	ErrLog      *uierrors.ErrorLogger
	AuditLog    *auditlog.Logger
	Log         *zap.Logger
}

// NewHandler constructs an Organizations handler. c may be nil; it should
// be the cache summary reads through.
func NewHandler(db *mongo.Database, summary *orgsummary.Loader, c cache.Cache, errLog *uierrors.ErrorLogger, audit *auditlog.Logger, logger *zap.Logger) *Handler {
	return &Handler{
		Orgs:        organizationstore.New(db),
		Memberships: membershipstore.New(db),
		Details:     paymentdetailstore.New(db),
		Summary:     summary,
		Cache:       c,
		ErrLog:      errLog,
		AuditLog:    audit,
		Log:         logger,
	}
}

// orgID parses the {id} URL parameter.
func orgID(r *http.Request) (primitive.ObjectID, bool) {
	id, err := primitive.ObjectIDFromHex(chi.URLParam(r, "id"))
	return id, err == nil
}

// invalidate drops the cached organization, the persons list and the detail
// of every person that ever belonged to it. Person details embed the
// organization name and its payment schedule.
func (h *Handler) invalidate(ctx context.Context, id primitive.ObjectID) {
	keys := []string{cache.OrganizationKey(id), cache.PersonsListKey}
	persons, err := h.Memberships.PersonIDsByOrg(ctx, id)
	if err != nil {
		h.Log.Warn("list organization members for cache invalidation failed",
			zap.String("org_id", id.Hex()), zap.Error(err))
	}
	for _, p := range persons {
		keys = append(keys, cache.PersonKey(p))
	}
	cache.Invalidate(ctx, h.Cache, h.Log, keys...)
}
