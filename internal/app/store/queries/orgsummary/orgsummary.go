// Package orgsummary assembles the organization page read model behind the
// read-through cache under cache.OrganizationKey.
package orgsummary

import (
	"context"
	"time"

	membershipstore "github.com/dalemusser/memberhub/internal/app/store/memberships"
	organizationstore "github.com/dalemusser/memberhub/internal/app/store/organizations"
	paymentdetailstore "github.com/dalemusser/memberhub/internal/app/store/paymentdetails"
	"github.com/dalemusser/memberhub/internal/app/system/cache"
	"github.com/dalemusser/memberhub/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// Summary is one organization with its active member count and live
// payment details, newest year first. HasHistory is true while any
// membership row, active or not, references the organization.
type Summary struct {
	Organization   models.Organization
	ActiveMembers  int64
	HasHistory     bool
	PaymentDetails []models.PaymentDetail
}

type Loader struct {
	orgs        *organizationstore.Store
	memberships *membershipstore.Store
	details     *paymentdetailstore.Store

	cache cache.Cache
	ttl   time.Duration
	log   *zap.Logger
}

// NewLoader builds a Loader. c may be nil to disable caching.
func NewLoader(db *mongo.Database, c cache.Cache, ttl time.Duration, logger *zap.Logger) *Loader {
	return &Loader{
		orgs:        organizationstore.New(db),
		memberships: membershipstore.New(db),
		details:     paymentdetailstore.New(db),
		cache:       c,
		ttl:         ttl,
		log:         logger,
	}
}

// Load returns the summary of orgID, from cache when present. A missing
// organization yields organizationstore.ErrNotFound and is not cached.
func (l *Loader) Load(ctx context.Context, orgID primitive.ObjectID) (Summary, error) {
	return cache.Fetch(ctx, l.cache, cache.OrganizationKey(orgID), l.ttl, l.log,
		func(ctx context.Context) (Summary, error) {
			return l.load(ctx, orgID)
		})
}

func (l *Loader) load(ctx context.Context, orgID primitive.ObjectID) (Summary, error) {
	org, err := l.orgs.GetByID(ctx, orgID)
	if err != nil {
		return Summary{}, err
	}
	s := Summary{Organization: org}
	if s.ActiveMembers, err = l.memberships.CountActiveByOrg(ctx, orgID); err != nil {
		return Summary{}, err
	}
	if s.HasHistory, err = l.memberships.ExistsByOrg(ctx, orgID); err != nil {
		return Summary{}, err
	}
	if s.PaymentDetails, err = l.details.ListByOrg(ctx, orgID); err != nil {
		return Summary{}, err
	}
	return s, nil
}
