// Package persondetail assembles the PersonDetail read model from the
// person, membership, organization, payment, address and relation stores,
// behind the read-through cache.
package persondetail

import (
	"context"
	"time"

	addressstore "github.com/dalemusser/memberhub/internal/app/store/addresses"
	membershipstore "github.com/dalemusser/memberhub/internal/app/store/memberships"
	organizationstore "github.com/dalemusser/memberhub/internal/app/store/organizations"
	paymentdetailstore "github.com/dalemusser/memberhub/internal/app/store/paymentdetails"
	paymentinfostore "github.com/dalemusser/memberhub/internal/app/store/paymentinfos"
	personstore "github.com/dalemusser/memberhub/internal/app/store/persons"
	relationstore "github.com/dalemusser/memberhub/internal/app/store/relations"
	"github.com/dalemusser/memberhub/internal/app/system/cache"
	"github.com/dalemusser/memberhub/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

type Loader struct {
	persons     *personstore.Store
	memberships *membershipstore.Store
	orgs        *organizationstore.Store
	details     *paymentdetailstore.Store
	infos       *paymentinfostore.Store
	addresses   *addressstore.Store
	relations   *relationstore.Store

	cache cache.Cache
	ttl   time.Duration
	log   *zap.Logger
}

// NewLoader builds a Loader. c may be nil to disable caching.
func NewLoader(db *mongo.Database, c cache.Cache, ttl time.Duration, logger *zap.Logger) *Loader {
	return &Loader{
		persons:     personstore.New(db),
		memberships: membershipstore.New(db),
		orgs:        organizationstore.New(db),
		details:     paymentdetailstore.New(db),
		infos:       paymentinfostore.New(db),
		addresses:   addressstore.New(db),
		relations:   relationstore.New(db, logger),
		cache:       c,
		ttl:         ttl,
		log:         logger,
	}
}

// Load returns the detail of personID, from cache when present.
// A missing person yields personstore.ErrNotFound.
func (l *Loader) Load(ctx context.Context, personID primitive.ObjectID) (models.PersonDetail, error) {
	return cache.Fetch(ctx, l.cache, cache.PersonKey(personID), l.ttl, l.log,
		func(ctx context.Context) (models.PersonDetail, error) {
			return l.load(ctx, personID)
		})
}

// LoadFresh reads the detail straight from MongoDB. Reconciliation uses it
// so a plan is never computed from a cached snapshot.
func (l *Loader) LoadFresh(ctx context.Context, personID primitive.ObjectID) (models.PersonDetail, error) {
	return l.load(ctx, personID)
}

// Invalidate drops the cached detail of personID and the cached person list.
func (l *Loader) Invalidate(ctx context.Context, personID primitive.ObjectID) {
	cache.Invalidate(ctx, l.cache, l.log, cache.PersonKey(personID), cache.PersonsListKey)
}

func (l *Loader) load(ctx context.Context, personID primitive.ObjectID) (models.PersonDetail, error) {
	p, err := l.persons.GetByID(ctx, personID)
	if err != nil {
		return models.PersonDetail{}, err
	}
	p.PasswordHash = nil
	detail := models.PersonDetail{Person: p}

	rows, err := l.memberships.ListByPerson(ctx, personID)
	if err != nil {
		return models.PersonDetail{}, err
	}

	var orgIDs []primitive.ObjectID
	seen := map[primitive.ObjectID]bool{}
	for _, m := range rows {
		if m.OrgHex() == "" || seen[*m.OrganizationID] {
			continue
		}
		seen[*m.OrganizationID] = true
		orgIDs = append(orgIDs, *m.OrganizationID)
	}
	orgs, err := l.orgs.GetByIDs(ctx, orgIDs)
	if err != nil {
		return models.PersonDetail{}, err
	}
	schedules, err := l.details.ListByOrgs(ctx, orgIDs)
	if err != nil {
		return models.PersonDetail{}, err
	}

	for _, m := range rows {
		md := models.MembershipDetail{Membership: m}
		if m.OrgHex() != "" {
			if org, ok := orgs[*m.OrganizationID]; ok {
				o := org
				md.Organization = &o
				md.PaymentDetails = schedules[org.ID]
			}
		}
		if m.Active {
			detail.Active = append(detail.Active, md)
		} else {
			detail.Inactive = append(detail.Inactive, md)
		}
	}

	if detail.PaymentInfos, err = l.infos.ListByPerson(ctx, personID); err != nil {
		return models.PersonDetail{}, err
	}
	if detail.Address, err = l.addresses.GetByPerson(ctx, personID); err != nil {
		return models.PersonDetail{}, err
	}

	rels, err := l.relations.ListByPerson(ctx, personID)
	if err != nil {
		return models.PersonDetail{}, err
	}
	relatedIDs := make([]primitive.ObjectID, 0, len(rels))
	for _, r := range rels {
		relatedIDs = append(relatedIDs, r.RelatedID)
	}
	names, err := l.persons.GetNames(ctx, relatedIDs)
	if err != nil {
		return models.PersonDetail{}, err
	}
	for _, r := range rels {
		detail.Relations = append(detail.Relations, models.RelationDetail{Relation: r, RelatedName: names[r.RelatedID]})
	}
	return detail, nil
}
