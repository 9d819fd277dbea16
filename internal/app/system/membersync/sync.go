package membersync

import (
	"context"

	organizationstore "github.com/dalemusser/memberhub/internal/app/store/organizations"
	"github.com/dalemusser/memberhub/internal/app/store/queries/persondetail"
	"github.com/dalemusser/memberhub/internal/domain/reconcile"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Syncer runs the whole reconciliation for one submission: read the
// person's memberships, parse the desired organizations, compute the plan
// and apply it.
type Syncer struct {
	details *persondetail.Loader
	orgs    *organizationstore.Store
	applier *Applier
}

func NewSyncer(details *persondetail.Loader, orgs *organizationstore.Store, applier *Applier) *Syncer {
	return &Syncer{details: details, orgs: orgs, applier: applier}
}

// Plan computes the plan for moving personID to the organizations named by
// orgIDs without writing anything. Unknown organizations are a
// ValidationError.
func (s *Syncer) Plan(ctx context.Context, personID primitive.ObjectID, orgIDs []string) (reconcile.Plan, reconcile.Snapshot, error) {
	desired, err := reconcile.ParseDesired(orgIDs)
	if err != nil {
		return reconcile.Plan{}, reconcile.Snapshot{}, err
	}
	if err := s.checkOrganizations(ctx, desired); err != nil {
		return reconcile.Plan{}, reconcile.Snapshot{}, err
	}

	detail, err := s.details.LoadFresh(ctx, personID)
	if err != nil {
		return reconcile.Plan{}, reconcile.Snapshot{}, err
	}
	snap := reconcile.FromDetail(detail)
	plan, err := reconcile.Compute(personID, desired, snap)
	return plan, snap, err
}

// Reconcile computes and applies the plan for personID.
func (s *Syncer) Reconcile(ctx context.Context, personID primitive.ObjectID, orgIDs []string, actor *primitive.ObjectID) (reconcile.Plan, Result, error) {
	plan, _, err := s.Plan(ctx, personID, orgIDs)
	if err != nil {
		return plan, Result{}, err
	}
	res, err := s.applier.Apply(ctx, plan, actor)
	return plan, res, err
}

func (s *Syncer) checkOrganizations(ctx context.Context, desired reconcile.Desired) error {
	ids := desired.IDs()
	if len(ids) == 0 {
		return nil
	}
	found, err := s.orgs.GetByIDs(ctx, ids)
	if err != nil {
		return err
	}
	var missing []string
	for _, id := range ids {
		if _, ok := found[id]; !ok {
			missing = append(missing, id.Hex())
		}
	}
	if len(missing) == 0 {
		return nil
	}
	return &reconcile.ValidationError{Field: "organizations", Value: missing[0], Reason: "does not exist"}
}
