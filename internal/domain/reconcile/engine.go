package reconcile

import (
	"sort"

	"github.com/dalemusser/memberhub/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Compute diffs snap against desired.
//
//   - every active row whose organization is not desired is deactivated
//   - every desired organization with an inactive row and no active row is
//     reactivated, one row per organization
//   - every desired organization with no row at all is created
//
// Desired organizations that already have an active row produce nothing, so
// computing again after a successful apply yields an empty plan.
func Compute(personID primitive.ObjectID, desired Desired, snap Snapshot) (Plan, error) {
	if personID.IsZero() {
		return Plan{}, &ValidationError{Field: "person_id", Reason: "is required"}
	}
	if !snap.PersonID.IsZero() && snap.PersonID != personID {
		return Plan{}, &ValidationError{Field: "person_id", Value: personID.Hex(), Reason: "does not match the membership snapshot"}
	}

	plan := Plan{PersonID: personID}

	active := make(map[string]bool, len(snap.CurrentActive))
	for _, m := range snap.CurrentActive {
		org := m.OrgHex()
		if org == "" {
			continue
		}
		active[org] = true
		if !desired.Has(org) {
			plan.Deactivate = append(plan.Deactivate, Change{MembershipID: m.ID, OrganizationID: *m.OrganizationID})
		}
	}

	removed := groupByOrg(snap.PreviouslyRemoved)

	for _, orgID := range desired.IDs() {
		org := orgID.Hex()
		if active[org] {
			continue
		}
		rows, ok := removed[org]
		if !ok {
			plan.Create = append(plan.Create, orgID)
			continue
		}
		chosen := pickHistorical(rows)
		plan.Reactivate = append(plan.Reactivate, Change{MembershipID: chosen.ID, OrganizationID: orgID})
		if len(rows) > 1 {
			ids := make([]primitive.ObjectID, len(rows))
			for i, r := range rows {
				ids[i] = r.ID
			}
			plan.Anomalies = append(plan.Anomalies, Anomaly{OrganizationID: orgID, MembershipIDs: ids, Chosen: chosen.ID})
		}
	}

	sortChanges(plan.Deactivate)
	sortChanges(plan.Reactivate)
	return plan, nil
}

func groupByOrg(ms []models.Membership) map[string][]models.Membership {
	out := make(map[string][]models.Membership)
	for _, m := range ms {
		org := m.OrgHex()
		if org == "" {
			continue
		}
		out[org] = append(out[org], m)
	}
	return out
}

// pickHistorical selects the row to reactivate among several inactive rows
// for one organization: the most recently updated, then the newest id.
func pickHistorical(rows []models.Membership) models.Membership {
	sorted := append([]models.Membership(nil), rows...)
	sort.SliceStable(sorted, func(i, j int) bool {
		if !sorted[i].UpdatedAt.Equal(sorted[j].UpdatedAt) {
			return sorted[i].UpdatedAt.After(sorted[j].UpdatedAt)
		}
		return sorted[i].ID.Hex() > sorted[j].ID.Hex()
	})
	return sorted[0]
}
