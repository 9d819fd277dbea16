package reconcile

import (
	"sort"

	"github.com/dalemusser/memberhub/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Change names an existing membership row and its organization.
type Change struct {
	MembershipID   primitive.ObjectID
	OrganizationID primitive.ObjectID
}

// Anomaly records an organization with more than one historical row that was
// selected for reactivation. Chosen is the row that will be reactivated; the
// others stay inactive.
type Anomaly struct {
	OrganizationID primitive.ObjectID
	MembershipIDs  []primitive.ObjectID
	Chosen         primitive.ObjectID
}

// Plan is the outcome of Compute. The three operation lists are disjoint by
// organization id.
type Plan struct {
	PersonID   primitive.ObjectID
	Deactivate []Change
	Create     []primitive.ObjectID
	Reactivate []Change
	Anomalies  []Anomaly
}

// Empty reports whether applying the plan would change nothing.
func (p Plan) Empty() bool {
	return len(p.Deactivate) == 0 && len(p.Create) == 0 && len(p.Reactivate) == 0
}

// DeactivateIDs returns the membership ids to deactivate.
func (p Plan) DeactivateIDs() []primitive.ObjectID { return membershipIDs(p.Deactivate) }

// ReactivateIDs returns the membership ids to reactivate.
func (p Plan) ReactivateIDs() []primitive.ObjectID { return membershipIDs(p.Reactivate) }

func membershipIDs(cs []Change) []primitive.ObjectID {
	out := make([]primitive.ObjectID, len(cs))
	for i, c := range cs {
		out[i] = c.MembershipID
	}
	return out
}

func sortChanges(cs []Change) {
	sort.Slice(cs, func(i, j int) bool {
		a, b := cs[i].OrganizationID.Hex(), cs[j].OrganizationID.Hex()
		if a != b {
			return a < b
		}
		return cs[i].MembershipID.Hex() < cs[j].MembershipID.Hex()
	})
}

// ApplyTo returns the snapshot that results from applying p to snap.
// newID supplies ids for created rows. It is used for dry runs.
func (p Plan) ApplyTo(snap Snapshot, newID func() primitive.ObjectID) Snapshot {
	deactivate := make(map[primitive.ObjectID]bool, len(p.Deactivate))
	for _, c := range p.Deactivate {
		deactivate[c.MembershipID] = true
	}
	reactivate := make(map[primitive.ObjectID]bool, len(p.Reactivate))
	for _, c := range p.Reactivate {
		reactivate[c.MembershipID] = true
	}

	out := Snapshot{PersonID: snap.PersonID}
	for _, m := range snap.CurrentActive {
		if deactivate[m.ID] {
			m.Active = false
			out.PreviouslyRemoved = append(out.PreviouslyRemoved, m)
			continue
		}
		out.CurrentActive = append(out.CurrentActive, m)
	}
	for _, m := range snap.PreviouslyRemoved {
		if reactivate[m.ID] {
			m.Active = true
			out.CurrentActive = append(out.CurrentActive, m)
			continue
		}
		out.PreviouslyRemoved = append(out.PreviouslyRemoved, m)
	}
	for _, org := range p.Create {
		org := org
		out.CurrentActive = append(out.CurrentActive, models.Membership{
			ID:             newID(),
			PersonID:       p.PersonID,
			OrganizationID: &org,
			Active:         true,
		})
	}
	return out
}
