package reconcile

import (
	"github.com/dalemusser/memberhub/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Snapshot is a person's membership state at the time a form was submitted.
type Snapshot struct {
	PersonID          primitive.ObjectID
	CurrentActive     []models.Membership
	PreviouslyRemoved []models.Membership
}

// FromDetail projects a person detail into a Snapshot.
// Memberships whose organization reference is missing are dropped.
func FromDetail(d models.PersonDetail) Snapshot {
	return Snapshot{
		PersonID:          d.Person.ID,
		CurrentActive:     keepLinked(d.Active),
		PreviouslyRemoved: keepLinked(d.Inactive),
	}
}

func keepLinked(in []models.MembershipDetail) []models.Membership {
	out := make([]models.Membership, 0, len(in))
	for _, md := range in {
		if md.Organization == nil || md.Membership.OrgHex() == "" {
			continue
		}
		out = append(out, md.Membership)
	}
	return out
}
