// internal/app/store/memberships/membershipstore.go
package membershipstore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dalemusser/memberhub/internal/domain/models"
	wafflemongo "github.com/dalemusser/waffle/pantry/mongo"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// ErrRowsMissing is returned when a batch keyed by membership id matched
// fewer rows than it named. Membership rows are never deleted, so this means
// the ids did not come from this person's snapshot.
var ErrRowsMissing = errors.New("membership rows missing")

// ErrDuplicateActive is returned when a write would leave a person with two
// active memberships in one organization. The partial unique index
// uniq_memberships_person_org_active rejects the second row.
var ErrDuplicateActive = errors.New("person already has an active membership in this organization")

// EndReasonEdited is recorded on rows deactivated from the person form.
const EndReasonEdited = "removed on edit"

type Store struct {
	c *mongo.Collection
}

func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection("memberships")}
}

// ListByPerson returns every membership row of personID, active or not,
// oldest first.
func (s *Store) ListByPerson(ctx context.Context, personID primitive.ObjectID) ([]models.Membership, error) {
	return s.find(ctx, bson.M{"person_id": personID},
		options.Find().SetSort(bson.D{{Key: "created_at", Value: 1}, {Key: "_id", Value: 1}}))
}

// ActiveOrgsByPerson maps every person with at least one active membership
// to the organizations of those memberships.
func (s *Store) ActiveOrgsByPerson(ctx context.Context) (map[primitive.ObjectID][]primitive.ObjectID, error) {
	rows, err := s.find(ctx, bson.M{"active": true, "organization_id": bson.M{"$ne": nil}},
		options.Find().SetProjection(bson.M{"person_id": 1, "organization_id": 1}))
	if err != nil {
		return nil, err
	}
	out := make(map[primitive.ObjectID][]primitive.ObjectID)
	for _, m := range rows {
		if m.OrganizationID == nil {
			continue
		}
		out[m.PersonID] = append(out[m.PersonID], *m.OrganizationID)
	}
	return out, nil
}

// PersonIDsByOrg returns the distinct persons with any membership row,
// active or historical, in orgID.
func (s *Store) PersonIDsByOrg(ctx context.Context, orgID primitive.ObjectID) ([]primitive.ObjectID, error) {
	raw, err := s.c.Distinct(ctx, "person_id", bson.M{"organization_id": orgID})
	if err != nil {
		return nil, err
	}
	out := make([]primitive.ObjectID, 0, len(raw))
	for _, v := range raw {
		if id, ok := v.(primitive.ObjectID); ok {
			out = append(out, id)
		}
	}
	return out, nil
}

// CountActiveByOrg counts active members of orgID.
func (s *Store) CountActiveByOrg(ctx context.Context, orgID primitive.ObjectID) (int64, error) {
	return s.c.CountDocuments(ctx, bson.M{"organization_id": orgID, "active": true})
}

// ExistsByOrg reports whether any membership row, active or historical,
// references orgID.
func (s *Store) ExistsByOrg(ctx context.Context, orgID primitive.ObjectID) (bool, error) {
	n, err := s.c.CountDocuments(ctx, bson.M{"organization_id": orgID}, options.Count().SetLimit(1))
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// Deactivate flips the named active rows to inactive and stamps the end
// date. Rows already inactive are left untouched, so repeating a call is
// harmless. It returns the number of rows changed.
func (s *Store) Deactivate(ctx context.Context, ids []primitive.ObjectID, at time.Time, reason string) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	res, err := s.c.UpdateMany(ctx,
		bson.M{"_id": bson.M{"$in": ids}, "active": true},
		bson.M{"$set": bson.M{
			"active":     false,
			"end_date":   at,
			"end_reason": reason,
			"updated_at": at,
		}})
	if err != nil {
		return 0, err
	}
	return res.ModifiedCount, nil
}

// Insert creates one active row per organization. The active flag is
// written explicitly; MongoDB has no column defaults.
func (s *Store) Insert(ctx context.Context, personID primitive.ObjectID, orgIDs []primitive.ObjectID, at time.Time) ([]models.Membership, error) {
	if len(orgIDs) == 0 {
		return nil, nil
	}
	rows := make([]models.Membership, 0, len(orgIDs))
	docs := make([]interface{}, 0, len(orgIDs))
	for _, oid := range orgIDs {
		org := oid
		m := models.Membership{
			ID:             primitive.NewObjectID(),
			PersonID:       personID,
			OrganizationID: &org,
			Active:         true,
			CreatedAt:      at,
			UpdatedAt:      at,
		}
		rows = append(rows, m)
		docs = append(docs, m)
	}
	if _, err := s.c.InsertMany(ctx, docs); err != nil {
		if wafflemongo.IsDup(err) {
			return nil, fmt.Errorf("%w: %w", ErrDuplicateActive, err)
		}
		return nil, err
	}
	return rows, nil
}

// Reactivate sets active=true on each named row, keyed by primary id, and
// clears its end date. Ids and PaymentInfo references are preserved.
func (s *Store) Reactivate(ctx context.Context, ids []primitive.ObjectID, at time.Time) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	writes := make([]mongo.WriteModel, 0, len(ids))
	for _, id := range ids {
		writes = append(writes, mongo.NewUpdateOneModel().
			SetFilter(bson.M{"_id": id}).
			SetUpdate(bson.M{
				"$set":   bson.M{"active": true, "updated_at": at},
				"$unset": bson.M{"end_date": "", "end_reason": ""},
			}))
	}
	res, err := s.c.BulkWrite(ctx, writes, options.BulkWrite().SetOrdered(false))
	if err != nil {
		if wafflemongo.IsDup(err) {
			return 0, fmt.Errorf("%w: %w", ErrDuplicateActive, err)
		}
		return 0, err
	}
	if res.MatchedCount < int64(len(ids)) {
		return res.ModifiedCount, fmt.Errorf("%w: matched %d of %d", ErrRowsMissing, res.MatchedCount, len(ids))
	}
	return res.ModifiedCount, nil
}

func (s *Store) find(ctx context.Context, filter bson.M, opts ...*options.FindOptions) ([]models.Membership, error) {
	cur, err := s.c.Find(ctx, filter, opts...)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var out []models.Membership
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}
