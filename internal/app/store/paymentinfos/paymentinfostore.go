// internal/app/store/paymentinfos/paymentinfostore.go
package paymentinfostore

import (
	"context"
	"errors"
	"time"

	"github.com/dalemusser/memberhub/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

var errBadState = errors.New(`state must be "paid"|"unpaid"`)

type Store struct {
	c *mongo.Collection
}

func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection("payment_infos")}
}

// Mark is the input of Set.
type Mark struct {
	MembershipID    primitive.ObjectID
	PaymentDetailID primitive.ObjectID
	PersonID        primitive.ObjectID
	State           string
	AmountPaid      int64
	PaidAt          *time.Time
}

// Set records the payment state for (membership, detail), creating the row
// on first use. Marking unpaid clears the amount and date.
func (s *Store) Set(ctx context.Context, m Mark) (models.PaymentInfo, error) {
	if m.State != models.PaymentPaid && m.State != models.PaymentUnpaid {
		return models.PaymentInfo{}, errBadState
	}
	now := time.Now().UTC()
	set := bson.M{
		"person_id":  m.PersonID,
		"state":      m.State,
		"updated_at": now,
	}
	update := bson.M{
		"$set":         set,
		"$setOnInsert": bson.M{"_id": primitive.NewObjectID()},
	}
	if m.State == models.PaymentPaid {
		paidAt := now
		if m.PaidAt != nil {
			paidAt = m.PaidAt.UTC()
		}
		set["amount_paid"] = m.AmountPaid
		set["paid_at"] = paidAt
	} else {
		set["amount_paid"] = int64(0)
		update["$unset"] = bson.M{"paid_at": ""}
	}

	filter := bson.M{"membership_id": m.MembershipID, "payment_detail_id": m.PaymentDetailID}
	opts := options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.After)
	var out models.PaymentInfo
	if err := s.c.FindOneAndUpdate(ctx, filter, update, opts).Decode(&out); err != nil {
		return models.PaymentInfo{}, err
	}
	return out, nil
}

// ListByPerson returns every payment record of personID.
func (s *Store) ListByPerson(ctx context.Context, personID primitive.ObjectID) ([]models.PaymentInfo, error) {
	cur, err := s.c.Find(ctx, bson.M{"person_id": personID})
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var out []models.PaymentInfo
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// CountByMembership counts the payment records hanging off a membership row.
func (s *Store) CountByMembership(ctx context.Context, membershipID primitive.ObjectID) (int64, error) {
	return s.c.CountDocuments(ctx, bson.M{"membership_id": membershipID})
}
