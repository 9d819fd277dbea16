// internal/app/store/paymentdetails/paymentdetailstore.go
package paymentdetailstore

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

var ErrNotFound = errors.New("payment detail not found")

type Store struct {
	c *mongo.Collection
}

func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection("payment_details")}
}

// Create inserts a due definition for d.OrganizationID.
func (s *Store) Create(ctx context.Context, d models.PaymentDetail) (models.PaymentDetail, error) {
	now := time.Now().UTC()
	d.ID = primitive.NewObjectID()
	d.Deleted = false
	d.CreatedAt, d.UpdatedAt = now, now
	if _, err := s.c.InsertOne(ctx, d); err != nil {
		return models.PaymentDetail{}, err
	}
	return d, nil
}

func (s *Store) GetByID(ctx context.Context, id primitive.ObjectID) (models.PaymentDetail, error) {
	var d models.PaymentDetail
	err := s.c.FindOne(ctx, bson.M{"_id": id}).Decode(&d)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return models.PaymentDetail{}, ErrNotFound
	}
	return d, err
}

// Update replaces year, amounts and deadline of a live (not deleted) detail.
func (s *Store) Update(ctx context.Context, id primitive.ObjectID, d models.PaymentDetail) error {
	set := bson.M{
		"year":       d.Year,
		"amount":     d.Amount,
		"late_fee":   d.LateFee,
		"updated_at": time.Now().UTC(),
	}
	update := bson.M{"$set": set}
	if d.Deadline != nil {
		set["deadline"] = *d.Deadline
	} else {
		update["$unset"] = bson.M{"deadline": ""}
	}
	res, err := s.c.UpdateOne(ctx, bson.M{"_id": id, "deleted": false}, update)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

// SoftDelete hides a detail from schedules. PaymentInfo rows that reference
// it are kept.
func (s *Store) SoftDelete(ctx context.Context, id primitive.ObjectID) error {
	res, err := s.c.UpdateOne(ctx, bson.M{"_id": id, "deleted": false},
		bson.M{"$set": bson.M{"deleted": true, "updated_at": time.Now().UTC()}})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

// ListByOrg returns live details of orgID, newest year first.
func (s *Store) ListByOrg(ctx context.Context, orgID primitive.ObjectID) ([]models.PaymentDetail, error) {
	return s.find(ctx, bson.M{"organization_id": orgID, "deleted": false})
}

// ListByOrgs groups live details by organization.
func (s *Store) ListByOrgs(ctx context.Context, orgIDs []primitive.ObjectID) (map[primitive.ObjectID][]models.PaymentDetail, error) {
	out := make(map[primitive.ObjectID][]models.PaymentDetail, len(orgIDs))
	if len(orgIDs) == 0 {
		return out, nil
	}
	rows, err := s.find(ctx, bson.M{"organization_id": bson.M{"$in": orgIDs}, "deleted": false})
	if err != nil {
		return nil, err
	}
	for _, d := range rows {
		out[d.OrganizationID] = append(out[d.OrganizationID], d)
	}
	return out, nil
}

func (s *Store) find(ctx context.Context, filter bson.M) ([]models.PaymentDetail, error) {
	cur, err := s.c.Find(ctx, filter, options.Find().SetSort(bson.D{{Key: "year", Value: -1}, {Key: "_id", Value: 1}}))
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var out []models.PaymentDetail
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}
