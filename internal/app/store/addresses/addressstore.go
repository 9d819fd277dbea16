// internal/app/store/addresses/addressstore.go
package addressstore

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/dalemusser/memberhub/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type Store struct {
	c *mongo.Collection
}

func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection("addresses")}
}

// GetByPerson returns the address of personID, or nil when none is stored.
func (s *Store) GetByPerson(ctx context.Context, personID primitive.ObjectID) (*models.Address, error) {
	var a models.Address
	err := s.c.FindOne(ctx, bson.M{"person_id": personID}).Decode(&a)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &a, nil
}

// Upsert stores a as the address of a.PersonID. An all-blank address clears
// the stored one instead.
func (s *Store) Upsert(ctx context.Context, a models.Address) error {
	a.Street = strings.TrimSpace(a.Street)
	a.PostalCode = strings.TrimSpace(a.PostalCode)
	a.City = strings.TrimSpace(a.City)
	a.Country = strings.TrimSpace(a.Country)
	if a.IsEmpty() {
		return s.Clear(ctx, a.PersonID)
	}
	_, err := s.c.UpdateOne(ctx,
		bson.M{"person_id": a.PersonID},
		bson.M{
			"$set": bson.M{
				"street":      a.Street,
				"postal_code": a.PostalCode,
				"city":        a.City,
				"country":     a.Country,
				"updated_at":  time.Now().UTC(),
			},
			"$setOnInsert": bson.M{"_id": primitive.NewObjectID()},
		},
		options.Update().SetUpsert(true))
	return err
}

// Clear removes the address of personID, if any.
func (s *Store) Clear(ctx context.Context, personID primitive.ObjectID) error {
	_, err := s.c.DeleteOne(ctx, bson.M{"person_id": personID})
	return err
}
