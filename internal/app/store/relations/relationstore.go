// internal/app/store/relations/relationstore.go
package relationstore

import (
	"context"
	"errors"
	"time"

	"github.com/dalemusser/memberhub/internal/app/system/txn"
	"github.com/dalemusser/memberhub/internal/domain/models"
	wafflemongo "github.com/dalemusser/waffle/pantry/mongo"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"
)

var (
	ErrNotFound          = errors.New("relation not found")
	ErrDuplicateRelation = errors.New("these persons are already related")
	ErrSelfRelation      = errors.New("a person cannot be related to themselves")
	ErrBadKind           = errors.New("unknown relation kind")
)

type Store struct {
	c   *mongo.Collection
	log *zap.Logger
}

func New(db *mongo.Database, logger *zap.Logger) *Store {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Store{c: db.Collection("person_relations"), log: logger}
}

// NewRelation is the input of Add, seen from PersonID's side.
type NewRelation struct {
	PersonID  primitive.ObjectID
	RelatedID primitive.ObjectID
	Kind      string
	CanAccess bool
	Note      string
}

// Add stores both directions of a relation. The mirrored row gets the
// inverse kind and no access delegation. Both rows are written in one
// transaction when the deployment supports it; otherwise the first row is
// removed again if the second cannot be written.
func (s *Store) Add(ctx context.Context, in NewRelation) (models.PersonRelation, error) {
	if in.PersonID == in.RelatedID {
		return models.PersonRelation{}, ErrSelfRelation
	}
	if !models.ValidRelationKind(in.Kind) {
		return models.PersonRelation{}, ErrBadKind
	}

	now := time.Now().UTC()
	pair := primitive.NewObjectID()
	fwd := models.PersonRelation{
		ID: primitive.NewObjectID(), PairID: pair,
		PersonID: in.PersonID, RelatedID: in.RelatedID,
		Kind: in.Kind, CanAccess: in.CanAccess, Note: in.Note, CreatedAt: now,
	}
	rev := models.PersonRelation{
		ID: primitive.NewObjectID(), PairID: pair,
		PersonID: in.RelatedID, RelatedID: in.PersonID,
		Kind: models.InverseRelationKind(in.Kind), Note: in.Note, CreatedAt: now,
	}

	err := txn.Run(ctx, s.c.Database().Client(), func(sc mongo.SessionContext) error {
		_, err := s.c.InsertMany(sc, []interface{}{fwd, rev})
		return err
	})
	if errors.Is(err, txn.ErrNotSupported) {
		err = s.addCompensated(ctx, fwd, rev)
	}
	if err != nil {
		if wafflemongo.IsDup(err) {
			return models.PersonRelation{}, ErrDuplicateRelation
		}
		return models.PersonRelation{}, err
	}
	return fwd, nil
}

func (s *Store) addCompensated(ctx context.Context, fwd, rev models.PersonRelation) error {
	if _, err := s.c.InsertOne(ctx, fwd); err != nil {
		return err
	}
	if _, err := s.c.InsertOne(ctx, rev); err != nil {
		if _, derr := s.c.DeleteOne(ctx, bson.M{"_id": fwd.ID}); derr != nil {
			s.log.Error("relation pair left half-written",
				zap.String("pair_id", fwd.PairID.Hex()),
				zap.Error(derr))
		}
		return err
	}
	return nil
}

// Remove deletes both rows of the pair that id belongs to.
func (s *Store) Remove(ctx context.Context, id primitive.ObjectID) error {
	r, err := s.GetByID(ctx, id)
	if err != nil {
		return err
	}
	_, err = s.c.DeleteMany(ctx, bson.M{"pair_id": r.PairID})
	return err
}

// SetAccess toggles access delegation on a single direction.
func (s *Store) SetAccess(ctx context.Context, id primitive.ObjectID, canAccess bool) error {
	res, err := s.c.UpdateByID(ctx, id, bson.M{"$set": bson.M{"can_access": canAccess}})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *Store) GetByID(ctx context.Context, id primitive.ObjectID) (models.PersonRelation, error) {
	var r models.PersonRelation
	err := s.c.FindOne(ctx, bson.M{"_id": id}).Decode(&r)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return models.PersonRelation{}, ErrNotFound
	}
	return r, err
}

// ListByPerson returns the rows seen from personID's side.
func (s *Store) ListByPerson(ctx context.Context, personID primitive.ObjectID) ([]models.PersonRelation, error) {
	cur, err := s.c.Find(ctx, bson.M{"person_id": personID},
		options.Find().SetSort(bson.D{{Key: "created_at", Value: 1}}))
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var out []models.PersonRelation
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// CanAccess reports whether viewer has been delegated access to subject.
func (s *Store) CanAccess(ctx context.Context, viewer, subject primitive.ObjectID) (bool, error) {
	n, err := s.c.CountDocuments(ctx, bson.M{"person_id": viewer, "related_id": subject, "can_access": true},
		options.Count().SetLimit(1))
	return n > 0, err
}
