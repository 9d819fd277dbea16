// internal/domain/models/personrelation.go
package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Relation kinds. Each kind has an inverse used for the mirrored row.
const (
	RelationParent  = "parent"
	RelationKid     = "kid"
	RelationSpouse  = "spouse"
	RelationSibling = "sibling"
	RelationOther   = "other"
)

// PersonRelation links PersonID to RelatedID. Every relation is stored as a
// pair of rows, one per direction, sharing PairID.
//
// CanAccess means PersonID may view RelatedID's data.
type PersonRelation struct {
	ID        primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	PairID    primitive.ObjectID `bson:"pair_id" json:"pair_id"`
	PersonID  primitive.ObjectID `bson:"person_id" json:"person_id"`
	RelatedID primitive.ObjectID `bson:"related_id" json:"related_id"`
	Kind      string             `bson:"kind" json:"kind"`
	CanAccess bool               `bson:"can_access" json:"can_access"`
	Note      string             `bson:"note,omitempty" json:"note,omitempty"`
	CreatedAt time.Time          `bson:"created_at" json:"created_at"`
}

// InverseRelationKind returns the kind of the mirrored row.
// Unknown kinds map to RelationOther.
func InverseRelationKind(kind string) string {
	switch kind {
	case RelationParent:
		return RelationKid
	case RelationKid:
		return RelationParent
	case RelationSpouse, RelationSibling:
		return kind
	}
	return RelationOther
}

// ValidRelationKind reports whether kind is known.
func ValidRelationKind(kind string) bool {
	switch kind {
	case RelationParent, RelationKid, RelationSpouse, RelationSibling, RelationOther:
		return true
	}
	return false
}
