// internal/domain/models/address.go
package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Address is the single optional postal address of a person.
type Address struct {
	ID         primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	PersonID   primitive.ObjectID `bson:"person_id" json:"person_id"`
	Street     string             `bson:"street" json:"street"`
	PostalCode string             `bson:"postal_code" json:"postal_code"`
	City       string             `bson:"city" json:"city"`
	Country    string             `bson:"country" json:"country"`
	UpdatedAt  time.Time          `bson:"updated_at" json:"updated_at"`
}

// IsEmpty reports whether every field is blank.
func (a Address) IsEmpty() bool {
	return a.Street == "" && a.PostalCode == "" && a.City == "" && a.Country == ""
}
