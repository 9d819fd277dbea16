// internal/domain/models/organization.go
package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Organization is a sub-club with its own bank account and payment schedule.
// NameCI is the folded name used for search, sort and uniqueness.
type Organization struct {
	ID                 primitive.ObjectID `bson:"_id" json:"id"`
	Name               string             `bson:"name" json:"name"`
	NameCI             string             `bson:"name_ci" json:"name_ci"`
	BankAccount        string             `bson:"bank_account" json:"bank_account"`
	RegistrationNumber string             `bson:"registration_number" json:"registration_number"`
	Status             string             `bson:"status" json:"status"`
	CreatedAt          time.Time          `bson:"created_at" json:"created_at"`
	UpdatedAt          time.Time          `bson:"updated_at" json:"updated_at"`
}
