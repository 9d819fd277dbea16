// internal/domain/models/payment.go
package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// PaymentDetail is a due definition for one organization and year.
// Amounts are stored in cents.
type PaymentDetail struct {
	ID             primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	OrganizationID primitive.ObjectID `bson:"organization_id" json:"organization_id"`
	Year           int                `bson:"year" json:"year"`
	Amount         int64              `bson:"amount" json:"amount"`
	LateFee        int64              `bson:"late_fee" json:"late_fee"`
	Deadline       *time.Time         `bson:"deadline,omitempty" json:"deadline,omitempty"`
	Deleted        bool               `bson:"deleted" json:"deleted"`
	CreatedAt      time.Time          `bson:"created_at" json:"created_at"`
	UpdatedAt      time.Time          `bson:"updated_at" json:"updated_at"`
}

// Payment states.
const (
	PaymentPaid   = "paid"
	PaymentUnpaid = "unpaid"
)

// PaymentInfo records one person's status against one PaymentDetail.
// It is keyed by membership so it follows the membership row across
// leave/rejoin cycles.
type PaymentInfo struct {
	ID              primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	MembershipID    primitive.ObjectID `bson:"membership_id" json:"membership_id"`
	PaymentDetailID primitive.ObjectID `bson:"payment_detail_id" json:"payment_detail_id"`
	PersonID        primitive.ObjectID `bson:"person_id" json:"person_id"`
	AmountPaid      int64              `bson:"amount_paid" json:"amount_paid"`
	State           string             `bson:"state" json:"state"`
	PaidAt          *time.Time         `bson:"paid_at,omitempty" json:"paid_at,omitempty"`
	UpdatedAt       time.Time          `bson:"updated_at" json:"updated_at"`
}

// AmountDue returns the amount owed at the given time, adding the late fee
// once the deadline has passed.
func (d PaymentDetail) AmountDue(at time.Time) int64 {
	if d.Deadline != nil && at.After(*d.Deadline) {
		return d.Amount + d.LateFee
	}
	return d.Amount
}
