// internal/domain/models/membership.go
package models

import (
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Membership joins one Person to one Organization.
//
// Rows are created once (Join) and afterwards only toggled between active and
// inactive (Leave / Rejoin). They are never deleted: PaymentInfo rows hang off
// the membership id and must survive a leave/rejoin cycle.
//
// OrganizationID is a pointer because legacy rows may have lost their
// organization reference; readers skip such rows.
type Membership struct {
	ID             primitive.ObjectID  `bson:"_id,omitempty" json:"id"`
	PersonID       primitive.ObjectID  `bson:"person_id" json:"person_id"`
	OrganizationID *primitive.ObjectID `bson:"organization_id" json:"organization_id"`
	Active         bool                `bson:"active" json:"active"`
	EndDate        *time.Time          `bson:"end_date,omitempty" json:"end_date,omitempty"`
	EndReason      string              `bson:"end_reason,omitempty" json:"end_reason,omitempty"`
	CreatedAt      time.Time           `bson:"created_at" json:"created_at"`
	UpdatedAt      time.Time           `bson:"updated_at" json:"updated_at"`
}

// MembershipState is the explicit state of a membership row.
type MembershipState int

const (
	// MembershipNone means no row exists for the (person, organization) pair.
	MembershipNone MembershipState = iota
	MembershipActive
	MembershipInactive
)

func (s MembershipState) String() string {
	switch s {
	case MembershipActive:
		return "active"
	case MembershipInactive:
		return "inactive"
	}
	return "none"
}

// MembershipTransition is an edge of the membership state machine.
type MembershipTransition string

const (
	TransitionJoin   MembershipTransition = "join"
	TransitionLeave  MembershipTransition = "leave"
	TransitionRejoin MembershipTransition = "rejoin"
)

// ErrInvalidTransition is returned when a transition does not apply to a state.
// There is deliberately no transition out of a row's existence.
var ErrInvalidTransition = errors.New("invalid membership transition")

// Next returns the state reached by applying t to s.
func (s MembershipState) Next(t MembershipTransition) (MembershipState, error) {
	switch {
	case s == MembershipNone && t == TransitionJoin:
		return MembershipActive, nil
	case s == MembershipActive && t == TransitionLeave:
		return MembershipInactive, nil
	case s == MembershipInactive && t == TransitionRejoin:
		return MembershipActive, nil
	}
	return s, ErrInvalidTransition
}

// State returns the state of a persisted row.
func (m Membership) State() MembershipState {
	if m.Active {
		return MembershipActive
	}
	return MembershipInactive
}

// OrgHex returns the organization id as hex, or "" when the reference is missing.
func (m Membership) OrgHex() string {
	if m.OrganizationID == nil || m.OrganizationID.IsZero() {
		return ""
	}
	return m.OrganizationID.Hex()
}
