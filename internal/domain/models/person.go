// internal/domain/models/person.go
package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Roles a person may hold. A person with no roles is a plain member record.
const (
	RoleAdmin  = "admin"
	RoleMember = "member"
)

// Person is a human record. It is never hard-deleted; Status toggles between
// "active" and "disabled".
//
// The login identity is optional: LoginID is nil for persons who cannot sign in.
type Person struct {
	ID         primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	FirstName  string             `bson:"first_name" json:"first_name"`
	LastName   string             `bson:"last_name" json:"last_name"`
	FullNameCI string             `bson:"full_name_ci" json:"full_name_ci"` // folded "first last"
	Email      string             `bson:"email" json:"email"`
	EmailCI    string             `bson:"email_ci" json:"email_ci"`
	Phone      string             `bson:"phone,omitempty" json:"phone,omitempty"`
	BirthDate  *time.Time         `bson:"birth_date,omitempty" json:"birth_date,omitempty"`
	Notes      string             `bson:"notes,omitempty" json:"notes,omitempty"`

	LoginID      *string  `bson:"login_id,omitempty" json:"login_id,omitempty"`
	LoginIDCI    *string  `bson:"login_id_ci,omitempty" json:"-"`
	PasswordHash *string  `bson:"password_hash,omitempty" json:"-"`
	Roles        []string `bson:"roles" json:"roles"`

	Status    string    `bson:"status" json:"status"` // active | disabled
	CreatedAt time.Time `bson:"created_at" json:"created_at"`
	UpdatedAt time.Time `bson:"updated_at" json:"updated_at"`
}

// FullName joins first and last name.
func (p Person) FullName() string {
	switch {
	case p.FirstName == "":
		return p.LastName
	case p.LastName == "":
		return p.FirstName
	}
	return p.FirstName + " " + p.LastName
}

// HasRole reports whether the person holds role.
func (p Person) HasRole(role string) bool {
	for _, r := range p.Roles {
		if r == role {
			return true
		}
	}
	return false
}

// HasLogin reports whether a login identity is linked.
func (p Person) HasLogin() bool {
	return p.LoginID != nil && *p.LoginID != ""
}
