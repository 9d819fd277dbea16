package testutil

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/dalemusser/memberhub/internal/domain/models"
	"github.com/dalemusser/waffle/pantry/text"
	"github.com/go-chi/chi/v5"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"golang.org/x/crypto/bcrypt"
)

// WithChiURLParam adds a chi URL parameter to the request context.
func WithChiURLParam(r *http.Request, key, value string) *http.Request {
	rctx := chi.RouteContext(r.Context())
	if rctx == nil {
		rctx = chi.NewRouteContext()
	}
	rctx.URLParams.Add(key, value)
	return r.WithContext(context.WithValue(r.Context(), chi.RouteCtxKey, rctx))
}

// Fixtures inserts test data directly into collections.
type Fixtures struct {
	db *mongo.Database
	t  *testing.T
}

// NewFixtures creates a Fixtures for db.
func NewFixtures(t *testing.T, db *mongo.Database) *Fixtures {
	t.Helper()
	return &Fixtures{db: db, t: t}
}

// DB returns the underlying database.
func (f *Fixtures) DB() *mongo.Database { return f.db }

func (f *Fixtures) insert(ctx context.Context, coll string, doc any) {
	f.t.Helper()
	if _, err := f.db.Collection(coll).InsertOne(ctx, doc); err != nil {
		f.t.Fatalf("insert into %s: %v", coll, err)
	}
}

// CreateOrganization inserts an active organization.
func (f *Fixtures) CreateOrganization(ctx context.Context, name string) models.Organization {
	f.t.Helper()
	now := time.Now().UTC()
	org := models.Organization{
		ID:                 primitive.NewObjectID(),
		Name:               name,
		NameCI:             text.Fold(name),
		BankAccount:        "NL00TEST0123456789",
		RegistrationNumber: "REG-" + name,
		Status:             "active",
		CreatedAt:          now,
		UpdatedAt:          now,
	}
	f.insert(ctx, "organizations", org)
	return org
}

// CreatePerson inserts an active person without a login.
func (f *Fixtures) CreatePerson(ctx context.Context, first, last, email string) models.Person {
	f.t.Helper()
	now := time.Now().UTC()
	p := models.Person{
		ID:         primitive.NewObjectID(),
		FirstName:  first,
		LastName:   last,
		FullNameCI: text.Fold(first + " " + last),
		Email:      email,
		EmailCI:    text.Fold(email),
		Roles:      []string{models.RoleMember},
		Status:     "active",
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	f.insert(ctx, "persons", p)
	return p
}

// CreatePersonWithLogin inserts an active person who can sign in.
// bcrypt runs at minimum cost to keep tests fast.
func (f *Fixtures) CreatePersonWithLogin(ctx context.Context, first, last, loginID, password, role string) models.Person {
	f.t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	if err != nil {
		f.t.Fatalf("hash password: %v", err)
	}
	now := time.Now().UTC()
	lid, lidCI, h := loginID, text.Fold(loginID), string(hash)
	p := models.Person{
		ID:           primitive.NewObjectID(),
		FirstName:    first,
		LastName:     last,
		FullNameCI:   text.Fold(first + " " + last),
		Email:        loginID + "@example.org",
		EmailCI:      text.Fold(loginID + "@example.org"),
		LoginID:      &lid,
		LoginIDCI:    &lidCI,
		PasswordHash: &h,
		Roles:        []string{role},
		Status:       "active",
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	f.insert(ctx, "persons", p)
	return p
}

// DisablePerson flips a fixture person to disabled.
func (f *Fixtures) DisablePerson(ctx context.Context, id primitive.ObjectID) {
	f.t.Helper()
	if _, err := f.db.Collection("persons").UpdateByID(ctx, id,
		map[string]any{"$set": map[string]any{"status": "disabled"}}); err != nil {
		f.t.Fatalf("disable person: %v", err)
	}
}

// CreateMembership inserts a membership row with the given state and UpdatedAt.
func (f *Fixtures) CreateMembership(ctx context.Context, personID, orgID primitive.ObjectID, active bool, updatedAt time.Time) models.Membership {
	f.t.Helper()
	oid := orgID
	m := models.Membership{
		ID:             primitive.NewObjectID(),
		PersonID:       personID,
		OrganizationID: &oid,
		Active:         active,
		CreatedAt:      updatedAt,
		UpdatedAt:      updatedAt,
	}
	if !active {
		end := updatedAt
		m.EndDate = &end
	}
	f.insert(ctx, "memberships", m)
	return m
}

// CreatePaymentDetail inserts a due definition for orgID.
func (f *Fixtures) CreatePaymentDetail(ctx context.Context, orgID primitive.ObjectID, year int, amount int64) models.PaymentDetail {
	f.t.Helper()
	now := time.Now().UTC()
	d := models.PaymentDetail{
		ID:             primitive.NewObjectID(),
		OrganizationID: orgID,
		Year:           year,
		Amount:         amount,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	f.insert(ctx, "payment_details", d)
	return d
}

// CreatePaymentInfo inserts a paid record for membership m against detail d.
func (f *Fixtures) CreatePaymentInfo(ctx context.Context, m models.Membership, d models.PaymentDetail) models.PaymentInfo {
	f.t.Helper()
	now := time.Now().UTC()
	pi := models.PaymentInfo{
		ID:              primitive.NewObjectID(),
		MembershipID:    m.ID,
		PaymentDetailID: d.ID,
		PersonID:        m.PersonID,
		AmountPaid:      d.Amount,
		State:           models.PaymentPaid,
		PaidAt:          &now,
		UpdatedAt:       now,
	}
	f.insert(ctx, "payment_infos", pi)
	return pi
}
