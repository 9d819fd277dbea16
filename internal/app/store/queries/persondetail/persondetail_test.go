package persondetail_test

import (
	"errors"
	"testing"
	"time"

	personstore "github.com/dalemusser/memberhub/internal/app/store/persons"
	"github.com/dalemusser/memberhub/internal/app/store/queries/persondetail"
	"github.com/dalemusser/memberhub/internal/app/system/cache"
	"github.com/dalemusser/memberhub/internal/testutil"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

func TestLoader_Load(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()
	fx := testutil.NewFixtures(t, db)

	p := fx.CreatePerson(ctx, "Ada", "Lovelace", "ada@example.org")
	chess := fx.CreateOrganization(ctx, "Chess")
	rowing := fx.CreateOrganization(ctx, "Rowing")
	active := fx.CreateMembership(ctx, p.ID, chess.ID, true, time.Now())
	fx.CreateMembership(ctx, p.ID, rowing.ID, false, time.Now())
	d := fx.CreatePaymentDetail(ctx, chess.ID, 2025, 3000)
	fx.CreatePaymentInfo(ctx, active, d)

	// A membership whose organization reference is gone.
	if _, err := db.Collection("memberships").InsertOne(ctx, bson.M{
		"_id": primitive.NewObjectID(), "person_id": p.ID, "organization_id": nil, "active": true,
	}); err != nil {
		t.Fatalf("insert orphan: %v", err)
	}

	l := persondetail.NewLoader(db, nil, time.Minute, zap.NewNop())
	got, err := l.Load(ctx, p.ID)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(got.Active) != 2 || len(got.Inactive) != 1 {
		t.Fatalf("active=%d inactive=%d", len(got.Active), len(got.Inactive))
	}
	var withOrg int
	for _, md := range got.Active {
		if md.Organization != nil {
			withOrg++
			if md.Organization.ID != chess.ID || len(md.PaymentDetails) != 1 {
				t.Errorf("active detail = %+v", md)
			}
		}
	}
	if withOrg != 1 {
		t.Errorf("active rows with organization = %d, want 1", withOrg)
	}
	if len(got.PaymentInfos) != 1 {
		t.Errorf("payment infos = %d", len(got.PaymentInfos))
	}

	if _, err := l.Load(ctx, primitive.NewObjectID()); !errors.Is(err, personstore.ErrNotFound) {
		t.Errorf("missing person: %v", err)
	}
}

func TestLoader_CachesUntilInvalidated(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()
	fx := testutil.NewFixtures(t, db)
	p := fx.CreatePerson(ctx, "Ada", "Lovelace", "ada@example.org")

	mem := cache.NewMemory()
	l := persondetail.NewLoader(db, mem, time.Minute, zap.NewNop())
	if _, err := l.Load(ctx, p.ID); err != nil {
		t.Fatalf("Load: %v", err)
	}

	// Change the database behind the cache's back.
	if _, err := db.Collection("persons").UpdateByID(ctx, p.ID, bson.M{"$set": bson.M{"first_name": "Augusta"}}); err != nil {
		t.Fatalf("update: %v", err)
	}
	got, _ := l.Load(ctx, p.ID)
	if got.Person.FirstName != "Ada" {
		t.Errorf("expected cached name, got %q", got.Person.FirstName)
	}

	l.Invalidate(ctx, p.ID)
	got, _ = l.Load(ctx, p.ID)
	if got.Person.FirstName != "Augusta" {
		t.Errorf("expected fresh name after Invalidate, got %q", got.Person.FirstName)
	}
}
