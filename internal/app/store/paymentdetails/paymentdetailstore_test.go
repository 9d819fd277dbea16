package paymentdetailstore_test

import (
	"errors"
	"testing"
	"time"

	paymentdetailstore "github.com/dalemusser/memberhub/internal/app/store/paymentdetails"
	"github.com/dalemusser/memberhub/internal/domain/models"
	"github.com/dalemusser/memberhub/internal/testutil"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func TestStore_Lifecycle(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := paymentdetailstore.New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	org := testutil.NewFixtures(t, db).CreateOrganization(ctx, "Chess")
	deadline := time.Date(2025, 3, 31, 0, 0, 0, 0, time.UTC)

	d24, err := store.Create(ctx, models.PaymentDetail{OrganizationID: org.ID, Year: 2024, Amount: 2500})
	if err != nil {
		t.Fatalf("Create 2024: %v", err)
	}
	d25, err := store.Create(ctx, models.PaymentDetail{OrganizationID: org.ID, Year: 2025, Amount: 3000, LateFee: 500, Deadline: &deadline})
	if err != nil {
		t.Fatalf("Create 2025: %v", err)
	}

	list, err := store.ListByOrg(ctx, org.ID)
	if err != nil {
		t.Fatalf("ListByOrg: %v", err)
	}
	if len(list) != 2 || list[0].ID != d25.ID || list[1].ID != d24.ID {
		t.Fatalf("ListByOrg order = %+v", list)
	}

	d24.Amount = 2750
	if err := store.Update(ctx, d24.ID, d24); err != nil {
		t.Fatalf("Update: %v", err)
	}
	got, _ := store.GetByID(ctx, d24.ID)
	if got.Amount != 2750 {
		t.Errorf("Amount = %d", got.Amount)
	}

	if err := store.SoftDelete(ctx, d24.ID); err != nil {
		t.Fatalf("SoftDelete: %v", err)
	}
	if err := store.SoftDelete(ctx, d24.ID); !errors.Is(err, paymentdetailstore.ErrNotFound) {
		t.Errorf("second SoftDelete: %v", err)
	}
	if err := store.Update(ctx, d24.ID, d24); !errors.Is(err, paymentdetailstore.ErrNotFound) {
		t.Errorf("Update deleted: %v", err)
	}

	byOrg, err := store.ListByOrgs(ctx, []primitive.ObjectID{org.ID})
	if err != nil {
		t.Fatalf("ListByOrgs: %v", err)
	}
	if len(byOrg[org.ID]) != 1 || byOrg[org.ID][0].ID != d25.ID {
		t.Errorf("ListByOrgs = %+v", byOrg)
	}

	// The row itself survives.
	if got, err := store.GetByID(ctx, d24.ID); err != nil || !got.Deleted {
		t.Errorf("soft-deleted row = %+v, %v", got, err)
	}
}
