package addressstore_test

import (
	"testing"

	addressstore "github.com/dalemusser/memberhub/internal/app/store/addresses"
	"github.com/dalemusser/memberhub/internal/domain/models"
	"github.com/dalemusser/memberhub/internal/testutil"
)

func TestStore_UpsertAndClear(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := addressstore.New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	p := testutil.NewFixtures(t, db).CreatePerson(ctx, "Ada", "Lovelace", "ada@example.org")

	got, err := store.GetByPerson(ctx, p.ID)
	if err != nil || got != nil {
		t.Fatalf("empty GetByPerson = %+v, %v", got, err)
	}

	addr := models.Address{PersonID: p.ID, Street: " Main St 1 ", City: "Utrecht", Country: "NL"}
	if err := store.Upsert(ctx, addr); err != nil {
		t.Fatalf("Upsert: %v", err)
	}
	addr.PostalCode = "3511 AA"
	if err := store.Upsert(ctx, addr); err != nil {
		t.Fatalf("second Upsert: %v", err)
	}
	n, _ := db.Collection("addresses").CountDocuments(ctx, map[string]any{"person_id": p.ID})
	if n != 1 {
		t.Fatalf("address rows = %d, want 1", n)
	}
	got, _ = store.GetByPerson(ctx, p.ID)
	if got == nil || got.Street != "Main St 1" || got.PostalCode != "3511 AA" {
		t.Fatalf("GetByPerson = %+v", got)
	}

	// Blank form clears.
	if err := store.Upsert(ctx, models.Address{PersonID: p.ID}); err != nil {
		t.Fatalf("blank Upsert: %v", err)
	}
	if got, _ := store.GetByPerson(ctx, p.ID); got != nil {
		t.Errorf("address not cleared: %+v", got)
	}
}
