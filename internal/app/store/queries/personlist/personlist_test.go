package personlist_test

import (
	"net/http/httptest"
	"testing"
	"time"

	"github.com/dalemusser/memberhub/internal/app/store/queries/personlist"
	"github.com/dalemusser/memberhub/internal/testutil"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

func ids(rows []personlist.Row) []string {
	out := make([]string, len(rows))
	for i, r := range rows {
		out[i] = r.Name
	}
	return out
}

func equal(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func sampleRows() ([]personlist.Row, primitive.ObjectID) {
	choir := primitive.NewObjectID()
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	return []personlist.Row{
		{ID: primitive.NewObjectID(), Name: "Ada Lovelace", NameCI: "ada lovelace", EmailCI: "ada@example.com", Status: "active",
			LoginID: "ada@example.com", OrgIDs: []primitive.ObjectID{choir, primitive.NewObjectID()}, CreatedAt: base.Add(48 * time.Hour)},
		{ID: primitive.NewObjectID(), Name: "Zoë Zimmer", NameCI: "zoe zimmer", EmailCI: "zz@example.com", Status: "disabled",
			CreatedAt: base},
		{ID: primitive.NewObjectID(), Name: "Bob Brown", NameCI: "bob brown", EmailCI: "bob@club.org", Status: "active",
			OrgIDs: []primitive.ObjectID{choir}, CreatedAt: base.Add(24 * time.Hour)},
	}, choir
}

func TestApply(t *testing.T) {
	rows, choir := sampleRows()
	tests := []struct {
		name string
		f    personlist.Filter
		want []string
	}{
		{"no filter", personlist.Filter{}, []string{"Ada Lovelace", "Zoë Zimmer", "Bob Brown"}},
		{"folded name", personlist.Filter{Query: "ZOE"}, []string{"Zoë Zimmer"}},
		{"email", personlist.Filter{Query: "club.org"}, []string{"Bob Brown"}},
		{"status", personlist.Filter{Status: "disabled"}, []string{"Zoë Zimmer"}},
		{"active members", personlist.Filter{ActiveOnly: true}, []string{"Ada Lovelace", "Bob Brown"}},
		{"organization", personlist.Filter{OrgID: choir.Hex()}, []string{"Ada Lovelace", "Bob Brown"}},
		{"linked login", personlist.Filter{Login: "linked"}, []string{"Ada Lovelace"}},
		{"no login", personlist.Filter{Login: "none"}, []string{"Zoë Zimmer", "Bob Brown"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ids(personlist.Apply(rows, tt.f)); !equal(got, tt.want) {
				t.Errorf("Apply() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestSort(t *testing.T) {
	tests := []struct {
		o    personlist.Order
		want []string
	}{
		{personlist.Order{Field: personlist.SortName}, []string{"Ada Lovelace", "Bob Brown", "Zoë Zimmer"}},
		{personlist.Order{Field: personlist.SortName, Desc: true}, []string{"Zoë Zimmer", "Bob Brown", "Ada Lovelace"}},
		{personlist.Order{Field: personlist.SortEmail}, []string{"Ada Lovelace", "Bob Brown", "Zoë Zimmer"}},
		{personlist.Order{Field: personlist.SortCreated}, []string{"Zoë Zimmer", "Bob Brown", "Ada Lovelace"}},
		{personlist.Order{Field: personlist.SortOrgs, Desc: true}, []string{"Ada Lovelace", "Bob Brown", "Zoë Zimmer"}},
	}
	for _, tt := range tests {
		rows, _ := sampleRows()
		personlist.Sort(rows, tt.o)
		if got := ids(rows); !equal(got, tt.want) {
			t.Errorf("Sort(%+v) = %v, want %v", tt.o, got, tt.want)
		}
	}
}

func TestFromRequest(t *testing.T) {
	r := httptest.NewRequest("GET", "/persons?q=ada&status=Active&active=on&login=linked&sort=orgs&dir=desc", nil)
	f := personlist.FilterFromRequest(r)
	if f.Query != "ada" || f.Status != "active" || !f.ActiveOnly || f.Login != "linked" {
		t.Errorf("FilterFromRequest = %+v", f)
	}
	o := personlist.OrderFromRequest(r)
	if o.Field != personlist.SortOrgs || !o.Desc {
		t.Errorf("OrderFromRequest = %+v", o)
	}
	if o := personlist.OrderFromRequest(httptest.NewRequest("GET", "/persons?sort=bogus", nil)); o.Field != personlist.SortName {
		t.Errorf("unknown sort field should fall back to name, got %+v", o)
	}
}

func TestLoader_Rows(t *testing.T) {
	db := testutil.SetupTestDB(t)
	fx := testutil.NewFixtures(t, db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	choir := fx.CreateOrganization(ctx, "Choir")
	chess := fx.CreateOrganization(ctx, "Chess")
	ada := fx.CreatePerson(ctx, "Ada", "Lovelace", "ada@example.com")
	fx.CreatePerson(ctx, "Bob", "Brown", "bob@example.com")
	fx.CreateMembership(ctx, ada.ID, choir.ID, true, time.Now())
	fx.CreateMembership(ctx, ada.ID, chess.ID, false, time.Now())

	rows, err := personlist.NewLoader(db, nil, time.Minute, zap.NewNop()).Rows(ctx)
	if err != nil {
		t.Fatalf("Rows: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("rows = %d, want 2", len(rows))
	}
	for _, r := range rows {
		if r.ID == ada.ID && (len(r.OrgNames) != 1 || r.OrgNames[0] != "Choir") {
			t.Errorf("Ada's organizations = %v, want [Choir]", r.OrgNames)
		}
	}
}
