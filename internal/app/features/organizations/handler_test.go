package organizations_test

import (
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	uierrors "github.com/dalemusser/memberhub/internal/app/features/errors"
	"github.com/dalemusser/memberhub/internal/app/features/organizations"
	"github.com/dalemusser/memberhub/internal/app/store/audit"
	membershipstore "github.com/dalemusser/memberhub/internal/app/store/memberships"
	organizationstore "github.com/dalemusser/memberhub/internal/app/store/organizations"
	"github.com/dalemusser/memberhub/internal/app/store/queries/orgsummary"
	"github.com/dalemusser/memberhub/internal/app/store/queries/persondetail"
	"github.com/dalemusser/memberhub/internal/app/system/auditlog"
	"github.com/dalemusser/memberhub/internal/app/system/cache"
	"github.com/dalemusser/memberhub/internal/app/system/membersync"
	"github.com/dalemusser/memberhub/internal/domain/models"
	"github.com/dalemusser/memberhub/internal/testutil"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

type env struct {
	h     *organizations.Handler
	fx    *testutil.Fixtures
	db    *mongo.Database
	audit *audit.Store
	cache *cache.Memory
}

func newEnv(t *testing.T) *env {
	t.Helper()
	db := testutil.SetupTestDB(t)
	logger := zap.NewNop()
	auditStore := audit.New(db)
	mem := cache.NewMemory()
	summary := orgsummary.NewLoader(db, mem, time.Minute, logger)
	h := organizations.NewHandler(db, summary, mem, uierrors.NewErrorLogger(logger),
		auditlog.New(auditStore, logger, auditlog.Config{Admin: auditlog.DestDB}), logger)
	return &env{h: h, fx: testutil.NewFixtures(t, db), db: db, audit: auditStore, cache: mem}
}

// serve calls fn, tolerating the panic raised when a template is rendered
// without a booted engine.
func serve(fn http.HandlerFunc, req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	func() {
		defer func() { _ = recover() }()
		fn(rec, req)
	}()
	return rec
}

func TestHandleCreate(t *testing.T) {
	tests := []struct {
		name      string
		form      url.Values
		wantCount int64
	}{
		{"valid", url.Values{"name": {"Chess Club"}, "bank_account": {"nl91 abna 0417 1643 00"}}, 1},
		{"missing name", url.Values{"bank_account": {"NL91ABNA0417164300"}}, 0},
		{"name too long", url.Values{"name": {strings.Repeat("x", 201)}}, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := newEnv(t)
			ctx, cancel := testutil.TestContext()
			defer cancel()

			rec := serve(e.h.HandleCreate, testutil.NewFormRequest("/organizations", tt.form, testutil.AdminUser()))

			n, err := e.db.Collection("organizations").CountDocuments(ctx, bson.M{})
			if err != nil {
				t.Fatalf("CountDocuments: %v", err)
			}
			if n != tt.wantCount {
				t.Errorf("organizations = %d, want %d", n, tt.wantCount)
			}
			if tt.wantCount == 1 && rec.Code != http.StatusSeeOther {
				t.Errorf("status = %d, want %d", rec.Code, http.StatusSeeOther)
			}
		})
	}
}

func TestHandleCreate_NormalizesBankAccount(t *testing.T) {
	e := newEnv(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	form := url.Values{"name": {"Choir"}, "bank_account": {"nl91 abna 0417 1643 00"}}
	serve(e.h.HandleCreate, testutil.NewFormRequest("/organizations", form, testutil.AdminUser()))

	var org models.Organization
	if err := e.db.Collection("organizations").FindOne(ctx, bson.M{"name": "Choir"}).Decode(&org); err != nil {
		t.Fatalf("FindOne: %v", err)
	}
	if org.BankAccount != "NL91ABNA0417164300" {
		t.Errorf("BankAccount = %q", org.BankAccount)
	}
	events, err := e.audit.Query(ctx, audit.QueryFilter{EventType: audit.EventOrgCreated})
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	if len(events) != 1 || events[0].OrganizationID == nil || *events[0].OrganizationID != org.ID {
		t.Errorf("org_created events = %+v", events)
	}
}

func TestHandleCreate_DuplicateName(t *testing.T) {
	e := newEnv(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()
	e.fx.CreateOrganization(ctx, "Chess Club")

	form := url.Values{"name": {"chess club"}}
	rec := serve(e.h.HandleCreate, testutil.NewFormRequest("/organizations", form, testutil.AdminUser()))

	if rec.Code == http.StatusSeeOther {
		t.Error("duplicate name should re-render the form")
	}
	n, _ := e.db.Collection("organizations").CountDocuments(ctx, bson.M{})
	if n != 1 {
		t.Errorf("organizations = %d, want 1", n)
	}
}

func TestHandleEdit_InvalidatesMemberCaches(t *testing.T) {
	e := newEnv(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	org := e.fx.CreateOrganization(ctx, "Chess Club")
	p := e.fx.CreatePerson(ctx, "Ada", "Lovelace", "ada@example.org")
	e.fx.CreateMembership(ctx, p.ID, org.ID, false, testNow())
	for _, k := range []string{cache.PersonKey(p.ID), cache.PersonsListKey, cache.OrganizationKey(org.ID)} {
		_ = e.cache.Set(ctx, k, []byte("{}"), 0)
	}

	req := testutil.NewFormRequest("/organizations/"+org.ID.Hex()+"/edit", url.Values{"name": {"Chess Society"}}, testutil.AdminUser())
	req = testutil.WithChiURLParam(req, "id", org.ID.Hex())
	rec := serve(e.h.HandleEdit, req)

	if rec.Code != http.StatusSeeOther {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusSeeOther)
	}
	if n := e.cache.Len(); n != 0 {
		t.Errorf("cache entries left = %d, want 0", n)
	}
	var got models.Organization
	if err := e.db.Collection("organizations").FindOne(ctx, bson.M{"_id": org.ID}).Decode(&got); err != nil {
		t.Fatalf("FindOne: %v", err)
	}
	if got.Name != "Chess Society" {
		t.Errorf("Name = %q", got.Name)
	}
}

func TestServeView_SummaryFollowsReconciliation(t *testing.T) {
	e := newEnv(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	org := e.fx.CreateOrganization(ctx, "Chess Club")
	p := e.fx.CreatePerson(ctx, "Ada", "Lovelace", "ada@example.org")

	req := testutil.NewAuthenticatedRequest(http.MethodGet, "/organizations/"+org.ID.Hex(), testutil.AdminUser())
	serve(e.h.ServeView, testutil.WithChiURLParam(req, "id", org.ID.Hex()))
	if _, ok, _ := e.cache.Get(ctx, cache.OrganizationKey(org.ID)); !ok {
		t.Fatal("viewing an organization should fill its cache entry")
	}

	applier := membersync.NewApplier(e.db.Client(), membershipstore.New(e.db), membersync.Options{Cache: e.cache})
	details := persondetail.NewLoader(e.db, e.cache, time.Minute, zap.NewNop())
	syncer := membersync.NewSyncer(details, organizationstore.New(e.db), applier)
	if _, _, err := syncer.Reconcile(ctx, p.ID, []string{org.ID.Hex()}, nil); err != nil {
		t.Fatalf("Reconcile: %v", err)
	}

	sum, err := e.h.Summary.Load(ctx, org.ID)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if sum.ActiveMembers != 1 || !sum.HasHistory {
		t.Errorf("summary after join = %+v, want 1 active member", sum)
	}
}

func TestHandleDelete(t *testing.T) {
	tests := []struct {
		name        string
		withHistory bool
		wantKept    bool
	}{
		{"unused organization is deleted", false, false},
		{"organization with history is kept", true, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := newEnv(t)
			ctx, cancel := testutil.TestContext()
			defer cancel()

			org := e.fx.CreateOrganization(ctx, "Chess Club")
			if tt.withHistory {
				p := e.fx.CreatePerson(ctx, "Ada", "Lovelace", "ada@example.org")
				e.fx.CreateMembership(ctx, p.ID, org.ID, false, testNow())
			}

			req := testutil.NewFormRequest("/organizations/"+org.ID.Hex()+"/delete", url.Values{}, testutil.AdminUser())
			req = testutil.WithChiURLParam(req, "id", org.ID.Hex())
			rec := serve(e.h.HandleDelete, req)

			if rec.Code != http.StatusSeeOther {
				t.Fatalf("status = %d, want %d", rec.Code, http.StatusSeeOther)
			}
			n, _ := e.db.Collection("organizations").CountDocuments(ctx, bson.M{"_id": org.ID})
			if kept := n == 1; kept != tt.wantKept {
				t.Errorf("kept = %v, want %v", kept, tt.wantKept)
			}
			if tt.wantKept && !strings.Contains(rec.Header().Get("Location"), "flash=") {
				t.Errorf("Location = %q, want a flash message", rec.Header().Get("Location"))
			}
		})
	}
}

func TestPaymentDetails_CreateEditDelete(t *testing.T) {
	e := newEnv(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()
	org := e.fx.CreateOrganization(ctx, "Chess Club")
	admin := testutil.AdminUser()

	// create
	req := testutil.NewFormRequest("/organizations/"+org.ID.Hex()+"/payments",
		url.Values{"year": {"2026"}, "amount": {"25,50"}, "late_fee": {"5"}, "deadline": {"2026-03-31"}}, admin)
	req = testutil.WithChiURLParam(req, "id", org.ID.Hex())
	if rec := serve(e.h.HandleCreatePayment, req); rec.Code != http.StatusSeeOther {
		t.Fatalf("create status = %d", rec.Code)
	}
	var d models.PaymentDetail
	if err := e.db.Collection("payment_details").FindOne(ctx, bson.M{"organization_id": org.ID}).Decode(&d); err != nil {
		t.Fatalf("FindOne: %v", err)
	}
	if d.Year != 2026 || d.Amount != 2550 || d.LateFee != 500 || d.Deadline == nil {
		t.Errorf("created = %+v", d)
	}

	// edit
	req = testutil.NewFormRequest("/", url.Values{"year": {"2026"}, "amount": {"30"}}, admin)
	req = testutil.WithChiURLParam(testutil.WithChiURLParam(req, "id", org.ID.Hex()), "pid", d.ID.Hex())
	if rec := serve(e.h.HandleEditPayment, req); rec.Code != http.StatusSeeOther {
		t.Fatalf("edit status = %d", rec.Code)
	}
	if err := e.db.Collection("payment_details").FindOne(ctx, bson.M{"_id": d.ID}).Decode(&d); err != nil {
		t.Fatalf("FindOne: %v", err)
	}
	if d.Amount != 3000 || d.LateFee != 0 || d.Deadline != nil {
		t.Errorf("edited = %+v", d)
	}

	// delete is soft
	req = testutil.NewFormRequest("/", url.Values{}, admin)
	req = testutil.WithChiURLParam(testutil.WithChiURLParam(req, "id", org.ID.Hex()), "pid", d.ID.Hex())
	if rec := serve(e.h.HandleDeletePayment, req); rec.Code != http.StatusSeeOther {
		t.Fatalf("delete status = %d", rec.Code)
	}
	if err := e.db.Collection("payment_details").FindOne(ctx, bson.M{"_id": d.ID}).Decode(&d); err != nil {
		t.Fatalf("FindOne after delete: %v", err)
	}
	if !d.Deleted {
		t.Error("payment detail should be marked deleted")
	}
}

func TestPaymentDetails_RejectsBadInput(t *testing.T) {
	tests := []struct {
		name string
		form url.Values
	}{
		{"missing year", url.Values{"amount": {"10"}}},
		{"year out of range", url.Values{"year": {"1200"}, "amount": {"10"}}},
		{"bad amount", url.Values{"year": {"2026"}, "amount": {"ten"}}},
		{"bad deadline", url.Values{"year": {"2026"}, "amount": {"10"}, "deadline": {"31/03/2026"}}},
		{"negative amount", url.Values{"year": {"2026"}, "amount": {"-25"}}},
		{"negative late fee", url.Values{"year": {"2026"}, "amount": {"25"}, "late_fee": {"-5"}}},
		{"overflowing amount", url.Values{"year": {"2026"}, "amount": {"184467440737095517"}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := newEnv(t)
			ctx, cancel := testutil.TestContext()
			defer cancel()
			org := e.fx.CreateOrganization(ctx, "Chess Club")

			req := testutil.NewFormRequest("/", tt.form, testutil.AdminUser())
			req = testutil.WithChiURLParam(req, "id", org.ID.Hex())
			serve(e.h.HandleCreatePayment, req)

			n, _ := e.db.Collection("payment_details").CountDocuments(ctx, bson.M{})
			if n != 0 {
				t.Errorf("payment details = %d, want 0", n)
			}
		})
	}
}

func TestPaymentDetails_OtherOrganization(t *testing.T) {
	e := newEnv(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()
	a := e.fx.CreateOrganization(ctx, "Chess Club")
	b := e.fx.CreateOrganization(ctx, "Choir")
	d := e.fx.CreatePaymentDetail(ctx, b.ID, 2026, 1000)

	req := testutil.NewFormRequest("/", url.Values{}, testutil.AdminUser())
	req = testutil.WithChiURLParam(testutil.WithChiURLParam(req, "id", a.ID.Hex()), "pid", d.ID.Hex())
	rec := serve(e.h.HandleDeletePayment, req)

	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusNotFound)
	}
}
