package membersync

import (
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/dalemusser/memberhub/internal/app/store/audit"
	membershipstore "github.com/dalemusser/memberhub/internal/app/store/memberships"
	organizationstore "github.com/dalemusser/memberhub/internal/app/store/organizations"
	paymentinfostore "github.com/dalemusser/memberhub/internal/app/store/paymentinfos"
	"github.com/dalemusser/memberhub/internal/app/store/queries/persondetail"
	"github.com/dalemusser/memberhub/internal/app/system/auditlog"
	"github.com/dalemusser/memberhub/internal/app/system/cache"
	"github.com/dalemusser/memberhub/internal/app/system/indexes"
	"github.com/dalemusser/memberhub/internal/app/system/metrics"
	"github.com/dalemusser/memberhub/internal/domain/models"
	"github.com/dalemusser/memberhub/internal/domain/reconcile"
	"github.com/dalemusser/memberhub/internal/testutil"
	promtest "github.com/prometheus/client_golang/prometheus/testutil"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

type env struct {
	db          *mongo.Database
	fx          *testutil.Fixtures
	memberships *membershipstore.Store
	applier     *Applier
	syncer      *Syncer
	metrics     *metrics.Metrics
	audit       *audit.Store
	cache       *cache.Memory
}

func newEnv(t *testing.T) *env {
	t.Helper()
	db := testutil.SetupTestDB(t)
	mem := cache.NewMemory()
	m := metrics.New()
	auditStore := audit.New(db)
	memberships := membershipstore.New(db)
	applier := NewApplier(db.Client(), memberships, Options{
		Cache:   mem,
		Audit:   auditlog.New(auditStore, zap.NewNop(), auditlog.Config{Admin: auditlog.DestDB}),
		Metrics: m,
	})
	loader := persondetail.NewLoader(db, mem, time.Minute, zap.NewNop())
	return &env{
		db:          db,
		fx:          testutil.NewFixtures(t, db),
		memberships: memberships,
		applier:     applier,
		syncer:      NewSyncer(loader, organizationstore.New(db), applier),
		metrics:     m,
		audit:       auditStore,
		cache:       mem,
	}
}

func byOrg(rows []models.Membership) map[primitive.ObjectID][]models.Membership {
	out := map[primitive.ObjectID][]models.Membership{}
	for _, r := range rows {
		out[*r.OrganizationID] = append(out[*r.OrganizationID], r)
	}
	return out
}

func TestReconcile_RemoveAndAdd(t *testing.T) {
	e := newEnv(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	p := e.fx.CreatePerson(ctx, "Ada", "Lovelace", "ada@example.com")
	a := e.fx.CreateOrganization(ctx, "Chess Club")
	b := e.fx.CreateOrganization(ctx, "Choir")
	old := e.fx.CreateMembership(ctx, p.ID, a.ID, true, time.Now().Add(-time.Hour))

	plan, res, err := e.syncer.Reconcile(ctx, p.ID, []string{b.ID.Hex()}, nil)
	if err != nil {
		t.Fatalf("Reconcile: %v", err)
	}
	if len(plan.Deactivate) != 1 || len(plan.Create) != 1 || len(plan.Reactivate) != 0 {
		t.Fatalf("unexpected plan %+v", plan)
	}
	if res.RunID == "" || res.Deactivated != 1 || len(res.Created) != 1 {
		t.Errorf("unexpected result %+v", res)
	}

	rows, _ := e.memberships.ListByPerson(ctx, p.ID)
	got := byOrg(rows)
	if len(got[a.ID]) != 1 || got[a.ID][0].ID != old.ID || got[a.ID][0].Active {
		t.Errorf("old membership should be kept inactive, got %+v", got[a.ID])
	}
	if got[a.ID][0].EndReason != membershipstore.EndReasonEdited || got[a.ID][0].EndDate == nil {
		t.Errorf("deactivated row missing end stamp: %+v", got[a.ID][0])
	}
	if len(got[b.ID]) != 1 || !got[b.ID][0].Active {
		t.Errorf("new membership should be active, got %+v", got[b.ID])
	}

	if v := promtest.ToFloat64(e.metrics.Transitions.WithLabelValues("leave")); v != 1 {
		t.Errorf("leave transitions = %v, want 1", v)
	}
	if v := promtest.ToFloat64(e.metrics.Transitions.WithLabelValues("join")); v != 1 {
		t.Errorf("join transitions = %v, want 1", v)
	}
}

func TestReconcile_ReactivatePreservesPaymentHistory(t *testing.T) {
	e := newEnv(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	p := e.fx.CreatePerson(ctx, "Grace", "Hopper", "grace@example.com")
	org := e.fx.CreateOrganization(ctx, "Rowing")
	old := e.fx.CreateMembership(ctx, p.ID, org.ID, false, time.Now().Add(-48*time.Hour))
	detail := e.fx.CreatePaymentDetail(ctx, org.ID, 2025, 2500)
	e.fx.CreatePaymentInfo(ctx, old, detail)

	plan, res, err := e.syncer.Reconcile(ctx, p.ID, []string{org.ID.Hex()}, nil)
	if err != nil {
		t.Fatalf("Reconcile: %v", err)
	}
	if len(plan.Reactivate) != 1 || plan.Reactivate[0].MembershipID != old.ID {
		t.Fatalf("expected reactivation of %s, got %+v", old.ID.Hex(), plan)
	}
	if res.Reactivated != 1 {
		t.Errorf("Reactivated = %d, want 1", res.Reactivated)
	}

	rows, _ := e.memberships.ListByPerson(ctx, p.ID)
	if len(rows) != 1 || rows[0].ID != old.ID || !rows[0].Active {
		t.Fatalf("expected the same row reactivated, got %+v", rows)
	}
	if rows[0].EndDate != nil || rows[0].EndReason != "" {
		t.Errorf("end stamp should be cleared: %+v", rows[0])
	}
	n, err := paymentinfostore.New(e.db).CountByMembership(ctx, old.ID)
	if err != nil {
		t.Fatalf("CountByMembership: %v", err)
	}
	if n != 1 {
		t.Errorf("payment infos for membership = %d, want 1", n)
	}
}

func TestReconcile_DuplicateHistoryReactivatesLatest(t *testing.T) {
	e := newEnv(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	p := e.fx.CreatePerson(ctx, "Alan", "Turing", "alan@example.com")
	org := e.fx.CreateOrganization(ctx, "Running")
	older := e.fx.CreateMembership(ctx, p.ID, org.ID, false, time.Now().Add(-72*time.Hour))
	newer := e.fx.CreateMembership(ctx, p.ID, org.ID, false, time.Now().Add(-24*time.Hour))

	plan, _, err := e.syncer.Reconcile(ctx, p.ID, []string{org.ID.Hex()}, nil)
	if err != nil {
		t.Fatalf("Reconcile: %v", err)
	}
	if len(plan.Anomalies) != 1 {
		t.Fatalf("expected one anomaly, got %+v", plan.Anomalies)
	}

	rows, _ := e.memberships.ListByPerson(ctx, p.ID)
	for _, r := range rows {
		switch r.ID {
		case newer.ID:
			if !r.Active {
				t.Error("newest historical row should be reactivated")
			}
		case older.ID:
			if r.Active {
				t.Error("older historical row should stay inactive")
			}
		}
	}

	if v := promtest.ToFloat64(e.metrics.Anomalies); v != 1 {
		t.Errorf("anomalies = %v, want 1", v)
	}
	events, _ := e.audit.Query(ctx, audit.QueryFilter{PersonID: &p.ID, EventType: audit.EventReconcileAnomaly})
	if len(events) != 1 || events[0].Details["chosen"] != newer.ID.Hex() {
		t.Errorf("anomaly audit = %+v", events)
	}
}

func TestReconcile_Idempotent(t *testing.T) {
	e := newEnv(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	p := e.fx.CreatePerson(ctx, "Edsger", "Dijkstra", "ed@example.com")
	a := e.fx.CreateOrganization(ctx, "A")
	b := e.fx.CreateOrganization(ctx, "B")
	e.fx.CreateMembership(ctx, p.ID, a.ID, false, time.Now().Add(-time.Hour))
	desired := []string{a.ID.Hex(), b.ID.Hex()}

	if _, _, err := e.syncer.Reconcile(ctx, p.ID, desired, nil); err != nil {
		t.Fatalf("first Reconcile: %v", err)
	}
	first, _ := e.memberships.ListByPerson(ctx, p.ID)

	plan, _, err := e.syncer.Reconcile(ctx, p.ID, desired, nil)
	if err != nil {
		t.Fatalf("second Reconcile: %v", err)
	}
	if !plan.Empty() {
		t.Errorf("second plan should be empty, got %+v", plan)
	}
	second, _ := e.memberships.ListByPerson(ctx, p.ID)
	if len(first) != len(second) {
		t.Errorf("row count changed from %d to %d", len(first), len(second))
	}
}

func TestReconcile_ConcurrentMode(t *testing.T) {
	e := newEnv(t)
	e.applier.forceConcurrent = true
	ctx, cancel := testutil.TestContext()
	defer cancel()

	p := e.fx.CreatePerson(ctx, "Barbara", "Liskov", "bl@example.com")
	a := e.fx.CreateOrganization(ctx, "A")
	b := e.fx.CreateOrganization(ctx, "B")
	c := e.fx.CreateOrganization(ctx, "C")
	e.fx.CreateMembership(ctx, p.ID, a.ID, true, time.Now().Add(-time.Hour))
	e.fx.CreateMembership(ctx, p.ID, b.ID, false, time.Now().Add(-time.Hour))

	_, res, err := e.syncer.Reconcile(ctx, p.ID, []string{b.ID.Hex(), c.ID.Hex()}, nil)
	if err != nil {
		t.Fatalf("Reconcile: %v", err)
	}
	if res.Mode != ModeConcurrent {
		t.Errorf("Mode = %s, want concurrent", res.Mode)
	}

	rows, _ := e.memberships.ListByPerson(ctx, p.ID)
	active := map[primitive.ObjectID]bool{}
	for _, r := range rows {
		if r.Active {
			active[*r.OrganizationID] = true
		}
	}
	if active[a.ID] || !active[b.ID] || !active[c.ID] {
		t.Errorf("active organizations = %v", active)
	}
}

func TestApply_PartialFailure(t *testing.T) {
	e := newEnv(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	p := e.fx.CreatePerson(ctx, "Ken", "Thompson", "ken@example.com")
	org := e.fx.CreateOrganization(ctx, "Unix")
	ghostOrg := primitive.NewObjectID()

	// The reactivation names a row that does not exist.
	plan := reconcile.Plan{
		PersonID:   p.ID,
		Reactivate: []reconcile.Change{{MembershipID: primitive.NewObjectID(), OrganizationID: ghostOrg}},
		Create:     []primitive.ObjectID{org.ID},
	}

	e.applier.forceConcurrent = true
	res, err := e.applier.Apply(ctx, plan, nil)
	var pf *PartialFailure
	if !errors.As(err, &pf) {
		t.Fatalf("expected PartialFailure, got %v", err)
	}
	if got := pf.FailedBatches(); len(got) != 1 || got[0] != string(BatchReactivate) {
		t.Errorf("failed = %v", got)
	}
	if got := pf.AppliedBatches(); len(got) != 1 || got[0] != string(BatchCreate) {
		t.Errorf("applied = %v", got)
	}
	if !errors.Is(err, membershipstore.ErrRowsMissing) {
		t.Errorf("expected ErrRowsMissing in chain, got %v", err)
	}
	if len(res.Created) != 1 {
		t.Errorf("create batch should have landed, got %+v", res)
	}
	if v := promtest.ToFloat64(e.metrics.BatchErrors.WithLabelValues("reactivate")); v != 1 {
		t.Errorf("batch errors = %v, want 1", v)
	}
	events, _ := e.audit.Query(ctx, audit.QueryFilter{PersonID: &p.ID, EventType: audit.EventReconcilePartialFailed})
	if len(events) != 1 {
		t.Errorf("partial failure audit events = %d, want 1", len(events))
	}
}

func TestApply_TransactionRollsBack(t *testing.T) {
	e := newEnv(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	p := e.fx.CreatePerson(ctx, "Dennis", "Ritchie", "dmr@example.com")
	org := e.fx.CreateOrganization(ctx, "C")
	plan := reconcile.Plan{
		PersonID:   p.ID,
		Reactivate: []reconcile.Change{{MembershipID: primitive.NewObjectID(), OrganizationID: primitive.NewObjectID()}},
		Create:     []primitive.ObjectID{org.ID},
	}

	res, err := e.applier.Apply(ctx, plan, nil)
	if res.Mode != ModeTransaction {
		t.Skip("MongoDB deployment does not support transactions")
	}
	var pe *PersistenceError
	if !errors.As(err, &pe) || pe.Batch != BatchReactivate {
		t.Fatalf("expected reactivate PersistenceError, got %v", err)
	}
	rows, _ := e.memberships.ListByPerson(ctx, p.ID)
	if len(rows) != 0 {
		t.Errorf("transaction should roll back the create batch, found %d rows", len(rows))
	}
}

func TestApply_OverlappingSubmissionsKeepOneActiveRow(t *testing.T) {
	for _, concurrent := range []bool{false, true} {
		t.Run(fmt.Sprintf("concurrent=%v", concurrent), func(t *testing.T) {
			e := newEnv(t)
			e.applier.forceConcurrent = concurrent
			ctx, cancel := testutil.TestContext()
			defer cancel()
			if err := indexes.EnsureAll(ctx, e.db); err != nil {
				t.Fatalf("EnsureAll: %v", err)
			}

			p := e.fx.CreatePerson(ctx, "Edsger", "Dijkstra", "ewd@example.com")
			org := e.fx.CreateOrganization(ctx, "Algol")

			// Both submissions plan against the same empty snapshot.
			first, _, err := e.syncer.Plan(ctx, p.ID, []string{org.ID.Hex()})
			if err != nil {
				t.Fatalf("Plan: %v", err)
			}
			second, _, err := e.syncer.Plan(ctx, p.ID, []string{org.ID.Hex()})
			if err != nil {
				t.Fatalf("Plan: %v", err)
			}
			if len(first.Create) != 1 || len(second.Create) != 1 {
				t.Fatalf("both plans should create, got %+v / %+v", first, second)
			}

			if _, err := e.applier.Apply(ctx, first, nil); err != nil {
				t.Fatalf("first Apply: %v", err)
			}
			_, err = e.applier.Apply(ctx, second, nil)
			if !errors.Is(err, membershipstore.ErrDuplicateActive) {
				t.Fatalf("second Apply err = %v, want ErrDuplicateActive", err)
			}
			var pe *PersistenceError
			if !errors.As(err, &pe) || pe.Batch != BatchCreate {
				t.Errorf("expected create PersistenceError, got %v", err)
			}
			if msg := Describe(err); !strings.Contains(msg, "another submission") {
				t.Errorf("Describe = %q", msg)
			}

			n, err := e.memberships.CountActiveByOrg(ctx, org.ID)
			if err != nil || n != 1 {
				t.Errorf("active rows = %d, %v, want 1", n, err)
			}
		})
	}
}

func TestReconcile_UnknownOrganization(t *testing.T) {
	e := newEnv(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	p := e.fx.CreatePerson(ctx, "Niklaus", "Wirth", "nw@example.com")
	_, _, err := e.syncer.Reconcile(ctx, p.ID, []string{primitive.NewObjectID().Hex()}, nil)
	var ve *reconcile.ValidationError
	if !errors.As(err, &ve) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
	rows, _ := e.memberships.ListByPerson(ctx, p.ID)
	if len(rows) != 0 {
		t.Errorf("nothing should be written, found %d rows", len(rows))
	}
}

func TestApply_InvalidatesCache(t *testing.T) {
	e := newEnv(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	p := e.fx.CreatePerson(ctx, "John", "Backus", "jb@example.com")
	org := e.fx.CreateOrganization(ctx, "Fortran")
	_ = e.cache.Set(ctx, cache.PersonKey(p.ID), []byte(`{}`), time.Minute)
	_ = e.cache.Set(ctx, cache.OrganizationKey(org.ID), []byte(`{}`), time.Minute)
	_ = e.cache.Set(ctx, cache.PersonsListKey, []byte(`[]`), time.Minute)

	if _, _, err := e.syncer.Reconcile(ctx, p.ID, []string{org.ID.Hex()}, nil); err != nil {
		t.Fatalf("Reconcile: %v", err)
	}
	if n := e.cache.Len(); n != 0 {
		t.Errorf("cache entries after apply = %d, want 0", n)
	}
}

func TestDescribe(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{"nil", nil, ""},
		{"validation", &reconcile.ValidationError{Field: "organizations", Value: "x", Reason: "not a valid organization id"},
			`Membership selection is invalid: organizations "x": not a valid organization id.`},
		{"persistence", &PersistenceError{Batch: BatchCreate, Err: errors.New("boom")},
			"Saving memberships failed (create). Nothing was changed."},
		{"partial", &PartialFailure{
			Failed:  []*PersistenceError{{Batch: BatchCreate, Err: errors.New("boom")}},
			Applied: []Batch{BatchDeactivate},
		}, "Memberships were only partly saved. Failed: create. Saved: deactivate. Submit the form again to finish."},
		{"concurrent submission", &PersistenceError{Batch: BatchCreate, Err: fmt.Errorf("%w: E11000", membershipstore.ErrDuplicateActive)},
			"These memberships were changed by another submission at the same time. Nothing was changed; reload the page to see the current memberships."},
		{"other", errors.New("x"), "Saving memberships failed."},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Describe(tt.err); got != tt.want {
				t.Errorf("Describe() = %q, want %q", got, tt.want)
			}
		})
	}
}
