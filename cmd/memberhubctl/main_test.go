package main

import (
	"bytes"
	"context"
	"encoding/csv"
	"strings"
	"testing"
	"time"

	"github.com/dalemusser/memberhub/internal/app/bootstrap"
	membershipstore "github.com/dalemusser/memberhub/internal/app/store/memberships"
	"github.com/dalemusser/memberhub/internal/testutil"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// testCLI returns a cli bound to a fresh test database and its output buffer.
func testCLI(t *testing.T) (*cli, *mongo.Database, *bytes.Buffer) {
	t.Helper()
	db := testutil.SetupTestDB(t)
	out := &bytes.Buffer{}
	c := newCLI(out, zap.NewNop())
	c.connect = func(context.Context, bootstrap.AppConfig, *zap.Logger) (bootstrap.DBDeps, func(), error) {
		return bootstrap.DBDeps{MongoClient: db.Client(), MongoDatabase: db}, func() {}, nil
	}
	return c, db, out
}

func run(t *testing.T, c *cli, args ...string) error {
	t.Helper()
	root := newRootCmd(c)
	root.SetArgs(args)
	root.SetErr(&bytes.Buffer{})
	c.cfg.CacheTTL = time.Minute
	return root.Execute()
}

func TestRootCmd_Commands(t *testing.T) {
	root := newRootCmd(newCLI(&bytes.Buffer{}, zap.NewNop()))
	want := []string{"indexes", "create-admin", "export-persons", "reconcile"}
	for _, name := range want {
		if cmd, _, err := root.Find([]string{name}); err != nil || cmd.Name() != name {
			t.Errorf("command %q not registered", name)
		}
	}
}

func TestReconcileCmd_RejectsBadPerson(t *testing.T) {
	c := newCLI(&bytes.Buffer{}, zap.NewNop())
	c.connect = func(context.Context, bootstrap.AppConfig, *zap.Logger) (bootstrap.DBDeps, func(), error) {
		t.Fatal("must not connect with a malformed person id")
		return bootstrap.DBDeps{}, nil, nil
	}
	if err := run(t, c, "reconcile", "--person", "xyz"); err == nil {
		t.Error("expected an error")
	}
}

func TestReconcileCmd_DryRunAndApply(t *testing.T) {
	c, db, out := testCLI(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()
	fx := testutil.NewFixtures(t, db)
	p := fx.CreatePerson(ctx, "Ada", "Lovelace", "ada@example.org")
	a := fx.CreateOrganization(ctx, "Chess Club")
	b := fx.CreateOrganization(ctx, "Choir")
	fx.CreateMembership(ctx, p.ID, a.ID, true, time.Now())

	if err := run(t, c, "reconcile", "--person", p.ID.Hex(), "--org", b.ID.Hex(), "--dry-run"); err != nil {
		t.Fatalf("dry run: %v", err)
	}
	if !strings.Contains(out.String(), "leave   "+a.ID.Hex()) || !strings.Contains(out.String(), "join    "+b.ID.Hex()) {
		t.Errorf("dry-run output = %q", out.String())
	}
	rows, _ := membershipstore.New(db).ListByPerson(ctx, p.ID)
	if len(rows) != 1 || !rows[0].Active {
		t.Fatalf("dry run wrote: %+v", rows)
	}

	out.Reset()
	if err := run(t, c, "reconcile", "--person", p.ID.Hex(), "--org", b.ID.Hex()); err != nil {
		t.Fatalf("apply: %v", err)
	}
	if !strings.Contains(out.String(), "applied run") {
		t.Errorf("apply output = %q", out.String())
	}
	rows, _ = membershipstore.New(db).ListByPerson(ctx, p.ID)
	active := 0
	for _, m := range rows {
		if m.Active {
			active++
			if *m.OrganizationID != b.ID {
				t.Errorf("active membership in %s, want %s", m.OrganizationID.Hex(), b.ID.Hex())
			}
		}
	}
	if active != 1 || len(rows) != 2 {
		t.Errorf("rows = %d active = %d, want 2 and 1", len(rows), active)
	}
}

func TestReconcileCmd_UnknownOrganization(t *testing.T) {
	c, db, _ := testCLI(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()
	p := testutil.NewFixtures(t, db).CreatePerson(ctx, "Ada", "Lovelace", "ada@example.org")

	if err := run(t, c, "reconcile", "--person", p.ID.Hex(), "--org", "64b7f0f0f0f0f0f0f0f0f0f0"); err == nil {
		t.Error("expected an error for an unknown organization")
	}
}

func TestExportPersonsCmd(t *testing.T) {
	c, db, out := testCLI(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()
	fx := testutil.NewFixtures(t, db)
	org := fx.CreateOrganization(ctx, "Chess Club")
	ada := fx.CreatePerson(ctx, "Ada", "Lovelace", "ada@example.org")
	fx.CreatePerson(ctx, "Alan", "Turing", "alan@example.org")
	fx.CreateMembership(ctx, ada.ID, org.ID, true, time.Now())

	if err := run(t, c, "export-persons", "--active"); err != nil {
		t.Fatalf("export: %v", err)
	}
	records, err := csv.NewReader(out).ReadAll()
	if err != nil {
		t.Fatalf("read csv: %v", err)
	}
	if len(records) != 2 || records[1][0] != "Ada Lovelace" {
		t.Errorf("records = %v", records)
	}
}

func TestCreateAdminCmd(t *testing.T) {
	c, _, out := testCLI(t)
	if err := run(t, c, "create-admin", "--login", "root@example.org"); err == nil {
		t.Error("expected an error without --password for a new admin")
	}
	if err := run(t, c, "create-admin", "--login", "root@example.org", "--password", "correct-horse"); err != nil {
		t.Fatalf("create-admin: %v", err)
	}
	if !strings.Contains(out.String(), "created") {
		t.Errorf("output = %q", out.String())
	}
}
