package login_test

import (
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	uierrors "github.com/dalemusser/memberhub/internal/app/features/errors"
	"github.com/dalemusser/memberhub/internal/app/features/login"
	"github.com/dalemusser/memberhub/internal/app/store/audit"
	"github.com/dalemusser/memberhub/internal/app/system/auditlog"
	"github.com/dalemusser/memberhub/internal/app/system/auth"
	"github.com/dalemusser/memberhub/internal/app/system/ratelimit"
	"github.com/dalemusser/memberhub/internal/testutil"
	"go.uber.org/zap"
)

type env struct {
	h     *login.Handler
	fx    *testutil.Fixtures
	audit *audit.Store
}

func newEnv(t *testing.T) env {
	t.Helper()
	db := testutil.SetupTestDB(t)
	logger := zap.NewNop()
	sessionMgr, err := auth.NewSessionManager("test-session-key-for-testing-only-0123", "test-session", "", time.Hour, false, logger)
	if err != nil {
		t.Fatalf("NewSessionManager failed: %v", err)
	}
	store := audit.New(db)
	al := auditlog.New(store, logger, auditlog.Config{Auth: auditlog.DestDB})
	return env{
		h:     login.NewHandler(db, sessionMgr, uierrors.NewErrorLogger(logger), al, logger),
		fx:    testutil.NewFixtures(t, db),
		audit: store,
	}
}

func post(h *login.Handler, form url.Values) *httptest.ResponseRecorder {
	req := httptest.NewRequest("POST", "/login", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec := httptest.NewRecorder()
	func() {
		// The form re-render needs a booted template engine.
		defer func() { _ = recover() }()
		h.HandleLoginPost(rec, req)
	}()
	return rec
}

func hasCookie(rec *httptest.ResponseRecorder, name string) bool {
	for _, c := range rec.Result().Cookies() {
		if c.Name == name {
			return true
		}
	}
	return false
}

func TestHandleLoginPost_Success(t *testing.T) {
	e := newEnv(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	e.fx.CreatePersonWithLogin(ctx, "Ada", "Admin", "admin@example.com", "correct-horse", "admin")
	e.fx.CreatePersonWithLogin(ctx, "Mia", "Member", "mia@example.com", "correct-horse", "member")

	tests := []struct {
		name    string
		form    url.Values
		wantLoc string
	}{
		{"admin lands on persons", url.Values{"login_id": {"ADMIN@example.com"}, "password": {"correct-horse"}}, "/persons"},
		{"member lands on me", url.Values{"login_id": {"mia@example.com"}, "password": {"correct-horse"}}, "/me"},
		{"return url honoured", url.Values{"login_id": {"mia@example.com"}, "password": {"correct-horse"}, "return": {"/me/password"}}, "/me/password"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := post(e.h, tt.form)
			if rec.Code != http.StatusSeeOther {
				t.Fatalf("status = %d, want %d", rec.Code, http.StatusSeeOther)
			}
			if loc := rec.Header().Get("Location"); loc != tt.wantLoc {
				t.Errorf("Location = %q, want %q", loc, tt.wantLoc)
			}
			if !hasCookie(rec, "test-session") {
				t.Error("expected session cookie to be set")
			}
		})
	}
}

func TestHandleLoginPost_Failures(t *testing.T) {
	e := newEnv(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	e.fx.CreatePersonWithLogin(ctx, "Mia", "Member", "mia@example.com", "correct-horse", "member")
	off := e.fx.CreatePersonWithLogin(ctx, "Olaf", "Off", "olaf@example.com", "correct-horse", "member")
	e.fx.DisablePerson(ctx, off.ID)

	tests := []struct {
		name      string
		form      url.Values
		wantEvent string
	}{
		{"unknown login", url.Values{"login_id": {"nobody@example.com"}, "password": {"x"}}, audit.EventLoginFailedUserNotFound},
		{"wrong password", url.Values{"login_id": {"mia@example.com"}, "password": {"wrong-horse"}}, audit.EventLoginFailedWrongPassword},
		{"disabled person", url.Values{"login_id": {"olaf@example.com"}, "password": {"correct-horse"}}, audit.EventLoginFailedUserDisabled},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := post(e.h, tt.form)
			if rec.Code == http.StatusSeeOther {
				t.Fatalf("failed login must not redirect")
			}
			if hasCookie(rec, "test-session") {
				t.Error("failed login must not set a session cookie")
			}
			events, err := e.audit.Query(ctx, audit.QueryFilter{EventType: tt.wantEvent})
			if err != nil {
				t.Fatalf("Query: %v", err)
			}
			if len(events) != 1 || events[0].Success {
				t.Errorf("audit events for %s = %+v", tt.wantEvent, events)
			}
		})
	}
}

func TestHandleLoginPost_MissingFields(t *testing.T) {
	e := newEnv(t)
	rec := post(e.h, url.Values{"login_id": {"mia@example.com"}})
	if rec.Code == http.StatusSeeOther {
		t.Error("missing password must not sign in")
	}
}

func TestHandleLoginPost_RateLimited(t *testing.T) {
	e := newEnv(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()
	e.fx.CreatePersonWithLogin(ctx, "Mia", "Member", "mia@example.com", "correct-horse", "member")

	for i := 0; i < ratelimit.DefaultLoginAttempts; i++ {
		post(e.h, url.Values{"login_id": {"mia@example.com"}, "password": {"wrong-horse"}})
	}
	rec := post(e.h, url.Values{"login_id": {"mia@example.com"}, "password": {"correct-horse"}})
	if rec.Code == http.StatusSeeOther {
		t.Fatal("a throttled login must not sign in, even with the right password")
	}
	events, err := e.audit.Query(ctx, audit.QueryFilter{EventType: audit.EventLoginFailedRateLimited})
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	if len(events) != 1 {
		t.Errorf("rate limited events = %d, want 1", len(events))
	}
}
