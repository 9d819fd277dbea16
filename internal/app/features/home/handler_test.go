package home_test

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/dalemusser/memberhub/internal/app/features/home"
	"github.com/dalemusser/memberhub/internal/app/system/auth"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

func TestServeRoot_SignedInRedirects(t *testing.T) {
	h := home.NewHandler(zap.NewNop())
	tests := []struct {
		role string
		want string
	}{
		{"admin", "/persons"},
		{"member", "/me"},
	}
	for _, tt := range tests {
		t.Run(tt.role, func(t *testing.T) {
			req := auth.WithTestUser(httptest.NewRequest("GET", "/", nil),
				&auth.SessionUser{ID: primitive.NewObjectID().Hex(), Name: "Test", Role: tt.role})
			rec := httptest.NewRecorder()
			h.ServeRoot(rec, req)

			if rec.Code != http.StatusSeeOther {
				t.Fatalf("status = %d, want %d", rec.Code, http.StatusSeeOther)
			}
			if loc := rec.Header().Get("Location"); loc != tt.want {
				t.Errorf("Location = %q, want %q", loc, tt.want)
			}
		})
	}
}

func TestServeRoot_Anonymous(t *testing.T) {
	h := home.NewHandler(zap.NewNop())
	rec := httptest.NewRecorder()
	func() {
		defer func() { _ = recover() }()
		h.ServeRoot(rec, httptest.NewRequest("GET", "/", nil))
	}()
	if rec.Code == http.StatusSeeOther {
		t.Error("anonymous visitors should see the landing page")
	}
}
