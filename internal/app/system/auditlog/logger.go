// internal/app/system/auditlog/logger.go
package auditlog

import (
	"context"
	"net"
	"net/http"
	"strings"

	"github.com/dalemusser/memberhub/internal/app/store/audit"
	"github.com/dalemusser/memberhub/internal/app/system/authz"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// Destinations for a category: "all" (MongoDB + zap), "db", "log" or "off".
const (
	DestAll = "all"
	DestDB  = "db"
	DestLog = "log"
	DestOff = "off"
)

// Config selects the destination per event category. Membership events
// follow Admin.
type Config struct {
	Auth  string
	Admin string
}

// Logger writes audit events to the audit store and to zap.
type Logger struct {
	store  *audit.Store
	zapLog *zap.Logger
	config Config
}

func New(store *audit.Store, zapLog *zap.Logger, config Config) *Logger {
	return &Logger{store: store, zapLog: zapLog, config: config}
}

// clientIP prefers the first X-Forwarded-For hop, then X-Real-IP, then the
// remote address without its port.
func clientIP(r *http.Request) string {
	if r == nil {
		return ""
	}
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		first, _, _ := strings.Cut(xff, ",")
		return strings.TrimSpace(first)
	}
	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return strings.TrimSpace(xri)
	}
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}

func (l *Logger) logToZap(event audit.Event) {
	fields := []zap.Field{
		zap.Bool("audit", true),
		zap.String("category", event.Category),
		zap.String("event_type", event.EventType),
		zap.Bool("success", event.Success),
	}
	if event.IP != "" {
		fields = append(fields, zap.String("ip", event.IP))
	}
	if event.PersonID != nil {
		fields = append(fields, zap.String("person_id", event.PersonID.Hex()))
	}
	if event.ActorID != nil {
		fields = append(fields, zap.String("actor_id", event.ActorID.Hex()))
	}
	if event.OrganizationID != nil {
		fields = append(fields, zap.String("organization_id", event.OrganizationID.Hex()))
	}
	if event.FailureReason != "" {
		fields = append(fields, zap.String("failure_reason", event.FailureReason))
	}
	for k, v := range event.Details {
		fields = append(fields, zap.String("detail_"+k, v))
	}

	if event.Success {
		l.zapLog.Info("audit event", fields...)
	} else {
		l.zapLog.Warn("audit event", fields...)
	}
}

func (l *Logger) destination(category string) string {
	var d string
	switch category {
	case audit.CategoryAuth:
		d = l.config.Auth
	case audit.CategoryAdmin, audit.CategoryMembership:
		d = l.config.Admin
	}
	if d == "" {
		return DestAll
	}
	return d
}

// Log records event according to the category's destination. A nil Logger
// is a no-op.
func (l *Logger) Log(ctx context.Context, event audit.Event) {
	if l == nil {
		return
	}
	dest := l.destination(event.Category)
	if dest == DestOff {
		return
	}
	if dest == DestAll || dest == DestLog {
		l.logToZap(event)
	}
	if (dest == DestAll || dest == DestDB) && l.store != nil {
		if err := l.store.Log(ctx, event); err != nil {
			l.zapLog.Error("failed to store audit event",
				zap.Error(err),
				zap.String("event_type", event.EventType))
		}
	}
}

func actorOf(r *http.Request) *primitive.ObjectID {
	if r == nil {
		return nil
	}
	if _, _, id, ok := authz.UserCtx(r); ok {
		return &id
	}
	return nil
}

func userAgent(r *http.Request) string {
	if r == nil {
		return ""
	}
	return r.UserAgent()
}

// --- Authentication ---

func (l *Logger) LoginSuccess(ctx context.Context, r *http.Request, personID primitive.ObjectID, loginID string) {
	l.Log(ctx, audit.Event{
		Category:  audit.CategoryAuth,
		EventType: audit.EventLoginSuccess,
		PersonID:  &personID,
		IP:        clientIP(r),
		UserAgent: userAgent(r),
		Success:   true,
		Details:   map[string]string{"login_id": loginID},
	})
}

// LoginFailed records a rejected sign-in. personID is nil when no person
// matched the login id.
func (l *Logger) LoginFailed(ctx context.Context, r *http.Request, eventType string, personID *primitive.ObjectID, loginID, reason string) {
	l.Log(ctx, audit.Event{
		Category:      audit.CategoryAuth,
		EventType:     eventType,
		PersonID:      personID,
		IP:            clientIP(r),
		UserAgent:     userAgent(r),
		FailureReason: reason,
		Details:       map[string]string{"login_id": loginID},
	})
}

func (l *Logger) Logout(ctx context.Context, r *http.Request, personID primitive.ObjectID) {
	l.Log(ctx, audit.Event{
		Category:  audit.CategoryAuth,
		EventType: audit.EventLogout,
		PersonID:  &personID,
		IP:        clientIP(r),
		UserAgent: userAgent(r),
		Success:   true,
	})
}

func (l *Logger) PasswordChanged(ctx context.Context, r *http.Request, personID primitive.ObjectID) {
	l.Log(ctx, audit.Event{
		Category:  audit.CategoryAuth,
		EventType: audit.EventPasswordChanged,
		PersonID:  &personID,
		ActorID:   actorOf(r),
		IP:        clientIP(r),
		UserAgent: userAgent(r),
		Success:   true,
	})
}

// --- Administration ---

// Admin records a successful admin action. The actor is taken from r.
func (l *Logger) Admin(ctx context.Context, r *http.Request, eventType string, personID, orgID *primitive.ObjectID, details map[string]string) {
	l.Log(ctx, audit.Event{
		Category:       audit.CategoryAdmin,
		EventType:      eventType,
		PersonID:       personID,
		OrganizationID: orgID,
		ActorID:        actorOf(r),
		IP:             clientIP(r),
		UserAgent:      userAgent(r),
		Success:        true,
		Details:        details,
	})
}

// --- Membership ---

// Membership records one membership transition applied by a reconciliation
// run. runID correlates the events of one submission.
func (l *Logger) Membership(ctx context.Context, actorID *primitive.ObjectID, eventType string, personID, orgID, membershipID primitive.ObjectID, runID string) {
	l.Log(ctx, audit.Event{
		Category:       audit.CategoryMembership,
		EventType:      eventType,
		PersonID:       &personID,
		OrganizationID: &orgID,
		ActorID:        actorID,
		Success:        true,
		Details: map[string]string{
			"membership_id": membershipID.Hex(),
			"run_id":        runID,
		},
	})
}

// ReconcileAnomaly records duplicate historical rows found for one
// organization and the row that was reactivated.
func (l *Logger) ReconcileAnomaly(ctx context.Context, actorID *primitive.ObjectID, personID, orgID, chosen primitive.ObjectID, rows []primitive.ObjectID, runID string) {
	hex := make([]string, 0, len(rows))
	for _, id := range rows {
		hex = append(hex, id.Hex())
	}
	l.Log(ctx, audit.Event{
		Category:       audit.CategoryMembership,
		EventType:      audit.EventReconcileAnomaly,
		PersonID:       &personID,
		OrganizationID: &orgID,
		ActorID:        actorID,
		Success:        true,
		Details: map[string]string{
			"chosen":        chosen.Hex(),
			"membership_id": strings.Join(hex, ","),
			"run_id":        runID,
		},
	})
}

// ReconcilePartialFailure records which batches of a run failed and which
// were applied.
func (l *Logger) ReconcilePartialFailure(ctx context.Context, actorID *primitive.ObjectID, personID primitive.ObjectID, failed, applied []string, reason, runID string) {
	l.Log(ctx, audit.Event{
		Category:      audit.CategoryMembership,
		EventType:     audit.EventReconcilePartialFailed,
		PersonID:      &personID,
		ActorID:       actorID,
		FailureReason: reason,
		Details: map[string]string{
			"failed":  strings.Join(failed, ","),
			"applied": strings.Join(applied, ","),
			"run_id":  runID,
		},
	})
}
