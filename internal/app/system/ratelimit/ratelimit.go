// internal/app/system/ratelimit/ratelimit.go
package ratelimit

import (
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/dalemusser/waffle/pantry/text"
)

// Limiter counts events per key in fixed windows. Expired windows are
// swept lazily, so no background goroutine is needed. Safe for concurrent use.
type Limiter struct {
	mu        sync.Mutex
	windows   map[string]*window
	limit     int
	period    time.Duration
	now       func() time.Time
	lastSweep time.Time
}

type window struct {
	count   int
	expires time.Time
}

// New allows limit events per key in each period.
func New(limit int, period time.Duration) *Limiter {
	return &Limiter{
		windows: make(map[string]*window),
		limit:   limit,
		period:  period,
		now:     time.Now,
	}
}

// Allow records one event for key and reports whether it is within the limit.
func (l *Limiter) Allow(key string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	l.sweep(now)
	w, ok := l.windows[key]
	if !ok || !now.Before(w.expires) {
		l.windows[key] = &window{count: 1, expires: now.Add(l.period)}
		return true
	}
	if w.count >= l.limit {
		return false
	}
	w.count++
	return true
}

// Reset forgets key.
func (l *Limiter) Reset(key string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.windows, key)
}

// sweep drops expired windows at most once per period. Caller holds mu.
func (l *Limiter) sweep(now time.Time) {
	if now.Sub(l.lastSweep) < l.period {
		return
	}
	l.lastSweep = now
	for k, w := range l.windows {
		if !now.Before(w.expires) {
			delete(l.windows, k)
		}
	}
}

// ClientIP returns the first X-Forwarded-For hop, then X-Real-IP, then the
// remote address without its port.
func ClientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		if first, _, _ := strings.Cut(xff, ","); strings.TrimSpace(first) != "" {
			return strings.TrimSpace(first)
		}
	}
	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return strings.TrimSpace(xri)
	}
	if ip, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return ip
	}
	return r.RemoteAddr
}

// LoginLimiter throttles sign-in attempts per client address and per
// login id, so neither one address nor one targeted account can be tried
// without bound.
type LoginLimiter struct {
	byIP    *Limiter
	byLogin *Limiter
}

// Default sign-in limits.
const (
	DefaultIPAttempts    = 10
	DefaultIPPeriod      = time.Minute
	DefaultLoginAttempts = 5
	DefaultLoginPeriod   = 5 * time.Minute
)

func NewLoginLimiter() *LoginLimiter {
	return &LoginLimiter{
		byIP:    New(DefaultIPAttempts, DefaultIPPeriod),
		byLogin: New(DefaultLoginAttempts, DefaultLoginPeriod),
	}
}

// Check records an attempt. When it is refused, reason is the message to
// show on the form.
func (ll *LoginLimiter) Check(r *http.Request, loginID string) (ok bool, reason string) {
	if !ll.byIP.Allow(ClientIP(r)) {
		return false, "Too many sign-in attempts. Please wait a minute and try again."
	}
	if key := text.Fold(strings.TrimSpace(loginID)); key != "" && !ll.byLogin.Allow(key) {
		return false, "Too many sign-in attempts for this login. Please wait a few minutes."
	}
	return true, ""
}

// Succeeded clears the per-login counter after a correct password.
func (ll *LoginLimiter) Succeeded(loginID string) {
	if key := text.Fold(strings.TrimSpace(loginID)); key != "" {
		ll.byLogin.Reset(key)
	}
}
