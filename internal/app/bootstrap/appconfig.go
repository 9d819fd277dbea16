// internal/app/bootstrap/appconfig.go
package bootstrap

import "time"

// AppConfig holds MemberHub's configuration. WAFFLE's CoreConfig covers the
// framework side (ports, TLS, log level); everything below is ours.
type AppConfig struct {
	// MongoDB
	MongoURI      string
	MongoDatabase string

	// Sessions
	SessionKey    string        // must be 32+ random characters in production
	SessionName   string        // cookie name (default: memberhub-session)
	SessionDomain string        // blank means current host
	SessionMaxAge time.Duration // cookie lifetime

	// Optional Redis read cache. Empty RedisAddr disables caching.
	RedisAddr     string
	RedisPassword string
	RedisDB       int
	CacheTTL      time.Duration

	// Audit destinations: all | db | log | off
	AuditLogAuth  string
	AuditLogAdmin string

	// Bootstrap admin, created or promoted at startup when AdminEmail is set.
	AdminEmail    string
	AdminPassword string

	// Bearer token for Prometheus scrapes of /metrics. Admin sessions
	// can always read it; blank means admins only.
	MetricsToken string

	// Handler timeouts; zero keeps the built-in defaults.
	TimeoutShort  time.Duration
	TimeoutMedium time.Duration
	TimeoutLong   time.Duration
}
