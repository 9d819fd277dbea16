// internal/app/bootstrap/services.go
package bootstrap

import (
	"github.com/dalemusser/memberhub/internal/app/store/audit"
	membershipstore "github.com/dalemusser/memberhub/internal/app/store/memberships"
	organizationstore "github.com/dalemusser/memberhub/internal/app/store/organizations"
	"github.com/dalemusser/memberhub/internal/app/store/queries/orgsummary"
	"github.com/dalemusser/memberhub/internal/app/store/queries/persondetail"
	"github.com/dalemusser/memberhub/internal/app/store/queries/personlist"
	"github.com/dalemusser/memberhub/internal/app/system/auditlog"
	"github.com/dalemusser/memberhub/internal/app/system/cache"
	"github.com/dalemusser/memberhub/internal/app/system/membersync"
	"github.com/dalemusser/memberhub/internal/app/system/metrics"
	"go.uber.org/zap"
)

// cachePrefix namespaces MemberHub keys in a shared Redis.
const cachePrefix = "memberhub:"

// Services are the collaborators shared by the web handlers and the
// operator CLI, so both write memberships the same way.
type Services struct {
	Cache   cache.Cache // nil when Redis is not configured
	Audit   *auditlog.Logger
	Metrics *metrics.Metrics
	Details *persondetail.Loader
	List    *personlist.Loader
	Orgs    *orgsummary.Loader
	Applier *membersync.Applier
	Syncer  *membersync.Syncer
}

// NewServices builds Services on deps.
func NewServices(appCfg AppConfig, deps DBDeps, logger *zap.Logger) *Services {
	db := deps.MongoDatabase

	// A nil *cache.Redis inside the interface would not read as "no cache".
	var c cache.Cache
	if deps.Redis != nil {
		c = cache.NewRedis(deps.Redis, cachePrefix)
	}

	al := auditlog.New(audit.New(db), logger, auditlog.Config{
		Auth:  appCfg.AuditLogAuth,
		Admin: appCfg.AuditLogAdmin,
	})
	m := metrics.New()
	details := persondetail.NewLoader(db, c, appCfg.CacheTTL, logger)
	list := personlist.NewLoader(db, c, appCfg.CacheTTL, logger)
	applier := membersync.NewApplier(deps.MongoClient, membershipstore.New(db), membersync.Options{
		Cache:   c,
		Audit:   al,
		Metrics: m,
		Logger:  logger,
	})
	return &Services{
		Cache:   c,
		Audit:   al,
		Metrics: m,
		Details: details,
		List:    list,
		Orgs:    orgsummary.NewLoader(db, c, appCfg.CacheTTL, logger),
		Applier: applier,
		Syncer:  membersync.NewSyncer(details, organizationstore.New(db), applier),
	}
}
