// internal/app/bootstrap/routes.go
package bootstrap

import (
	"net/http"

	errorsfeature "github.com/dalemusser/memberhub/internal/app/features/errors"
	healthfeature "github.com/dalemusser/memberhub/internal/app/features/health"
	homefeature "github.com/dalemusser/memberhub/internal/app/features/home"
	loginfeature "github.com/dalemusser/memberhub/internal/app/features/login"
	logoutfeature "github.com/dalemusser/memberhub/internal/app/features/logout"
	mefeature "github.com/dalemusser/memberhub/internal/app/features/me"
	organizationsfeature "github.com/dalemusser/memberhub/internal/app/features/organizations"
	personsfeature "github.com/dalemusser/memberhub/internal/app/features/persons"
	personstore "github.com/dalemusser/memberhub/internal/app/store/persons"
	"github.com/dalemusser/memberhub/internal/app/system/auth"
	"github.com/dalemusser/memberhub/internal/app/system/limits"
	"github.com/dalemusser/memberhub/internal/app/system/metrics"
	"github.com/dalemusser/waffle/config"
	"github.com/dalemusser/waffle/pantry/fileserver"
	"github.com/dalemusser/waffle/pantry/templates"
	"github.com/go-chi/chi/v5"
	"github.com/gorilla/csrf"
	"go.uber.org/zap"
)

// BuildHandler boots the template engine, builds the shared services and
// mounts every feature router.
func BuildHandler(coreCfg *config.CoreConfig, appCfg AppConfig, deps DBDeps, logger *zap.Logger) (http.Handler, error) {
	db := deps.MongoDatabase
	secure := coreCfg.Env == "prod"

	sessionMgr, err := auth.NewSessionManager(appCfg.SessionKey, appCfg.SessionName, appCfg.SessionDomain, appCfg.SessionMaxAge, secure, logger)
	if err != nil {
		logger.Error("session manager init failed", zap.Error(err))
		return nil, err
	}
	// Fresh person data per request, so disabling or demoting takes effect
	// immediately.
	sessionMgr.SetUserFetcher(personstore.NewFetcher(db))

	eng := templates.New(coreCfg.Env == "dev")
	if err := eng.Boot(logger); err != nil {
		logger.Error("template engine boot failed", zap.Error(err))
		return nil, err
	}
	templates.UseEngine(eng, logger)

	svc := NewServices(appCfg, deps, logger)
	errLog := errorsfeature.NewErrorLogger(logger)
	errorsHandler := errorsfeature.NewHandler()

	r := chi.NewRouter()

	// The health probe stays outside CSRF and sessions.
	healthHandler := healthfeature.NewHandler(deps.MongoClient, deps.Redis, logger)
	r.Mount("/health", healthfeature.Routes(healthHandler))
	r.Handle("/static/*", fileserver.Handler("/static", "public"))

	r.Group(func(r chi.Router) {
		r.Use(limits.Body(limits.MaxFormBody))
		r.Use(csrf.Protect([]byte(appCfg.SessionKey),
			csrf.Secure(secure),
			csrf.Path("/"),
			csrf.ErrorHandler(http.HandlerFunc(errorsHandler.Forbidden)),
		))
		r.Use(sessionMgr.LoadSessionUser)

		r.Handle("/metrics", metrics.Guard(appCfg.MetricsToken, svc.Metrics.Handler()))

		homeHandler := homefeature.NewHandler(logger)
		r.Mount("/", homefeature.Routes(homeHandler))

		loginHandler := loginfeature.NewHandler(db, sessionMgr, errLog, svc.Audit, logger)
		r.Mount("/login", loginfeature.Routes(loginHandler))

		logoutHandler := logoutfeature.NewHandler(sessionMgr, svc.Audit, logger)
		r.Mount("/logout", logoutfeature.Routes(logoutHandler))

		r.Get("/forbidden", errorsHandler.Forbidden)
		r.Get("/unauthorized", errorsHandler.Unauthorized)

		personsHandler := personsfeature.NewHandler(db, svc.Details, svc.List, svc.Syncer, svc.Cache, errLog, svc.Audit, logger)
		r.Mount("/persons", personsfeature.Routes(personsHandler, sessionMgr))
		r.With(sessionMgr.RequireSignedIn, sessionMgr.RequireRole("admin")).
			Get("/persons.csv", personsHandler.ServeCSV)

		orgHandler := organizationsfeature.NewHandler(db, svc.Orgs, svc.Cache, errLog, svc.Audit, logger)
		r.Mount("/organizations", organizationsfeature.Routes(orgHandler, sessionMgr))

		meHandler := mefeature.NewHandler(db, svc.Details, errLog, svc.Audit, logger)
		r.Mount("/me", mefeature.Routes(meHandler, sessionMgr))

		r.NotFound(errorsHandler.NotFound)
	})

	return r, nil
}
