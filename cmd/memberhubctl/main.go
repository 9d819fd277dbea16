// Command memberhubctl runs operator tasks against a MemberHub database:
// ensuring indexes, creating the first admin, exporting persons and
// reconciling a person's memberships from the shell.
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/dalemusser/memberhub/internal/app/bootstrap"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func main() {
	logger, err := zap.NewProduction()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()

	if err := newRootCmd(newCLI(os.Stdout, logger)).Execute(); err != nil {
		os.Exit(1)
	}
}

// cli carries the global flags and the backends opened from them.
type cli struct {
	cfg bootstrap.AppConfig
	out io.Writer
	log *zap.Logger

	// connect opens the backends and returns their closer; tests swap it
	// for a shared test database.
	connect func(ctx context.Context, cfg bootstrap.AppConfig, log *zap.Logger) (bootstrap.DBDeps, func(), error)
}

func newCLI(out io.Writer, logger *zap.Logger) *cli {
	return &cli{
		out: out,
		log: logger,
		connect: func(ctx context.Context, cfg bootstrap.AppConfig, log *zap.Logger) (bootstrap.DBDeps, func(), error) {
			deps, err := bootstrap.ConnectDB(ctx, nil, cfg, log)
			if err != nil {
				return bootstrap.DBDeps{}, nil, err
			}
			return deps, func() {
				if err := bootstrap.Shutdown(context.Background(), nil, cfg, deps, log); err != nil {
					log.Warn("shutdown failed", zap.Error(err))
				}
			}, nil
		},
	}
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func newRootCmd(c *cli) *cobra.Command {
	root := &cobra.Command{
		Use:           "memberhubctl",
		Short:         "Operator tasks for a MemberHub database",
		SilenceUsage:  true,
		SilenceErrors: false,
	}
	root.SetOut(c.out)

	f := root.PersistentFlags()
	f.StringVar(&c.cfg.MongoURI, "mongo-uri", envOr("MEMBERHUB_MONGO_URI", "mongodb://localhost:27017"), "MongoDB connection URI")
	f.StringVar(&c.cfg.MongoDatabase, "mongo-database", envOr("MEMBERHUB_MONGO_DATABASE", "memberhub"), "MongoDB database name")
	f.StringVar(&c.cfg.RedisAddr, "redis-addr", os.Getenv("MEMBERHUB_REDIS_ADDR"), "Redis address; cached person reads are invalidated after writes")
	f.StringVar(&c.cfg.RedisPassword, "redis-password", os.Getenv("MEMBERHUB_REDIS_PASSWORD"), "Redis password")
	f.DurationVar(&c.cfg.CacheTTL, "cache-ttl", 5*time.Minute, "Lifetime of cached reads")
	f.StringVar(&c.cfg.AuditLogAdmin, "audit", "all", "Audit destination for changes: all, db, log or off")

	root.AddCommand(
		newIndexesCmd(c),
		newCreateAdminCmd(c),
		newExportPersonsCmd(c),
		newReconcileCmd(c),
	)
	return root
}

// withDeps connects, runs fn and disconnects.
func (c *cli) withDeps(ctx context.Context, fn func(ctx context.Context, deps bootstrap.DBDeps) error) error {
	deps, closeDeps, err := c.connect(ctx, c.cfg, c.log)
	if err != nil {
		return err
	}
	defer closeDeps()
	return fn(ctx, deps)
}
