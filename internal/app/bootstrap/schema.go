// internal/app/bootstrap/schema.go
package bootstrap

import (
	"context"
	"fmt"

	"github.com/dalemusser/memberhub/internal/app/system/indexes"
	"github.com/dalemusser/memberhub/internal/app/system/validators"
	"github.com/dalemusser/waffle/config"
	"go.uber.org/zap"
)

// EnsureSchema installs collection validators and indexes, then makes sure
// the bootstrap admin exists.
func EnsureSchema(ctx context.Context, coreCfg *config.CoreConfig, appCfg AppConfig, deps DBDeps, logger *zap.Logger) error {
	db := deps.MongoDatabase
	if err := validators.EnsureAll(ctx, db); err != nil {
		return fmt.Errorf("ensure validators: %w", err)
	}
	if err := indexes.EnsureAll(ctx, db); err != nil {
		return fmt.Errorf("ensure indexes: %w", err)
	}
	if appCfg.AdminEmail == "" {
		return nil
	}
	if _, err := EnsureAdmin(ctx, db, appCfg.AdminEmail, appCfg.AdminPassword, logger); err != nil {
		return fmt.Errorf("ensure admin: %w", err)
	}
	return nil
}
