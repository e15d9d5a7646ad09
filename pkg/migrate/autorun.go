package migrate

import (
	"context"
	"fmt"

	"github.com/angelmondragon/pricelist-backend/pkg/config"
	"github.com/angelmondragon/pricelist-backend/pkg/db"
	"github.com/angelmondragon/pricelist-backend/pkg/logger"
)

// MaybeRunDev migrates the schema on startup when the app runs in dev mode with the
// auto-migrate flag set. SQLite databases are built from the models since the SQL
// migrations target Postgres.
func MaybeRunDev(ctx context.Context, cfg *config.Config, logg *logger.Logger, client *db.Client) error {
	if !cfg.App.IsDev() || !cfg.FeatureFlags.AutoMigrate {
		return nil
	}

	ctx = logg.WithFields(ctx, map[string]any{"env": cfg.App.Env, "dir": DefaultDir, "dialect": client.Dialect()})
	if client.Dialect() == db.DriverSQLite {
		logg.Info(ctx, "running model auto-migration (dev auto-run)")
		return client.AutoMigrate(ctx)
	}

	sqlDB, err := client.DB().DB()
	if err != nil {
		return fmt.Errorf("extracting sql.DB: %w", err)
	}
	logg.Info(ctx, "running Goose migrations (dev auto-run)")
	applied, err := Run(ctx, sqlDB, client.Dialect(), DefaultDir, "up")
	if err != nil {
		return fmt.Errorf("running goose up: %w", err)
	}
	logg.Info(logg.WithField(ctx, "applied", len(applied)), "Goose migrations completed")
	return nil
}
