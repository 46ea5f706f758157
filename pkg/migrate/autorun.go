package migrate

import (
	"context"
	"fmt"

	"github.com/angelmondragon/kitchenstock-backend/pkg/config"
	"github.com/angelmondragon/kitchenstock-backend/pkg/db"
	"github.com/angelmondragon/kitchenstock-backend/pkg/db/models"
	"github.com/angelmondragon/kitchenstock-backend/pkg/logger"
	"gorm.io/gorm"
)

// MaybeRunDev executes migrations automatically when the app is running in dev mode and
// the feature flag is enabled. SQLite schemas come from the models since the SQL
// migrations target Postgres.
func MaybeRunDev(ctx context.Context, cfg *config.Config, logg *logger.Logger, client *db.Client) error {
	if !cfg.App.IsDev() || !cfg.FeatureFlags.AutoMigrate {
		return nil
	}

	meta := map[string]any{"env": cfg.App.Env, "dir": DefaultDir, "driver": cfg.DB.Driver}
	ctx = logg.WithFields(ctx, meta)

	if cfg.DB.Driver == config.DriverSQLite {
		logg.Info(ctx, "running model auto-migration (dev auto-run)")
		if err := AutoMigrateModels(ctx, client); err != nil {
			return err
		}
		logg.Info(ctx, "model auto-migration completed")
		return nil
	}

	sqlDB, err := client.DB().DB()
	if err != nil {
		return fmt.Errorf("extracting sql.DB: %w", err)
	}

	logg.Info(ctx, "running Goose migrations (dev auto-run)")
	if err := Run(ctx, sqlDB, Dialect(cfg.DB.Driver), DefaultDir, "up"); err != nil {
		return fmt.Errorf("running goose up: %w", err)
	}

	logg.Info(ctx, "Goose migrations completed")
	return nil
}

// AutoMigrateModels creates or updates every table from the model definitions.
func AutoMigrateModels(ctx context.Context, client *db.Client) error {
	if client == nil {
		return fmt.Errorf("db client required")
	}
	if err := client.DB().WithContext(ctx).AutoMigrate(models.All()...); err != nil {
		return fmt.Errorf("auto-migrating models: %w", err)
	}
	return nil
}

// TableStatus reports whether the table behind one model exists.
type TableStatus struct {
	Table   string
	Present bool
}

// ModelStatus lists every model table in creation order with its presence.
// It is the sqlite stand-in for goose status.
func ModelStatus(ctx context.Context, client *db.Client) ([]TableStatus, error) {
	if client == nil {
		return nil, fmt.Errorf("db client required")
	}
	conn := client.DB().WithContext(ctx)
	all := models.All()
	out := make([]TableStatus, 0, len(all))
	for _, model := range all {
		stmt := &gorm.Statement{DB: conn}
		if err := stmt.Parse(model); err != nil {
			return nil, fmt.Errorf("parsing model %T: %w", model, err)
		}
		out = append(out, TableStatus{
			Table:   stmt.Schema.Table,
			Present: conn.Migrator().HasTable(model),
		})
	}
	return out, nil
}

// DropModels removes every model table in reverse creation order so foreign
// keys never point at a dropped parent. It is the sqlite stand-in for goose down.
func DropModels(ctx context.Context, client *db.Client) error {
	if client == nil {
		return fmt.Errorf("db client required")
	}
	conn := client.DB().WithContext(ctx)
	all := models.All()
	for i := len(all) - 1; i >= 0; i-- {
		if err := conn.Migrator().DropTable(all[i]); err != nil {
			return fmt.Errorf("dropping %T: %w", all[i], err)
		}
	}
	return nil
}
