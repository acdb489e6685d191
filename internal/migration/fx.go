package migration

import (
	"go.uber.org/fx"
	"gorm.io/gorm"

	"github.com/tracklane/tracklane/internal/config"
	"github.com/tracklane/tracklane/internal/seed"
)

var Module = fx.Module("migrations",
	fx.Invoke(func(conn *gorm.DB, cfg config.Config) error {
		if err := RunMigrations(conn); err != nil {
			return err
		}
		if cfg.BootstrapDefaultUser {
			return seed.EnsureDefaultUser(conn)
		}
		return nil
	}),
)
