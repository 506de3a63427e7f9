package migration

import (
	"go.uber.org/fx"
	"gorm.io/gorm"
)

var Module = fx.Module("migrations",
	fx.Invoke(func(conn *gorm.DB) error {
		if conn.Dialector.Name() != "postgres" {
			// Embedded migrations are postgres-flavored; other dialects
			// manage their schema out of band (tests use AutoMigrate).
			return nil
		}

		sqlDB, err := conn.DB()
		if err != nil {
			return err
		}
		return RunMigrations(sqlDB)
	}),
)
