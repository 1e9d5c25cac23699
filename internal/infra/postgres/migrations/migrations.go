package migrations

import (
	"context"
	"fmt"

	"github.com/uptrace/bun"
	"github.com/uptrace/bun/migrate"
)

// Migrations holds every schema change. Each file registers itself in init
// by calling Migrations.MustRegister directly: bun names a migration after
// the file of its caller.
var Migrations = migrate.NewMigrations()

func execDDL(table, ddl string) migrate.MigrationFunc {
	return func(ctx context.Context, db *bun.DB) error {
		if _, err := db.ExecContext(ctx, ddl); err != nil {
			return fmt.Errorf("create %s: %w", table, err)
		}
		return nil
	}
}

func dropTable(table string) migrate.MigrationFunc {
	return func(ctx context.Context, db *bun.DB) error {
		_, err := db.ExecContext(ctx, "DROP TABLE IF EXISTS "+table)
		return err
	}
}
