package store

import (
	"context"
	"fmt"
	"os"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/tern/v2/migrate"
)

// VersionTable records the applied schema version.
const VersionTable = "credence_schema_version"

// Migrate applies the pending numbered migrations in dir (001_name.sql,
// 002_name.sql, ...) and returns the resulting schema version.
func Migrate(ctx context.Context, db *pgxpool.Pool, dir string) (int32, error) {
	conn, err := db.Acquire(ctx)
	if err != nil {
		return 0, err
	}
	defer conn.Release()

	m, err := migrate.NewMigrator(ctx, conn.Conn(), VersionTable)
	if err != nil {
		return 0, fmt.Errorf("migrator: %w", err)
	}
	if err := m.LoadMigrations(os.DirFS(dir)); err != nil {
		return 0, fmt.Errorf("load migrations from %s: %w", dir, err)
	}
	if err := m.Migrate(ctx); err != nil {
		return 0, err
	}
	return m.GetCurrentVersion(ctx)
}
