package db

import (
	"context"
	"embed"
	"fmt"
	"net/http"

	migrate "github.com/rubenv/sql-migrate"
)

//go:embed migrations/*.sql
var MigrationFiles embed.FS

const migrationsTableName = "transfer_engine_migrations"

// Migrate applies the embedded migrations to the database at dbURL, up to count steps in the
// given direction. count = 0 applies every pending migration.
func Migrate(dbURL string, dir migrate.MigrationDirection, count int) (int, error) {
	dbConnectionPool, err := OpenDBConnectionPool(dbURL)
	if err != nil {
		return 0, fmt.Errorf("connecting to the database: %w", err)
	}
	defer dbConnectionPool.Close()

	ms := migrate.MigrationSet{
		TableName: migrationsTableName,
	}

	m := migrate.HttpFileSystemMigrationSource{FileSystem: http.FS(MigrationFiles)}
	ctx := context.Background()
	sqlDB, err := dbConnectionPool.SqlDB(ctx)
	if err != nil {
		return 0, fmt.Errorf("fetching sql.DB: %w", err)
	}
	return ms.ExecMax(sqlDB, dbConnectionPool.DriverName(), m, dir, count)
}
