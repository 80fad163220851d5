package sqlite

import (
	"context"
	"database/sql"

	"github.com/pressly/goose/v3"
	"go.uber.org/zap"

	"github.com/ianibaeva/explore-with-me/internal/database"
	"github.com/ianibaeva/explore-with-me/internal/repository/sqlite/migrations"
)

func applyMigrations(ctx context.Context, db *sql.DB) error {
	return database.RunMigrations(ctx, goose.DialectSQLite3, db, migrations.FS, zap.NewNop())
}
