package auth

import (
	"context"
	"database/sql"
	"io/fs"

	"github.com/goliatone/go-persistence-bun"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/sqliteshim"
)

// RegisterModels registers the auth models with the persistence client so
// relations resolve before migrations run.
func RegisterModels() {
	persistence.RegisterModel((*Account)(nil))
	persistence.RegisterModel((*Profile)(nil))
}

// OpenSQLite opens a sqlite backed persistence client with the auth
// migrations applied. Intended for examples and tests; production callers
// wire their own persistence client and call RegisterModels themselves.
func OpenSQLite(ctx context.Context, cfg persistence.Config, dsn string) (*persistence.Client, *bun.DB, error) {
	db, err := sql.Open(sqliteshim.ShimName, dsn)
	if err != nil {
		return nil, nil, err
	}

	RegisterModels()

	client, err := persistence.New(cfg, db, sqlitedialect.New())
	if err != nil {
		return nil, nil, err
	}

	migrations, err := fs.Sub(GetMigrationsFS(), "data/sql/migrations")
	if err != nil {
		return nil, nil, err
	}

	client.RegisterDialectMigrations(
		migrations,
		persistence.WithDialectSourceLabel("data/sql/migrations"),
		persistence.WithValidationTargets("postgres", "sqlite"),
	)

	if err := client.ValidateDialects(ctx); err != nil {
		return nil, nil, err
	}

	if err := client.Migrate(ctx); err != nil {
		return nil, nil, err
	}

	return client, client.DB(), nil
}
