package identity

import (
	"context"
	"database/sql"

	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/sqliteshim"
)

// OpenSQLite opens a bun DB over the sqlite shim driver. Meant for
// development and tests; production deployments bring their own *bun.DB
// (or their own CredentialStore entirely).
func OpenSQLite(dsn string) (*bun.DB, error) {
	sqldb, err := sql.Open(sqliteshim.ShimName, dsn)
	if err != nil {
		return nil, err
	}

	return bun.NewDB(sqldb, sqlitedialect.New()), nil
}

// CreateIdentitiesTable creates the identities table if missing. Real
// deployments run migrations; this covers in-memory setups.
func CreateIdentitiesTable(ctx context.Context, db *bun.DB) error {
	_, err := db.NewCreateTable().
		Model((*Identity)(nil)).
		IfNotExists().
		Exec(ctx)
	return err
}
