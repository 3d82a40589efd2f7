package clients

import (
	"context"
	"database/sql"

	_ "github.com/jackc/pgx/v5/stdlib"
)

var _ Registry = (*PGRegistry)(nil)

// PGRegistry implements Registry on PostgreSQL.
type PGRegistry struct {
	db *sql.DB
}

// NewPGRegistry wraps an existing database handle.
func NewPGRegistry(db *sql.DB) *PGRegistry {
	return &PGRegistry{db: db}
}

func (r *PGRegistry) Exists(ctx context.Context, clientID, zoneID string) (bool, error) {
	var exists bool
	err := r.db.QueryRowContext(ctx,
		`select exists(select 1 from oauth_clients where client_id = $1 and identity_zone_id = $2)`,
		clientID, zoneID,
	).Scan(&exists)
	if err != nil {
		return false, err
	}
	return exists, nil
}
