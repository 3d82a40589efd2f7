package users

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"

	_ "github.com/jackc/pgx/v5/stdlib"
)

var _ Directory = (*PGDirectory)(nil)

// PGDirectory implements Directory on PostgreSQL. Authorities are
// stored as a JSON array in a text column.
type PGDirectory struct {
	db *sql.DB
}

// NewPGDirectory wraps an existing database handle.
func NewPGDirectory(db *sql.DB) *PGDirectory {
	return &PGDirectory{db: db}
}

func (d *PGDirectory) FindByID(ctx context.Context, userID, zoneID string) (*User, error) {
	row := d.db.QueryRowContext(ctx,
		`select id, identity_zone_id, username, origin, authorities, status, created_at, updated_at
		   from users
		  where id = $1 and identity_zone_id = $2`,
		userID, zoneID,
	)
	var (
		u           User
		authorities []byte
	)
	if err := row.Scan(&u.ID, &u.IdentityZoneID, &u.Username, &u.Origin, &authorities, &u.Status, &u.CreatedAt, &u.UpdatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	_ = json.Unmarshal(authorities, &u.Authorities)
	return &u, nil
}
