package audit

import (
	"context"
	"database/sql"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"

	"idzone.org/internal/ids"
)

var _ Trail = (*PGTrail)(nil)

// PGTrail implements Trail on PostgreSQL.
type PGTrail struct {
	db  *sql.DB
	now func() time.Time
}

// TrailOption configures PGTrail.
type TrailOption func(*PGTrail)

// WithClock overrides the time source (useful for tests).
func WithClock(fn func() time.Time) TrailOption {
	return func(t *PGTrail) {
		if fn != nil {
			t.now = fn
		}
	}
}

// NewPGTrail wraps an existing database handle.
func NewPGTrail(db *sql.DB, opts ...TrailOption) *PGTrail {
	t := &PGTrail{db: db, now: time.Now}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// OpenPGTrail opens a pgx-backed handle with pool defaults tuned for
// short point queries.
func OpenPGTrail(dsn string, opts ...TrailOption) (*PGTrail, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(50)
	db.SetMaxIdleConns(25)
	db.SetConnMaxLifetime(15 * time.Minute)
	db.SetConnMaxIdleTime(5 * time.Minute)
	return NewPGTrail(db, opts...), nil
}

// Close releases the underlying handle.
func (t *PGTrail) Close() error { return t.db.Close() }

func (t *PGTrail) Find(ctx context.Context, principalID string, since time.Time, zoneID string) ([]Event, error) {
	rows, err := t.db.QueryContext(ctx,
		`select id, principal_id, event_type, origin, event_data, identity_zone_id, occurred_at
		   from audit_events
		  where principal_id = $1 and identity_zone_id = $2 and occurred_at >= $3
		  order by occurred_at desc`,
		principalID, zoneID, since,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var res []Event
	for rows.Next() {
		var ev Event
		if err := rows.Scan(&ev.ID, &ev.PrincipalID, &ev.Type, &ev.Origin, &ev.Data, &ev.IdentityZoneID, &ev.OccurredAt); err != nil {
			return nil, err
		}
		res = append(res, ev)
	}
	return res, rows.Err()
}

func (t *PGTrail) Record(ctx context.Context, ev *Event) error {
	if ev.ID == "" {
		ev.ID = ids.New()
	}
	if ev.OccurredAt.IsZero() {
		ev.OccurredAt = t.now().UTC()
	}
	_, err := t.db.ExecContext(ctx,
		`insert into audit_events(id, principal_id, event_type, origin, event_data, identity_zone_id, occurred_at)
		 values ($1,$2,$3,$4,$5,$6,$7)`,
		ev.ID, ev.PrincipalID, ev.Type, ev.Origin, ev.Data, ev.IdentityZoneID, ev.OccurredAt,
	)
	return err
}

// PurgeOlderThan removes events past the retention horizon across all
// zones and returns the number of rows deleted.
func (t *PGTrail) PurgeOlderThan(ctx context.Context, horizon time.Time) (int64, error) {
	res, err := t.db.ExecContext(ctx,
		`delete from audit_events where occurred_at < $1`, horizon)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
