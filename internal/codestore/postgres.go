package codestore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/jackc/pgx/v5/stdlib"

	"idzone.org/internal/ids"
)

const (
	codeBytes          = 16
	uniqueViolation    = "23505"
	maxGenerateRetries = 3
)

var _ Store = (*PGStore)(nil)

// PGStore implements Store on PostgreSQL. Redemption is a single
// delete..returning statement, so at-most-once holds across instances
// sharing the database.
type PGStore struct {
	db  *sql.DB
	now func() time.Time
}

// PGOption configures PGStore.
type PGOption func(*PGStore)

// WithClock overrides the time source (useful for tests).
func WithClock(fn func() time.Time) PGOption {
	return func(s *PGStore) {
		if fn != nil {
			s.now = fn
		}
	}
}

// NewPGStore wraps an existing database handle.
func NewPGStore(db *sql.DB, opts ...PGOption) *PGStore {
	s := &PGStore{db: db, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *PGStore) Generate(ctx context.Context, data string, intent Intent, expiresAt time.Time, zoneID string) (*ExpiringCode, error) {
	if strings.TrimSpace(data) == "" {
		return nil, ErrEmptyData
	}
	if !expiresAt.After(s.now()) {
		return nil, ErrInvalidExpiry
	}

	var lastErr error
	for i := 0; i < maxGenerateRetries; i++ {
		code := &ExpiringCode{
			Code:           ids.NewToken(codeBytes),
			IdentityZoneID: zoneID,
			ExpiresAt:      expiresAt.UTC(),
			Data:           data,
			Intent:         intent,
		}
		_, err := s.db.ExecContext(ctx,
			`insert into expiring_codes(code, identity_zone_id, expires_at, code_data, intent)
			 values ($1,$2,$3,$4,$5)`,
			code.Code, code.IdentityZoneID, code.ExpiresAt, code.Data, string(code.Intent),
		)
		if err == nil {
			return code, nil
		}
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			lastErr = err
			continue
		}
		return nil, err
	}
	return nil, fmt.Errorf("codestore: generate exhausted retries: %w", lastErr)
}

func (s *PGStore) RedeemOnce(ctx context.Context, code, zoneID string) (*ExpiringCode, error) {
	row := s.db.QueryRowContext(ctx,
		`delete from expiring_codes
		  where code = $1 and identity_zone_id = $2
		 returning code, identity_zone_id, expires_at, code_data, intent`,
		code, zoneID,
	)
	var (
		ec     ExpiringCode
		intent string
	)
	if err := row.Scan(&ec.Code, &ec.IdentityZoneID, &ec.ExpiresAt, &ec.Data, &intent); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	ec.Intent = Intent(intent)
	// An expired row may still exist until the next purge; treat it as
	// absent. The delete above doubles as its cleanup.
	if !ec.ExpiresAt.After(s.now()) {
		return nil, ErrNotFound
	}
	return &ec, nil
}

// PurgeExpired removes expired codes across all zones and returns the
// number of rows deleted.
func (s *PGStore) PurgeExpired(ctx context.Context) (int64, error) {
	res, err := s.db.ExecContext(ctx,
		`delete from expiring_codes where expires_at <= $1`, s.now())
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
