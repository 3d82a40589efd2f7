package codestore

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrNotFound covers a code that never existed, expired, or was
	// already redeemed. The three cases are deliberately
	// indistinguishable to the caller.
	ErrNotFound = errors.New("codestore: code not found")

	// ErrInvalidExpiry rejects generation with a non-future expiry.
	ErrInvalidExpiry = errors.New("codestore: expiry must be in the future")

	// ErrEmptyData rejects generation without a payload.
	ErrEmptyData = errors.New("codestore: data is required")
)

// Store issues and redeems single-use codes.
//
// RedeemOnce must fetch and invalidate atomically: after it returns a
// code, no other call may return the same code. Implementations back
// this with a conditional delete (SQL delete..returning, redis GETDEL)
// rather than in-process locking, since the store may be shared across
// instances.
type Store interface {
	Generate(ctx context.Context, data string, intent Intent, expiresAt time.Time, zoneID string) (*ExpiringCode, error)
	RedeemOnce(ctx context.Context, code, zoneID string) (*ExpiringCode, error)
}
