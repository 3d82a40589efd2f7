// Package users exposes zone-scoped user lookups to the authentication
// core.
package users

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound indicates no user with the given id exists in the zone.
var ErrNotFound = errors.New("users: user not found")

// User is the directory view of an account. No credential material is
// carried here.
type User struct {
	ID             string
	IdentityZoneID string
	Username       string
	Origin         string
	Authorities    []string
	Status         string
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// Directory resolves users by id within a zone.
type Directory interface {
	FindByID(ctx context.Context, userID, zoneID string) (*User, error)
}
