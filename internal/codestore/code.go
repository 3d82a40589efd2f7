// Package codestore manages single-use, time-limited codes. A code is
// issued for one intent, scoped to one identity zone, and redeemable at
// most once: redemption and invalidation happen as a single store
// operation so that two concurrent attempts cannot both succeed.
package codestore

import "time"

// Intent tags the purpose a code was issued for. A code presented for a
// different purpose must be rejected.
type Intent string

const (
	IntentAutologin    Intent = "AUTOLOGIN"
	IntentEmail        Intent = "EMAIL"
	IntentRegistration Intent = "REGISTRATION"
	IntentInvitation   Intent = "INVITATION"
)

// ExpiringCode is a single-use token with an opaque JSON payload.
type ExpiringCode struct {
	Code           string
	IdentityZoneID string
	ExpiresAt      time.Time
	Data           string
	Intent         Intent
}
