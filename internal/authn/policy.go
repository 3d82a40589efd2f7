// Package authn is the authentication-decision core: it gates login
// attempts with a lockout policy replayed from the audit trail, and it
// redeems single-use autologin codes into authenticated principals.
// Every operation takes the identity zone explicitly; there is no
// ambient tenant.
package authn

import (
	"context"
	"time"

	"idzone.org/internal/audit"
	"idzone.org/internal/obs"
)

// LockoutPolicy is the tenant-configurable lockout rule, supplied per
// evaluation. The zero value means lockout is not configured and every
// attempt is allowed.
type LockoutPolicy struct {
	// CountFailuresWithin is the sliding window in which failures are
	// counted toward the streak.
	CountFailuresWithin time.Duration

	// LockoutAfterFailures is the streak length that triggers a lock.
	LockoutAfterFailures int

	// LockoutPeriod is how long the principal stays locked after the
	// most recent failure.
	LockoutPeriod time.Duration
}

// Usable reports whether the policy can produce a lock at all.
func (p LockoutPolicy) Usable() bool {
	return p.LockoutAfterFailures > 0 && p.CountFailuresWithin > 0
}

// LockoutDecision is the outcome of one evaluation. FailureCount is
// informational: a decision that unlocks because the lockout period
// elapsed still reports the historical streak.
type LockoutDecision struct {
	Allowed      bool
	FailureCount int
}

// LoginPolicy decides whether a principal may attempt to log in now.
// It is a read-only projection over the audit trail, so concurrent
// evaluations for the same principal need no locking. The decision is a
// best-effort snapshot: the calling flow must record a failed attempt
// before the next evaluation for the attempt to be visible.
//
// One LoginPolicy instance serves one kind of principal; the success
// and failure event types configure whether it watches user logins or
// client credential logins.
type LoginPolicy struct {
	trail       audit.Trail
	successType audit.EventType
	failureType audit.EventType
	enabled     bool
	now         func() time.Time
}

// LoginPolicyOption configures LoginPolicy.
type LoginPolicyOption func(*LoginPolicy)

// WithClock overrides the time source (useful for tests).
func WithClock(fn func() time.Time) LoginPolicyOption {
	return func(lp *LoginPolicy) {
		if fn != nil {
			lp.now = fn
		}
	}
}

// Disabled turns the policy into an always-allow short circuit that
// never queries the trail.
func Disabled() LoginPolicyOption {
	return func(lp *LoginPolicy) { lp.enabled = false }
}

// NewLoginPolicy constructs a LoginPolicy watching the given event
// type pair.
func NewLoginPolicy(trail audit.Trail, successType, failureType audit.EventType, opts ...LoginPolicyOption) *LoginPolicy {
	lp := &LoginPolicy{
		trail:       trail,
		successType: successType,
		failureType: failureType,
		enabled:     true,
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(lp)
	}
	return lp
}

// Evaluate replays the principal's recent audit trail in the given zone
// and decides whether another attempt is allowed. It only returns an
// error when the trail itself cannot be read; the decision logic has no
// failure mode of its own.
func (lp *LoginPolicy) Evaluate(ctx context.Context, zoneID, principalID string, policy LockoutPolicy) (LockoutDecision, error) {
	if !lp.enabled || !policy.Usable() {
		return LockoutDecision{Allowed: true}, nil
	}

	now := lp.now()
	since := now.Add(-policy.CountFailuresWithin)
	events, err := lp.trail.Find(ctx, principalID, since, zoneID)
	if err != nil {
		return LockoutDecision{}, err
	}

	failureCount := lp.sequentialFailureCount(events)
	decision := LockoutDecision{Allowed: true, FailureCount: failureCount}

	if failureCount >= policy.LockoutAfterFailures {
		// Locked only while the most recent failure is inside the
		// lockout period; an old streak unlocks without resetting the
		// reported count.
		if last, ok := lp.mostRecentFailure(events); ok && now.Sub(last.OccurredAt) < policy.LockoutPeriod {
			decision.Allowed = false
		}
	}

	obs.ObserveLockoutDecision(decision.Allowed, decision.FailureCount)
	return decision, nil
}

// sequentialFailureCount counts failures that occurred without an
// intervening success, scanning most-recent-first. A success ends the
// streak even when older failures are still inside the window.
func (lp *LoginPolicy) sequentialFailureCount(events []audit.Event) int {
	count := 0
	for _, ev := range events {
		switch ev.Type {
		case lp.failureType:
			count++
		case lp.successType:
			return count
		}
	}
	return count
}

func (lp *LoginPolicy) mostRecentFailure(events []audit.Event) (audit.Event, bool) {
	for _, ev := range events {
		if ev.Type == lp.failureType {
			return ev, true
		}
	}
	return audit.Event{}, false
}
