package audit

import (
	"context"
	"time"
)

// Trail is the append-only authentication event log, partitioned by
// identity zone. Find returns events most-recent-first; callers that
// replay the trail rely on that ordering.
type Trail interface {
	// Find returns events for the principal in the given zone with
	// OccurredAt >= since, ordered most recent first.
	Find(ctx context.Context, principalID string, since time.Time, zoneID string) ([]Event, error)

	// Record appends an event. The caller that processes a login
	// attempt must record its outcome before the next lockout
	// evaluation so the decision sees the attempt.
	Record(ctx context.Context, ev *Event) error
}
