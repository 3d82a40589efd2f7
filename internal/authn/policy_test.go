package authn

import (
	"context"
	"errors"
	"sort"
	"testing"
	"time"

	"idzone.org/internal/audit"
)

var epoch = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

// fakeTrail replays a fixed event set with the most-recent-first
// contract of the real trail.
type fakeTrail struct {
	events []audit.Event
	finds  int
	err    error
}

func (f *fakeTrail) Find(_ context.Context, principalID string, since time.Time, zoneID string) ([]audit.Event, error) {
	f.finds++
	if f.err != nil {
		return nil, f.err
	}
	var res []audit.Event
	for _, ev := range f.events {
		if ev.PrincipalID == principalID && ev.IdentityZoneID == zoneID && !ev.OccurredAt.Before(since) {
			res = append(res, ev)
		}
	}
	sort.Slice(res, func(i, j int) bool { return res[i].OccurredAt.After(res[j].OccurredAt) })
	return res, nil
}

func (f *fakeTrail) Record(_ context.Context, ev *audit.Event) error {
	f.events = append(f.events, *ev)
	return nil
}

func event(t audit.EventType, at time.Time) audit.Event {
	return audit.Event{PrincipalID: "joe", Type: t, IdentityZoneID: "zone-a", OccurredAt: at}
}

func userPolicy(trail audit.Trail, now time.Time, opts ...LoginPolicyOption) *LoginPolicy {
	opts = append([]LoginPolicyOption{WithClock(func() time.Time { return now })}, opts...)
	return NewLoginPolicy(trail, audit.UserAuthenticationSuccess, audit.UserAuthenticationFailure, opts...)
}

var testPolicy = LockoutPolicy{
	CountFailuresWithin:  900 * time.Second,
	LockoutAfterFailures: 5,
	LockoutPeriod:        300 * time.Second,
}

func fiveFailures() []audit.Event {
	evs := make([]audit.Event, 0, 5)
	for _, off := range []time.Duration{0, 10, 20, 30, 40} {
		evs = append(evs, event(audit.UserAuthenticationFailure, epoch.Add(off*time.Second)))
	}
	return evs
}

func TestEvaluateDisabledSkipsTrail(t *testing.T) {
	trail := &fakeTrail{events: fiveFailures()}
	lp := userPolicy(trail, epoch.Add(50*time.Second), Disabled())

	d, err := lp.Evaluate(context.Background(), "zone-a", "joe", testPolicy)
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}
	if !d.Allowed || d.FailureCount != 0 {
		t.Fatalf("disabled policy must allow with count 0, got %+v", d)
	}
	if trail.finds != 0 {
		t.Fatalf("disabled policy must not query the trail, got %d queries", trail.finds)
	}
}

func TestEvaluateUnusablePolicyAllows(t *testing.T) {
	trail := &fakeTrail{events: fiveFailures()}
	lp := userPolicy(trail, epoch.Add(50*time.Second))

	d, err := lp.Evaluate(context.Background(), "zone-a", "joe", LockoutPolicy{})
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}
	if !d.Allowed || d.FailureCount != 0 {
		t.Fatalf("zero policy must allow with count 0, got %+v", d)
	}
	if trail.finds != 0 {
		t.Fatalf("zero policy must not query the trail, got %d queries", trail.finds)
	}
}

func TestEvaluateLocksAfterThresholdWithinPeriod(t *testing.T) {
	trail := &fakeTrail{events: fiveFailures()}
	lp := userPolicy(trail, epoch.Add(50*time.Second))

	d, err := lp.Evaluate(context.Background(), "zone-a", "joe", testPolicy)
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}
	if d.Allowed || d.FailureCount != 5 {
		t.Fatalf("expected {false,5}, got %+v", d)
	}
}

func TestEvaluateUnlocksAfterLockoutPeriodKeepsCount(t *testing.T) {
	trail := &fakeTrail{events: fiveFailures()}
	lp := userPolicy(trail, epoch.Add(400*time.Second))

	d, err := lp.Evaluate(context.Background(), "zone-a", "joe", testPolicy)
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}
	if !d.Allowed || d.FailureCount != 5 {
		t.Fatalf("expected {true,5} once lockout period elapsed, got %+v", d)
	}
}

func TestEvaluateSuccessResetsStreak(t *testing.T) {
	evs := fiveFailures()
	evs = append(evs, event(audit.UserAuthenticationSuccess, epoch.Add(45*time.Second)))
	evs = append(evs, event(audit.UserAuthenticationFailure, epoch.Add(48*time.Second)))
	trail := &fakeTrail{events: evs}
	lp := userPolicy(trail, epoch.Add(50*time.Second))

	d, err := lp.Evaluate(context.Background(), "zone-a", "joe", testPolicy)
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}
	if !d.Allowed || d.FailureCount != 1 {
		t.Fatalf("success must cut the streak to failures after it, got %+v", d)
	}
}

func TestEvaluateEmptyTrail(t *testing.T) {
	lp := userPolicy(&fakeTrail{}, epoch)

	d, err := lp.Evaluate(context.Background(), "zone-a", "joe", testPolicy)
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}
	if !d.Allowed || d.FailureCount != 0 {
		t.Fatalf("empty trail must allow with count 0, got %+v", d)
	}
}

func TestEvaluateWindowExcludesOldFailures(t *testing.T) {
	evs := []audit.Event{
		event(audit.UserAuthenticationFailure, epoch.Add(-20*time.Minute)),
		event(audit.UserAuthenticationFailure, epoch.Add(-18*time.Minute)),
		event(audit.UserAuthenticationFailure, epoch.Add(-time.Minute)),
	}
	trail := &fakeTrail{events: evs}
	lp := userPolicy(trail, epoch)

	d, err := lp.Evaluate(context.Background(), "zone-a", "joe", testPolicy)
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}
	if !d.Allowed || d.FailureCount != 1 {
		t.Fatalf("failures outside the window must not count, got %+v", d)
	}
}

func TestEvaluateIsZoneScoped(t *testing.T) {
	evs := fiveFailures()
	for i := range evs {
		evs[i].IdentityZoneID = "zone-b"
	}
	trail := &fakeTrail{events: evs}
	lp := userPolicy(trail, epoch.Add(50*time.Second))

	d, err := lp.Evaluate(context.Background(), "zone-a", "joe", testPolicy)
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}
	if !d.Allowed || d.FailureCount != 0 {
		t.Fatalf("failures in another zone must not count, got %+v", d)
	}
}

func TestEvaluateIgnoresOtherEventTypes(t *testing.T) {
	evs := fiveFailures()
	evs = append(evs, event(audit.UserAccountUnlocked, epoch.Add(44*time.Second)))
	trail := &fakeTrail{events: evs}
	lp := userPolicy(trail, epoch.Add(50*time.Second))

	d, err := lp.Evaluate(context.Background(), "zone-a", "joe", testPolicy)
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}
	if d.Allowed || d.FailureCount != 5 {
		t.Fatalf("unrelated event types must neither count nor reset, got %+v", d)
	}
}

func TestEvaluateClientEventPairIndependent(t *testing.T) {
	evs := []audit.Event{
		event(audit.ClientAuthenticationFailure, epoch.Add(10*time.Second)),
		event(audit.UserAuthenticationFailure, epoch.Add(20*time.Second)),
	}
	trail := &fakeTrail{events: evs}
	lp := NewLoginPolicy(trail, audit.ClientAuthenticationSuccess, audit.ClientAuthenticationFailure,
		WithClock(func() time.Time { return epoch.Add(30 * time.Second) }))

	d, err := lp.Evaluate(context.Background(), "zone-a", "joe", testPolicy)
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}
	if d.FailureCount != 1 {
		t.Fatalf("client policy must only count client failures, got %+v", d)
	}
}

func TestEvaluateSurfacesTrailError(t *testing.T) {
	trailErr := errors.New("trail down")
	lp := userPolicy(&fakeTrail{err: trailErr}, epoch)

	if _, err := lp.Evaluate(context.Background(), "zone-a", "joe", testPolicy); !errors.Is(err, trailErr) {
		t.Fatalf("expected trail error to surface, got %v", err)
	}
}
