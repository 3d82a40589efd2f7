// Command smoke-authn drives the authentication-decision core end to
// end against in-memory collaborators: it replays a brute-force streak
// through the lockout policy, then issues and redeems an autologin
// code, checking the at-most-once property on the way.
package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sort"
	"sync"
	"time"

	"idzone.org/internal/audit"
	"idzone.org/internal/authn"
	"idzone.org/internal/codestore"
	"idzone.org/internal/ids"
	"idzone.org/internal/obs"
	"idzone.org/internal/tenant"
	"idzone.org/internal/users"
)

const zoneID = "smoke-zone"

type memTrail struct {
	mu     sync.Mutex
	events []audit.Event
}

func (m *memTrail) Find(_ context.Context, principalID string, since time.Time, zone string) ([]audit.Event, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var res []audit.Event
	for _, ev := range m.events {
		if ev.PrincipalID == principalID && ev.IdentityZoneID == zone && !ev.OccurredAt.Before(since) {
			res = append(res, ev)
		}
	}
	sort.Slice(res, func(i, j int) bool { return res[i].OccurredAt.After(res[j].OccurredAt) })
	return res, nil
}

func (m *memTrail) Record(_ context.Context, ev *audit.Event) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if ev.ID == "" {
		ev.ID = ids.New()
	}
	m.events = append(m.events, *ev)
	return nil
}

type memCodes struct {
	mu    sync.Mutex
	codes map[string]*codestore.ExpiringCode
	now   func() time.Time
}

func (m *memCodes) Generate(_ context.Context, data string, intent codestore.Intent, expiresAt time.Time, zone string) (*codestore.ExpiringCode, error) {
	if !expiresAt.After(m.now()) {
		return nil, codestore.ErrInvalidExpiry
	}
	code := &codestore.ExpiringCode{
		Code:           ids.NewToken(16),
		IdentityZoneID: zone,
		ExpiresAt:      expiresAt,
		Data:           data,
		Intent:         intent,
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.codes[zone+"/"+code.Code] = code
	return code, nil
}

func (m *memCodes) RedeemOnce(_ context.Context, code, zone string) (*codestore.ExpiringCode, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := zone + "/" + code
	ec, ok := m.codes[key]
	if !ok || !ec.ExpiresAt.After(m.now()) {
		delete(m.codes, key)
		return nil, codestore.ErrNotFound
	}
	delete(m.codes, key)
	return ec, nil
}

type memRegistry struct{ known map[string]bool }

func (m *memRegistry) Exists(_ context.Context, clientID, zone string) (bool, error) {
	return m.known[zone+"/"+clientID], nil
}

type memDirectory struct{ users map[string]*users.User }

func (m *memDirectory) FindByID(_ context.Context, userID, zone string) (*users.User, error) {
	u, ok := m.users[zone+"/"+userID]
	if !ok {
		return nil, users.ErrNotFound
	}
	return u, nil
}

func main() {
	obs.Init()
	obs.InitBuildInfo("smoke", "dev")

	now := time.Now()
	clock := &struct{ t time.Time }{t: now}

	ctx := audit.EnsureRequestID(tenant.WithID(context.Background(), zoneID))
	zone, err := tenant.Require(ctx)
	if err != nil {
		log.Fatalf("tenant resolution: %v", err)
	}

	trail := &memTrail{}
	policy := authn.LockoutPolicy{
		CountFailuresWithin:  900 * time.Second,
		LockoutAfterFailures: 5,
		LockoutPeriod:        300 * time.Second,
	}
	lp := authn.NewLoginPolicy(trail, audit.UserAuthenticationSuccess, audit.UserAuthenticationFailure,
		authn.WithClock(func() time.Time { return clock.t }))

	// Record the failure, then evaluate: five failures lock joe out.
	for i := 0; i < 5; i++ {
		ev := &audit.Event{
			PrincipalID:    "joe",
			Type:           audit.UserAuthenticationFailure,
			Origin:         "smoke",
			IdentityZoneID: zone,
			OccurredAt:     now.Add(time.Duration(i*10) * time.Second),
		}
		if err := trail.Record(ctx, ev); err != nil {
			log.Fatalf("record failure %d: %v", i, err)
		}
	}
	clock.t = now.Add(50 * time.Second)
	decision, err := lp.Evaluate(ctx, zone, "joe", policy)
	if err != nil {
		log.Fatalf("evaluate: %v", err)
	}
	if decision.Allowed || decision.FailureCount != 5 {
		log.Fatalf("expected lockout with count 5, got %+v", decision)
	}

	// Once the lockout period elapses the account unlocks, count intact.
	clock.t = now.Add(400 * time.Second)
	decision, err = lp.Evaluate(ctx, zone, "joe", policy)
	if err != nil {
		log.Fatalf("evaluate after lockout period: %v", err)
	}
	if !decision.Allowed || decision.FailureCount != 5 {
		log.Fatalf("expected unlock with count 5, got %+v", decision)
	}

	codes := &memCodes{codes: map[string]*codestore.ExpiringCode{}, now: func() time.Time { return clock.t }}
	registry := &memRegistry{known: map[string]bool{zone + "/login-client": true}}
	directory := &memDirectory{users: map[string]*users.User{
		zone + "/u-joe": {ID: "u-joe", IdentityZoneID: zone, Username: "joe", Status: "active"},
	}}
	autologin := authn.NewAutologin(codes, registry, directory)

	issued, err := codes.Generate(ctx, `{"user_id":"u-joe","client_id":"login-client"}`,
		codestore.IntentAutologin, clock.t.Add(5*time.Minute), zone)
	if err != nil {
		log.Fatalf("generate code: %v", err)
	}

	principal, err := autologin.Redeem(ctx, zone, issued.Code, "login-client")
	if err != nil {
		log.Fatalf("redeem: %v", err)
	}
	if principal.UserID != "u-joe" || principal.ClientID != "login-client" {
		log.Fatalf("unexpected principal: %+v", principal)
	}

	// A second redemption of the same code must fail generically.
	if _, err := autologin.Redeem(ctx, zone, issued.Code, "login-client"); !errors.Is(err, authn.ErrBadCredentials) {
		log.Fatalf("second redemption should be rejected, got %v", err)
	}

	fmt.Printf("✅ authn smoke test passed: zone=%s user=%s\n", zone, principal.Username)
}
