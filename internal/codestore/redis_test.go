package codestore

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func newRedisFixture(t *testing.T) (*RedisStore, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { rdb.Close() })
	return NewRedisStore(rdb), mr
}

func TestRedisGenerateAndRedeemOnce(t *testing.T) {
	store, _ := newRedisFixture(t)
	ctx := context.Background()

	code, err := store.Generate(ctx, `{"user_id":"u1","client_id":"app"}`, IntentAutologin, time.Now().Add(5*time.Minute), "zone-a")
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}

	got, err := store.RedeemOnce(ctx, code.Code, "zone-a")
	if err != nil {
		t.Fatalf("RedeemOnce: %v", err)
	}
	if got.Data != `{"user_id":"u1","client_id":"app"}` || got.Intent != IntentAutologin {
		t.Fatalf("unexpected code: %+v", got)
	}

	// Second redemption must fail: GETDEL removed the key.
	if _, err := store.RedeemOnce(ctx, code.Code, "zone-a"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound on second redemption, got %v", err)
	}
}

func TestRedisRedeemIsZoneScoped(t *testing.T) {
	store, _ := newRedisFixture(t)
	ctx := context.Background()

	code, err := store.Generate(ctx, "{}", IntentAutologin, time.Now().Add(time.Minute), "zone-a")
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}

	if _, err := store.RedeemOnce(ctx, code.Code, "zone-b"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("cross-zone redemption must fail, got %v", err)
	}
	// Still redeemable in its own zone.
	if _, err := store.RedeemOnce(ctx, code.Code, "zone-a"); err != nil {
		t.Fatalf("same-zone redemption failed: %v", err)
	}
}

func TestRedisExpiry(t *testing.T) {
	store, mr := newRedisFixture(t)
	ctx := context.Background()

	code, err := store.Generate(ctx, "{}", IntentEmail, time.Now().Add(time.Minute), "zone-a")
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}

	mr.FastForward(2 * time.Minute)

	if _, err := store.RedeemOnce(ctx, code.Code, "zone-a"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound after expiry, got %v", err)
	}
}

func TestRedisGenerateRejectsBadInput(t *testing.T) {
	store, _ := newRedisFixture(t)
	ctx := context.Background()

	if _, err := store.Generate(ctx, "", IntentEmail, time.Now().Add(time.Minute), "zone-a"); !errors.Is(err, ErrEmptyData) {
		t.Fatalf("expected ErrEmptyData, got %v", err)
	}
	if _, err := store.Generate(ctx, "{}", IntentEmail, time.Now().Add(-time.Minute), "zone-a"); !errors.Is(err, ErrInvalidExpiry) {
		t.Fatalf("expected ErrInvalidExpiry, got %v", err)
	}
}
