package codestore

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"idzone.org/internal/ids"
)

const redisKeyPrefix = "azc"

var _ Store = (*RedisStore)(nil)

// RedisStore implements Store on redis. GETDEL makes redemption a
// single atomic fetch-and-invalidate; expiry rides on the key TTL.
type RedisStore struct {
	rdb    *redis.Client
	prefix string
	now    func() time.Time
}

// RedisOption configures RedisStore.
type RedisOption func(*RedisStore)

// WithRedisClock overrides the time source (useful for tests).
func WithRedisClock(fn func() time.Time) RedisOption {
	return func(s *RedisStore) {
		if fn != nil {
			s.now = fn
		}
	}
}

// NewRedisStore wraps an existing redis client.
func NewRedisStore(rdb *redis.Client, opts ...RedisOption) *RedisStore {
	s := &RedisStore{rdb: rdb, prefix: redisKeyPrefix, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

type redisCodeRecord struct {
	Data      string `json:"data"`
	Intent    string `json:"intent"`
	ExpiresAt int64  `json:"expires_at"`
}

func (s *RedisStore) key(zoneID, code string) string {
	return s.prefix + ":" + zoneID + ":" + code
}

func (s *RedisStore) Generate(ctx context.Context, data string, intent Intent, expiresAt time.Time, zoneID string) (*ExpiringCode, error) {
	if strings.TrimSpace(data) == "" {
		return nil, ErrEmptyData
	}
	ttl := expiresAt.Sub(s.now())
	if ttl <= 0 {
		return nil, ErrInvalidExpiry
	}
	for i := 0; i < maxGenerateRetries; i++ {
		code := &ExpiringCode{
			Code:           ids.NewToken(codeBytes),
			IdentityZoneID: zoneID,
			ExpiresAt:      expiresAt.UTC(),
			Data:           data,
			Intent:         intent,
		}
		encoded, err := json.Marshal(redisCodeRecord{
			Data:      code.Data,
			Intent:    string(code.Intent),
			ExpiresAt: code.ExpiresAt.Unix(),
		})
		if err != nil {
			return nil, err
		}
		set, err := s.rdb.SetNX(ctx, s.key(zoneID, code.Code), encoded, ttl).Result()
		if err != nil {
			return nil, err
		}
		if set {
			return code, nil
		}
	}
	return nil, errors.New("codestore: generate exhausted retries")
}

func (s *RedisStore) RedeemOnce(ctx context.Context, code, zoneID string) (*ExpiringCode, error) {
	raw, err := s.rdb.GetDel(ctx, s.key(zoneID, code)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	var rec redisCodeRecord
	if err := json.Unmarshal(raw, &rec); err != nil {
		return nil, ErrNotFound
	}
	expiresAt := time.Unix(rec.ExpiresAt, 0).UTC()
	// TTL normally evicts expired keys; the clock check covers drift
	// between issuing and redeeming instances.
	if !expiresAt.After(s.now()) {
		return nil, ErrNotFound
	}
	return &ExpiringCode{
		Code:           code,
		IdentityZoneID: zoneID,
		ExpiresAt:      expiresAt,
		Data:           rec.Data,
		Intent:         Intent(rec.Intent),
	}, nil
}
