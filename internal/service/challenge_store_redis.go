package service

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"duemate/internal/domain"
)

const redisPutChallengeScript = `
redis.call("DEL", KEYS[1])
redis.call("HSET", KEYS[1], "code", ARGV[1], "issued_at", ARGV[2])
redis.call("PEXPIRE", KEYS[1], ARGV[3])
return 1
`

const redisConsumeChallengeScript = `
local code = redis.call("HGET", KEYS[1], "code")
local issued = redis.call("HGET", KEYS[1], "issued_at")
if code == ARGV[1] and issued == ARGV[2] then
  redis.call("DEL", KEYS[1])
  return 1
end
return 0
`

type redisChallengeClient interface {
	Eval(ctx context.Context, script string, keys []string, args ...interface{}) *redis.Cmd
	HGetAll(ctx context.Context, key string) *redis.MapStringStringCmd
	Del(ctx context.Context, keys ...string) *redis.IntCmd
}

type redisChallengeStore struct {
	client    redisChallengeClient
	prefix    string
	retention time.Duration
}

// NewRedisChallengeStore guarda los challenges en hashes de Redis. Las claves
// expiran solas tras retention, que debe ser mayor que el TTL del OTP.
func NewRedisChallengeStore(client *redis.Client, retention time.Duration) ChallengeStore {
	if client == nil {
		return nil
	}
	if retention <= 0 {
		retention = 6 * time.Minute
	}
	return &redisChallengeStore{
		client:    client,
		prefix:    "otp:challenge:",
		retention: retention,
	}
}

func (s *redisChallengeStore) key(identifier string) string {
	return s.prefix + identifier
}

func (s *redisChallengeStore) Put(ctx context.Context, identifier string, ch domain.Challenge) error {
	err := s.client.Eval(ctx, redisPutChallengeScript, []string{s.key(identifier)},
		ch.Code,
		strconv.FormatInt(ch.IssuedAt.UnixNano(), 10),
		s.retention.Milliseconds(),
	).Err()
	if err != nil {
		return fmt.Errorf("redis put challenge: %w", err)
	}
	return nil
}

func (s *redisChallengeStore) Get(ctx context.Context, identifier string) (domain.Challenge, bool, error) {
	values, err := s.client.HGetAll(ctx, s.key(identifier)).Result()
	if err != nil {
		return domain.Challenge{}, false, fmt.Errorf("redis get challenge: %w", err)
	}
	code := strings.TrimSpace(values["code"])
	if code == "" {
		return domain.Challenge{}, false, nil
	}
	nanos, err := strconv.ParseInt(values["issued_at"], 10, 64)
	if err != nil {
		return domain.Challenge{}, false, fmt.Errorf("parse issued_at: %w", err)
	}
	return domain.Challenge{Code: code, IssuedAt: time.Unix(0, nanos).UTC()}, true, nil
}

func (s *redisChallengeStore) Remove(ctx context.Context, identifier string) error {
	if err := s.client.Del(ctx, s.key(identifier)).Err(); err != nil {
		return fmt.Errorf("redis remove challenge: %w", err)
	}
	return nil
}

func (s *redisChallengeStore) Consume(ctx context.Context, identifier string, ch domain.Challenge) (bool, error) {
	n, err := s.client.Eval(ctx, redisConsumeChallengeScript, []string{s.key(identifier)},
		ch.Code,
		strconv.FormatInt(ch.IssuedAt.UnixNano(), 10),
	).Int()
	if err != nil {
		return false, fmt.Errorf("redis consume challenge: %w", err)
	}
	return n == 1, nil
}
