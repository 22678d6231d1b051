package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

// La ventana se fija en el primer intento; una clave sin TTL la recupera.
const redisAttemptAllowScript = `
local current = redis.call("INCR", KEYS[1])
if redis.call("PTTL", KEYS[1]) < 0 then
  redis.call("PEXPIRE", KEYS[1], ARGV[1])
end
return current
`

type redisEvaler interface {
	Eval(ctx context.Context, script string, keys []string, args ...interface{}) *redis.Cmd
}

type redisAttemptLimiter struct {
	client  redisEvaler
	window  time.Duration
	max     int
	prefix  string
	timeout time.Duration
}

// NewRedisAttemptLimiter comparte el contador de intentos entre instancias.
// Si Redis no responde, Allow devuelve error y el intento se rechaza.
func NewRedisAttemptLimiter(client *redis.Client, window time.Duration, max int) AttemptLimiter {
	if client == nil {
		return nil
	}
	if window <= 0 {
		window = time.Minute
	}
	if max <= 0 {
		max = 1
	}
	return &redisAttemptLimiter{
		client:  client,
		window:  window,
		max:     max,
		prefix:  "otp:verify:rl:",
		timeout: 500 * time.Millisecond,
	}
}

func (l *redisAttemptLimiter) Allow(ctx context.Context, key string) (bool, error) {
	if l == nil || l.client == nil {
		return false, errors.New("attempt limiter: redis client not configured")
	}
	normalized := strings.ToLower(strings.TrimSpace(key))
	if normalized == "" {
		return false, nil
	}
	timeout := l.timeout
	if timeout <= 0 {
		timeout = 500 * time.Millisecond
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	count, err := l.client.Eval(ctx, redisAttemptAllowScript, []string{l.prefix + normalized}, l.window.Milliseconds()).Int()
	if err != nil {
		return false, fmt.Errorf("attempt limiter: %w", err)
	}
	return count <= l.max, nil
}
