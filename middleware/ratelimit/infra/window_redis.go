package infra

import (
	"context"
	"fmt"
	"strings"
	"time"

	"waitlist-gateway/middleware/ratelimit/domain"

	"github.com/redis/go-redis/v9"
)

// Script atômico de janela fixa: só incrementa se ainda houver cota, e só
// define a expiração quando cria a chave (primeira requisição da janela).
// Retorna {permitido, contagem, pttl_ms}.
const fixedWindowLua = `
local key = KEYS[1]
local limit = tonumber(ARGV[1])
local window = tonumber(ARGV[2])

local current = tonumber(redis.call("GET", key) or "0")
if current >= limit then
    return {0, current, redis.call("PTTL", key)}
end

local n = redis.call("INCR", key)
if n == 1 then
    redis.call("PEXPIRE", key, window)
end
return {1, n, redis.call("PTTL", key)}
`

// RedisWindowStore tem a mesma semântica de WindowStore, mas a contagem fica no
// Redis e é compartilhada entre processos. A expiração da chave substitui a
// limpeza preguiçosa da versão em memória.
type RedisWindowStore struct {
	rdb    redis.Scripter
	script *redis.Script
	prefix string
	limit  int
	window time.Duration
	now    func() time.Time
}

type RedisWindowOption func(*RedisWindowStore)

func WithWindowPrefix(prefix string) RedisWindowOption {
	return func(s *RedisWindowStore) { s.prefix = strings.Trim(prefix, ":") }
}

func WithRedisClock(now func() time.Time) RedisWindowOption {
	return func(s *RedisWindowStore) { s.now = now }
}

func NewRedisWindowStore(rdb redis.Scripter, limit int, window time.Duration, opts ...RedisWindowOption) *RedisWindowStore {
	if limit <= 0 {
		limit = DefaultWindowLimit
	}
	if window <= 0 {
		window = DefaultWindow
	}
	s := &RedisWindowStore{
		rdb:    rdb,
		script: redis.NewScript(fixedWindowLua),
		prefix: "ratelimit:window",
		limit:  limit,
		window: window,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *RedisWindowStore) Limit() int { return s.limit }

// Take implementa domain.LimiterStore.
func (s *RedisWindowStore) Take(ctx context.Context, key domain.Key) (domain.Decision, error) {
	res, err := s.script.Run(ctx, s.rdb, []string{s.prefix + ":" + string(key)}, s.limit, s.window.Milliseconds()).Int64Slice()
	if err != nil {
		return domain.Decision{}, fmt.Errorf("fixed window script: %w", err)
	}
	if len(res) != 3 {
		return domain.Decision{}, fmt.Errorf("fixed window script: unexpected reply %v", res)
	}

	allowed, count, pttl := res[0] == 1, int(res[1]), res[2]
	if pttl < 0 {
		// chave sem TTL (não deveria acontecer); assume janela cheia
		pttl = s.window.Milliseconds()
	}

	dec := domain.Decision{
		Allowed: allowed,
		Limit:   s.limit,
		ResetAt: s.now().Add(time.Duration(pttl) * time.Millisecond),
	}
	if allowed {
		dec.Remaining = s.limit - count
	}
	return dec, nil
}
