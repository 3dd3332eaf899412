package infra

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"waitlist-gateway/middleware/ratelimit/domain"

	"github.com/redis/go-redis/v9"
)

// RedisStatsStore grava as decisões em hashes com campos "allowed"/"denied":
//
//	<prefix>:total                 acumulado, sem ttl
//	<prefix>:scopes                set com os escopos já vistos
//	<prefix>:scope:<scope>         acumulado por escopo
//	<prefix>:minute:<yyyymmddhhmm> série por minuto (ttl)
//	<prefix>:route                 campos "<método> <path>:allowed|denied"
//	<prefix>:key:<ip>              por visitante, só com WithStatsTrackKeys (ttl)
type RedisStatsStore struct {
	cli redis.UniversalClient

	prefix    string
	ttl       time.Duration
	perMinute bool
	trackKeys bool
}

type RedisStatsOption func(*RedisStatsStore)

func WithStatsPrefix(prefix string) RedisStatsOption {
	return func(s *RedisStatsStore) { s.prefix = strings.Trim(prefix, ":") }
}

func WithStatsTTL(d time.Duration) RedisStatsOption {
	return func(s *RedisStatsStore) { s.ttl = d }
}

// WithStatsPerMinute liga ou desliga a série por minuto (ligada por padrão).
func WithStatsPerMinute(on bool) RedisStatsOption {
	return func(s *RedisStatsStore) { s.perMinute = on }
}

func WithStatsTrackKeys(track bool) RedisStatsOption {
	return func(s *RedisStatsStore) { s.trackKeys = track }
}

func NewRedisStatsStore(cli redis.UniversalClient, opts ...RedisStatsOption) *RedisStatsStore {
	s := &RedisStatsStore{
		cli:       cli,
		prefix:    "ratelimit:stats",
		ttl:       24 * time.Hour,
		perMinute: true,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *RedisStatsStore) Record(ctx context.Context, ev domain.StatsEvent) error {
	if s == nil || s.cli == nil {
		return nil
	}
	at := ev.At
	if at.IsZero() {
		at = time.Now()
	}
	field := decisionField(ev.Allowed)

	_, err := s.cli.Pipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HIncrBy(ctx, s.key("total"), field, 1)

		if scope := strings.TrimSpace(ev.Scope); scope != "" {
			pipe.SAdd(ctx, s.key("scopes"), scope)
			pipe.HIncrBy(ctx, s.key("scope", scope), field, 1)
		}
		if s.perMinute {
			s.incrWithTTL(ctx, pipe, s.key("minute", at.UTC().Format("200601021504")), field)
		}
		if route := routeOf(ev); route != "" {
			pipe.HIncrBy(ctx, s.key("route"), route+":"+field, 1)
		}
		if k := strings.TrimSpace(string(ev.Key)); s.trackKeys && k != "" {
			s.incrWithTTL(ctx, pipe, s.key("key", k), field)
		}
		return nil
	})
	return err
}

// Summary lê total, escopos e rotas. A série por minuto fica de fora.
func (s *RedisStatsStore) Summary(ctx context.Context) (domain.StatsSummary, error) {
	out := domain.StatsSummary{ByScope: map[string]domain.Counters{}, ByRoute: map[string]domain.Counters{}}
	if s == nil || s.cli == nil {
		return out, nil
	}

	total, err := s.cli.HGetAll(ctx, s.key("total")).Result()
	if err != nil {
		return out, fmt.Errorf("read stats total: %w", err)
	}
	out.Total = countersFrom(total)

	scopes, err := s.cli.SMembers(ctx, s.key("scopes")).Result()
	if err != nil && !errors.Is(err, redis.Nil) {
		return out, fmt.Errorf("read stats scopes: %w", err)
	}
	for _, scope := range scopes {
		h, err := s.cli.HGetAll(ctx, s.key("scope", scope)).Result()
		if err != nil {
			return out, fmt.Errorf("read stats scope %s: %w", scope, err)
		}
		out.ByScope[scope] = countersFrom(h)
	}

	routes, err := s.cli.HGetAll(ctx, s.key("route")).Result()
	if err != nil {
		return out, fmt.Errorf("read stats routes: %w", err)
	}
	for f, v := range routes {
		route, decision, ok := cutLast(f, ":")
		if !ok {
			continue
		}
		c := out.ByRoute[route]
		n, _ := strconv.ParseInt(v, 10, 64)
		switch decision {
		case "allowed":
			c.Allowed += n
		case "denied":
			c.Denied += n
		}
		out.ByRoute[route] = c
	}
	return out, nil
}

func (s *RedisStatsStore) incrWithTTL(ctx context.Context, pipe redis.Pipeliner, key, field string) {
	pipe.HIncrBy(ctx, key, field, 1)
	if s.ttl > 0 {
		pipe.Expire(ctx, key, s.ttl)
	}
}

func (s *RedisStatsStore) key(parts ...string) string {
	return s.prefix + ":" + strings.Join(parts, ":")
}

func decisionField(allowed bool) string {
	if allowed {
		return "allowed"
	}
	return "denied"
}

func countersFrom(h map[string]string) domain.Counters {
	a, _ := strconv.ParseInt(h["allowed"], 10, 64)
	d, _ := strconv.ParseInt(h["denied"], 10, 64)
	return domain.Counters{Allowed: a, Denied: d}
}

func routeOf(ev domain.StatsEvent) string {
	return strings.TrimSpace(strings.TrimSpace(ev.Method) + " " + strings.TrimSpace(ev.Path))
}

func cutLast(s, sep string) (string, string, bool) {
	i := strings.LastIndex(s, sep)
	if i < 0 {
		return s, "", false
	}
	return s[:i], s[i+len(sep):], true
}
