package main

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

const (
	keyLogLevel           = "log_level"
	keyListenAddr         = "listen_addr"
	keyWebhookURL         = "webhook_url"
	keyWebhookSecret      = "webhook_secret"
	keyProductName        = "product_name"
	keyRateStore          = "rate_store"
	keyRedisAddr          = "redis_addr"
	keyRedisPassword      = "redis_password"
	keyRedisDB            = "redis_db"
	keyGuardEnabled       = "guard_enabled"
	keyGuardRPS           = "guard_rps"
	keyGuardBurst         = "guard_burst"
	keyConcurrencyMax     = "concurrency_max"
	keyConcurrencyTimeout = "concurrency_timeout"
	keyRateStatsEnabled   = "rate_stats_enabled"
	keyRateStatsPrefix    = "rate_stats_prefix"
	keyRateStatsTTL       = "rate_stats_ttl"
	keyAllowedOrigins     = "allowed_origins"
	keyTrustXFF           = "trust_xff"

	rateStoreMemory = "memory"
	rateStoreRedis  = "redis"
)

type config struct {
	logLevel   string
	listenAddr string

	webhookURL    string
	webhookSecret string
	product       string

	rateStore     string
	redisAddr     string
	redisPassword string
	redisDB       int

	guardEnabled bool
	guardRPS     float64
	guardBurst   int
	trustXFF     bool

	concurrencyMax     int
	concurrencyTimeout time.Duration

	rateStatsEnabled bool
	rateStatsPrefix  string
	rateStatsTTL     time.Duration

	allowedOrigins []string
}

func setDefaults(v *viper.Viper) {
	v.SetDefault(keyLogLevel, "info")
	v.SetDefault(keyListenAddr, ":8080")
	v.SetDefault(keyProductName, "aiResearcher")
	v.SetDefault(keyRateStore, rateStoreMemory)
	v.SetDefault(keyRedisDB, 0)
	v.SetDefault(keyGuardEnabled, true)
	v.SetDefault(keyGuardRPS, 5)
	v.SetDefault(keyGuardBurst, 20)
	v.SetDefault(keyConcurrencyMax, 100)
	v.SetDefault(keyConcurrencyTimeout, 2*time.Second)
	v.SetDefault(keyRateStatsEnabled, false)
	v.SetDefault(keyRateStatsPrefix, "ratelimit:stats")
	v.SetDefault(keyRateStatsTTL, 24*time.Hour)
	v.SetDefault(keyTrustXFF, true)
}

func readConfig(v *viper.Viper) (config, error) {
	cfg := config{
		logLevel:           v.GetString(keyLogLevel),
		listenAddr:         v.GetString(keyListenAddr),
		webhookURL:         strings.TrimSpace(v.GetString(keyWebhookURL)),
		webhookSecret:      v.GetString(keyWebhookSecret),
		product:            v.GetString(keyProductName),
		rateStore:          strings.ToLower(strings.TrimSpace(v.GetString(keyRateStore))),
		redisAddr:          strings.TrimSpace(v.GetString(keyRedisAddr)),
		redisPassword:      v.GetString(keyRedisPassword),
		redisDB:            v.GetInt(keyRedisDB),
		guardEnabled:       v.GetBool(keyGuardEnabled),
		guardRPS:           v.GetFloat64(keyGuardRPS),
		guardBurst:         v.GetInt(keyGuardBurst),
		trustXFF:           v.GetBool(keyTrustXFF),
		concurrencyMax:     v.GetInt(keyConcurrencyMax),
		concurrencyTimeout: v.GetDuration(keyConcurrencyTimeout),
		rateStatsEnabled:   v.GetBool(keyRateStatsEnabled),
		rateStatsPrefix:    v.GetString(keyRateStatsPrefix),
		rateStatsTTL:       v.GetDuration(keyRateStatsTTL),
		allowedOrigins:     splitList(v.GetStringSlice(keyAllowedOrigins)),
	}

	// WEBHOOK_URL ausente não impede a subida: as inscrições recebem 500.
	switch cfg.rateStore {
	case rateStoreMemory, rateStoreRedis:
	default:
		return config{}, fmt.Errorf("RATE_STORE must be %q or %q, got %q", rateStoreMemory, rateStoreRedis, cfg.rateStore)
	}
	if cfg.rateStore == rateStoreRedis && cfg.redisAddr == "" {
		return config{}, errors.New("REDIS_ADDR is required when RATE_STORE=redis")
	}
	if cfg.guardEnabled {
		if cfg.guardRPS <= 0 {
			return config{}, errors.New("GUARD_RPS must be > 0")
		}
		if cfg.guardBurst <= 0 {
			return config{}, errors.New("GUARD_BURST must be > 0")
		}
	}
	if cfg.concurrencyMax < 0 {
		return config{}, errors.New("CONCURRENCY_MAX must be >= 0")
	}
	return cfg, nil
}

// usesRedis informa se alguma parte precisa do cliente Redis.
func (c config) usesRedis() bool {
	return c.rateStore == rateStoreRedis || (c.rateStatsEnabled && c.redisAddr != "")
}

// splitList aceita tanto lista YAML quanto "a,b" vindo do ambiente.
func splitList(in []string) []string {
	var out []string
	for _, item := range in {
		for _, part := range strings.Split(item, ",") {
			if p := strings.TrimSpace(part); p != "" {
				out = append(out, p)
			}
		}
	}
	return out
}
