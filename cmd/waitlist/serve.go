package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"waitlist-gateway/middleware/ratelimit"
	rldomain "waitlist-gateway/middleware/ratelimit/domain"
	"waitlist-gateway/middleware/ratelimit/infra"
	"waitlist-gateway/waitlist/handler"
	"waitlist-gateway/waitlist/metrics"
	"waitlist-gateway/waitlist/webhook"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Sobe o servidor HTTP da waitlist",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := readConfig(viper.GetViper())
		if err != nil {
			return err
		}
		ctx, cancel := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer cancel()
		return serve(ctx, cfg, newLogger(cfg.logLevel))
	},
}

func init() {
	f := serveCmd.Flags()
	f.String("listen", ":8080", "listen address")
	f.String("webhook-url", "", "automation webhook URL")
	f.String("product", "aiResearcher", "product name sent to the webhook")
	f.String("rate-store", rateStoreMemory, "signup window store: memory or redis")
	_ = viper.BindPFlag(keyListenAddr, f.Lookup("listen"))
	_ = viper.BindPFlag(keyWebhookURL, f.Lookup("webhook-url"))
	_ = viper.BindPFlag(keyProductName, f.Lookup("product"))
	_ = viper.BindPFlag(keyRateStore, f.Lookup("rate-store"))
	rootCmd.AddCommand(serveCmd)
}

type stack struct {
	handler http.Handler
	guard   *infra.BucketStore
	closers []func() error
}

func (s *stack) close() {
	for _, c := range s.closers {
		_ = c()
	}
}

// buildStack monta stores, middlewares e rotas a partir da configuração.
func buildStack(ctx context.Context, cfg config, log zerolog.Logger) (*stack, error) {
	st := &stack{}

	var rdb *redis.Client
	if cfg.usesRedis() {
		rdb = redis.NewClient(&redis.Options{
			Addr:     cfg.redisAddr,
			Password: cfg.redisPassword,
			DB:       cfg.redisDB,
		})
		st.closers = append(st.closers, rdb.Close)

		pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
		_, err := rdb.Ping(pingCtx).Result()
		cancel()
		if err != nil {
			st.close()
			return nil, err
		}
	}

	var window rldomain.LimiterStore = infra.NewWindowStore(infra.DefaultWindowLimit, infra.DefaultWindow)
	if cfg.rateStore == rateStoreRedis {
		window = infra.NewRedisWindowStore(rdb, infra.DefaultWindowLimit, infra.DefaultWindow)
	}

	var stats rldomain.StatsStore
	if cfg.rateStatsEnabled {
		if rdb != nil {
			stats = infra.NewRedisStatsStore(rdb,
				infra.WithStatsPrefix(cfg.rateStatsPrefix),
				infra.WithStatsTTL(cfg.rateStatsTTL),
			)
		} else {
			mem := infra.NewMemoryStatsStore()
			stats = mem
			st.closers = append(st.closers, func() error {
				logSummary(log, mem)
				return nil
			})
		}
	}

	keyFn := ratelimit.ForwardedKeyFunc()
	if !cfg.trustXFF {
		keyFn = ratelimit.DefaultKeyFunc("", false)
	}

	h := handler.New(handler.Config{
		WebhookURL:    cfg.webhookURL,
		WebhookSecret: cfg.webhookSecret,
		Product:       cfg.product,
	},
		handler.WithLogger(log),
		handler.WithLimiterStore(window),
		handler.WithKeyFunc(keyFn),
		handler.WithStats(stats),
		handler.WithPoster(webhook.NewClient(webhook.WithLogger(log))),
	)

	var mws []func(http.Handler) http.Handler
	if cfg.guardEnabled {
		st.guard = infra.NewBucketStore(cfg.guardRPS, cfg.guardBurst)
		mws = append(mws, ratelimit.Middleware(ratelimit.Options{
			Store:               st.guard,
			Stats:               stats,
			Scope:               "guard",
			TrustXForwardedFor:  cfg.trustXFF,
			Reject:              handler.RateLimited,
			AddRateLimitHeaders: false,
			Logger:              log,
		}))
	}
	mws = append(mws, ratelimit.ConcurrencyMiddleware(ratelimit.ConcurrencyOptions{
		Max:            cfg.concurrencyMax,
		AcquireTimeout: cfg.concurrencyTimeout,
		Reject:         handler.Overloaded,
		OnChange:       func(n int) { metrics.InFlight.Set(float64(n)) },
		Logger:         log,
	}))

	st.handler = handler.NewRouter(h, handler.RouterOptions{
		AllowedOrigins: cfg.allowedOrigins,
		Middlewares:    mws,
		Metrics:        true,
	})
	return st, nil
}

func serve(ctx context.Context, cfg config, log zerolog.Logger) error {
	if cfg.webhookURL == "" {
		log.Warn().Msg("WEBHOOK_URL is not set; signups will fail with 500 until it is configured")
	}

	st, err := buildStack(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer st.close()
	if st.guard != nil {
		st.guard.StartJanitor(ctx)
	}

	srv := &http.Server{
		Addr:              cfg.listenAddr,
		Handler:           st.handler,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		// acima do prazo do webhook (30s) para a resposta ainda sair
		WriteTimeout: 40 * time.Second,
		IdleTimeout:  90 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	log.Info().
		Str("addr", cfg.listenAddr).
		Str("product", cfg.product).
		Str("rate_store", cfg.rateStore).
		Bool("guard", cfg.guardEnabled).
		Float64("guard_rps", cfg.guardRPS).
		Int("guard_burst", cfg.guardBurst).
		Int("concurrency_max", cfg.concurrencyMax).
		Bool("rate_stats", cfg.rateStatsEnabled).
		Bool("trust_xff", cfg.trustXFF).
		Msg("waitlist listening")

	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	log.Info().Msg("waitlist stopped")
	return nil
}
