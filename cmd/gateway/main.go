package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"admission-gateway/middleware/admission"
	"admission-gateway/middleware/admission/application"
	"admission-gateway/middleware/admission/domain"
	"admission-gateway/middleware/admission/infra"

	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

func main() {
	cfg, err := readConfig()
	if err != nil {
		log.Fatalf("config error: %v", err)
	}

	logger := zerolog.New(os.Stdout).With().Timestamp().Str("service", "admission-gateway").Logger()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	// Stores: Postgres quando tem DSN, memória caso contrário.
	var (
		ledger     domain.EventLedger
		reputation domain.ReputationStore
		tenants    domain.TenantStore
	)
	if cfg.postgresDSN != "" {
		pool, err := pgxpool.New(ctx, cfg.postgresDSN)
		if err != nil {
			log.Fatalf("postgres pool error: %v", err)
		}
		defer pool.Close()

		pingCtx, cancelPing := context.WithTimeout(ctx, 3*time.Second)
		err = pool.Ping(pingCtx)
		cancelPing()
		if err != nil {
			log.Fatalf("postgres ping error: %v", err)
		}

		pgLedger := infra.NewPostgresLedger(pool, infra.WithPostgresRetentionCap(cfg.retentionCap))
		pgReputation := infra.NewPostgresReputation(pool)
		pgTenants := infra.NewPostgresTenantStore(pool)
		for _, ensure := range []func(context.Context) error{
			pgLedger.EnsureSchema, pgReputation.EnsureSchema, pgTenants.EnsureSchema,
		} {
			if err := ensure(ctx); err != nil {
				log.Fatalf("postgres schema error: %v", err)
			}
		}
		pgLedger.StartJanitor(ctx)

		ledger, reputation, tenants = pgLedger, pgReputation, pgTenants
	} else {
		memLedger := infra.NewMemoryLedger(infra.WithRetentionCap(cfg.retentionCap))
		memLedger.StartJanitor(ctx)

		// Modo single-tenant: com UPSTREAM_URL definido, um tenant default
		// já sai registrado apontando pro upstream.
		var seed []domain.Tenant
		if cfg.upstreamURL != "" {
			seed = append(seed, domain.Tenant{
				ID: "default", Name: "Default", APIKey: cfg.defaultAPIKey, Origin: cfg.upstreamURL,
			})
		}

		ledger = memLedger
		reputation = infra.NewMemoryReputation()
		tenants = infra.NewMemoryTenantStore(seed...)
	}

	if cfg.prefilterEnabled {
		reputation = infra.NewSeenFilter(reputation, cfg.prefilterCapacity, cfg.prefilterFPRate)
	}

	// Cache de veredito: Redis quando tem endereço, memória caso contrário.
	var cache domain.VerdictCache
	if cfg.redisAddr != "" {
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.redisAddr,
			Password: cfg.redisPassword,
			DB:       cfg.redisDB,
		})
		defer func() { _ = rdb.Close() }()

		pingCtx, cancelPing := context.WithTimeout(ctx, 2*time.Second)
		_, err := rdb.Ping(pingCtx).Result()
		cancelPing()
		if err != nil {
			log.Fatalf("redis ping error: %v", err)
		}

		cache = infra.NewRedisVerdictCache(rdb, infra.WithCachePrefix(cfg.cachePrefix))
	} else {
		memCache := infra.NewMemoryVerdictCache()
		memCache.StartJanitor(ctx)
		cache = memCache
	}

	metrics := admission.NewMetrics(prometheus.DefaultRegisterer)
	feed := admission.NewFeed(logger)

	policy := domain.Policy{BlockScore: cfg.blockScore, ChallengeScore: cfg.challengeScore}

	gate := &application.Gate{
		Ledger:              ledger,
		Reputation:          reputation,
		Cache:               cache,
		Policy:              policy,
		CacheTTL:            cfg.cacheTTL,
		ReputationIncrement: cfg.reputationIncrement,
		BlockThreshold:      cfg.reputationBlockThreshold,
		CallTimeout:         cfg.storeCallTimeout,
		Logger:              logger,
		OnOutcome: func(tenantID string, fp domain.Fingerprint, out application.Outcome) {
			metrics.Observe(tenantID, fp, out)
			feed.Publish(tenantID, fp, out)
		},
		OnStoreFailure: metrics.ObserveStoreFailure,
	}

	handlers := &admission.Handlers{
		Ledger:   ledger,
		Tenants:  tenants,
		Policy:   policy,
		TrustXFF: cfg.trustXFF,
		Logger:   logger,
	}

	proxy := &admission.Proxy{
		Gate:        gate,
		TrustXFF:    cfg.trustXFF,
		StripPrefix: "/proxy",
		Logger:      logger,
	}

	var proxyChain http.Handler = proxy
	proxyChain = admission.Concurrency(admission.ConcurrencyOptions{
		Max:            cfg.concurrencyMax,
		AcquireTimeout: cfg.concurrencyTimeout,
	})(proxyChain)
	if cfg.rateEnabled {
		buckets := infra.NewBucketStore(cfg.rateRPS, cfg.rateBurst)
		buckets.StartJanitor(ctx)
		proxyChain = admission.PreLimit(admission.PreLimitOptions{
			Store:      buckets,
			TrustXFF:   cfg.trustXFF,
			RetryAfter: cfg.retryAfter,
		})(proxyChain)
	}
	proxyChain = admission.Authenticate(tenants, logger)(proxyChain)

	r := chi.NewRouter()
	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok\n"))
	})
	r.Handle("/metrics", promhttp.Handler())
	r.Get("/v1/stream", feed.ServeHTTP)
	r.Post("/v1/tenants", handlers.CreateTenant)
	r.Get("/v1/tenants", handlers.ListTenants)
	r.Group(func(pr chi.Router) {
		pr.Use(admission.Authenticate(tenants, logger))
		pr.Post("/v1/event", handlers.Event)
		pr.Get("/v1/event/stats", handlers.EventStats)
		pr.Get("/v1/event/decision", handlers.EventDecision)
		pr.Post("/v1/evaluate", handlers.Evaluate)
	})
	r.Handle("/proxy", proxyChain)
	r.Handle("/proxy/*", proxyChain)

	srv := &http.Server{
		Addr:              cfg.listenAddr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       90 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancelShutdown()
		_ = srv.Shutdown(shutdownCtx)
	}()

	logger.Info().
		Str("addr", cfg.listenAddr).
		Bool("postgres", cfg.postgresDSN != "").
		Bool("redis", cfg.redisAddr != "").
		Bool("prefilter", cfg.prefilterEnabled).
		Bool("rate", cfg.rateEnabled).
		Msg("admission gateway listening")
	logger.Info().
		Int("retention_cap", cfg.retentionCap).
		Dur("cache_ttl", cfg.cacheTTL).
		Int("block_score", cfg.blockScore).
		Int("challenge_score", cfg.challengeScore).
		Int("reputation_increment", cfg.reputationIncrement).
		Int("reputation_block_threshold", cfg.reputationBlockThreshold).
		Dur("store_call_timeout", cfg.storeCallTimeout).
		Msg("admission policy")

	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Fatalf("server error: %v", err)
	}
}

type config struct {
	listenAddr    string
	upstreamURL   string
	defaultAPIKey string
	trustXFF      bool

	postgresDSN   string
	redisAddr     string
	redisPassword string
	redisDB       int
	cachePrefix   string

	cacheTTL                 time.Duration
	retentionCap             int
	reputationIncrement      int
	reputationBlockThreshold int
	blockScore               int
	challengeScore           int
	storeCallTimeout         time.Duration

	prefilterEnabled  bool
	prefilterCapacity uint
	prefilterFPRate   float64

	rateEnabled bool
	rateRPS     float64
	rateBurst   int
	retryAfter  time.Duration

	concurrencyMax     int
	concurrencyTimeout time.Duration
}

func readConfig() (config, error) {
	cfg := config{}
	cfg.listenAddr = getenvDefault("LISTEN_ADDR", ":8080")
	cfg.upstreamURL = os.Getenv("UPSTREAM_URL")
	cfg.defaultAPIKey = getenvDefault("DEFAULT_API_KEY", "dev-key")
	cfg.trustXFF = getenvBoolDefault("TRUST_XFF", false)

	cfg.postgresDSN = os.Getenv("POSTGRES_DSN")
	cfg.redisAddr = os.Getenv("REDIS_ADDR")
	cfg.redisPassword = os.Getenv("REDIS_PASSWORD")
	cfg.redisDB = getenvIntDefault("REDIS_DB", 0)
	cfg.cachePrefix = getenvDefault("CACHE_PREFIX", "admission:block")

	cfg.cacheTTL = getenvDurationDefault("CACHE_TTL", 600*time.Second)
	cfg.retentionCap = getenvIntDefault("EVENT_RETENTION_CAP", domain.DefaultRetentionCap)
	cfg.reputationIncrement = getenvIntDefault("REPUTATION_INCREMENT", 15)
	cfg.reputationBlockThreshold = getenvIntDefault("REPUTATION_BLOCK_THRESHOLD", 50)
	cfg.blockScore = getenvIntDefault("BLOCK_SCORE", 80)
	cfg.challengeScore = getenvIntDefault("CHALLENGE_SCORE", 30)
	cfg.storeCallTimeout = getenvDurationDefault("STORE_CALL_TIMEOUT", 2*time.Second)

	cfg.prefilterEnabled = getenvBoolDefault("REPUTATION_PREFILTER", true)
	cfg.prefilterCapacity = uint(getenvIntDefault("REPUTATION_PREFILTER_CAPACITY", 100_000))
	cfg.prefilterFPRate = getenvFloatDefault("REPUTATION_PREFILTER_FP_RATE", 0.01)

	cfg.rateEnabled = getenvBoolDefault("RATE_ENABLED", false)
	cfg.rateRPS = getenvFloatDefault("RATE_RPS", 50)
	cfg.rateBurst = getenvIntDefault("RATE_BURST", 100)
	cfg.retryAfter = getenvDurationDefault("RETRY_AFTER", 1*time.Second)

	cfg.concurrencyMax = getenvIntDefault("CONCURRENCY_MAX", 100)
	cfg.concurrencyTimeout = getenvDurationDefault("CONCURRENCY_TIMEOUT", 0)

	if cfg.cacheTTL <= 0 {
		return config{}, errors.New("CACHE_TTL must be > 0")
	}
	if cfg.retentionCap <= 0 {
		return config{}, errors.New("EVENT_RETENTION_CAP must be > 0")
	}
	if cfg.reputationIncrement <= 0 {
		return config{}, errors.New("REPUTATION_INCREMENT must be > 0")
	}
	if cfg.challengeScore <= 0 || cfg.blockScore <= cfg.challengeScore {
		return config{}, errors.New("BLOCK_SCORE must be greater than CHALLENGE_SCORE, both > 0")
	}
	if cfg.rateEnabled && cfg.rateRPS <= 0 {
		return config{}, errors.New("RATE_RPS must be > 0")
	}
	if cfg.rateEnabled && cfg.rateBurst <= 0 {
		return config{}, errors.New("RATE_BURST must be > 0")
	}
	if cfg.concurrencyMax < 0 {
		return config{}, errors.New("CONCURRENCY_MAX must be >= 0")
	}
	if cfg.upstreamURL != "" && !strings.Contains(cfg.upstreamURL, "://") {
		return config{}, errors.New("UPSTREAM_URL must be an absolute URL")
	}
	return cfg, nil
}

func getenvDefault(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

func getenvIntDefault(k string, def int) int {
	v := os.Getenv(k)
	if v == "" {
		return def
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return i
}

func getenvFloatDefault(k string, def float64) float64 {
	v := os.Getenv(k)
	if v == "" {
		return def
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return def
	}
	return f
}

func getenvBoolDefault(k string, def bool) bool {
	v := os.Getenv(k)
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return def
	}
	return b
}

func getenvDurationDefault(k string, def time.Duration) time.Duration {
	v := os.Getenv(k)
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return def
	}
	return d
}
