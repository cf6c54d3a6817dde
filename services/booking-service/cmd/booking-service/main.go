package main

import (
	"context"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
	"github.com/turnly/turnly/libs/auth"
	"github.com/turnly/turnly/libs/config"
	"github.com/turnly/turnly/libs/db"
	"github.com/turnly/turnly/libs/httpx"
	"github.com/turnly/turnly/libs/kafkax"
	otelx "github.com/turnly/turnly/libs/otel"
	"github.com/turnly/turnly/libs/runtime"
	"github.com/turnly/turnly/libs/whatsapp"
	"github.com/turnly/turnly/services/booking-service/internal/availability"
	"github.com/turnly/turnly/services/booking-service/internal/booking"
	"github.com/turnly/turnly/services/booking-service/internal/draft"
	"github.com/turnly/turnly/services/booking-service/internal/handlers"
	"github.com/turnly/turnly/services/booking-service/internal/migrations"
	"github.com/turnly/turnly/services/booking-service/internal/outbox"
	"github.com/turnly/turnly/services/booking-service/internal/storage"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

func main() {
	if err := config.Load(); err != nil {
		panic(err)
	}
	service := config.String("SERVICE_NAME", "booking-service")
	port, err := config.Port("PORT", "8083")
	if err != nil {
		panic(err)
	}
	logger := runtime.NewLogger(service)

	ctx, stop := runtime.SignalContext()
	defer stop()

	otelShutdown, err := otelx.Setup(ctx, otelx.ConfigFromEnv(service))
	if err != nil {
		logger.Error("otel setup failed", "err", err)
	} else {
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = otelShutdown(shutdownCtx)
		}()
	}

	dbURL, err := config.RequiredString("DATABASE_URL")
	if err != nil {
		panic(err)
	}
	jwtSecret, err := config.RequiredString("JWT_SECRET")
	if err != nil {
		panic(err)
	}
	draftTTL, err := config.Duration("DRAFT_TTL", draft.DefaultTTL)
	if err != nil {
		panic(err)
	}
	ratePerMinute, err := config.Int("RATE_LIMIT_PER_MINUTE", 120)
	if err != nil {
		panic(err)
	}
	redisDB, err := config.Int("REDIS_DB", 0)
	if err != nil {
		panic(err)
	}
	brokers := kafkax.SplitBrokers(config.String("KAFKA_BROKERS", ""))

	pool, err := db.Open(ctx, dbURL, db.DefaultOptions())
	if err != nil {
		logger.Error("db connection failed", "err", err)
		panic(err)
	}
	defer pool.Close()

	if config.Bool("MIGRATE_ON_START", false) {
		if err := db.Migrate(ctx, pool, migrations.FS, migrations.Dir, migrations.Table, logger); err != nil {
			logger.Error("migrations failed", "err", err)
			panic(err)
		}
	}

	checks := []runtime.ReadyCheck{{Name: "db", Check: db.ReadyCheck(pool)}}
	if len(brokers) > 0 {
		checks = append(checks, runtime.ReadyCheck{Name: "kafka", Check: kafkax.ReadyCheck(brokers)})
	}

	// Redis is optional: without it drafts and rate limits live in process
	// memory, which only holds for a single instance.
	var (
		drafts  draft.Store
		limiter httpx.Limiter
	)
	if addr := config.String("REDIS_ADDR", ""); addr != "" {
		rdb := redis.NewClient(&redis.Options{
			Addr:     addr,
			Password: config.String("REDIS_PASSWORD", ""),
			DB:       redisDB,
		})
		defer func() { _ = rdb.Close() }()
		drafts = draft.NewRedisStore(rdb, draftTTL, "turnly:")
		limiter = httpx.NewRedisLimiter(rdb, ratePerMinute, time.Minute, "turnly:ratelimit:")
		checks = append(checks, runtime.ReadyCheck{Name: "redis", Check: func(ctx context.Context) error {
			return rdb.Ping(ctx).Err()
		}})
	} else {
		logger.Warn("REDIS_ADDR not set; drafts and rate limits are kept in memory")
		drafts = draft.NewMemoryStore(draftTTL)
		limiter = httpx.NewMemoryLimiter(ratePerMinute, time.Minute)
	}

	outboxRepo := outbox.NewRepository()
	store := storage.NewStore(pool, outboxRepo)
	engine := availability.NewEngine(store, logger)
	booker := booking.NewService(store, logger, time.Now)
	flow := draft.NewFlow(drafts, store, engine, booker, logger, time.Now)

	var dispatcher outbox.Dispatcher
	if len(brokers) > 0 {
		dispatcher = outbox.NewKafkaDispatcher(brokers)
	} else {
		sender, err := whatsapp.New(whatsapp.Config{
			Provider:          config.String("WHATSAPP_PROVIDER", "mock"),
			MetaBaseURL:       config.String("META_BASE_URL", ""),
			MetaPhoneNumberID: config.String("META_PHONE_NUMBER_ID", ""),
			MetaAccessToken:   config.String("META_ACCESS_TOKEN", ""),
			EvolutionURL:      config.String("EVOLUTION_API_URL", ""),
			EvolutionInstance: config.String("EVOLUTION_INSTANCE", ""),
			EvolutionAPIKey:   config.String("EVOLUTION_API_KEY", ""),
		}, logger)
		if err != nil {
			panic(err)
		}
		dispatcher = outbox.NewDirectDispatcher(sender, logger)
	}
	relay := outbox.NewPublisher(pool, outboxRepo, dispatcher, logger, outbox.PublisherConfig{
		PollEvery: 2 * time.Second,
		BatchSize: 50,
	})
	go relay.Run(ctx)

	signer, err := auth.NewSigner(jwtSecret, config.String("JWT_ISSUER", "turnly"), 12*time.Hour)
	if err != nil {
		panic(err)
	}

	mux := runtime.NewBaseMuxWithReady(checks...)
	mux.Handle("GET /metrics", httpx.MetricsHandler(prometheus.DefaultGatherer))
	handlers.NewPublicHandler(store, engine, booker, logger).Register(mux)
	handlers.NewDraftHandler(flow, handlers.CookieConfig{
		Secure: config.Bool("COOKIE_SECURE", true),
		MaxAge: draftTTL,
	}, logger).Register(mux)
	handlers.NewAdminHandler(store, booker, logger, time.Now).
		Register(mux, auth.RequireRole(signer, auth.RoleOwner, auth.RoleAdmin))

	httpHandler := httpx.Chain(mux,
		httpx.WithRequestID,
		httpx.WithRecover(logger),
		httpx.WithAccessLog(logger),
		httpx.NewHTTPMetrics(prometheus.DefaultRegisterer, "turnly").Middleware(),
		httpx.WithCORS(httpx.PublicCORSPolicy(config.List("CORS_ALLOWED_ORIGINS"))),
		httpx.RateLimit(limiter, logger, true),
		httpx.WithBodyLimit(1<<20),
		httpx.WithTimeout(15*time.Second),
	)
	httpHandler = otelhttp.NewHandler(httpHandler, "booking")
	srv := &http.Server{
		Addr:              ":" + port,
		Handler:           httpHandler,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		logger.Info("http server starting", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("http server error", "err", err)
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown error", "err", err)
	}
	logger.Info("http server stopped")
}
