package main

import (
	"context"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/turnly/turnly/libs/config"
	"github.com/turnly/turnly/libs/db"
	"github.com/turnly/turnly/libs/httpx"
	"github.com/turnly/turnly/libs/kafkax"
	otelx "github.com/turnly/turnly/libs/otel"
	"github.com/turnly/turnly/libs/runtime"
	"github.com/turnly/turnly/libs/whatsapp"
	"github.com/turnly/turnly/services/notification-service/internal/consumer"
	"github.com/turnly/turnly/services/notification-service/internal/inbox"
	"github.com/turnly/turnly/services/notification-service/internal/migrations"
	"github.com/turnly/turnly/services/notification-service/internal/notify"
	"github.com/turnly/turnly/services/notification-service/internal/storage"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

func main() {
	if err := config.Load(); err != nil {
		panic(err)
	}
	service := config.String("SERVICE_NAME", "notification-service")
	port, err := config.Port("PORT", "8085")
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
	brokers := kafkax.SplitBrokers(config.String("KAFKA_BROKERS", ""))
	if len(brokers) == 0 {
		panic("KAFKA_BROKERS is required")
	}

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

	handler := notify.NewHandler(inbox.NewRepository(pool), storage.NewRepository(pool), sender, logger)
	eventConsumer := consumer.New(logger, consumer.Config{
		Brokers: brokers,
		GroupID: config.String("KAFKA_GROUP_ID", "notification-service"),
		Topic:   config.String("KAFKA_CONSUME_TOPIC", notify.EventAppointmentConfirmed),
	}, handler.Handle)
	go eventConsumer.Run(ctx)

	mux := runtime.NewBaseMuxWithReady(
		runtime.ReadyCheck{Name: "db", Check: db.ReadyCheck(pool)},
		runtime.ReadyCheck{Name: "kafka", Check: kafkax.ReadyCheck(brokers)},
	)
	mux.Handle("GET /metrics", httpx.MetricsHandler(prometheus.DefaultGatherer))
	httpHandler := httpx.Chain(mux,
		httpx.WithRequestID,
		httpx.WithRecover(logger),
		httpx.WithAccessLog(logger),
	)
	httpHandler = otelhttp.NewHandler(httpHandler, "notification")
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
