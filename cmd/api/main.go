package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"example.com/gardenlog/internal/api"
	"example.com/gardenlog/internal/auth"
	"example.com/gardenlog/internal/cache"
	"example.com/gardenlog/internal/config"
	"example.com/gardenlog/internal/domain"
	"example.com/gardenlog/internal/garden"
	"example.com/gardenlog/internal/outbox"
	"example.com/gardenlog/internal/persistence/memory"
	persistence "example.com/gardenlog/internal/persistence/postgres"
	"example.com/gardenlog/internal/platform/logger"
	httptransport "example.com/gardenlog/internal/transport/http"
)

func main() {
	cfg := config.Load()

	log, err := logger.New(cfg.LogMode)
	if err != nil {
		panic(err)
	}
	defer log.Sync()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var (
		store      domain.Store
		dispatcher *outbox.Dispatcher
	)
	switch cfg.StoreDriver {
	case config.StoreMemory:
		log.Warn("using in-memory store; data is lost on restart and no events are published")
		store = memory.NewStore()
	case config.StorePostgres:
		pool, err := pgxpool.New(ctx, cfg.PostgresURL)
		if err != nil {
			log.Fatal("failed to connect to postgres", "error", err)
		}
		defer pool.Close()
		store = persistence.NewRepository(pool)

		producer := outbox.NewKafkaProducer(cfg.KafkaBrokers)
		defer producer.Close()
		registry := outbox.NewSchemaRegistryClient(cfg.SchemaRegistryURL)
		dispatcher = outbox.NewDispatcher(pool, producer, registry, cfg.OutboxPollInterval, cfg.OutboxBatchSize,
			outbox.WithLogger(log.With("component", "outbox")))
		go dispatcher.Start(ctx)
	default:
		log.Fatal("unknown store driver", "driver", cfg.StoreDriver)
	}

	opts := []garden.Option{garden.WithLogger(log.With("component", "garden"))}
	if cfg.RedisAddr != "" {
		notifier, err := cache.NewRedisNotifier(ctx, cfg.RedisAddr, cfg.RedisChannelPrefix)
		if err != nil {
			log.Warn("redis unavailable, feed change notifications disabled", "addr", cfg.RedisAddr, "error", err)
		} else {
			defer notifier.Close()
			opts = append(opts, garden.WithNotifier(notifier))
		}
	}
	service := garden.NewService(store, opts...)

	handler := api.NewHandler(service, log.With("component", "api"))
	mux := http.NewServeMux()
	handler.RegisterRoutes(mux)
	mux.Handle("/metrics", promhttp.Handler())

	authMiddleware := auth.NewMiddleware(auth.Config{Secret: cfg.JWTSecret, Issuer: cfg.JWTIssuer})

	server := httptransport.NewServer(httptransport.ServerConfig{
		Address:           cfg.HTTPAddress,
		ReadTimeout:       5 * time.Second,
		ReadHeaderTimeout: 2 * time.Second,
		WriteTimeout:      10 * time.Second,
		IdleTimeout:       60 * time.Second,
	}, api.RequestLogger(log, api.CORS(cfg.CORSOrigin, authMiddleware.Wrap(mux))), log)

	shutdownCh := make(chan os.Signal, 1)
	signal.Notify(shutdownCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		log.Info("gardenlog api listening", "addr", cfg.HTTPAddress, "store", cfg.StoreDriver)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("server error", "error", err)
		}
	}()

	<-shutdownCh
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("graceful shutdown failed", "error", err)
	}

	if dispatcher != nil {
		dispatcher.Wait()
	}
}
