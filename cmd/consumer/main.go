package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/segmentio/kafka-go"

	"example.com/gardenlog/internal/config"
	"example.com/gardenlog/internal/consumer"
	persistence "example.com/gardenlog/internal/persistence/postgres"
	"example.com/gardenlog/internal/platform/logger"
	"example.com/gardenlog/internal/recurrence"
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

	pool, err := pgxpool.New(ctx, cfg.PostgresURL)
	if err != nil {
		log.Fatal("failed to connect to postgres", "error", err)
	}
	defer pool.Close()

	handlers := consumer.Handlers{consumer.NewPersistenceHandler(pool)}
	if cfg.RecurrenceReplayEnabled {
		scheduler := recurrence.NewScheduler(persistence.NewRepository(pool))
		handlers = append(handlers, consumer.NewRecurrenceHandler(scheduler, log.With("component", "recurrence")))
	}

	metricsSrv := &http.Server{Addr: cfg.MetricsAddress, Handler: promhttp.Handler(), ReadHeaderTimeout: 2 * time.Second}

	go func() {
		log.Info("consumer metrics listening", "addr", cfg.MetricsAddress)
		if err := metricsSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("metrics server error", "error", err)
		}
	}()

	var wg sync.WaitGroup
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	topics := cfg.ConsumerTopics
	if len(topics) == 0 {
		topics = persistence.Topics()
	}
	failed := make(chan error, len(topics))

	for _, topic := range topics {
		reader := kafka.NewReader(kafka.ReaderConfig{
			Brokers:         cfg.KafkaBrokers,
			GroupID:         cfg.ConsumerGroupID,
			Topic:           topic,
			MinBytes:        1e3,
			MaxBytes:        10e6,
			CommitInterval:  time.Second,
			RetentionTime:   24 * time.Hour,
			ReadLagInterval: -1,
		})

		topicLog := log.With("topic", topic)
		proc := consumer.NewProcessor(reader, handlers, consumer.WithLogger(topicLog), consumer.WithRetries(cfg.ConsumerAttempts, cfg.ConsumerRetryBackoff))

		wg.Add(1)
		go func(r *kafka.Reader) {
			defer wg.Done()
			defer r.Close()

			topicLog.Info("consumer started", "group", cfg.ConsumerGroupID, "replay", cfg.RecurrenceReplayEnabled)
			if err := proc.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				topicLog.Error("consumer stopped with error", "error", err)
				failed <- err
			}
		}(reader)
	}

	var runErr error
	select {
	case <-stop:
		log.Info("consumer shutdown requested")
	case runErr = <-failed:
		// Uncommitted offsets are redelivered to the group after restart.
		log.Error("consumer halted, shutting down for restart", "error", runErr)
	}
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := metricsSrv.Shutdown(shutdownCtx); err != nil {
		log.Error("metrics server shutdown error", "error", err)
	}

	wg.Wait()
	if runErr != nil {
		log.Sync()
		os.Exit(1)
	}
}
