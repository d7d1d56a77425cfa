package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/flowline/flowline/pkg/config"
	"github.com/flowline/flowline/pkg/event"
	"github.com/flowline/flowline/pkg/eventbus"
	"github.com/flowline/flowline/pkg/outbox"
	"github.com/flowline/flowline/pkg/store/postgres"
)

const shutdownGracePeriod = 30 * time.Second

type runner interface {
	Run(ctx context.Context) error
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	logger, err := newLogger(&cfg.Logging)
	if err != nil {
		panic(err)
	}
	defer logger.Sync()

	db, err := postgres.NewStore(&cfg.Database)
	if err != nil {
		logger.Fatal("failed to connect to database", zap.Error(err))
	}
	defer db.Close()

	if err := db.AutoMigrate(); err != nil {
		logger.Fatal("failed to run migrations", zap.Error(err))
	}

	workflowBus := eventbus.NewKafkaPublisher(eventbus.KafkaPublisherConfig{
		Brokers:  cfg.Kafka.Brokers,
		ClientID: cfg.Kafka.ClientID,
		Topic:    cfg.Kafka.WorkflowTopic,
	})
	defer workflowBus.Close()

	userBus := eventbus.NewKafkaPublisher(eventbus.KafkaPublisherConfig{
		Brokers:  cfg.Kafka.Brokers,
		ClientID: cfg.Kafka.ClientID,
		Topic:    cfg.Kafka.UserTopic,
	})
	defer userBus.Close()

	workflowOutbox := postgres.NewWorkflowOutboxRepository(db.DB())
	userOutbox := postgres.NewUserOutboxRepository(db.DB())

	// One processor and one cleaner per aggregate family. A single relay
	// instance owns both tables; running replicas would need row claiming.
	runners := []runner{
		outbox.NewProcessor("workflow", workflowOutbox, event.NewWorkflowRegistry(), workflowBus, logger, cfg.Outbox.PollInterval, cfg.Outbox.BatchSize),
		outbox.NewProcessor("user", userOutbox, event.NewUserRegistry(), userBus, logger, cfg.Outbox.PollInterval, cfg.Outbox.BatchSize),
		outbox.NewCleaner("workflow", workflowOutbox, logger, cfg.Outbox.CleanupInterval, cfg.Outbox.Retention),
		outbox.NewCleaner("user", userOutbox, logger, cfg.Outbox.CleanupInterval, cfg.Outbox.Retention),
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var wg sync.WaitGroup
	for _, r := range runners {
		wg.Add(1)
		go func(r runner) {
			defer wg.Done()
			if err := r.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				logger.Error("background loop stopped", zap.Error(err))
			}
		}(r)
	}

	metricsServer := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Metrics.Port),
		Handler: promhttp.Handler(),
	}
	go func() {
		if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("metrics listener stopped", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("outbox relay shutting down")
	cancel()

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(shutdownGracePeriod):
		logger.Warn("shutdown grace period elapsed before loops finished")
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	_ = metricsServer.Shutdown(shutdownCtx)
}

func newLogger(cfg *config.LoggingConfig) (*zap.Logger, error) {
	zapCfg := zap.NewProductionConfig()
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	}
	if cfg.Level != "" {
		level, err := zap.ParseAtomicLevel(cfg.Level)
		if err != nil {
			return nil, err
		}
		zapCfg.Level = level
	}
	return zapCfg.Build()
}
