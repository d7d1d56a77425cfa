// event-tail follows the live notification channels and prints every event
// as it is committed. It is the debugging counterpart of the UI fast path.
package main

import (
	"context"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/flowline/flowline/pkg/config"
	"github.com/flowline/flowline/pkg/eventbus"
	"github.com/flowline/flowline/pkg/store/redis"
)

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

	client, err := redis.NewClient(&cfg.Redis)
	if err != nil {
		logger.Fatal("failed to connect to redis", zap.Error(err))
	}
	defer client.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logger.Info("tailing event channels",
		zap.Strings("channels", []string{eventbus.ChannelWorkflow, eventbus.ChannelUser}))

	for notification := range eventbus.Subscribe(ctx, client.Client(), eventbus.ChannelWorkflow, eventbus.ChannelUser) {
		logger.Info("event",
			zap.String("event_id", notification.EventID),
			zap.String("event_type", notification.EventType),
			zap.String("aggregate_id", notification.AggregateID),
			zap.Time("occurred_at", notification.OccurredAt))
	}
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
