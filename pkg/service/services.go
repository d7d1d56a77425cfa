package service

import (
	"fmt"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/flowline/flowline/pkg/config"
	"github.com/flowline/flowline/pkg/event"
	"github.com/flowline/flowline/pkg/eventbus"
	"github.com/flowline/flowline/pkg/outbox"
	"github.com/flowline/flowline/pkg/store/postgres"
	redisstore "github.com/flowline/flowline/pkg/store/redis"
)

// Services is the command-side composition root: one writer per aggregate
// family, both sharing the fast-path dispatcher that audit-logs every
// committed event and, when a redis client is supplied, pushes live
// notifications to the UI channels.
type Services struct {
	Workflows *WorkflowService
	Users     *UserService
}

func NewServices(store *postgres.Store, rdb redis.UniversalClient, logger *zap.Logger) *Services {
	var publisher eventbus.ChannelPublisher
	if rdb != nil {
		publisher = eventbus.NewChannelPublisher(rdb)
	}
	dispatcher := eventbus.NewFastPathDispatcher(logger, publisher)

	db := store.DB()
	workflowWriter := outbox.NewWriter(store, postgres.NewWorkflowOutboxRepository(db), event.NewWorkflowRegistry(), dispatcher, logger)
	userWriter := outbox.NewWriter(store, postgres.NewUserOutboxRepository(db), event.NewUserRegistry(), dispatcher, logger)

	return &Services{
		Workflows: NewWorkflowService(postgres.NewWorkflowRepository(db), workflowWriter, logger),
		Users:     NewUserService(postgres.NewUserRepository(db), userWriter, logger),
	}
}

// NewServicesFromConfig bootstraps the command side for a binary: it opens
// the database and redis connections and assembles the services on top. The
// returned close func releases both connections.
func NewServicesFromConfig(cfg *config.Config, logger *zap.Logger) (*Services, func(), error) {
	store, err := postgres.NewStore(&cfg.Database)
	if err != nil {
		return nil, nil, fmt.Errorf("connect postgres: %w", err)
	}

	redisClient, err := redisstore.NewClient(&cfg.Redis)
	if err != nil {
		_ = store.Close()
		return nil, nil, fmt.Errorf("connect redis: %w", err)
	}

	services := NewServices(store, redisClient.Client(), logger)
	closeFn := func() {
		_ = redisClient.Close()
		_ = store.Close()
	}
	return services, closeFn, nil
}
