package eventbus

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/flowline/flowline/pkg/model"
)

const (
	ChannelWorkflow = "fl:events:workflow"
	ChannelUser     = "fl:events:user"
)

type Notification struct {
	EventID     string    `json:"event_id"`
	EventType   string    `json:"event_type"`
	AggregateID string    `json:"aggregate_id"`
	OccurredAt  time.Time `json:"occurred_at"`
}

// ChannelPublisher publishes a payload to a named channel. It is the narrow
// slice of the redis client the notifier needs.
type ChannelPublisher interface {
	Publish(ctx context.Context, channel string, payload []byte) error
}

type redisPublisher struct {
	client redis.UniversalClient
}

func (p redisPublisher) Publish(ctx context.Context, channel string, payload []byte) error {
	return p.client.Publish(ctx, channel, payload).Err()
}

// NewChannelPublisher adapts a redis client to the ChannelPublisher consumed
// by the fast-path dispatcher.
func NewChannelPublisher(client redis.UniversalClient) ChannelPublisher {
	return redisPublisher{client: client}
}

// RedisNotifier pushes a lightweight notification per committed event to the
// live-update channels. It runs on the in-process fast path: a publish
// failure is reported to the dispatcher, logged there and dropped, since the
// durable delivery runs through the outbox.
type RedisNotifier struct {
	publisher ChannelPublisher
}

func NewRedisNotifier(publisher ChannelPublisher) *RedisNotifier {
	return &RedisNotifier{publisher: publisher}
}

func (n *RedisNotifier) Handle(ctx context.Context, evt model.Event) error {
	payload, err := json.Marshal(Notification{
		EventID:     evt.EventID().String(),
		EventType:   evt.EventType(),
		AggregateID: evt.AggregateID().String(),
		OccurredAt:  evt.OccurredAt(),
	})
	if err != nil {
		return err
	}

	channel := ChannelUser
	if strings.HasPrefix(evt.EventType(), "workflow.") {
		channel = ChannelWorkflow
	}
	return n.publisher.Publish(ctx, channel, payload)
}

// Subscribe returns a channel of notifications for live consumers.
func Subscribe(ctx context.Context, client redis.UniversalClient, channels ...string) <-chan *Notification {
	sub := client.Subscribe(ctx, channels...)
	ch := make(chan *Notification, 100)

	go func() {
		defer close(ch)
		for msg := range sub.Channel() {
			var notification Notification
			if err := json.Unmarshal([]byte(msg.Payload), &notification); err != nil {
				continue
			}
			ch <- &notification
		}
	}()

	go func() {
		<-ctx.Done()
		_ = sub.Close()
	}()

	return ch
}
