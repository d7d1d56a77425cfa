package eventbus

import (
	"go.uber.org/zap"

	"github.com/flowline/flowline/pkg/event"
)

// NewFastPathDispatcher assembles the in-process fan-out shared by the
// command-side writers: an audit log line for every committed event, plus
// live redis notifications when a publisher is supplied.
func NewFastPathDispatcher(logger *zap.Logger, publisher ChannelPublisher) *event.Dispatcher {
	dispatcher := event.NewDispatcher(logger)
	dispatcher.SubscribeAll(event.NewAuditLogger(logger))
	if publisher != nil {
		dispatcher.SubscribeAll(NewRedisNotifier(publisher))
	}
	return dispatcher
}
