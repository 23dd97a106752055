package broadcast

import (
	"context"
	"sync"
	"time"

	"volunteer_chat/internal/domain"
	"volunteer_chat/internal/observability"
	"volunteer_chat/pkg/logger"
)

// Dispatcher publishes events in the background. A failed publish is logged and
// counted; it never reaches the caller, whose write is already committed.
type Dispatcher struct {
	broadcaster Broadcaster
	timeout     time.Duration
	log         logger.Logger
	wg          sync.WaitGroup
}

func NewDispatcher(b Broadcaster, timeout time.Duration, log logger.Logger) *Dispatcher {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &Dispatcher{broadcaster: b, timeout: timeout, log: log}
}

// Dispatch publishes data as event name on the conversation channel.
func (d *Dispatcher) Dispatch(conversationID int64, name string, data any) {
	channel := domain.ChatChannel(conversationID)

	event, err := domain.NewEvent(name, data)
	if err != nil {
		d.log.Error("Failed to build event", "error", err, "event", name, "channel", channel)
		observability.BroadcastFailures.WithLabelValues(name).Inc()
		return
	}

	d.wg.Add(1)
	go func() {
		defer d.wg.Done()

		ctx, cancel := context.WithTimeout(context.Background(), d.timeout)
		defer cancel()

		if err := d.broadcaster.Publish(ctx, channel, event); err != nil {
			d.log.Warn("Failed to broadcast event", "error", err, "event", name, "channel", channel)
			observability.BroadcastFailures.WithLabelValues(name).Inc()
		}
	}()
}

// Wait blocks until every in-flight publish has finished.
func (d *Dispatcher) Wait() {
	d.wg.Wait()
}

func (d *Dispatcher) Subscribe(ctx context.Context, conversationID int64) (Subscription, error) {
	return d.broadcaster.Subscribe(ctx, domain.ChatChannel(conversationID))
}
