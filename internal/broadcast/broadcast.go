// Package broadcast relays chat events on per-conversation channels.
package broadcast

import (
	"context"

	"volunteer_chat/internal/domain"
)

type Broadcaster interface {
	Publish(ctx context.Context, channel string, event domain.Event) error
	Subscribe(ctx context.Context, channel string) (Subscription, error)
}

// Subscription delivers events until Close is called or the context used to open it ends.
type Subscription interface {
	Events() <-chan domain.Event
	Close() error
}
