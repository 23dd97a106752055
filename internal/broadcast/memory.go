package broadcast

import (
	"context"
	"sync"

	"volunteer_chat/internal/domain"
)

// MemoryBroadcaster is an in-process hub. Slow subscribers lose events rather
// than block publishers.
type MemoryBroadcaster struct {
	mu   sync.RWMutex
	subs map[string]map[*memorySubscription]struct{}
}

func NewMemoryBroadcaster() *MemoryBroadcaster {
	return &MemoryBroadcaster{subs: make(map[string]map[*memorySubscription]struct{})}
}

func (b *MemoryBroadcaster) Publish(ctx context.Context, channel string, event domain.Event) error {
	b.mu.RLock()
	defer b.mu.RUnlock()

	for sub := range b.subs[channel] {
		select {
		case sub.events <- event:
		default:
		}
	}
	return nil
}

func (b *MemoryBroadcaster) Subscribe(ctx context.Context, channel string) (Subscription, error) {
	sub := &memorySubscription{
		hub:     b,
		channel: channel,
		events:  make(chan domain.Event, 64),
	}

	b.mu.Lock()
	if b.subs[channel] == nil {
		b.subs[channel] = make(map[*memorySubscription]struct{})
	}
	b.subs[channel][sub] = struct{}{}
	b.mu.Unlock()

	go func() {
		<-ctx.Done()
		_ = sub.Close()
	}()
	return sub, nil
}

// Subscribers reports how many subscriptions are open on a channel.
func (b *MemoryBroadcaster) Subscribers(channel string) int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs[channel])
}

func (b *MemoryBroadcaster) unregister(sub *memorySubscription) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if set, ok := b.subs[sub.channel]; ok {
		if _, ok := set[sub]; ok {
			delete(set, sub)
			close(sub.events)
		}
		if len(set) == 0 {
			delete(b.subs, sub.channel)
		}
	}
}

type memorySubscription struct {
	hub     *MemoryBroadcaster
	channel string
	events  chan domain.Event
	once    sync.Once
}

func (s *memorySubscription) Events() <-chan domain.Event { return s.events }

func (s *memorySubscription) Close() error {
	s.once.Do(func() { s.hub.unregister(s) })
	return nil
}
