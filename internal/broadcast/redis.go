package broadcast

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/redis/go-redis/v9"
	"volunteer_chat/internal/domain"
	"volunteer_chat/pkg/logger"
)

type RedisBroadcaster struct {
	client *redis.Client
	log    logger.Logger
}

func NewRedisBroadcaster(client *redis.Client, log logger.Logger) *RedisBroadcaster {
	return &RedisBroadcaster{client: client, log: log}
}

func (b *RedisBroadcaster) Publish(ctx context.Context, channel string, event domain.Event) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}
	if err := b.client.Publish(ctx, channel, payload).Err(); err != nil {
		return fmt.Errorf("publish to %s: %w", channel, err)
	}
	return nil
}

func (b *RedisBroadcaster) Subscribe(ctx context.Context, channel string) (Subscription, error) {
	ps := b.client.Subscribe(ctx, channel)
	// Wait for the subscribe confirmation so no event published after return is missed.
	if _, err := ps.Receive(ctx); err != nil {
		_ = ps.Close()
		return nil, fmt.Errorf("subscribe to %s: %w", channel, err)
	}

	sub := &redisSubscription{
		ps:     ps,
		events: make(chan domain.Event, 64),
	}
	go sub.run(ctx, b.log.With("channel", channel))
	return sub, nil
}

type redisSubscription struct {
	ps     *redis.PubSub
	events chan domain.Event
	once   sync.Once
}

func (s *redisSubscription) run(ctx context.Context, log logger.Logger) {
	defer close(s.events)
	msgs := s.ps.Channel()
	for {
		select {
		case <-ctx.Done():
			_ = s.Close()
			return
		case msg, ok := <-msgs:
			if !ok {
				return
			}
			var event domain.Event
			if err := json.Unmarshal([]byte(msg.Payload), &event); err != nil {
				log.Warn("Dropping malformed event", "error", err)
				continue
			}
			select {
			case s.events <- event:
			case <-ctx.Done():
				_ = s.Close()
				return
			}
		}
	}
}

func (s *redisSubscription) Events() <-chan domain.Event { return s.events }

func (s *redisSubscription) Close() error {
	var err error
	s.once.Do(func() { err = s.ps.Close() })
	return err
}
