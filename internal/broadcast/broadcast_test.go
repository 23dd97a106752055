package broadcast

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"volunteer_chat/internal/domain"
	"volunteer_chat/pkg/logger"
)

func receive(t *testing.T, sub Subscription) domain.Event {
	t.Helper()
	select {
	case ev, ok := <-sub.Events():
		require.True(t, ok, "subscription closed")
		return ev
	case <-time.After(2 * time.Second):
		t.Fatal("no event received")
		return domain.Event{}
	}
}

func TestMemoryBroadcaster_ChannelIsolation(t *testing.T) {
	ctx := context.Background()
	b := NewMemoryBroadcaster()

	sub42, err := b.Subscribe(ctx, domain.ChatChannel(42))
	require.NoError(t, err)
	defer sub42.Close()
	sub7, err := b.Subscribe(ctx, domain.ChatChannel(7))
	require.NoError(t, err)
	defer sub7.Close()

	ev, err := domain.NewEvent(domain.EventMessageSent, map[string]any{"chatId": 42})
	require.NoError(t, err)
	require.NoError(t, b.Publish(ctx, "chat.42", ev))

	got := receive(t, sub42)
	assert.Equal(t, domain.EventMessageSent, got.Name)

	select {
	case <-sub7.Events():
		t.Fatal("event leaked to another channel")
	default:
	}
}

func TestMemoryBroadcaster_CloseUnregisters(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	b := NewMemoryBroadcaster()

	sub, err := b.Subscribe(ctx, "chat.1")
	require.NoError(t, err)
	assert.Equal(t, 1, b.Subscribers("chat.1"))

	cancel()
	assert.Eventually(t, func() bool { return b.Subscribers("chat.1") == 0 }, time.Second, 10*time.Millisecond)

	_, ok := <-sub.Events()
	assert.False(t, ok)
	assert.NoError(t, sub.Close())
}

type failingBroadcaster struct{ *MemoryBroadcaster }

func (failingBroadcaster) Publish(context.Context, string, domain.Event) error {
	return errors.New("redis down")
}

func TestDispatcher_DeliversAndSwallowsFailures(t *testing.T) {
	ctx := context.Background()
	hub := NewMemoryBroadcaster()
	d := NewDispatcher(hub, time.Second, logger.Nop())

	sub, err := d.Subscribe(ctx, 42)
	require.NoError(t, err)
	defer sub.Close()

	d.Dispatch(42, domain.EventMessagesRead, domain.MessagesReadEvent{ConversationID: 42})
	d.Wait()

	got := receive(t, sub)
	assert.Equal(t, domain.EventMessagesRead, got.Name)
	var data map[string]any
	require.NoError(t, json.Unmarshal(got.Data, &data))
	assert.EqualValues(t, 42, data["conversationId"])

	failing := NewDispatcher(failingBroadcaster{hub}, time.Second, logger.Nop())
	assert.NotPanics(t, func() {
		failing.Dispatch(42, domain.EventMessageSent, map[string]any{})
		failing.Wait()
	})
}
