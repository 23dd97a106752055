package chatclient

import (
	"encoding/json"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"
	"volunteer_chat/internal/domain"
)

// Timeline is the optimistic message list of one open conversation as seen
// by one participant. It is safe for concurrent use by a sender, a poller
// and a websocket subscription.
type Timeline struct {
	mu             sync.RWMutex
	conversationID int64
	self           domain.Actor
	entries        []LocalMessage
	now            func() time.Time
}

func NewTimeline(conversationID int64, self domain.Actor) *Timeline {
	return &Timeline{
		conversationID: conversationID,
		self:           self,
		now:            func() time.Time { return time.Now().UTC() },
	}
}

func (t *Timeline) ConversationID() int64 { return t.conversationID }

// Enqueue records a message as Sending under a fresh temporary id.
func (t *Timeline) Enqueue(content string, replyToID *int64) LocalMessage {
	lm := LocalMessage{
		TempID:         uuid.NewString(),
		ConversationID: t.conversationID,
		SenderType:     t.self.Kind,
		SenderID:       t.self.ID,
		Content:        content,
		ReplyToID:      replyToID,
		Status:         domain.MessageSending,
		CreatedAt:      t.now(),
	}

	t.mu.Lock()
	t.entries = append(t.entries, lm)
	t.mu.Unlock()

	return lm
}

// Confirm swaps the optimistic entry for the server record. The record is
// merged even when tempID is unknown; the result reports whether it was known.
func (t *Timeline) Confirm(tempID string, m *domain.Message) bool {
	confirmed := *m
	if confirmed.ClientID == nil {
		confirmed.ClientID = &tempID
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	_, found := t.indexOf(tempID)
	t.entries = Reconcile([]*domain.Message{&confirmed}, t.entries)
	return found
}

// Fail moves a Sending entry to Failed. The entry is kept for Retry.
func (t *Timeline) Fail(tempID string, err error) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	i, ok := t.indexOf(tempID)
	if !ok || t.entries[i].Status != domain.MessageSending {
		return false
	}
	t.entries[i].Status = domain.MessageFailed
	if err != nil {
		t.entries[i].Error = err.Error()
	}
	return true
}

// Retry moves a Failed entry back to Sending and returns it. The temp id is
// kept, so a send that actually reached the server is not duplicated.
func (t *Timeline) Retry(tempID string) (LocalMessage, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	i, ok := t.indexOf(tempID)
	if !ok {
		return LocalMessage{}, fmt.Errorf("unknown message %s", tempID)
	}
	if t.entries[i].Status != domain.MessageFailed {
		return LocalMessage{}, fmt.Errorf("message %s is %s, not failed", tempID, t.entries[i].Status)
	}
	t.entries[i].Status = domain.MessageSending
	t.entries[i].Error = ""
	return t.entries[i], nil
}

// Merge folds a fetched page of authoritative messages into the timeline.
func (t *Timeline) Merge(server []*domain.Message) {
	if len(server) == 0 {
		return
	}
	t.mu.Lock()
	t.entries = Reconcile(server, t.entries)
	t.mu.Unlock()
}

// Apply handles one relayed event. Unknown events are ignored.
func (t *Timeline) Apply(event domain.Event) error {
	switch event.Name {
	case domain.EventMessageSent:
		var data domain.MessageSentEvent
		if err := json.Unmarshal(event.Data, &data); err != nil {
			return fmt.Errorf("decode %s: %w", event.Name, err)
		}
		if data.ChatID != t.conversationID {
			return nil
		}
		m := &domain.Message{
			ID:             data.ID,
			ConversationID: data.ChatID,
			SenderType:     data.SenderType,
			SenderID:       data.SenderID,
			Content:        data.Content,
			ClientID:       data.ClientID,
			Status:         data.Status,
			CreatedAt:      data.CreatedAt,
		}
		if data.ReplyTo != nil {
			m.ReplyToID = &data.ReplyTo.ID
		}
		t.Merge([]*domain.Message{m})

	case domain.EventMessagesRead:
		var data domain.MessagesReadEvent
		if err := json.Unmarshal(event.Data, &data); err != nil {
			return fmt.Errorf("decode %s: %w", event.Name, err)
		}
		if data.ConversationID != t.conversationID {
			return nil
		}
		t.markRead(data.ReaderType, data.Timestamp)
	}
	return nil
}

// markRead flips confirmed messages written by the reader's counterpart at
// or before ts.
func (t *Timeline) markRead(reader domain.ActorKind, ts time.Time) {
	author := domain.Counterpart(reader)

	t.mu.Lock()
	defer t.mu.Unlock()

	for i := range t.entries {
		e := &t.entries[i]
		if e.ServerID == 0 || e.SenderType != author || e.Status == domain.MessageRead || e.CreatedAt.After(ts) {
			continue
		}
		e.Status = domain.MessageRead
		e.ReadAt = &ts
	}
}

// Messages returns a snapshot of the timeline.
func (t *Timeline) Messages() []LocalMessage {
	t.mu.RLock()
	defer t.mu.RUnlock()

	out := make([]LocalMessage, len(t.entries))
	copy(out, t.entries)
	return out
}

// LastServerID is the cursor for the next incremental fetch.
func (t *Timeline) LastServerID() int64 {
	t.mu.RLock()
	defer t.mu.RUnlock()

	var last int64
	for _, e := range t.entries {
		if e.ServerID > last {
			last = e.ServerID
		}
	}
	return last
}

// SyncCursor returns the after_id a poll should start from. It steps back to
// re-read the last overlap confirmed messages, which covers rows that
// committed out of id order, and to the oldest own message still waiting
// for its read receipt.
func (t *Timeline) SyncCursor(overlap int) int64 {
	t.mu.RLock()
	defer t.mu.RUnlock()

	var (
		ids    []int64
		unread int64
	)
	for _, e := range t.entries {
		if e.ServerID == 0 {
			continue
		}
		ids = append(ids, e.ServerID)
		if e.SenderType == t.self.Kind && e.Status != domain.MessageRead && (unread == 0 || e.ServerID < unread) {
			unread = e.ServerID
		}
	}
	if len(ids) == 0 {
		return 0
	}
	slices.Sort(ids)

	var cursor int64
	if overlap < len(ids) {
		cursor = ids[len(ids)-1-max(overlap, 0)]
	}
	if unread != 0 && unread-1 < cursor {
		cursor = unread - 1
	}
	return cursor
}

func (t *Timeline) indexOf(tempID string) (int, bool) {
	for i, e := range t.entries {
		if e.TempID == tempID {
			return i, true
		}
	}
	return 0, false
}
