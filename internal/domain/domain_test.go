package domain

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCanTransition(t *testing.T) {
	tests := []struct {
		from, to ConversationStatus
		want     bool
	}{
		{ConversationRequested, ConversationActive, true},
		{ConversationRequested, ConversationEnded, true},
		{ConversationActive, ConversationEnded, true},
		{ConversationActive, ConversationRequested, false},
		{ConversationEnded, ConversationActive, false},
		{ConversationEnded, ConversationRequested, false},
		{ConversationEnded, ConversationEnded, false},
	}
	for _, tt := range tests {
		t.Run(string(tt.from)+"->"+string(tt.to), func(t *testing.T) {
			assert.Equal(t, tt.want, CanTransition(tt.from, tt.to))
		})
	}
}

func TestConversation_Participants(t *testing.T) {
	admin := int64(9)
	c := &Conversation{ID: 1, UserID: 5, Status: ConversationRequested}

	assert.True(t, c.IsParticipant(UserActor(5)))
	assert.False(t, c.IsParticipant(UserActor(6)))
	assert.False(t, c.IsParticipant(AdminActor(9)), "unclaimed conversation has no admin participant")
	assert.True(t, c.CanView(AdminActor(9)))

	c.AdminID = &admin
	assert.True(t, c.IsParticipant(AdminActor(9)))
	assert.False(t, c.IsParticipant(AdminActor(10)))
}

func TestActor_ParseRoundTrip(t *testing.T) {
	a, err := ParseActor(AdminActor(12).String())
	require.NoError(t, err)
	assert.Equal(t, AdminActor(12), a)

	_, err = ParseActor("robot:1")
	assert.Error(t, err)
	_, err = ParseActor("user:0")
	assert.Error(t, err)
}

func TestActorContext(t *testing.T) {
	_, ok := ActorFromContext(context.Background())
	assert.False(t, ok)

	ctx := ContextWithActor(context.Background(), UserActor(3))
	a, ok := ActorFromContext(ctx)
	require.True(t, ok)
	assert.Equal(t, UserActor(3), a)
}

func TestMessageSentEvent_WireFields(t *testing.T) {
	created := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	m := &Message{ID: 100, ConversationID: 42, SenderType: ActorUser, SenderID: 5, Content: "Hello", Status: MessageSent, CreatedAt: created}

	ev, err := NewEvent(EventMessageSent, NewMessageSentEvent(m, &ActorProfile{Actor: UserActor(5), Name: "Vol"}, nil))
	require.NoError(t, err)

	var fields map[string]any
	require.NoError(t, json.Unmarshal(ev.Data, &fields))
	assert.Equal(t, float64(42), fields["chatId"])
	assert.Equal(t, "Hello", fields["content"])
	assert.Equal(t, "sent", fields["status"])
	assert.Equal(t, "user", fields["sender_type"])
	assert.NotContains(t, fields, "reply_to")
}

func TestSumBalance(t *testing.T) {
	entries := []*PointTransaction{
		{UserID: 1, Direction: Credit, Points: 50},
		{UserID: 1, Direction: Credit, Points: 25},
		{UserID: 1, Direction: Debit, Points: 30},
		{UserID: 2, Direction: Credit, Points: 1000},
	}
	b := SumBalance(1, entries)
	assert.Equal(t, Balance{UserID: 1, Credits: 75, Debits: 30, Balance: 45}, b)
}

func TestNotificationType_Valid(t *testing.T) {
	assert.True(t, NotificationBookingApproved.Valid())
	assert.False(t, NotificationType("party_started").Valid())
}

func TestFeaturedProject_IsDue(t *testing.T) {
	now := time.Now()
	f := &FeaturedProject{Status: FeaturedActive, EndsAt: now.Add(-time.Minute)}
	assert.True(t, f.IsDue(now))
	f.EndsAt = now.Add(time.Minute)
	assert.False(t, f.IsDue(now))
	f.EndsAt = now.Add(-time.Minute)
	f.Status = FeaturedExpired
	assert.False(t, f.IsDue(now))
}
