package memory

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"volunteer_chat/internal/domain"
	apperrors "volunteer_chat/pkg/errors"
)

func newConversation(t *testing.T, s *Store, userID int64) *domain.Conversation {
	t.Helper()
	conv := &domain.Conversation{UserID: userID, Status: domain.ConversationRequested, Subject: "help"}
	require.NoError(t, s.Conversations().Create(context.Background(), conv, nil))
	return conv
}

func TestClaim_OnlyOneConcurrentWinner(t *testing.T) {
	s := NewStore()
	conv := newConversation(t, s, 7)

	var (
		wg      sync.WaitGroup
		wins    atomic.Int32
		claimed atomic.Int32
	)
	for admin := int64(1); admin <= 16; admin++ {
		wg.Add(1)
		go func(adminID int64) {
			defer wg.Done()
			_, err := s.Conversations().Claim(context.Background(), conv.ID, adminID, time.Now())
			switch {
			case err == nil:
				wins.Add(1)
			case assert.ErrorIs(t, err, apperrors.ErrConversationAlreadyClaimed):
				claimed.Add(1)
			}
		}(admin)
	}
	wg.Wait()

	assert.Equal(t, int32(1), wins.Load())
	assert.Equal(t, int32(15), claimed.Load())

	got, err := s.Conversations().GetByID(context.Background(), conv.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.ConversationActive, got.Status)
	require.NotNil(t, got.AdminID)
}

func TestEnd_IsTerminal(t *testing.T) {
	ctx := context.Background()
	s := NewStore()
	conv := newConversation(t, s, 7)

	ended, err := s.Conversations().End(ctx, conv.ID, 3, time.Now())
	require.NoError(t, err)
	assert.Equal(t, domain.ConversationEnded, ended.Status)

	_, err = s.Conversations().End(ctx, conv.ID, 3, time.Now())
	assert.ErrorIs(t, err, apperrors.ErrInvalidTransition)

	_, err = s.Conversations().Claim(ctx, conv.ID, 3, time.Now())
	assert.ErrorIs(t, err, apperrors.ErrConversationClosed)

	_, err = s.Messages().Create(ctx, &domain.Message{
		ConversationID: conv.ID, SenderType: domain.ActorUser, SenderID: 7, Content: "still there?", Status: domain.MessageSent,
	})
	assert.ErrorIs(t, err, apperrors.ErrConversationClosed)
}

func TestEnd_ActiveOnlyByOwner(t *testing.T) {
	ctx := context.Background()
	s := NewStore()
	conv := newConversation(t, s, 7)

	_, err := s.Conversations().Claim(ctx, conv.ID, 3, time.Now())
	require.NoError(t, err)

	_, err = s.Conversations().End(ctx, conv.ID, 4, time.Now())
	assert.ErrorIs(t, err, apperrors.ErrNotParticipant)

	got, err := s.Conversations().GetByID(ctx, conv.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.ConversationActive, got.Status)

	ended, err := s.Conversations().End(ctx, conv.ID, 3, time.Now())
	require.NoError(t, err)
	assert.Equal(t, domain.ConversationEnded, ended.Status)
}

func TestMessageCreate_ReplyTargetAndClientID(t *testing.T) {
	ctx := context.Background()
	s := NewStore()
	a := newConversation(t, s, 7)
	b := newConversation(t, s, 8)

	other := &domain.Message{ConversationID: b.ID, SenderType: domain.ActorUser, SenderID: 8, Content: "x", Status: domain.MessageSent}
	_, err := s.Messages().Create(ctx, other)
	require.NoError(t, err)

	_, err = s.Messages().Create(ctx, &domain.Message{
		ConversationID: a.ID, SenderType: domain.ActorUser, SenderID: 7, Content: "re", ReplyToID: &other.ID, Status: domain.MessageSent,
	})
	assert.ErrorIs(t, err, apperrors.ErrInvalidReplyTarget)

	clientID := "c-1"
	first := &domain.Message{ConversationID: a.ID, SenderType: domain.ActorUser, SenderID: 7, Content: "hi", ClientID: &clientID, Status: domain.MessageSent}
	created, err := s.Messages().Create(ctx, first)
	require.NoError(t, err)
	assert.True(t, created)

	again := &domain.Message{ConversationID: a.ID, SenderType: domain.ActorUser, SenderID: 7, Content: "hi", ClientID: &clientID, Status: domain.MessageSent}
	created, err = s.Messages().Create(ctx, again)
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, first.ID, again.ID)

	msgs, err := s.Messages().List(ctx, domain.MessageQuery{ConversationID: a.ID})
	require.NoError(t, err)
	assert.Len(t, msgs, 1)
}

func TestMessageCreate_ConcurrentSameClientID(t *testing.T) {
	ctx := context.Background()
	s := NewStore()
	conv := newConversation(t, s, 7)
	clientID := "tmp-1"

	var (
		wg      sync.WaitGroup
		created atomic.Int32
		ids     sync.Map
	)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			m := &domain.Message{
				ConversationID: conv.ID, SenderType: domain.ActorUser, SenderID: 7,
				Content: "once", ClientID: &clientID, Status: domain.MessageSent,
			}
			ok, err := s.Messages().Create(ctx, m)
			if !assert.NoError(t, err) {
				return
			}
			if ok {
				created.Add(1)
			}
			ids.Store(m.ID, true)
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), created.Load())
	distinct := 0
	ids.Range(func(_, _ any) bool { distinct++; return true })
	assert.Equal(t, 1, distinct)
}

func TestMarkRead_InclusiveCutoff(t *testing.T) {
	ctx := context.Background()
	s := NewStore()
	conv := newConversation(t, s, 7)

	base := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	for i, at := range []time.Time{base, base.Add(time.Minute), base.Add(2 * time.Minute)} {
		_, err := s.Messages().Create(ctx, &domain.Message{
			ConversationID: conv.ID, SenderType: domain.ActorAdmin, SenderID: 3,
			Content: "m", Status: domain.MessageSent, CreatedAt: at,
		})
		require.NoError(t, err, "message %d", i)
	}
	_, err := s.Messages().Create(ctx, &domain.Message{
		ConversationID: conv.ID, SenderType: domain.ActorUser, SenderID: 7,
		Content: "mine", Status: domain.MessageSent, CreatedAt: base,
	})
	require.NoError(t, err)

	n, err := s.Messages().MarkRead(ctx, conv.ID, domain.ActorAdmin, base.Add(time.Minute), base.Add(time.Hour))
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	n, err = s.Messages().MarkRead(ctx, conv.ID, domain.ActorAdmin, base.Add(time.Minute), base.Add(time.Hour))
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestLedger_ApproveOnceAndDebit(t *testing.T) {
	ctx := context.Background()
	s := NewStore()
	ledger := s.Ledger()

	ref := &domain.Referral{ReferrerID: 1, RefereeID: 2, Status: domain.ReferralPending}
	require.NoError(t, ledger.CreateReferral(ctx, ref))
	assert.ErrorIs(t, ledger.CreateReferral(ctx, &domain.Referral{ReferrerID: 5, RefereeID: 2}), apperrors.ErrReferralExists)

	rewards := func(r *domain.Referral) ([]*domain.PointTransaction, []*domain.Notification) {
		return []*domain.PointTransaction{
				{UserID: r.ReferrerID, Direction: domain.Credit, Points: 100, Reason: domain.ReasonReferralReferrer, ReferralID: &r.ID},
			}, []*domain.Notification{
				{UserID: r.ReferrerID, Type: domain.NotificationReferralApproved, Title: "t", Message: "m"},
			}
	}

	_, entries, err := ledger.ApproveReferral(ctx, ref.ID, 9, time.Now(), rewards)
	require.NoError(t, err)
	assert.Len(t, entries, 1)

	_, _, err = ledger.ApproveReferral(ctx, ref.ID, 9, time.Now(), rewards)
	assert.ErrorIs(t, err, apperrors.ErrReferralAlreadyApproved)

	b, err := ledger.Balance(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, int64(100), b.Balance)

	_, err = ledger.Debit(ctx, &domain.PointTransaction{UserID: 1, Points: 150, Reason: domain.ReasonRedemption})
	assert.ErrorIs(t, err, apperrors.ErrInsufficientPoints)

	b, err = ledger.Debit(ctx, &domain.PointTransaction{UserID: 1, Points: 40, Reason: domain.ReasonRedemption})
	require.NoError(t, err)
	assert.Equal(t, int64(60), b.Balance)

	unread, err := s.Notifications().CountUnread(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, 1, unread)
}

func TestExpireDue_OnlyDueRowsOnce(t *testing.T) {
	ctx := context.Background()
	s := NewStore()
	now := time.Now().UTC()

	due := &domain.FeaturedProject{ProjectID: 1, OwnerID: 5, Status: domain.FeaturedActive, StartsAt: now.Add(-48 * time.Hour), EndsAt: now.Add(-time.Hour)}
	later := &domain.FeaturedProject{ProjectID: 2, OwnerID: 5, Status: domain.FeaturedActive, StartsAt: now, EndsAt: now.Add(time.Hour)}
	require.NoError(t, s.Featured().Create(ctx, due))
	require.NoError(t, s.Featured().Create(ctx, later))

	notify := func(f *domain.FeaturedProject) *domain.Notification {
		return &domain.Notification{UserID: f.OwnerID, Type: domain.NotificationFeaturedProjectExpired, Title: "t", Message: "m"}
	}

	expired, err := s.Featured().ExpireDue(ctx, now, 10, notify)
	require.NoError(t, err)
	require.Len(t, expired, 1)
	assert.Equal(t, int64(1), expired[0].ProjectID)

	expired, err = s.Featured().ExpireDue(ctx, now, 10, notify)
	require.NoError(t, err)
	assert.Empty(t, expired)

	unread, err := s.Notifications().CountUnread(ctx, 5)
	require.NoError(t, err)
	assert.Equal(t, 1, unread)
}

func TestRateLimiter_Burst(t *testing.T) {
	l := NewRateLimiter()
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		ok, _, err := l.Allow(ctx, "actor:user:1", 3, time.Minute)
		require.NoError(t, err)
		assert.True(t, ok)
	}
	ok, remaining, err := l.Allow(ctx, "actor:user:1", 3, time.Minute)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Zero(t, remaining)

	ok, _, err = l.Allow(ctx, "actor:user:2", 3, time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)
}
