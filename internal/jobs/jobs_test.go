package jobs

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"volunteer_chat/internal/config"
	"volunteer_chat/internal/domain"
	"volunteer_chat/internal/mail"
	"volunteer_chat/internal/observability"
	"volunteer_chat/internal/repository/memory"
	"volunteer_chat/internal/service"
	"volunteer_chat/pkg/logger"
)

type recordingMailer struct {
	mu   sync.Mutex
	sent []mail.Message
	fail map[string]bool
}

func (m *recordingMailer) Send(_ context.Context, msg mail.Message) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.fail[msg.To] {
		return errors.New("smtp unavailable")
	}
	m.sent = append(m.sent, msg)
	return nil
}

func seedFeatured(t *testing.T, store *memory.Store, now time.Time) {
	t.Helper()
	ctx := context.Background()
	rows := []*domain.FeaturedProject{
		{ProjectID: 1, OwnerID: 10, OwnerEmail: "a@example.org", Title: "Park cleanup", Status: domain.FeaturedActive, StartsAt: now.Add(-72 * time.Hour), EndsAt: now.Add(-time.Hour)},
		{ProjectID: 2, OwnerID: 11, OwnerEmail: "b@example.org", Title: "Food bank", Status: domain.FeaturedActive, StartsAt: now.Add(-72 * time.Hour), EndsAt: now.Add(-2 * time.Hour)},
		{ProjectID: 3, OwnerID: 12, OwnerEmail: "c@example.org", Title: "Tutoring", Status: domain.FeaturedActive, StartsAt: now, EndsAt: now.Add(48 * time.Hour)},
	}
	for _, r := range rows {
		require.NoError(t, store.Featured().Create(ctx, r))
	}
}

func newJob(store *memory.Store, mailer mail.Mailer, batch int) *FeaturedExpiryJob {
	log := logger.Nop()
	notifications := service.NewNotificationService(store.Notifications(), log)
	return NewFeaturedExpiryJob(store.Featured(), notifications, mailer,
		config.JobsConfig{FeaturedExpiryBatch: batch, Concurrency: 2}, log)
}

func TestFeaturedExpiry_ExpiresNotifiesAndIsIdempotent(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	now := time.Now().UTC()
	seedFeatured(t, store, now)

	mailer := &recordingMailer{}
	job := newJob(store, mailer, 1)

	res, err := job.Run(ctx)
	require.NoError(t, err)
	assert.Equal(t, FeaturedExpiryResult{Expired: 2, Notified: 2, Emailed: 2}, res)
	assert.Len(t, mailer.sent, 2)

	for _, owner := range []int64{10, 11} {
		list, err := store.Notifications().List(ctx, owner, domain.NotificationFilter{})
		require.NoError(t, err)
		require.Len(t, list, 1)
		assert.Equal(t, domain.NotificationFeaturedProjectExpired, list[0].Type)
	}

	res, err = job.Run(ctx)
	require.NoError(t, err)
	assert.Zero(t, res.Expired)
	assert.Len(t, mailer.sent, 2, "second run sends nothing")
}

func TestFeaturedExpiry_MailFailureIsSwallowed(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	seedFeatured(t, store, time.Now().UTC())

	mailer := &recordingMailer{fail: map[string]bool{"a@example.org": true}}
	res, err := newJob(store, mailer, 10).Run(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, res.Expired)
	assert.Equal(t, 1, res.Emailed)
	assert.Equal(t, 1, res.MailFailed)

	unread, err := store.Notifications().CountUnread(ctx, 10)
	require.NoError(t, err)
	assert.Equal(t, 1, unread, "in-app notice survives a mail failure")
}

func TestFeaturedExpiry_CountsOnlyBuiltNotifications(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	now := time.Now().UTC()
	seedFeatured(t, store, now)
	// No owner: the notice fails validation and is skipped.
	require.NoError(t, store.Featured().Create(ctx, &domain.FeaturedProject{
		ProjectID: 4, Title: "Orphaned", Status: domain.FeaturedActive,
		StartsAt: now.Add(-72 * time.Hour), EndsAt: now.Add(-3 * time.Hour),
	}))

	before := testutil.ToFloat64(observability.NotificationsCreated.WithLabelValues(string(domain.NotificationFeaturedProjectExpired)))

	res, err := newJob(store, &recordingMailer{}, 10).Run(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, res.Expired)
	assert.Equal(t, 2, res.Notified)
	assert.Equal(t, 2, res.Emailed)

	after := testutil.ToFloat64(observability.NotificationsCreated.WithLabelValues(string(domain.NotificationFeaturedProjectExpired)))
	assert.Equal(t, 2.0, after-before)
}

func TestScheduler_RejectsBadSchedule(t *testing.T) {
	s := NewScheduler(logger.Nop())
	err := s.AddFeaturedExpiry("not a schedule", newJob(memory.NewStore(), mail.NopMailer{}, 10))
	assert.Error(t, err)

	require.NoError(t, s.AddFeaturedExpiry("@every 1h", newJob(memory.NewStore(), mail.NopMailer{}, 10)))
	s.Start()
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	s.Stop(ctx)
}
