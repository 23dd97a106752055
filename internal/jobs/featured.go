// Package jobs holds the periodic maintenance work and its scheduler.
package jobs

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"
	"volunteer_chat/internal/config"
	"volunteer_chat/internal/domain"
	"volunteer_chat/internal/mail"
	"volunteer_chat/internal/observability"
	"volunteer_chat/internal/repository"
	"volunteer_chat/internal/service"
	"volunteer_chat/pkg/logger"
)

// maxBatches bounds one run so a misbehaving store cannot loop forever.
const maxBatches = 100

type FeaturedExpiryResult struct {
	Expired    int `json:"expired"`
	Notified   int `json:"notified"`
	Emailed    int `json:"emailed"`
	MailFailed int `json:"mail_failed"`
}

// FeaturedExpiryJob moves featured placements past their end date to expired,
// notifies each owner in the same transaction and emails them afterwards.
// Running it twice expires nothing the second time.
type FeaturedExpiryJob struct {
	featuredRepo  repository.FeaturedProjectRepository
	notifications service.NotificationService
	mailer        mail.Mailer
	cfg           config.JobsConfig
	log           logger.Logger
	now           func() time.Time
}

func NewFeaturedExpiryJob(featuredRepo repository.FeaturedProjectRepository, notifications service.NotificationService, mailer mail.Mailer, cfg config.JobsConfig, log logger.Logger) *FeaturedExpiryJob {
	return &FeaturedExpiryJob{
		featuredRepo:  featuredRepo,
		notifications: notifications,
		mailer:        mailer,
		cfg:           cfg,
		log:           log.With("job", "expire_featured"),
		now:           func() time.Time { return time.Now().UTC() },
	}
}

func (j *FeaturedExpiryJob) Name() string { return "expire_featured" }

func (j *FeaturedExpiryJob) notify(f *domain.FeaturedProject) *domain.Notification {
	n, err := j.notifications.Build(service.FeaturedProjectExpired(f))
	if err != nil {
		j.log.Warn("Skipping expiry notification", "error", err, "featured_id", f.ID)
		return nil
	}
	return n
}

func (j *FeaturedExpiryJob) Run(ctx context.Context) (FeaturedExpiryResult, error) {
	var (
		result  FeaturedExpiryResult
		expired []*domain.FeaturedProject
	)

	batch := j.cfg.FeaturedExpiryBatch
	if batch <= 0 {
		batch = 100
	}
	now := j.now()

	for i := 0; i < maxBatches; i++ {
		// Counted per batch: a rolled back batch wrote no notifications.
		built := 0
		rows, err := j.featuredRepo.ExpireDue(ctx, now, batch, func(f *domain.FeaturedProject) *domain.Notification {
			n := j.notify(f)
			if n != nil {
				built++
			}
			return n
		})
		if err != nil {
			return result, fmt.Errorf("expire featured projects: %w", err)
		}
		expired = append(expired, rows...)
		result.Notified += built
		if len(rows) < batch {
			break
		}
	}

	result.Expired = len(expired)
	observability.FeaturedExpired.Add(float64(len(expired)))
	observability.NotificationsCreated.WithLabelValues(string(domain.NotificationFeaturedProjectExpired)).Add(float64(result.Notified))

	result.Emailed, result.MailFailed = j.sendEmails(ctx, expired)

	j.log.Info("Featured expiry finished", "expired", result.Expired, "notified", result.Notified, "emailed", result.Emailed, "mail_failed", result.MailFailed)

	return result, nil
}

// sendEmails runs after the expiry commit; failures are logged and counted only.
func (j *FeaturedExpiryJob) sendEmails(ctx context.Context, expired []*domain.FeaturedProject) (sent, failed int) {
	if len(expired) == 0 {
		return 0, 0
	}

	results := make([]bool, len(expired))

	g, gctx := errgroup.WithContext(ctx)
	limit := j.cfg.Concurrency
	if limit <= 0 {
		limit = 1
	}
	g.SetLimit(limit)

	for i, f := range expired {
		if f.OwnerEmail == "" {
			continue
		}
		g.Go(func() error {
			err := j.mailer.Send(gctx, mail.Message{
				To:      f.OwnerEmail,
				Subject: "Your featured placement has ended",
				Body:    fmt.Sprintf("The featured placement of %q ended on %s.", f.Title, f.EndsAt.Format("2006-01-02")),
			})
			if err != nil {
				j.log.Warn("Failed to send expiry email", "error", err, "featured_id", f.ID)
				observability.MailFailures.Inc()
				return nil
			}
			results[i] = true
			return nil
		})
	}
	_ = g.Wait()

	for i, f := range expired {
		if f.OwnerEmail == "" {
			continue
		}
		if results[i] {
			sent++
		} else {
			failed++
		}
	}
	return sent, failed
}
