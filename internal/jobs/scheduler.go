package jobs

import (
	"context"
	"fmt"

	"github.com/robfig/cron/v3"
	"volunteer_chat/pkg/logger"
)

// cronLogger adapts logger.Logger to cron's logging interface.
type cronLogger struct {
	log logger.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.log.Debug(msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.log.Error(msg, append([]interface{}{"error", err}, keysAndValues...)...)
}

type Scheduler struct {
	cron *cron.Cron
	log  logger.Logger
}

func NewScheduler(log logger.Logger) *Scheduler {
	cl := cronLogger{log: log}
	return &Scheduler{
		cron: cron.New(
			cron.WithLogger(cl),
			cron.WithChain(cron.Recover(cl), cron.SkipIfStillRunning(cl)),
		),
		log: log,
	}
}

// AddFeaturedExpiry schedules the job on a standard cron spec or a descriptor such as "@every 15m".
func (s *Scheduler) AddFeaturedExpiry(spec string, job *FeaturedExpiryJob) error {
	_, err := s.cron.AddFunc(spec, func() {
		if _, err := job.Run(context.Background()); err != nil {
			s.log.Error("Scheduled job failed", "job", job.Name(), "error", err)
		}
	})
	if err != nil {
		return fmt.Errorf("schedule %s: %w", job.Name(), err)
	}
	s.log.Info("Job scheduled", "job", job.Name(), "spec", spec)
	return nil
}

func (s *Scheduler) Start() {
	s.cron.Start()
}

// Stop prevents new runs and waits for running ones or ctx, whichever ends first.
func (s *Scheduler) Stop(ctx context.Context) {
	select {
	case <-s.cron.Stop().Done():
	case <-ctx.Done():
		s.log.Warn("Scheduler stop timed out")
	}
}
