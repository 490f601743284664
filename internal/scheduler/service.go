package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"

	"github.com/kenya-ifp/fusion-api/internal/config"
	"github.com/kenya-ifp/fusion-api/internal/models"
)

const (
	digestTimeout = 10 * time.Minute
	feedTimeout   = 5 * time.Minute
)

// Jobs are the background tasks driven by the scheduler.
type Jobs interface {
	RunDigest(ctx context.Context) (*models.Digest, error)
	RunFeedSync(ctx context.Context) error
}

// Service handles scheduling of background jobs
type Service struct {
	config *config.Config
	jobs   Jobs
	cron   *cron.Cron
}

// NewService creates a new scheduler service. Schedules are evaluated in
// the configured time zone.
func NewService(cfg *config.Config, jobs Jobs) (*Service, error) {
	loc, err := time.LoadLocation(cfg.TimeZone)
	if err != nil {
		return nil, fmt.Errorf("invalid time zone %q: %w", cfg.TimeZone, err)
	}
	return &Service{
		config: cfg,
		jobs:   jobs,
		cron:   cron.New(cron.WithSeconds(), cron.WithLocation(loc)),
	}, nil
}

// DigestExpression returns the cron expression for a digest schedule.
func DigestExpression(schedule string) string {
	switch schedule {
	case "daily":
		// Run daily at 9 AM
		return "0 0 9 * * *"
	case "weekly":
		// Run weekly on Monday at 9 AM
		return "0 0 9 * * MON"
	default:
		return "0 0 9 * * *"
	}
}

// Start registers the jobs and begins the schedule
func (s *Service) Start() error {
	_, err := s.cron.AddFunc(DigestExpression(s.config.DigestSchedule), func() {
		logrus.Info("Starting scheduled digest run")
		ctx, cancel := context.WithTimeout(context.Background(), digestTimeout)
		defer cancel()
		if _, err := s.jobs.RunDigest(ctx); err != nil {
			logrus.Errorf("Scheduled digest run failed: %v", err)
		}
	})
	if err != nil {
		return err
	}

	if len(s.config.FeedURLs) > 0 {
		_, err = s.cron.AddFunc(s.config.FeedSchedule, func() {
			logrus.Info("Starting scheduled feed sync")
			ctx, cancel := context.WithTimeout(context.Background(), feedTimeout)
			defer cancel()
			if err := s.jobs.RunFeedSync(ctx); err != nil {
				logrus.Errorf("Scheduled feed sync failed: %v", err)
			}
		})
		if err != nil {
			return fmt.Errorf("invalid FEED_SCHEDULE: %w", err)
		}
	}

	s.cron.Start()
	logrus.Infof("Scheduler started with %s digest (%d scheduled jobs)", s.config.DigestSchedule, len(s.cron.Entries()))
	return nil
}

// Entries returns the registered schedule entries.
func (s *Service) Entries() []cron.Entry {
	return s.cron.Entries()
}

// Stop stops the scheduler and waits for running jobs to finish
func (s *Service) Stop() {
	if s.cron != nil {
		<-s.cron.Stop().Done()
		logrus.Info("Scheduler stopped")
	}
}
