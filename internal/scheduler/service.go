package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/clienthunter/leadwatch/internal/config"
	"github.com/clienthunter/leadwatch/internal/models"
	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
)

// Runner is the work the scheduler triggers
type Runner interface {
	RunDigest(ctx context.Context) (*models.Report, error)
	RunHotLeadCheck(ctx context.Context) error
}

// Service handles scheduling of digest and hot lead runs
type Service struct {
	config *config.Config
	runner Runner
	cron   *cron.Cron
	ctx    context.Context
	cancel context.CancelFunc
}

// NewService creates a new scheduler service
func NewService(cfg *config.Config, runner Runner) *Service {
	ctx, cancel := context.WithCancel(context.Background())
	return &Service{
		config: cfg,
		runner: runner,
		cron: cron.New(
			cron.WithSeconds(),
			cron.WithLocation(cfg.Location()),
			cron.WithChain(cron.SkipIfStillRunning(cron.DefaultLogger)),
		),
		ctx:    ctx,
		cancel: cancel,
	}
}

// DigestExpression returns the cron expression for a digest schedule
func DigestExpression(schedule string) string {
	if schedule == "weekly" {
		// Monday at 9 AM
		return "0 0 9 * * MON"
	}
	// Every day at 9 AM
	return "0 0 9 * * *"
}

// HotLeadExpression returns the cron expression for the hot lead check
func HotLeadExpression(interval time.Duration) string {
	return fmt.Sprintf("@every %s", interval)
}

// Start registers the jobs and begins scheduling
func (s *Service) Start() error {
	_, err := s.cron.AddFunc(DigestExpression(s.config.DigestSchedule), func() {
		logrus.Info("Starting scheduled digest run")
		if _, err := s.runner.RunDigest(s.ctx); err != nil {
			logrus.Errorf("Scheduled digest run failed: %v", err)
		}
	})
	if err != nil {
		return err
	}

	_, err = s.cron.AddFunc(HotLeadExpression(s.config.HotLeadInterval), func() {
		ctx, cancel := context.WithTimeout(s.ctx, s.config.HotLeadInterval)
		defer cancel()
		if err := s.runner.RunHotLeadCheck(ctx); err != nil {
			logrus.Errorf("Hot lead check failed: %v", err)
		}
	})
	if err != nil {
		return err
	}

	s.cron.Start()
	logrus.Infof("Scheduler started with %s digest in %s (plus hot lead checks every %s)",
		s.config.DigestSchedule, s.config.Location(), s.config.HotLeadInterval)
	return nil
}

// Stop cancels in-flight runs and waits for them to return
func (s *Service) Stop() {
	if s.cron != nil {
		s.cancel()
		<-s.cron.Stop().Done()
		logrus.Info("Scheduler stopped")
	}
}
