package scheduler

import (
	"context"
	"fmt"
	"time"
	_ "time/tzdata" // farm timezones on hosts without zoneinfo

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/mamadbah2/farmdesk/internal/config"
	"github.com/mamadbah2/farmdesk/internal/domain/models"
)

const runTimeout = 2 * time.Minute

// Summarizer builds the daily digest.
type Summarizer interface {
	DailySummary(ctx context.Context, date time.Time) (string, error)
}

// Sender delivers a message.
type Sender interface {
	SendOutbound(ctx context.Context, req models.OutboundMessageRequest) error
}

// Scheduler sends the daily batch report on a cron schedule.
type Scheduler struct {
	cron      *cron.Cron
	reporting Summarizer
	sender    Sender
	cfg       config.ReportingConfig
	location  *time.Location
	logger    *zap.Logger
	now       func() time.Time
}

// NewScheduler creates a scheduler running in the configured timezone.
// A nil sender only archives the digest.
func NewScheduler(cfg config.ReportingConfig, reporting Summarizer, sender Sender, logger *zap.Logger) (*Scheduler, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	loc, err := time.LoadLocation(cfg.Timezone)
	if err != nil {
		return nil, fmt.Errorf("load timezone %q: %w", cfg.Timezone, err)
	}

	return &Scheduler{
		cron:      cron.New(cron.WithLocation(loc)),
		reporting: reporting,
		sender:    sender,
		cfg:       cfg,
		location:  loc,
		logger:    logger,
		now:       time.Now,
	}, nil
}

// Start registers the daily report and starts the scheduler.
func (s *Scheduler) Start() error {
	if _, err := s.cron.AddFunc(s.cfg.CronSchedule, s.run); err != nil {
		return fmt.Errorf("schedule daily report %q: %w", s.cfg.CronSchedule, err)
	}
	s.logger.Info("starting scheduler", zap.String("schedule", s.cfg.CronSchedule), zap.String("timezone", s.location.String()))
	s.cron.Start()
	return nil
}

// Stop stops the scheduler and waits for a running report.
func (s *Scheduler) Stop() {
	s.logger.Info("stopping scheduler")
	<-s.cron.Stop().Done()
}

func (s *Scheduler) run() {
	ctx, cancel := context.WithTimeout(context.Background(), runTimeout)
	defer cancel()
	if err := s.SendDailyReport(ctx); err != nil {
		s.logger.Error("daily report failed", zap.Error(err))
	}
}

// SendDailyReport builds today's digest in the scheduler timezone and sends it
// to the configured recipient.
func (s *Scheduler) SendDailyReport(ctx context.Context) error {
	local := s.now().In(s.location)
	today := time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, time.UTC)

	report, err := s.reporting.DailySummary(ctx, today)
	if err != nil {
		return fmt.Errorf("generate daily report: %w", err)
	}

	if s.sender == nil || s.cfg.RecipientID == "" {
		s.logger.Info("daily report generated, no recipient configured")
		return nil
	}

	if err := s.sender.SendOutbound(ctx, models.OutboundMessageRequest{To: s.cfg.RecipientID, Message: report}); err != nil {
		return fmt.Errorf("send daily report: %w", err)
	}
	s.logger.Info("daily report sent", zap.String("to", s.cfg.RecipientID))
	return nil
}
