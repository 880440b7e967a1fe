package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
)

// ReportScheduler runs the daily report on a cron schedule. An empty
// schedule disables it.
type ReportScheduler struct {
	reports  *ReportService
	schedule string
	timeout  time.Duration
	cron     *cron.Cron
	log      logrus.FieldLogger
}

type SchedulerConfig struct {
	// Schedule is a standard five-field cron spec, e.g. "0 9 * * *".
	Schedule string
	Location *time.Location
	// Timeout bounds one run. Defaults to 30s.
	Timeout time.Duration
}

// NewReportScheduler validates the schedule but does not start it.
func NewReportScheduler(r *ReportService, cfg SchedulerConfig, log logrus.FieldLogger) (*ReportScheduler, error) {
	loc := cfg.Location
	if loc == nil {
		loc = time.UTC
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	s := &ReportScheduler{
		reports:  r,
		schedule: strings.TrimSpace(cfg.Schedule),
		timeout:  timeout,
		cron:     cron.New(cron.WithLocation(loc)),
		log:      log,
	}
	if s.schedule == "" {
		return s, nil
	}
	if _, err := s.cron.AddFunc(s.schedule, s.run); err != nil {
		return nil, fmt.Errorf("report schedule %q: %w", s.schedule, err)
	}
	return s, nil
}

// Start begins the cron loop. It returns immediately.
func (s *ReportScheduler) Start() {
	if s.schedule == "" {
		s.log.Info("Daily report scheduler disabled (empty schedule)")
		return
	}
	s.cron.Start()
	s.log.WithField("schedule", s.schedule).Info("Daily report scheduler started")
}

// Stop halts the cron loop and waits for a running report to finish.
func (s *ReportScheduler) Stop() {
	<-s.cron.Stop().Done()
}

// RunNow sends one report outside the schedule.
func (s *ReportScheduler) RunNow() {
	s.run()
}

func (s *ReportScheduler) run() {
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()

	s.log.Info("Starting daily report job...")
	if err := s.reports.Send(ctx); err != nil {
		s.log.WithError(err).Error("Daily report failed")
	}
}
