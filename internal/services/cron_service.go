package services

import (
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
)

// SessionSweeper is implemented by the orchestrator
type SessionSweeper interface {
	SweepIdle(maxIdle time.Duration) (searches, bookings int)
	SessionCounts() (searches, bookings int)
}

// CronService manages scheduled background jobs
type CronService struct {
	cron     *cron.Cron
	sweeper  SessionSweeper
	schedule string
	maxIdle  time.Duration
	logger   *logrus.Logger
}

// NewCronService creates a new CronService
func NewCronService(sweeper SessionSweeper, schedule string, maxIdle time.Duration, logger *logrus.Logger) *CronService {
	return &CronService{
		cron:     cron.New(cron.WithSeconds()),
		sweeper:  sweeper,
		schedule: schedule,
		maxIdle:  maxIdle,
		logger:   logger,
	}
}

// Start starts all cron jobs
func (s *CronService) Start() error {
	// Cron format: second minute hour day month weekday
	_, err := s.cron.AddFunc(s.schedule, s.sweepIdleSessionsJob)
	if err != nil {
		return fmt.Errorf("failed to schedule session sweep job: %w", err)
	}

	s.cron.Start()
	s.logger.WithFields(logrus.Fields{
		"schedule": s.schedule,
		"max_idle": s.maxIdle.String(),
	}).Info("Cron service started")

	return nil
}

// Stop stops all cron jobs and waits for a running job to finish
func (s *CronService) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
	s.logger.Info("Cron service stopped")
}

func (s *CronService) sweepIdleSessionsJob() {
	startTime := time.Now()
	searches, bookings := s.sweeper.SweepIdle(s.maxIdle)
	if searches == 0 && bookings == 0 {
		return
	}

	heldSearches, heldBookings := s.sweeper.SessionCounts()
	s.logger.WithFields(logrus.Fields{
		"searches_removed": searches,
		"bookings_removed": bookings,
		"searches_held":    heldSearches,
		"bookings_held":    heldBookings,
		"duration_ms":      time.Since(startTime).Milliseconds(),
	}).Info("Swept idle sessions")
}

// RunSweepNow runs the idle session sweep immediately
func (s *CronService) RunSweepNow() {
	s.sweepIdleSessionsJob()
}

// GetJobStatus returns the status of scheduled jobs
func (s *CronService) GetJobStatus() map[string]interface{} {
	entries := s.cron.Entries()

	jobs := make([]map[string]interface{}, 0, len(entries))
	for _, entry := range entries {
		jobs = append(jobs, map[string]interface{}{
			"id":       entry.ID,
			"next_run": entry.Next,
			"prev_run": entry.Prev,
		})
	}

	searches, bookings := s.sweeper.SessionCounts()
	return map[string]interface{}{
		"jobs":             jobs,
		"searches_held":    searches,
		"bookings_held":    bookings,
		"max_idle_seconds": int(s.maxIdle.Seconds()),
	}
}
