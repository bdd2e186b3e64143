package services

import (
	"fmt"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
)

// CronService manages scheduled background jobs
type CronService struct {
	cron        *cron.Cron
	rateLimiter *RateLimitService
	logger      *logrus.Logger
}

// NewCronService creates a new CronService
func NewCronService(rateLimiter *RateLimitService, logger *logrus.Logger) *CronService {
	return &CronService{
		cron:        cron.New(),
		rateLimiter: rateLimiter,
		logger:      logger,
	}
}

// Start registers and starts all cron jobs
func (s *CronService) Start() error {
	// Hourly cleanup of expired login attempt records
	if _, err := s.cron.AddFunc("@hourly", s.cleanupLoginAttempts); err != nil {
		return fmt.Errorf("failed to schedule login attempt cleanup: %w", err)
	}

	s.cron.Start()
	s.logger.Info("Cron service started")
	return nil
}

// Stop stops all cron jobs, waiting for running jobs to finish
func (s *CronService) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
	s.logger.Info("Cron service stopped")
}

func (s *CronService) cleanupLoginAttempts() {
	removed, err := s.rateLimiter.CleanupExpiredAttempts()
	if err != nil {
		s.logger.WithError(err).Error("login attempt cleanup failed")
		return
	}
	if removed > 0 {
		s.logger.WithField("removed", removed).Info("expired login attempts removed")
	}
}
