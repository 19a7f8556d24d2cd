// Package daemon implements the periodic maintenance loop.
package daemon

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/eliteGoblin/brewkeeper/internal/domain"
)

// MaintenanceRunner performs one full maintenance pass.
type MaintenanceRunner interface {
	Run(ctx context.Context) (*domain.MaintenanceReport, error)
}

// SchedulerConfig holds scheduler configuration.
type SchedulerConfig struct {
	Interval   time.Duration // how often to run a maintenance pass
	RunOnStart bool          // run one pass immediately on startup
}

// DefaultSchedulerConfig returns default scheduler configuration.
func DefaultSchedulerConfig() SchedulerConfig {
	return SchedulerConfig{
		Interval:   24 * time.Hour,
		RunOnStart: true,
	}
}

// Scheduler triggers maintenance passes on a fixed interval.
// A failed pass is logged and the loop keeps going; passes never overlap
// because the loop is strictly sequential.
type Scheduler struct {
	config     SchedulerConfig
	maintainer MaintenanceRunner
	logger     *zap.Logger
}

// NewScheduler creates a new maintenance scheduler.
func NewScheduler(config SchedulerConfig, maintainer MaintenanceRunner, logger *zap.Logger) *Scheduler {
	return &Scheduler{
		config:     config,
		maintainer: maintainer,
		logger:     logger,
	}
}

// Run starts the scheduler loop. This blocks until context is canceled.
func (s *Scheduler) Run(ctx context.Context) error {
	s.logger.Info("maintenance scheduler started",
		zap.Duration("interval", s.config.Interval))

	if s.config.RunOnStart {
		s.runPass(ctx)
	}

	ticker := time.NewTicker(s.config.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("maintenance scheduler stopping")
			return ctx.Err()

		case <-ticker.C:
			s.runPass(ctx)
		}
	}
}

func (s *Scheduler) runPass(ctx context.Context) {
	report, err := s.maintainer.Run(ctx)
	if err != nil {
		s.logger.Error("maintenance pass failed", zap.Error(err))
		return
	}

	s.logger.Info("maintenance pass complete",
		zap.Duration("duration", report.Duration),
		zap.Int("outdated", len(report.Outdated.All())),
		zap.Int("failed_upgrades", len(report.FailedUpgrades)))
}
