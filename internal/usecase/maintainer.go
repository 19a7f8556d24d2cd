// Package usecase contains application business logic.
package usecase

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/eliteGoblin/brewkeeper/internal/domain"
)

// Config holds maintainer configuration.
type Config struct {
	// UpgradeTimeout is the wall-clock budget for one package upgrade.
	UpgradeTimeout time.Duration
}

// DefaultConfig returns default maintainer configuration.
func DefaultConfig() Config {
	return Config{
		UpgradeTimeout: 5 * time.Minute,
	}
}

// Maintainer runs the four maintenance phases in order: update the package
// index, find outdated packages, upgrade each under a per-package timeout,
// and clean up stale artifacts. Phases 1, 2 and 4 are fatal on error;
// phase 3 tolerates per-package failures and collects them instead.
type Maintainer struct {
	executor domain.CommandExecutor
	decoder  domain.OutdatedDecoder
	config   Config
	logger   *zap.Logger
}

// NewMaintainer creates a new maintainer.
func NewMaintainer(
	executor domain.CommandExecutor,
	decoder domain.OutdatedDecoder,
	config Config,
	logger *zap.Logger,
) *Maintainer {
	return &Maintainer{
		executor: executor,
		decoder:  decoder,
		config:   config,
		logger:   logger,
	}
}

// UpdateRepositories refreshes brew's reference repositories (phase 1).
func (m *Maintainer) UpdateRepositories(ctx context.Context) (string, error) {
	return m.executor.Execute(ctx, domain.NewUpdateCommand(m.executor.InheritedEnv()))
}

// FindOutdated lists and decodes the outdated packages (phase 2).
func (m *Maintainer) FindOutdated(ctx context.Context) (*domain.OutdatedReport, error) {
	text, err := m.executor.Execute(ctx, domain.NewOutdatedCommand(m.executor.InheritedEnv()))
	if err != nil {
		return nil, err
	}

	report, err := m.decoder.Decode(text)
	if err != nil {
		return nil, fmt.Errorf("error on parsing the outdated report: %w", err)
	}
	return report, nil
}

// UpgradeAll upgrades every outdated package one at a time, formulae first,
// in the report's order (phase 3). Failures are tolerated: each failed
// package is logged, collected, and the loop moves on. At most one
// supervised child exists at any instant.
func (m *Maintainer) UpgradeAll(ctx context.Context, report *domain.OutdatedReport) []domain.Package {
	var failed []domain.Package

	for _, pkg := range report.All() {
		m.logger.Info("upgrading package",
			zap.String("package", pkg.Name),
			zap.String("available", pkg.CurrentVersion),
			zap.Duration("timeout", m.config.UpgradeTimeout))

		cmd := domain.NewUpgradeCommand(pkg.Name, m.executor.InheritedEnv())
		if err := m.executor.ExecuteWithTimeout(ctx, cmd, m.config.UpgradeTimeout); err != nil {
			m.logger.Warn("package upgrade failed",
				zap.String("package", pkg.Name),
				zap.Error(err))
			failed = append(failed, pkg)
			continue
		}

		m.logger.Info("package upgraded", zap.String("package", pkg.Name))
	}

	return failed
}

// Cleanup removes stale downloads and old package versions (phase 4).
func (m *Maintainer) Cleanup(ctx context.Context) (string, error) {
	return m.executor.Execute(ctx, domain.NewCleanupCommand(m.executor.InheritedEnv()))
}

// Run performs one full maintenance pass. It returns an error only when a
// fatal phase (1, 2 or 4) aborts; per-package upgrade failures are
// reported through the returned MaintenanceReport.
func (m *Maintainer) Run(ctx context.Context) (*domain.MaintenanceReport, error) {
	start := time.Now()

	output, err := m.UpdateRepositories(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to update reference repositories: %w", err)
	}
	m.logger.Info("brew update done", zap.String("output", output))

	report, err := m.FindOutdated(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed in finding outdated packages: %w", err)
	}
	m.logger.Info("brew outdated done",
		zap.Int("formulae", len(report.Formulae)),
		zap.Int("casks", len(report.Casks)))

	failed := m.UpgradeAll(ctx, report)
	m.logger.Info("brew upgrade done", zap.Int("failed", len(failed)))
	for _, pkg := range failed {
		m.logger.Warn("upgrade left behind", zap.String("package", pkg.String()))
	}

	output, err = m.Cleanup(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to cleanup: %w", err)
	}
	m.logger.Info("brew cleanup done", zap.String("output", output))

	return &domain.MaintenanceReport{
		StartedAt:      start,
		Duration:       time.Since(start),
		Outdated:       report,
		FailedUpgrades: failed,
	}, nil
}
