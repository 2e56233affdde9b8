// Package scheduler runs the periodic reconciliation and invariant
// verification jobs (spec §4.7, §4.3) on a cron schedule. Grounded on the
// teacher's internal/workers package's cron.New()-based job registration,
// adapted from worker-pool polling into the robfig/cron/v3 scheduler the
// teacher declares but does not itself use for this purpose.
package scheduler

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/rail-service/ledger-core/pkg/logger"
)

// Scheduler drives periodic background jobs and implements
// pkg/graceful.Shutdowner so it participates in ordered shutdown.
type Scheduler struct {
	cron   *cron.Cron
	logger *logger.Logger
}

func New(c *cron.Cron, log *logger.Logger) *Scheduler {
	return &Scheduler{cron: c, logger: log}
}

// RegisterReconciliation schedules fn (typically reconciliation.Service.Reconcile
// wrapped to resolve owner ids) to run on spec, a robfig/cron schedule: a
// standard five-field expression (e.g. "*/15 * * * *") or a descriptor
// such as "@every 15m".
func (s *Scheduler) RegisterReconciliation(spec string, fn func(ctx context.Context) error) error {
	_, err := s.cron.AddFunc(spec, func() {
		if err := fn(context.Background()); err != nil {
			s.logger.Error("reconciliation job failed", "error", err.Error())
		}
	})
	return err
}

// RegisterInvariantVerification schedules the invariant verifier, which
// runs less frequently than reconciliation since it scans the full user set.
func (s *Scheduler) RegisterInvariantVerification(spec string, fn func(ctx context.Context) error) error {
	_, err := s.cron.AddFunc(spec, func() {
		if err := fn(context.Background()); err != nil {
			s.logger.Error("invariant verification job failed", "error", err.Error())
		}
	})
	return err
}

// Start begins running registered jobs in the background.
func (s *Scheduler) Start() { s.cron.Start() }

// Shutdown stops the cron scheduler and waits for any in-flight job to
// finish, satisfying pkg/graceful.Shutdowner.
func (s *Scheduler) Shutdown(timeout time.Duration) error {
	stopCtx := s.cron.Stop()
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	select {
	case <-stopCtx.Done():
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
