// Package cleanup provides data retention and cleanup services.
package cleanup

import (
	"context"
	"database/sql"
	"log/slog"
	"time"

	"github.com/contactminer/engine/pkg/config"
)

// Service periodically enforces retention policies (§3 lifecycle summary:
// "Circuit records and cost ledgers are process-scoped with periodic
// cleanup"; RetentionConfig extends the same idea to durable rows):
//   - Purges completed/failed jobs (and their result rows, cascade-deleted)
//     past JobRetentionDays.
//   - Sweeps the in-process CircuitBreaker via an injected Cleanup(now)
//     hook, so per-domain state doesn't grow unbounded either.
//
// All operations are idempotent and safe to run from multiple pods.
type Service struct {
	config         *config.RetentionConfig
	db             *sql.DB
	circuitCleanup func(now time.Time) int

	cancel context.CancelFunc
	done   chan struct{}
}

// NewService creates a new cleanup service. circuitCleanup may be nil, in
// which case circuit-breaker sweeping is skipped (e.g. in tests that only
// care about job retention).
func NewService(cfg *config.RetentionConfig, db *sql.DB, circuitCleanup func(now time.Time) int) *Service {
	return &Service{config: cfg, db: db, circuitCleanup: circuitCleanup}
}

// Start launches the background cleanup loop.
func (s *Service) Start(ctx context.Context) {
	if s.cancel != nil {
		return
	}
	ctx, s.cancel = context.WithCancel(ctx)
	s.done = make(chan struct{})

	go s.run(ctx)

	slog.Info("Cleanup service started",
		"job_retention_days", s.config.JobRetentionDays,
		"event_ttl", s.config.EventTTL,
		"interval", s.config.CleanupInterval)
}

// Stop signals the cleanup loop to exit and waits for it to finish.
func (s *Service) Stop() {
	if s.cancel == nil {
		return
	}
	s.cancel()
	<-s.done
	slog.Info("Cleanup service stopped")
}

func (s *Service) run(ctx context.Context) {
	defer close(s.done)

	s.runAll(ctx)

	ticker := time.NewTicker(s.config.CleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.runAll(ctx)
		}
	}
}

func (s *Service) runAll(ctx context.Context) {
	s.purgeOldJobs(ctx)
	s.sweepCircuits()
}

// purgeOldJobs deletes jobs (and, via ON DELETE CASCADE, their result_rows)
// that finished more than JobRetentionDays ago. Jobs still pending/running
// are never touched regardless of age.
func (s *Service) purgeOldJobs(ctx context.Context) {
	if s.db == nil {
		return
	}
	cutoff := time.Now().AddDate(0, 0, -s.config.JobRetentionDays)
	res, err := s.db.ExecContext(ctx, `
		DELETE FROM jobs
		WHERE status IN ('completed', 'failed')
		  AND completed_at IS NOT NULL
		  AND completed_at < $1`, cutoff)
	if err != nil {
		slog.Error("Retention: job purge failed", "error", err)
		return
	}
	if n, _ := res.RowsAffected(); n > 0 {
		slog.Info("Retention: purged old jobs", "count", n)
	}
}

// sweepCircuits reclaims CircuitBreaker state for domains inactive for 24h
// (§4.12: "Domains inactive for 24 h are eligible for cleanup").
func (s *Service) sweepCircuits() {
	if s.circuitCleanup == nil {
		return
	}
	n := s.circuitCleanup(time.Now())
	if n > 0 {
		slog.Info("Retention: swept inactive circuit-breaker domains", "count", n)
	}
}
