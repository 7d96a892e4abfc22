package orchestrator

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

// ErrNoJobsAvailable is returned by claimNext when no pending job exists.
var ErrNoJobsAvailable = errors.New("orchestrator: no jobs available")

// PoolConfig controls WorkerPool polling, concurrency, and staleness
// detection, mirroring the queue package's worker-count/poll-interval/
// orphan-threshold knobs (§5).
type PoolConfig struct {
	WorkerCount        int
	PollInterval       time.Duration
	StaleThreshold     time.Duration
	OrphanScanInterval time.Duration
}

// DefaultPoolConfig returns sensible defaults for a single-process deployment.
func DefaultPoolConfig() PoolConfig {
	return PoolConfig{
		WorkerCount:        3,
		PollInterval:       2 * time.Second,
		StaleThreshold:     30 * time.Minute,
		OrphanScanInterval: 5 * time.Minute,
	}
}

// WorkerPool polls the jobs table for pending work, runs it through
// FlowOrchestrator.ExecuteJob, and recovers jobs whose worker died mid-run
// (flow1_running/flow2_running past StaleThreshold), grounded on the
// claim/poll/orphan-detection idiom used by the session queue's worker pool.
type WorkerPool struct {
	podID string
	db    *sql.DB
	orch  *FlowOrchestrator
	cfg   PoolConfig

	stopCh   chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
}

// NewWorkerPool constructs a WorkerPool. podID identifies this process in
// worker_id claims, for multi-replica deployments.
func NewWorkerPool(podID string, db *sql.DB, orch *FlowOrchestrator, cfg PoolConfig) *WorkerPool {
	return &WorkerPool{podID: podID, db: db, orch: orch, cfg: cfg, stopCh: make(chan struct{})}
}

// Start launches WorkerCount poll loops plus the orphan-detection loop.
func (p *WorkerPool) Start(ctx context.Context) {
	for i := 0; i < p.cfg.WorkerCount; i++ {
		workerID := fmt.Sprintf("%s-worker-%d", p.podID, i)
		p.wg.Add(1)
		go p.run(ctx, workerID)
	}
	p.wg.Add(1)
	go p.runOrphanDetection(ctx)
}

// Stop signals every loop to exit and waits for in-flight jobs to finish.
func (p *WorkerPool) Stop() {
	p.stopOnce.Do(func() { close(p.stopCh) })
	p.wg.Wait()
}

func (p *WorkerPool) run(ctx context.Context, workerID string) {
	defer p.wg.Done()
	log := slog.With("worker_id", workerID)

	for {
		select {
		case <-p.stopCh:
			return
		case <-ctx.Done():
			return
		default:
		}

		job, err := p.claimNext(ctx, workerID)
		if err != nil {
			if errors.Is(err, ErrNoJobsAvailable) {
				p.sleep(p.cfg.PollInterval)
				continue
			}
			log.Error("claim failed", "error", err)
			p.sleep(time.Second)
			continue
		}

		log.Info("job claimed", "job_id", job.ID)
		result := p.orch.ExecuteJob(ctx, job)
		if err := p.finalize(ctx, job.ID, result); err != nil {
			log.Error("finalize failed", "job_id", job.ID, "error", err)
		}
	}
}

func (p *WorkerPool) sleep(d time.Duration) {
	select {
	case <-p.stopCh:
	case <-time.After(d):
	}
}

// claimNext atomically picks the oldest pending job and marks it
// flow1_running, using SELECT ... FOR UPDATE SKIP LOCKED so concurrent
// workers (same process or other replicas) never double-claim.
func (p *WorkerPool) claimNext(ctx context.Context, workerID string) (Job, error) {
	tx, err := p.db.BeginTx(ctx, nil)
	if err != nil {
		return Job{}, err
	}
	defer tx.Rollback()

	var (
		id, tenantID, url string
		rawConfig         []byte
	)
	err = tx.QueryRowContext(ctx, `
		SELECT job_id, tenant_id, input_url, config
		FROM jobs
		WHERE status = 'pending'
		ORDER BY created_at
		FOR UPDATE SKIP LOCKED
		LIMIT 1`,
	).Scan(&id, &tenantID, &url, &rawConfig)
	if errors.Is(err, sql.ErrNoRows) {
		return Job{}, ErrNoJobsAvailable
	}
	if err != nil {
		return Job{}, fmt.Errorf("select pending job: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `
		UPDATE jobs SET status = 'flow1_running', worker_id = $2, stage_updated_at = now()
		WHERE job_id = $1`, id, workerID); err != nil {
		return Job{}, fmt.Errorf("claim job: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return Job{}, err
	}

	cfg := map[string]any{}
	if len(rawConfig) > 0 {
		if err := json.Unmarshal(rawConfig, &cfg); err != nil {
			slog.Warn("orchestrator: unparseable job config, ignoring", "job_id", id, "error", err)
		}
	}

	return Job{ID: id, TenantID: tenantID, URL: url, Config: cfg}, nil
}

// finalize writes ExecuteJob's result back to the jobs row.
func (p *WorkerPool) finalize(ctx context.Context, jobID string, result Result) error {
	statsJSON, err := json.Marshal(map[string]any{
		"contact_count":   result.ContactCount,
		"enrichment_rate": result.EnrichmentRate,
		"block_detected":  result.BlockDetected,
	})
	if err != nil {
		return err
	}

	var errMsg any
	if result.Error != nil {
		errMsg = result.Error.Error()
	}

	_, err = p.db.ExecContext(ctx, `
		UPDATE jobs
		SET status = $2,
		    stats = COALESCE(stats, '{}'::jsonb) || $3::jsonb,
		    error_message = $4,
		    stage_updated_at = now(),
		    completed_at = CASE WHEN $2 IN ('completed', 'failed') THEN now() ELSE completed_at END,
		    worker_id = CASE WHEN $2 IN ('completed', 'failed') THEN NULL ELSE worker_id END
		WHERE job_id = $1`,
		jobID, string(result.Status), statsJSON, errMsg,
	)
	return err
}

// runOrphanDetection periodically resets claimed jobs whose stage hasn't
// advanced past StaleThreshold back to pending, so another worker (possibly
// on another replica, if the original died) can pick them up.
func (p *WorkerPool) runOrphanDetection(ctx context.Context) {
	defer p.wg.Done()
	ticker := time.NewTicker(p.cfg.OrphanScanInterval)
	defer ticker.Stop()

	for {
		select {
		case <-p.stopCh:
			return
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := p.recoverOrphans(ctx); err != nil {
				slog.Error("orchestrator: orphan recovery failed", "error", err)
			}
		}
	}
}

func (p *WorkerPool) recoverOrphans(ctx context.Context) error {
	res, err := p.db.ExecContext(ctx, `
		UPDATE jobs
		SET status = 'pending', worker_id = NULL, stage_updated_at = now()
		WHERE status IN ('flow1_running', 'flow2_running')
		  AND stage_updated_at < $1`,
		time.Now().Add(-p.cfg.StaleThreshold),
	)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n > 0 {
		slog.Warn("orchestrator: recovered stale jobs", "count", n)
	}
	return nil
}
