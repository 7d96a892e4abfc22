// Package orchestrator implements FlowOrchestrator (§4.4): the per-job
// state machine driving Scout → SmartRouter → PaginationHandler →
// Aggregator-V1 (Flow 1), the Flow-2 decision, and Flow-2 execution +
// Aggregator-V2 when it runs.
package orchestrator

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"time"

	"github.com/contactminer/engine/pkg/aggregator"
	"github.com/contactminer/engine/pkg/circuit"
	"github.com/contactminer/engine/pkg/config"
	"github.com/contactminer/engine/pkg/cost"
	"github.com/contactminer/engine/pkg/extractor"
	"github.com/contactminer/engine/pkg/paginate"
	"github.com/contactminer/engine/pkg/router"
	"github.com/contactminer/engine/pkg/scout"
)

// Status mirrors the Job.status enum driven by this package (§3, §4.4).
type Status string

const (
	StatusPending       Status = "pending"
	StatusFlow1Running  Status = "flow1_running"
	StatusFlow1Complete Status = "flow1_complete"
	StatusFlow2Running  Status = "flow2_running"
	StatusFlow2Complete Status = "flow2_complete"
	StatusCompleted     Status = "completed"
	StatusFailed        Status = "failed"
)

// Job is the minimal job shape ExecuteJob needs; callers (the worker pool,
// an API handler) are responsible for loading it from the relational store.
type Job struct {
	ID       string
	TenantID string
	URL      string
	Config   map[string]any
}

// Result is ExecuteJob's outcome, enough for the caller to persist the
// job's final status without re-deriving orchestration internals.
type Result struct {
	Status         Status
	ContactCount   int
	EnrichmentRate float64
	BlockDetected  bool
	Error          error
}

// FlowOrchestrator drives one job through Flow 1, the Flow-2 decision, and
// (when it runs) Flow 2 + Aggregator-V2. It is a process singleton
// constructed once at startup from an explicit dependency set — never a
// package-global lazily initialized the first time a job runs (§9 redesign
// note).
type FlowOrchestrator struct {
	registry   *extractor.Registry
	tracker    *cost.Tracker
	scout      *scout.Analyzer
	router     *router.Router
	paginator  *paginate.Handler
	aggregator *aggregator.Aggregator
	breaker    *circuit.Breaker
	flowCfg    *config.FlowConfig
}

// New constructs a FlowOrchestrator from its already-initialized
// dependencies. breaker may be nil, in which case every domain is always
// allowed (used by tests that don't care about circuit state).
func New(registry *extractor.Registry, tracker *cost.Tracker, analyzer *scout.Analyzer, rt *router.Router, paginator *paginate.Handler, agg *aggregator.Aggregator, breaker *circuit.Breaker, flowCfg *config.FlowConfig) *FlowOrchestrator {
	if flowCfg == nil {
		flowCfg = config.DefaultFlowConfig()
	}
	return &FlowOrchestrator{
		registry:   registry,
		tracker:    tracker,
		scout:      analyzer,
		router:     rt,
		paginator:  paginator,
		aggregator: agg,
		breaker:    breaker,
		flowCfg:    flowCfg,
	}
}

// domainOf extracts the host component of rawURL for circuit-breaker
// bookkeeping, falling back to the raw string if it doesn't parse.
func domainOf(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil || u.Host == "" {
		return rawURL
	}
	return u.Host
}

// ExecuteJob runs the full per-job state machine (§4.4). Extractor-level
// failures are absorbed into miner_stats and never abort the job; only a
// persistence-transaction failure surfaces as an error here, which the
// caller should record as the job's `failed` status.
func (o *FlowOrchestrator) ExecuteJob(ctx context.Context, job Job) Result {
	defer o.tracker.ReleaseJob(ctx, job.ID)

	jobCtx, cancel := context.WithTimeout(ctx, o.jobTimeout())
	defer cancel()

	runs, blockDetected := o.executeFlow1(jobCtx, job)

	evt, err := o.aggregator.AggregateV1(jobCtx, aggregator.AggregateV1Input{
		JobID: job.ID, TenantID: job.TenantID, SourceURL: job.URL, Runs: runs,
	})
	if err != nil {
		return Result{Status: StatusFailed, Error: fmt.Errorf("orchestrator: aggregate v1: %w", err)}
	}

	if evt.AlreadyPersisted {
		return Result{
			Status: StatusCompleted, ContactCount: evt.ContactCount,
			EnrichmentRate: evt.EnrichmentRate, BlockDetected: blockDetected,
		}
	}

	decision := DecideFlow2(o.flowCfg, evt)
	if !decision.Run {
		slog.Info("orchestrator: flow 2 skipped", "job_id", job.ID, "reason", decision.Reason)
		return Result{
			Status: StatusFlow1Complete, ContactCount: evt.ContactCount,
			EnrichmentRate: evt.EnrichmentRate, BlockDetected: blockDetected,
		}
	}

	scraperContacts := o.executeFlow2(jobCtx, job, evt, decision)

	completed, err := o.aggregator.AggregateV2(jobCtx, aggregator.AggregateV2Input{
		JobID: job.ID, ScraperContacts: scraperContacts, FallbackSourceURL: job.URL,
	})
	if err != nil {
		return Result{Status: StatusFailed, Error: fmt.Errorf("orchestrator: aggregate v2: %w", err)}
	}

	return Result{
		Status: StatusCompleted, ContactCount: completed.ContactCount,
		EnrichmentRate: evt.EnrichmentRate, BlockDetected: blockDetected,
	}
}

// executeFlow1 runs Scout, builds the execution plan, and mines every step
// (pagination-aware where applicable), returning one MinerRun per step plus
// whether a block-detection signal should be raised (§4.4 step 6).
func (o *FlowOrchestrator) executeFlow1(ctx context.Context, job Job) ([]aggregator.MinerRun, bool) {
	mode := miningMode(job)
	inputType := o.classifyInput(ctx, job)
	plan := router.BuildPlan(inputType, mode)

	var runs []aggregator.MinerRun
	allFailed := true

	if mode == router.ModeFull || mode == router.ModeFree {
		for i, step := range plan.Steps {
			// Only the primary step (i==0) gets the pagination treatment;
			// any later step runs on page 1 only (§4.4 step 3: "enrichment
			// steps on page 1 only"). BuildPlan adds its enrichment step
			// only for mode==ai, which takes the Route branch below.
			var run aggregator.MinerRun
			if i == 0 && !plan.SelfPaginated {
				run = o.runPaginated(ctx, job, step.Miner)
			} else {
				run = o.runSingle(ctx, job, step.Miner, job.URL)
			}
			if run.Status != string(extractor.StatusBlocked) && run.Status != string(extractor.StatusError) {
				allFailed = false
			}
			runs = append(runs, run)
		}
	} else {
		decision := o.router.Route(ctx, router.Job{ID: job.ID, TenantID: job.TenantID, URL: job.URL, PreferredMiner: preferredMiner(job)})
		var run aggregator.MinerRun
		if !decision.OwnPagination {
			run = o.runPaginated(ctx, job, decision.PrimaryMiner)
		} else {
			run = o.runSingle(ctx, job, decision.PrimaryMiner, job.URL)
		}
		if run.Status != string(extractor.StatusBlocked) && run.Status != string(extractor.StatusError) {
			allFailed = false
		}
		runs = append(runs, run)
	}

	totalContacts := 0
	anyBlocked := false
	for _, r := range runs {
		totalContacts += len(r.Contacts)
		if r.Status == string(extractor.StatusBlocked) {
			anyBlocked = true
		}
	}
	blockDetected := totalContacts == 0 && (anyBlocked || allFailed)

	return runs, blockDetected
}

// runPaginated runs miner across every page of job.URL via PaginationHandler
// (§4.4 step 3, §4.5).
func (o *FlowOrchestrator) runPaginated(ctx context.Context, job Job, miner string) aggregator.MinerRun {
	domain := domainOf(job.URL)
	if o.breaker != nil && !o.breaker.Allow(domain, time.Now()) {
		return aggregator.MinerRun{Miner: miner, Status: string(extractor.StatusBlocked)}
	}

	ext := o.registry.Get(miner)
	if ext == nil {
		return aggregator.MinerRun{Miner: miner, Status: string(extractor.StatusError)}
	}
	adapter := extractor.NewAdapter(ext, o.tracker)

	decision := router.Decision{PrimaryMiner: miner}
	detection := o.paginator.Detect(ctx, job.URL, decision, "")

	extJob := extractor.Job{ID: job.ID, TenantID: job.TenantID, URL: job.URL, Hints: job.Config}
	merged := o.paginator.MineAllPages(ctx, adapter, extJob, detection.PageURLs)

	status := string(extractor.StatusOK)
	if len(merged.Contacts) == 0 {
		status = string(extractor.StatusEmpty)
	}
	o.recordBreaker(domain, status)
	return aggregator.MinerRun{Miner: miner, Status: status, Contacts: merged.Contacts}
}

// runSingle runs miner once against url, for self-paginating extractors and
// page-1-only enrichment steps.
func (o *FlowOrchestrator) runSingle(ctx context.Context, job Job, miner, targetURL string) aggregator.MinerRun {
	domain := domainOf(targetURL)
	if o.breaker != nil && !o.breaker.Allow(domain, time.Now()) {
		return aggregator.MinerRun{Miner: miner, Status: string(extractor.StatusBlocked)}
	}

	ext := o.registry.Get(miner)
	if ext == nil {
		return aggregator.MinerRun{Miner: miner, Status: string(extractor.StatusError)}
	}
	adapter := extractor.NewAdapter(ext, o.tracker)

	contacts, status, err := adapter.Run(ctx, extractor.Job{ID: job.ID, TenantID: job.TenantID, URL: targetURL, Hints: job.Config})
	if err != nil {
		o.recordBreaker(domain, string(extractor.StatusError))
		return aggregator.MinerRun{Miner: miner, Status: string(extractor.StatusError), Contacts: contacts}
	}
	o.recordBreaker(domain, string(status))
	return aggregator.MinerRun{Miner: miner, Status: string(status), Contacts: contacts}
}

// recordBreaker feeds a run's outcome back into the circuit breaker: a
// block or error counts as a failure, anything else as a success (§4.12).
func (o *FlowOrchestrator) recordBreaker(domain, status string) {
	if o.breaker == nil {
		return
	}
	now := time.Now()
	if status == string(extractor.StatusBlocked) || status == string(extractor.StatusError) {
		o.breaker.RecordFailure(domain, now)
		return
	}
	o.breaker.RecordSuccess(domain, now)
}

// classifyInput maps Scout's page_type into the router's InputType, letting
// an explicit job.Config["input_type"] override it (for input types Scout
// doesn't itself distinguish, e.g. member_table/messe_frankfurt — §4.3).
func (o *FlowOrchestrator) classifyInput(ctx context.Context, job Job) router.InputType {
	if v, ok := job.Config["input_type"].(string); ok && v != "" {
		return router.InputType(v)
	}
	if o.scout == nil {
		return router.InputUnknown
	}
	report := o.scout.Analyze(ctx, job.URL)
	switch report.PageType {
	case scout.PageDirectory:
		return router.InputDirectory
	case scout.PageSPACatalog:
		return router.InputSPACatalog
	case scout.PageDocumentViewer:
		return router.InputDocument
	case scout.PageExhibitorTable:
		return router.InputTable
	default:
		return router.InputWebsite
	}
}

func (o *FlowOrchestrator) jobTimeout() time.Duration {
	if o.flowCfg.JobTimeout <= 0 {
		return 5 * time.Minute
	}
	return o.flowCfg.JobTimeout
}

// miningMode reads job.Config["mining_mode"], defaulting to full (§4.3).
func miningMode(job Job) router.MiningMode {
	if v, ok := job.Config["mining_mode"].(string); ok && v != "" {
		return router.MiningMode(v)
	}
	return router.ModeFull
}

// preferredMiner reads job.Config["preferred_miner"], if any (§4.2 rule a).
func preferredMiner(job Job) string {
	if v, ok := job.Config["preferred_miner"].(string); ok {
		return v
	}
	return ""
}
