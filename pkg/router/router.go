// Package router implements SmartRouter (§4.2): turns a Scout report (or an
// explicit job preference) into an extractor routing decision, respecting
// cost budgets and cache-safety invariants that no caller may override.
package router

import (
	"context"
	"time"

	"github.com/contactminer/engine/pkg/cost"
	"github.com/contactminer/engine/pkg/scout"
)

// Priority ranks extractors; lower is preferred (§4.2).
var Priority = map[string]int{
	"httpBasicMiner":       1,
	"playwrightTableMiner": 2,
	"playwrightMiner":      3,
	"aiMiner":              4,
	"websiteScraperMiner":  5,
	"documentMiner":        6,
}

// browserDrivingMiners must never use the HTML cache (§4.2 rule c).
var browserDrivingMiners = map[string]bool{
	"playwrightMiner":      true,
	"playwrightTableMiner": true,
}

// enrichmentFetchMiners fetch remote content for enrichment and must also
// bypass the cache.
var enrichmentFetchMiners = map[string]bool{
	"websiteScraperMiner": true,
	"aiMiner":             true,
}

// fallbackTable maps a primary miner to its static ordered fallback
// candidates (§4.2 rule e).
var fallbackTable = map[string][]string{
	"httpBasicMiner":       {"playwrightTableMiner", "playwrightMiner", "aiMiner"},
	"playwrightTableMiner": {"playwrightMiner", "aiMiner"},
	"playwrightMiner":      {"aiMiner"},
	"directoryMiner":       {"playwrightMiner"},
	"spaNetworkMiner":      {"playwrightMiner", "aiMiner"},
	"documentMiner":        {"aiMiner"},
}

// MaxFallbackChainLength caps the fallback chain regardless of how many
// candidates remain within budget.
const MaxFallbackChainLength = 3

// Job is the minimal job shape SmartRouter needs.
type Job struct {
	ID               string
	TenantID         string
	URL              string
	PreferredMiner   string
}

// Decision is SmartRouter's routing output.
type Decision struct {
	PrimaryMiner   string
	UseCache       bool
	FallbackChain  []string
	Hints          map[string]any
	PaginationType scout.PaginationType
	Reason         string
	OwnPagination  bool
}

// Router produces routing decisions, consulting Scout and CostTracker.
type Router struct {
	scout   *scout.Analyzer
	tracker *cost.Tracker
}

// New constructs a Router.
func New(analyzer *scout.Analyzer, tracker *cost.Tracker) *Router {
	return &Router{scout: analyzer, tracker: tracker}
}

// Route implements §4.2's ordered rules.
func (r *Router) Route(ctx context.Context, job Job) Decision {
	var primary string
	var useCache bool
	var pagType scout.PaginationType
	ownPagination := false
	reason := ""

	if job.PreferredMiner != "" {
		primary = job.PreferredMiner
		useCache = !browserDrivingMiners[primary] && !enrichmentFetchMiners[primary]
		reason = "forced by job.config.preferred_miner"
	} else {
		report := r.scout.Analyze(ctx, job.URL)
		primary = report.Recommendation.Miner
		useCache = report.Recommendation.UseCache
		pagType = report.PaginationType
		ownPagination = report.Recommendation.OwnPagination
		reason = report.Recommendation.Reason
	}

	// Invariants that cannot be overridden (§4.2 rule c).
	if browserDrivingMiners[primary] || enrichmentFetchMiners[primary] {
		useCache = false
	}

	primary = r.enforceBudget(job, primary, reason)

	chain := r.buildFallbackChain(job, primary)

	return Decision{
		PrimaryMiner:   primary,
		UseCache:       useCache,
		FallbackChain:  chain,
		Hints:          map[string]any{},
		PaginationType: pagType,
		OwnPagination:  ownPagination,
		Reason:         reason,
	}
}

// enforceBudget swaps the primary for the cheapest within-budget alternative
// when the projected cost would exceed tenant/job/URL limits (§4.2 rule d).
func (r *Router) enforceBudget(job Job, primary, reason string) string {
	if r.tracker == nil {
		return primary
	}
	op := operationFor(primary)
	if allowed, _ := r.tracker.CanProceed(job.ID, job.TenantID, job.URL, op, time.Now()); allowed {
		return primary
	}

	candidates := fallbackTable[primary]
	for _, c := range candidates {
		if allowed, _ := r.tracker.CanProceed(job.ID, job.TenantID, job.URL, operationFor(c), time.Now()); allowed {
			return c
		}
	}
	return primary
}

// buildFallbackChain looks up primary's static fallback list and filters
// out candidates whose projected cost is no longer within budget, capping
// the chain length (§4.2 rule e).
func (r *Router) buildFallbackChain(job Job, primary string) []string {
	candidates := fallbackTable[primary]
	var chain []string
	for _, c := range candidates {
		if r.tracker != nil {
			if allowed, _ := r.tracker.CanProceed(job.ID, job.TenantID, job.URL, operationFor(c), time.Now()); !allowed {
				continue
			}
		}
		chain = append(chain, c)
		if len(chain) >= MaxFallbackChainLength {
			break
		}
	}
	return chain
}

// GetNextFallback returns the next decision after failedMiner exhausted its
// attempt, or nil if the chain is exhausted.
func (r *Router) GetNextFallback(decision Decision, failedMiner, reason string) *Decision {
	for i, m := range decision.FallbackChain {
		if m == failedMiner {
			if i+1 < len(decision.FallbackChain) {
				next := decision
				next.PrimaryMiner = decision.FallbackChain[i+1]
				next.FallbackChain = decision.FallbackChain[i+2:]
				next.UseCache = !browserDrivingMiners[next.PrimaryMiner] && !enrichmentFetchMiners[next.PrimaryMiner]
				next.Reason = reason
				return &next
			}
			return nil
		}
	}
	if len(decision.FallbackChain) > 0 {
		next := decision
		next.PrimaryMiner = decision.FallbackChain[0]
		next.FallbackChain = decision.FallbackChain[1:]
		next.UseCache = !browserDrivingMiners[next.PrimaryMiner] && !enrichmentFetchMiners[next.PrimaryMiner]
		next.Reason = reason
		return &next
	}
	return nil
}

// operationFor maps a miner name to its CostTracker operation.
func operationFor(miner string) cost.Operation {
	switch miner {
	case "aiMiner":
		return cost.OpAIExtraction
	case "playwrightMiner", "playwrightTableMiner":
		return cost.OpBrowserPage
	case "websiteScraperMiner":
		return cost.OpDeepCrawl
	default:
		return cost.OpHTTPFetch
	}
}
