// Package extractor defines the single Extractor interface every miner
// implements (§9 redesign note) plus an Adapter that layers cost tracking,
// evidence tagging, and validation on top of any Extractor.
package extractor

import (
	"context"
	"time"

	"github.com/contactminer/engine/pkg/contact"
	"github.com/contactminer/engine/pkg/cost"
	"github.com/contactminer/engine/pkg/normalize"
)

// Status is an extractor run's outcome classification (§7).
type Status string

const (
	StatusOK        Status = "ok"
	StatusBlocked   Status = "blocked"
	StatusEmpty     Status = "empty"
	StatusCostLimit Status = "cost_limit"
	StatusError     Status = "error"
)

// Capabilities are data describing an extractor's behavior, not
// inheritance (§9 redesign note).
type Capabilities struct {
	UseCache           bool
	SupportsPagination bool
	OwnPagination      bool
	CostPerRequest      cost.Operation
	DefaultConfidence  int
}

// Job is the minimal job shape an extractor needs to run.
type Job struct {
	ID       string
	TenantID string
	URL      string
	Hints    map[string]any
}

// MinerResult is one extractor run's raw output.
type MinerResult struct {
	Status   Status
	Output   normalize.MinerOutput
	Evidence contact.Evidence
	Reason   string
}

// Extractor is the single interface every miner implements (§9 redesign
// note: "Ad-hoc polymorphism over extractor shape").
type Extractor interface {
	Name() string
	Capabilities() Capabilities
	Mine(ctx context.Context, job Job) (MinerResult, error)
}

// Registry looks extractors up by name for the orchestrator and router.
type Registry struct {
	extractors map[string]Extractor
}

// NewRegistry builds a Registry from a list of extractors.
func NewRegistry(extractors ...Extractor) *Registry {
	r := &Registry{extractors: make(map[string]Extractor, len(extractors))}
	for _, e := range extractors {
		r.extractors[e.Name()] = e
	}
	return r
}

// Get returns the named extractor, or nil if unregistered.
func (r *Registry) Get(name string) Extractor {
	return r.extractors[name]
}

// Timeout returns the hard per-call timeout for a named extractor (§5):
// 60s for table extractors, 120s for AI, 300s for multi-page crawl
// extractors, 60s default otherwise.
func Timeout(name string) time.Duration {
	switch name {
	case "playwrightTableMiner":
		return 60 * time.Second
	case "aiMiner":
		return 120 * time.Second
	case "websiteScraperMiner":
		return 300 * time.Second
	default:
		return 60 * time.Second
	}
}
