package aggregator

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/contactminer/engine/pkg/config"
	"github.com/contactminer/engine/pkg/contact"
	"github.com/contactminer/engine/pkg/eventbus"
	"github.com/contactminer/engine/pkg/ttlstore"
	"github.com/contactminer/engine/pkg/validate"
)

// enrichmentFields are the fields counted for the enrichment-rate metric
// (§4.8 step 2).
var enrichmentFields = []func(contact.UnifiedContact) string{
	func(c contact.UnifiedContact) string { return c.ContactName },
	func(c contact.UnifiedContact) string { return c.CompanyName },
	func(c contact.UnifiedContact) string { return c.Phone },
	func(c contact.UnifiedContact) string { return c.Website },
	func(c contact.UnifiedContact) string { return c.Country },
}

// MinContactsForFullOOMSkip and the other Flow-2 decision thresholds live in
// pkg/orchestrator, which owns that policy; this package only produces the
// enrichment_rate/contact_count inputs it consumes.

// MinerRun is one extractor's raw contribution to Flow 1, carried alongside
// its status for the miner_stats blob.
type MinerRun struct {
	Miner    string
	Status   string
	Contacts []contact.UnifiedContact
}

// AggregateV1Input is aggregate_v1's input (§4.8).
type AggregateV1Input struct {
	JobID     string
	TenantID  string
	SourceURL string
	Runs      []MinerRun
}

// AggregationDoneEvent is published on eventbus.ChannelAggregationDone after
// a successful AggregateV1 (§4.8 step 5).
type AggregationDoneEvent struct {
	JobID             string   `json:"job_id"`
	EnrichmentRate    float64  `json:"enrichment_rate"`
	ContactCount      int      `json:"contact_count"`
	EmailBasedCount   int      `json:"email_based_count"`
	ProfileOnlyCount  int      `json:"profile_only_count"`
	WebsiteURLs       []string `json:"website_urls"`
	DeepCrawlAttempted bool    `json:"deep_crawl_attempted"`
	AlreadyPersisted  bool     `json:"already_persisted"`
}

// JobCompletedEvent is published on eventbus.ChannelJobCompleted after a
// successful AggregateV2 (or the aggregate_simple fallback).
type JobCompletedEvent struct {
	JobID        string `json:"job_id"`
	ContactCount int    `json:"contact_count"`
}

// Aggregator implements ResultAggregator V1/V2, backed by the TTL store for
// the Flow-1/Flow-2 handoff, the event bus for aggregation:done/job:completed,
// and the relational store for durable persistence (§4.8-§4.10). It is a
// process singleton constructed once at startup and injected into the
// FlowOrchestrator (§9).
type Aggregator struct {
	store     *ttlstore.Store
	bus       *eventbus.Bus
	db        *sql.DB
	canonical *config.CanonicalConfig
}

// New constructs an Aggregator from its already-initialized dependencies.
func New(store *ttlstore.Store, bus *eventbus.Bus, db *sql.DB, canonical *config.CanonicalConfig) *Aggregator {
	return &Aggregator{store: store, bus: bus, db: db, canonical: canonical}
}

// AggregateV1 merges every extractor's Flow-1 output, computes the
// enrichment-rate signal Flow 2's decision depends on, saves the merged
// payload to the TTL store (falling back to aggregate_simple if the store is
// unavailable), and publishes aggregation:done (§4.8 V1).
func (a *Aggregator) AggregateV1(ctx context.Context, in AggregateV1Input) (AggregationDoneEvent, error) {
	var all []contact.UnifiedContact
	var minerStats []MinerStats
	for _, run := range in.Runs {
		all = append(all, run.Contacts...)
		minerStats = append(minerStats, MinerStats{
			Miner: run.Miner, Status: run.Status, ContactCount: len(run.Contacts),
		})
	}

	merged := contact.Merge(all)
	rate := enrichmentRate(merged)
	websiteURLs := extractWebsiteURLs(merged)

	evt := AggregationDoneEvent{
		JobID:              in.JobID,
		EnrichmentRate:     rate,
		ContactCount:       len(merged),
		EmailBasedCount:    countEmailBased(merged),
		ProfileOnlyCount:   len(merged) - countEmailBased(merged),
		WebsiteURLs:        websiteURLs,
		DeepCrawlAttempted: false,
	}

	payload := TempPayload{
		JobID:          in.JobID,
		TenantID:       in.TenantID,
		SourceURL:      in.SourceURL,
		Contacts:       merged,
		WebsiteURLs:    websiteURLs,
		MinerStats:     minerStats,
		EnrichmentRate: rate,
		SavedAt:        time.Now(),
	}

	if a.store == nil {
		evt.AlreadyPersisted = true
		if _, err := PersistResultRows(ctx, a.db, in.JobID, in.TenantID, merged); err != nil {
			return AggregationDoneEvent{}, fmt.Errorf("aggregator: aggregate_simple fallback: %w", err)
		}
		UpsertCanonical(ctx, a.db, a.canonical, in.TenantID, in.JobID, merged)
	} else if err := SaveTempPayload(ctx, a.store, payload); err != nil {
		slog.Warn("aggregator: temp payload save failed, falling back to aggregate_simple",
			"job_id", in.JobID, "error", err)
		evt.AlreadyPersisted = true
		if _, err := PersistResultRows(ctx, a.db, in.JobID, in.TenantID, merged); err != nil {
			return AggregationDoneEvent{}, fmt.Errorf("aggregator: aggregate_simple fallback: %w", err)
		}
		UpsertCanonical(ctx, a.db, a.canonical, in.TenantID, in.JobID, merged)
	}

	if a.bus != nil {
		if err := a.bus.Publish(ctx, eventbus.ChannelAggregationDone, in.JobID, evt); err != nil {
			slog.Warn("aggregator: publish aggregation:done failed", "job_id", in.JobID, "error", err)
		}
	}

	return evt, nil
}

// AggregateV2Input is aggregate_v2's input (§4.8).
type AggregateV2Input struct {
	JobID           string
	ScraperContacts []contact.UnifiedContact
	// FallbackSourceURL is attached to any merged contact still missing a
	// source_url after the merge, per §4.8 step 4.
	FallbackSourceURL string
}

// AggregateV2 loads the Flow-1 temp payload, merges it with Flow-2 scraper
// output, validates and hallucination-filters the result, persists it in a
// single transaction, triggers canonical aggregation best-effort, drops the
// temp payload, and publishes job:completed (§4.8 V2).
func (a *Aggregator) AggregateV2(ctx context.Context, in AggregateV2Input) (JobCompletedEvent, error) {
	flow1, err := LoadTempPayload(ctx, a.store, in.JobID)
	if err != nil {
		return JobCompletedEvent{}, err
	}

	merged := contact.Merge(append(append([]contact.UnifiedContact{}, flow1.Contacts...), in.ScraperContacts...))
	merged = filterAndFallback(merged, in.FallbackSourceURL, flow1.SourceURL)

	if _, err := PersistResultRows(ctx, a.db, in.JobID, flow1.TenantID, merged); err != nil {
		return JobCompletedEvent{}, fmt.Errorf("aggregator: persist v2 result: %w", err)
	}

	UpsertCanonical(ctx, a.db, a.canonical, flow1.TenantID, in.JobID, merged)

	if err := DropTempPayload(ctx, a.store, in.JobID); err != nil {
		slog.Warn("aggregator: drop temp payload failed", "job_id", in.JobID, "error", err)
	}

	evt := JobCompletedEvent{JobID: in.JobID, ContactCount: len(merged)}
	if a.bus != nil {
		if err := a.bus.Publish(ctx, eventbus.ChannelJobCompleted, in.JobID, evt); err != nil {
			slog.Warn("aggregator: publish job:completed failed", "job_id", in.JobID, "error", err)
		}
	}
	return evt, nil
}

// minConfidenceV2 is the hallucination-filter floor applied in AggregateV2
// (§4.8 V2 step 3: "min_confidence=25").
const minConfidenceV2 = 25

// filterAndFallback applies validate.Validate + hallucination filtering with
// a confidence floor, and attaches a fallback source_url chain: the
// contact's own, else v2FallbackURL, else the Flow-1 source_url.
func filterAndFallback(contacts []contact.UnifiedContact, v2FallbackURL, flow1SourceURL string) []contact.UnifiedContact {
	out := make([]contact.UnifiedContact, 0, len(contacts))
	for _, c := range contacts {
		vr := validate.Validate(c)
		if !vr.Accepted {
			continue
		}
		cleaned := vr.Cleaned

		hr := validate.ApplyHallucinationFilter(cleaned, filledFieldCount(cleaned))
		if hr.Rejected || hr.Confidence < minConfidenceV2 {
			continue
		}
		cleaned.Confidence = hr.Confidence
		cleaned.ClampConfidence()

		if cleaned.SourceURL == "" {
			cleaned.SourceURL = v2FallbackURL
		}
		if cleaned.SourceURL == "" {
			cleaned.SourceURL = flow1SourceURL
		}

		out = append(out, cleaned)
	}
	return out
}

// filledFieldCount mirrors extractor.filledFieldCount for contacts arriving
// from outside the Adapter (Flow-2 scraper output).
func filledFieldCount(c contact.UnifiedContact) int {
	count := 0
	for _, f := range []string{c.ContactName, c.JobTitle, c.CompanyName, c.Website, c.Country, c.City, c.Address, c.Phone} {
		if f != "" {
			count++
		}
	}
	if c.HasEmail() {
		count++
	}
	return count
}

// enrichmentRate computes filled non-null count / (contacts × fields_checked)
// over enrichmentFields (§4.8 step 2).
func enrichmentRate(contacts []contact.UnifiedContact) float64 {
	if len(contacts) == 0 {
		return 0
	}
	filled := 0
	for _, c := range contacts {
		for _, field := range enrichmentFields {
			if field(c) != "" {
				filled++
			}
		}
	}
	return float64(filled) / float64(len(contacts)*len(enrichmentFields))
}

// countEmailBased counts contacts with a primary email.
func countEmailBased(contacts []contact.UnifiedContact) int {
	n := 0
	for _, c := range contacts {
		if c.HasEmail() {
			n++
		}
	}
	return n
}
