package orchestrator

import (
	"context"
	"sync"

	"github.com/contactminer/engine/pkg/aggregator"
	"github.com/contactminer/engine/pkg/config"
	"github.com/contactminer/engine/pkg/contact"
	"github.com/contactminer/engine/pkg/extractor"
)

// Flow2Decision is DecideFlow2's output: whether Flow 2 runs and, if so,
// the website cap and concurrency it runs under.
type Flow2Decision struct {
	Run         bool
	Reason      string
	MaxWebsites int
	Concurrency int
}

// DecideFlow2 evaluates the Flow-2 decision table in order (§4.4). The
// first matching row wins.
func DecideFlow2(cfg *config.FlowConfig, evt aggregator.AggregationDoneEvent) Flow2Decision {
	if !cfg.Flow2Enabled {
		return Flow2Decision{Run: false, Reason: "flow2 disabled in config"}
	}

	oom := evt.ContactCount > cfg.Flow2OOMContactThreshold
	if oom && evt.EnrichmentRate >= cfg.Flow2OOMEnrichmentThreshold {
		return Flow2Decision{Run: false, Reason: "large result set already well enriched"}
	}
	if oom && evt.EnrichmentRate < cfg.Flow2OOMEnrichmentThreshold {
		return Flow2Decision{
			Run: true, Reason: "large result set under-enriched, running capped for OOM protection",
			MaxWebsites: cfg.Flow2MaxWebsitesOOM, Concurrency: cfg.Flow2ConcurrencyOOM,
		}
	}
	if evt.EnrichmentRate < cfg.Flow2EnrichmentThreshold {
		return Flow2Decision{
			Run: true, Reason: "enrichment below threshold",
			MaxWebsites: cfg.Flow2MaxWebsites, Concurrency: cfg.Flow2Concurrency,
		}
	}
	if len(evt.WebsiteURLs) > 0 && evt.ContactCount < cfg.Flow2SmallResultThreshold {
		return Flow2Decision{
			Run: true, Reason: "small result set with website urls to enrich",
			MaxWebsites: cfg.Flow2MaxWebsites, Concurrency: cfg.Flow2Concurrency,
		}
	}
	return Flow2Decision{Run: false, Reason: "no flow2 condition matched"}
}

// indexedContacts pairs a website-scrape outcome with its original index so
// results can be collected deterministically despite concurrent execution,
// mirroring the indexed-result-channel idiom used for concurrent agent fan-out.
type indexedContacts struct {
	index    int
	contacts []contact.UnifiedContact
}

// executeFlow2 deep-crawls up to decision.MaxWebsites of evt.WebsiteURLs at
// decision.Concurrency, via the websiteScraperMiner extractor, and returns
// every contact found (§4.4 step 5, §5).
func (o *FlowOrchestrator) executeFlow2(ctx context.Context, job Job, evt aggregator.AggregationDoneEvent, decision Flow2Decision) []contact.UnifiedContact {
	urls := evt.WebsiteURLs
	if len(urls) > decision.MaxWebsites {
		urls = urls[:decision.MaxWebsites]
	}
	if len(urls) == 0 {
		return nil
	}

	ext := o.registry.Get("websiteScraperMiner")
	if ext == nil {
		return nil
	}
	adapter := extractor.NewAdapter(ext, o.tracker)

	concurrency := decision.Concurrency
	if concurrency < 1 {
		concurrency = 1
	}

	results := make(chan indexedContacts, len(urls))
	sem := make(chan struct{}, concurrency)
	var wg sync.WaitGroup

	for i, url := range urls {
		wg.Add(1)
		sem <- struct{}{}
		go func(idx int, websiteURL string) {
			defer wg.Done()
			defer func() { <-sem }()

			contacts, _, err := adapter.Run(ctx, extractor.Job{
				ID: job.ID, TenantID: job.TenantID, URL: websiteURL,
			})
			if err != nil {
				results <- indexedContacts{index: idx}
				return
			}
			results <- indexedContacts{index: idx, contacts: contacts}
		}(i, url)
	}

	wg.Wait()
	close(sem)
	close(results)

	ordered := make([][]contact.UnifiedContact, len(urls))
	for r := range results {
		ordered[r.index] = r.contacts
	}

	var out []contact.UnifiedContact
	for _, cs := range ordered {
		out = append(out, cs...)
	}
	return out
}
