// Package aggregator implements ResultAggregator V1/V2 (§4.8), the
// relational persistence of ResultRows (§4.9), and the canonical
// persons/affiliations upsert (§4.10).
package aggregator

import (
	"context"
	"errors"
	"time"

	"github.com/contactminer/engine/pkg/contact"
	"github.com/contactminer/engine/pkg/ttlstore"
)

// TempPayloadTTL is the default lifetime of a Flow-1 temp payload (§3).
const TempPayloadTTL = 10 * time.Minute

// TempPayloadKeyPrefix namespaces Flow-1 temp payloads in the TTL store
// (§6: "temp_results:{job_id}").
const TempPayloadKeyPrefix = "temp_results:"

// ErrFlow1NotFound is returned by AggregateV2 when no temp payload exists
// for the job — it either expired or Flow 1 fell back to aggregate_simple.
var ErrFlow1NotFound = errors.New("aggregator: flow 1 temp payload not found")

// MinerStats summarizes per-extractor outcomes across Flow 1, surfaced on
// the Job's stats blob.
type MinerStats struct {
	Miner        string `json:"miner"`
	Status       string `json:"status"`
	ContactCount int    `json:"contact_count"`
}

// TempPayload is TempFlow1Payload (§3): the TTL-bound blob bridging Flow 1
// and Flow 2.
type TempPayload struct {
	JobID          string                   `json:"job_id"`
	TenantID       string                   `json:"tenant_id"`
	SourceURL      string                   `json:"source_url"`
	Contacts       []contact.UnifiedContact `json:"contacts"`
	WebsiteURLs    []string                 `json:"website_urls"`
	MinerStats     []MinerStats             `json:"miner_stats"`
	EnrichmentRate float64                  `json:"enrichment_rate"`
	SavedAt        time.Time                `json:"saved_at"`
}

// tempPayloadKey returns the TTL store key for a job's Flow-1 payload.
func tempPayloadKey(jobID string) string {
	return TempPayloadKeyPrefix + jobID
}

// SaveTempPayload stores payload keyed by its job ID with TempPayloadTTL.
func SaveTempPayload(ctx context.Context, store *ttlstore.Store, payload TempPayload) error {
	return store.Set(ctx, tempPayloadKey(payload.JobID), payload, TempPayloadTTL)
}

// LoadTempPayload retrieves the temp payload for jobID, returning
// ErrFlow1NotFound if it is missing or expired.
func LoadTempPayload(ctx context.Context, store *ttlstore.Store, jobID string) (TempPayload, error) {
	var payload TempPayload
	if err := store.Get(ctx, tempPayloadKey(jobID), &payload); err != nil {
		if errors.Is(err, ttlstore.ErrNotFound) {
			return TempPayload{}, ErrFlow1NotFound
		}
		return TempPayload{}, err
	}
	return payload, nil
}

// DropTempPayload deletes the temp payload for jobID once Flow 2 has
// finalized (or doesn't need to run).
func DropTempPayload(ctx context.Context, store *ttlstore.Store, jobID string) error {
	return store.Delete(ctx, tempPayloadKey(jobID))
}
