// Package normalize implements the stateless contact normalization pipeline
// (§4.6): turns raw miner output into UnifiedContactCandidates without any
// database access, cross-job dedup, invented confidence, or tenant logic.
package normalize

import (
	"strings"

	"github.com/contactminer/engine/pkg/contact"
)

// MinerOutput is the raw input to the normalizer: free text and/or HTML from
// a single page, plus any structured blocks the extractor already parsed
// out (e.g. table rows, vCard records).
type MinerOutput struct {
	Text            string
	HTML            string
	PageTitle       string
	SourceURL       string
	StructuredBlocks []StructuredBlock
}

// StructuredBlock is a pre-parsed chunk of context an extractor attaches to
// one or more email matches (e.g. a table row, a vCard).
type StructuredBlock struct {
	Text string
}

// Stats summarizes one normalization run.
type Stats struct {
	EmailsFound     int
	EmailsRejected  int
	CandidatesBuilt int
}

// Result is the normalizer's output contract: success/candidates/stats/errors.
type Result struct {
	Success    bool
	Candidates []contact.UnifiedContactCandidate
	Stats      Stats
	Errors     []string
}

// Normalize runs the full pipeline over a single miner output.
func Normalize(in MinerOutput) Result {
	matches := extractEmails(in)

	result := Result{Success: true}

	for _, m := range matches {
		if isRejectedEmail(m.Email) {
			result.Stats.EmailsRejected++
			continue
		}
		result.Stats.EmailsFound++

		name := parseName(m.Context, m.Email)
		company := resolveCompany(m.Context, in.PageTitle, m.Email)
		country := normalizeCountryFromContext(m.Context)
		position := extractPosition(m.Context)
		website := resolveWebsite(m.Context, m.Email)

		first, last := splitName(name)

		aff := contact.Affiliation{
			CompanyName: company,
			Position:    position,
			CountryCode: country,
			Website:     website,
		}

		candidate := contact.UnifiedContactCandidate{
			Email:     m.Email,
			FirstName: first,
			LastName:  last,
			ExtractionMeta: map[string]any{
				"source_url": in.SourceURL,
			},
		}
		if !aff.IsEmpty() {
			candidate.Affiliations = []contact.Affiliation{aff}
		}

		result.Candidates = append(result.Candidates, candidate)
		result.Stats.CandidatesBuilt++
	}

	if len(result.Candidates) == 0 {
		result.Errors = append(result.Errors, "No valid emails found in miner output")
	}

	return result
}

// SplitName exposes splitName for callers outside this package that need the
// same first/last split for a display name already resolved elsewhere (e.g.
// the aggregator's canonical Person upsert, §4.10).
func SplitName(name string) (first, last string) {
	return splitName(name)
}

// splitName splits a display name into first/last; an empty name yields two
// empty strings (the email-local-part fallback lives in parseName).
func splitName(name string) (first, last string) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", ""
	}
	parts := strings.Fields(name)
	if len(parts) == 1 {
		return parts[0], ""
	}
	return parts[0], strings.Join(parts[1:], " ")
}
