package extractor

import (
	"context"
	"time"

	"github.com/contactminer/engine/pkg/contact"
	"github.com/contactminer/engine/pkg/cost"
	"github.com/contactminer/engine/pkg/normalize"
	"github.com/contactminer/engine/pkg/validate"
)

// Adapter decorates an Extractor with cost enforcement, normalization, and
// validation, producing UnifiedContacts rather than raw miner output (§9
// redesign note: "the Adapter decorates for cost/evidence/validation").
type Adapter struct {
	extractor Extractor
	tracker   *cost.Tracker
}

// NewAdapter wraps extractor with cost tracking via tracker.
func NewAdapter(e Extractor, tracker *cost.Tracker) *Adapter {
	return &Adapter{extractor: e, tracker: tracker}
}

// Name passes through to the wrapped extractor.
func (a *Adapter) Name() string {
	return a.extractor.Name()
}

// Capabilities passes through to the wrapped extractor.
func (a *Adapter) Capabilities() Capabilities {
	return a.extractor.Capabilities()
}

// Run executes the wrapped extractor, checking budget first, then
// normalizes and validates its output into UnifiedContacts.
func (a *Adapter) Run(ctx context.Context, job Job) ([]contact.UnifiedContact, Status, error) {
	caps := a.extractor.Capabilities()

	if a.tracker != nil {
		allowed, reason := a.tracker.CanProceed(job.ID, job.TenantID, job.URL, caps.CostPerRequest, time.Now())
		if !allowed {
			return nil, StatusCostLimit, nil
		}
		_ = reason
	}

	result, err := a.extractor.Mine(ctx, job)
	if err != nil {
		return nil, StatusError, err
	}
	if a.tracker != nil {
		a.tracker.RecordCost(job.ID, job.TenantID, job.URL, caps.CostPerRequest, time.Now())
	}
	if result.Status != StatusOK {
		return nil, result.Status, nil
	}

	normResult := normalize.Normalize(result.Output)
	contacts := make([]contact.UnifiedContact, 0, len(normResult.Candidates))

	for _, candidate := range normResult.Candidates {
		uc := candidateToContact(candidate, a.extractor.Name(), job.URL, caps.DefaultConfidence, result.Evidence)

		vr := validate.Validate(uc)
		if !vr.Accepted {
			continue
		}
		uc = vr.Cleaned

		hr := validate.ApplyHallucinationFilter(uc, filledFieldCount(uc))
		if hr.Rejected {
			continue
		}
		uc.Confidence = hr.Confidence
		uc.ClampConfidence()

		contacts = append(contacts, uc)
	}

	if len(contacts) == 0 {
		return nil, StatusEmpty, nil
	}
	return contacts, StatusOK, nil
}

// candidateToContact lifts a normalizer candidate into a UnifiedContact,
// attaching the extractor's name, source URL, default confidence, and
// evidence record.
func candidateToContact(c contact.UnifiedContactCandidate, source, sourceURL string, defaultConfidence int, evidence contact.Evidence) contact.UnifiedContact {
	uc := contact.UnifiedContact{
		Email:       c.Email,
		ContactName: joinName(c.FirstName, c.LastName),
		Source:      source,
		SourceURL:   sourceURL,
		Confidence:  defaultConfidence,
		Evidence:    evidence,
		ExtractedAt: time.Now(),
	}
	if len(c.Affiliations) > 0 {
		aff := c.Affiliations[0]
		uc.CompanyName = aff.CompanyName
		uc.JobTitle = aff.Position
		uc.Country = aff.CountryCode
		uc.City = aff.City
		uc.Website = aff.Website
		uc.Phone = aff.Phone
		if aff.Confidence != nil {
			uc.Confidence = *aff.Confidence
		}
	}
	return uc
}

func joinName(first, last string) string {
	if first == "" {
		return last
	}
	if last == "" {
		return first
	}
	return first + " " + last
}

// filledFieldCount counts non-empty fields, used by the hallucination
// filter's "8+ filled fields from AI" heuristic (§4.7 rule b).
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
