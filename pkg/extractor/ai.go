package extractor

import (
	"context"

	"github.com/contactminer/engine/pkg/contact"
	"github.com/contactminer/engine/pkg/cost"
	"github.com/contactminer/engine/pkg/normalize"
)

// AIField is one AI-extracted contact field with its own confidence, as
// an LLM response would shape it.
type AIField struct {
	Email       string
	ContactName string
	JobTitle    string
	CompanyName string
	Country     string
	City        string
	Phone       string
	Website     string
	Confidence  int
	HasEvidence bool
}

// AIContactExtractor calls out to an LLM to enrich or fill gaps in a page's
// contact data. The concrete model call is out of scope (§1 non-goal); this
// interface exists so HallucinationFilter's AI-source rules have a real,
// testable source, backed by an in-memory fake rather than a live SDK call.
type AIContactExtractor interface {
	ExtractContacts(ctx context.Context, pageText, pageURL string) ([]AIField, error)
}

// AI is the enrichment-step extractor appended to a plan in "ai" mining
// mode (§4.3). It never uses HTMLCache (§4.2 cache-safety invariant: an
// enrichment fetch must reflect current page state, not a stale cache
// entry) and every field it emits without positive evidence is capped at
// AIWithoutEvidenceConfidenceCap by contact.ClampConfidence.
type AI struct {
	llm AIContactExtractor
}

// NewAI constructs an AI extractor backed by llm.
func NewAI(llm AIContactExtractor) *AI {
	return &AI{llm: llm}
}

func (a *AI) Name() string { return "aiMiner" }

func (a *AI) Capabilities() Capabilities {
	return Capabilities{
		UseCache:           false,
		SupportsPagination: false,
		OwnPagination:      false,
		CostPerRequest:     cost.OpAIExtraction,
		DefaultConfidence:  40,
	}
}

func (a *AI) Mine(ctx context.Context, job Job) (MinerResult, error) {
	if a.llm == nil {
		return MinerResult{Status: StatusError, Reason: "no AI contact extractor configured"}, nil
	}

	pageText, _ := job.Hints["page_text"].(string)
	fields, err := a.llm.ExtractContacts(ctx, pageText, job.URL)
	if err != nil {
		return MinerResult{Status: StatusError, Reason: err.Error()}, nil
	}
	if len(fields) == 0 {
		return MinerResult{Status: StatusEmpty, Reason: "ai extractor returned no fields"}, nil
	}

	var blocks []normalize.StructuredBlock
	anyEvidence := false
	for _, f := range fields {
		blocks = append(blocks, normalize.StructuredBlock{Text: aiFieldToText(f)})
		anyEvidence = anyEvidence || f.HasEvidence
	}

	out := normalize.MinerOutput{SourceURL: job.URL, StructuredBlocks: blocks}

	evidenceKind := contact.EvidenceNone
	if anyEvidence {
		evidenceKind = contact.EvidenceTextMatch
	}

	return MinerResult{
		Status:   StatusOK,
		Output:   out,
		Evidence: contact.Evidence{Kind: evidenceKind, Context: "ai enrichment"},
	}, nil
}

func aiFieldToText(f AIField) string {
	text := "Email: " + f.Email + "\n" +
		"Name: " + f.ContactName + "\n" +
		"Company: " + f.CompanyName + "\n" +
		"Position: " + f.JobTitle + "\n" +
		"Country: " + f.Country + "\n" +
		"City: " + f.City + "\n" +
		"Phone: " + f.Phone + "\n" +
		"Website: " + f.Website
	return text
}
