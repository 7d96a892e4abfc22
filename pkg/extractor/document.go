package extractor

import (
	"context"
	"fmt"

	"github.com/contactminer/engine/pkg/contact"
	"github.com/contactminer/engine/pkg/cost"
	"github.com/contactminer/engine/pkg/normalize"
)

// TextExtractor converts a fetched document (PDF, flipbook export, ...)
// into plain text. A real binding (a PDF-to-text library) is out of scope
// here; this interface exists so Document can be exercised by an
// in-memory fake in tests and wired to a real implementation later
// without this package changing.
type TextExtractor interface {
	ExtractText(ctx context.Context, url string) (text string, pageCount int, err error)
}

// Document mines PDF/flipbook-style document viewers (§4.1 PageDocumentViewer
// routing): documents are fetched whole and cached, since re-rendering a
// static PDF gains nothing.
type Document struct {
	textExtractor TextExtractor
}

// NewDocument constructs a Document extractor backed by te.
func NewDocument(te TextExtractor) *Document {
	return &Document{textExtractor: te}
}

func (d *Document) Name() string { return "documentMiner" }

func (d *Document) Capabilities() Capabilities {
	return Capabilities{
		UseCache:           true,
		SupportsPagination: false,
		OwnPagination:      false,
		CostPerRequest:     cost.OpDeepCrawl,
		DefaultConfidence:  50,
	}
}

func (d *Document) Mine(ctx context.Context, job Job) (MinerResult, error) {
	if d.textExtractor == nil {
		return MinerResult{Status: StatusError, Reason: "no text extractor configured"}, nil
	}

	text, pageCount, err := d.textExtractor.ExtractText(ctx, job.URL)
	if err != nil {
		return MinerResult{Status: StatusError, Reason: fmt.Sprintf("text extraction failed: %v", err)}, nil
	}

	out := normalize.MinerOutput{Text: text, SourceURL: job.URL}
	if text == "" {
		return MinerResult{Status: StatusEmpty, Reason: "no text layer found", Output: out}, nil
	}

	return MinerResult{
		Status:   StatusOK,
		Output:   out,
		Evidence: contact.Evidence{Kind: contact.EvidenceTextMatch, Context: fmt.Sprintf("%d page(s)", pageCount)},
	}, nil
}
