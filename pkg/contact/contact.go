// Package contact defines the in-memory contact aggregate types shared by
// the normalizer, validator, and aggregator (§3).
package contact

import (
	"strings"
	"time"
)

// EmailType classifies the kind of mailbox an email address represents.
type EmailType string

const (
	EmailPersonal EmailType = "personal"
	EmailGeneric  EmailType = "generic"
	EmailRole     EmailType = "role"
	EmailUnknown  EmailType = "unknown"
)

// EvidenceKind identifies how a field was sourced from a page, driving
// HallucinationFilter's confidence adjustments (§4.7).
type EvidenceKind string

const (
	EvidenceMailtoLink EvidenceKind = "mailto_link"
	EvidenceSchemaOrg  EvidenceKind = "schema_org"
	EvidenceVCard      EvidenceKind = "vcard"
	EvidenceTableCell  EvidenceKind = "table_cell"
	EvidenceMicrodata  EvidenceKind = "microdata"
	EvidenceMetaTag    EvidenceKind = "meta_tag"
	EvidenceDOMElement EvidenceKind = "dom_element"
	EvidenceTextMatch  EvidenceKind = "text_match"
	EvidenceNone       EvidenceKind = "none"
)

// EvidenceReliability gives each evidence kind's base reliability (0-100),
// per §4.7.
var EvidenceReliability = map[EvidenceKind]int{
	EvidenceMailtoLink: 95,
	EvidenceSchemaOrg:  90,
	EvidenceVCard:      90,
	EvidenceTableCell:  85,
	EvidenceMicrodata:  85,
	EvidenceMetaTag:    80,
	EvidenceDOMElement: 75,
	EvidenceTextMatch:  60,
	EvidenceNone:       30,
}

// Evidence records how a contact's fields were sourced from the page.
type Evidence struct {
	Kind    EvidenceKind
	Context string
}

// Reliability returns the evidence's base reliability score.
func (e Evidence) Reliability() int {
	if r, ok := EvidenceReliability[e.Kind]; ok {
		return r
	}
	return EvidenceReliability[EvidenceNone]
}

// ProfileOnlyConfidenceCap is the maximum confidence a contact with no email
// may carry (§3).
const ProfileOnlyConfidenceCap = 25

// AIWithoutEvidenceConfidenceCap is the maximum confidence an AI-sourced
// contact without valid evidence may carry (§3, §4.7).
const AIWithoutEvidenceConfidenceCap = 40

// SourceAI is the extractor-name value used by AI-source records, checked by
// the hallucination filter.
const SourceAI = "aiMiner"

// UnifiedContact is the in-memory aggregate produced by merging extractor
// output across pages and extractors (§3).
type UnifiedContact struct {
	Email            string
	AdditionalEmails []string
	ContactName      string
	JobTitle         string
	CompanyName      string
	Website          string
	Country          string
	City             string
	Address          string
	Phone            string
	Source           string
	SourceURL        string
	Confidence       int
	Evidence         Evidence
	EmailType        EmailType
	ExtractedAt      time.Time
}

// HasEmail reports whether the contact carries a primary email.
func (c *UnifiedContact) HasEmail() bool {
	return c.Email != ""
}

// Identity returns the aggregation key for this contact: lower(email) when
// present, otherwise (lower(contact_name), lower(source_url)) for
// profile-only contacts. Profile-only identity is strictly weaker and must
// never collide with an email-keyed identity (§3).
func (c *UnifiedContact) Identity() Identity {
	if c.HasEmail() {
		return Identity{Keyed: true, Key: strings.ToLower(c.Email)}
	}
	return Identity{
		Keyed:       false,
		NameLower:   strings.ToLower(strings.TrimSpace(c.ContactName)),
		SourceLower: strings.ToLower(c.SourceURL),
	}
}

// Identity is a contact's aggregation key, either email-keyed or the weaker
// profile-only (name, source_url) pair.
type Identity struct {
	Keyed       bool
	Key         string
	NameLower   string
	SourceLower string
}

// ProfileKey returns the composite map key for a profile-only identity.
func (id Identity) ProfileKey() string {
	return id.NameLower + "\x00" + id.SourceLower
}

// ClampConfidence applies the profile-only and AI-without-evidence caps, and
// the overall 0-100 band, to c.Confidence.
func (c *UnifiedContact) ClampConfidence() {
	if c.Confidence < 0 {
		c.Confidence = 0
	}
	if c.Confidence > 100 {
		c.Confidence = 100
	}
	if !c.HasEmail() && c.Confidence > ProfileOnlyConfidenceCap {
		c.Confidence = ProfileOnlyConfidenceCap
	}
	if c.Source == SourceAI && c.Evidence.Kind == EvidenceNone && c.Confidence > AIWithoutEvidenceConfidenceCap {
		c.Confidence = AIWithoutEvidenceConfidenceCap
	}
}

// Affiliation is one company/role association produced by the normalizer
// for a UnifiedContactCandidate (§3).
type Affiliation struct {
	CompanyName string
	Position    string
	CountryCode string
	City        string
	Website     string
	Phone       string
	Confidence  *int
}

// IsEmpty reports whether every field of the affiliation is unset — the
// normalizer only attaches an affiliation to a candidate when it isn't.
func (a Affiliation) IsEmpty() bool {
	return a.CompanyName == "" && a.Position == "" && a.CountryCode == "" &&
		a.City == "" && a.Website == "" && a.Phone == "" && a.Confidence == nil
}

// UnifiedContactCandidate is the normalizer's output shape: one per unique
// email, carrying at most one affiliation built from miner-provided context
// (§3). The normalizer must never invent a confidence value here.
type UnifiedContactCandidate struct {
	Email          string
	FirstName      string
	LastName       string
	Affiliations   []Affiliation
	ExtractionMeta map[string]any
}
