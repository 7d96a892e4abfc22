package validate

import (
	"regexp"
	"strings"

	"github.com/contactminer/engine/pkg/contact"
)

// HallucinationRejectThreshold is the cumulative heuristic score at or above
// which a record is rejected outright (§4.7).
const HallucinationRejectThreshold = 50

// placeholderNames are stock fake names AI extraction is prone to invent.
var placeholderNames = map[string]bool{
	"john doe": true, "jane doe": true, "john smith": true,
	"jane smith": true, "test user": true, "sample name": true,
}

// repeatedDigitPattern flags a phone number that's a single repeated digit.
var repeatedDigitPattern = regexp.MustCompile(`^(\d)\1+$`)

// sequentialDigitsPattern flags a phone number that's an ascending run.
var sequentialDigitsPattern = regexp.MustCompile(`^0?123456789?0?$`)

// canonicalCityCountry is a small table of cities whose country must match,
// used to catch AI hallucinations that pair a real city with the wrong
// country (§4.7 rule f).
var canonicalCityCountry = map[string]string{
	"paris":    "FR",
	"berlin":   "DE",
	"madrid":   "ES",
	"rome":     "IT",
	"amsterdam": "NL",
	"brussels": "BE",
	"vienna":   "AT",
	"zurich":   "CH",
}

// HallucinationResult is the outcome of running the filter over a candidate.
type HallucinationResult struct {
	Rejected   bool
	Score      int
	Confidence int
}

// ApplyHallucinationFilter adjusts c's confidence per the evidence-based
// rules and flags heuristic hallucination signals, per §4.7.
func ApplyHallucinationFilter(c contact.UnifiedContact, filledFieldCount int) HallucinationResult {
	conf := c.Confidence
	reliability := c.Evidence.Reliability()

	isAI := c.Source == contact.SourceAI

	if isAI && c.Evidence.Kind == contact.EvidenceNone && conf > contact.AIWithoutEvidenceConfidenceCap {
		conf = contact.AIWithoutEvidenceConfidenceCap
	}
	if reliability >= 80 {
		conf += 20
	}
	if reliability >= 90 && conf < 85 {
		conf = 85
	}
	if conf > 100 {
		conf = 100
	}

	score := 0
	if isAI && c.Evidence.Kind == contact.EvidenceNone {
		score += 30
	}
	if isAI && filledFieldCount >= 8 {
		score += 20
	}
	if placeholderNames[strings.ToLower(strings.TrimSpace(c.ContactName))] {
		score += 40
	}
	if emailWebsiteDomainMismatch(c.Email, c.Website) {
		score += 15
	}
	if isHallucinatedPhone(c.Phone) {
		score += 50
	}
	if cityCountryMismatch(c.City, c.Country) {
		score += 25
	}

	return HallucinationResult{
		Rejected:   score >= HallucinationRejectThreshold,
		Score:      score,
		Confidence: conf,
	}
}

func emailWebsiteDomainMismatch(email, website string) bool {
	if email == "" || website == "" {
		return false
	}
	at := strings.LastIndex(email, "@")
	if at < 0 {
		return false
	}
	emailDomain := strings.ToLower(email[at+1:])
	websiteLower := strings.ToLower(website)
	return !strings.Contains(websiteLower, emailDomain)
}

func isHallucinatedPhone(phone string) bool {
	digits := digitsOnly(phone)
	if digits == "" {
		return false
	}
	return repeatedDigitPattern.MatchString(digits) || sequentialDigitsPattern.MatchString(digits)
}

func digitsOnly(s string) string {
	var b strings.Builder
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

func cityCountryMismatch(city, country string) bool {
	if city == "" || country == "" {
		return false
	}
	expected, known := canonicalCityCountry[strings.ToLower(city)]
	if !known {
		return false
	}
	return !strings.EqualFold(expected, country)
}
