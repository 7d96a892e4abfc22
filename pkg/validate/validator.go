// Package validate implements record-level cleaning, garbage rejection, and
// AI-hallucination confidence adjustment (§4.7).
package validate

import (
	"regexp"
	"strings"

	"github.com/contactminer/engine/pkg/contact"
)

// garbageEmailDomains are tracking/CDN/error-page domains that never
// identify a real contact, rejected outright.
var garbageEmailDomains = map[string]bool{
	"sentry.io": true, "googletagmanager.com": true, "google-analytics.com": true,
	"cloudflareinsights.com": true, "doubleclick.net": true,
	"w3.org": true, "schema.org": true,
}

// disposableEmailDomains are throwaway-mailbox providers.
var disposableEmailDomains = map[string]bool{
	"mailinator.com": true, "guerrillamail.com": true, "10minutemail.com": true,
	"tempmail.com": true, "yopmail.com": true,
}

// exampleTestDomains are documentation/placeholder domains.
var exampleTestDomains = map[string]bool{
	"example.com": true, "example.org": true, "example.net": true,
	"test.com": true, "domain.com": true, "yourdomain.com": true,
}

// roleOnlyLocalParts mirror the normalizer's generic-role prefixes; the
// validator re-checks because a candidate may arrive from a source that
// bypassed normalization (e.g. direct extractor output feeding Aggregator-V2).
var roleOnlyLocalParts = map[string]bool{
	"info": true, "contact": true, "support": true, "sales": true,
	"admin": true, "office": true, "hello": true,
}

// longDigitRunPattern flags anti-bot-system usernames: 6+ consecutive digits.
var longDigitRunPattern = regexp.MustCompile(`\d{6,}`)

// Result is the outcome of validating one candidate.
type Result struct {
	Accepted     bool
	Reason       string
	QualityScore int
	Cleaned      contact.UnifiedContact
}

// Validate cleans c's fields and applies the garbage-rejection rules from
// §4.7, returning a quality_score combining per-field signals.
func Validate(c contact.UnifiedContact) Result {
	cleaned := c
	cleaned.ContactName = cleanField(c.ContactName)
	cleaned.CompanyName = cleanField(c.CompanyName)
	cleaned.JobTitle = cleanField(c.JobTitle)
	cleaned.City = cleanField(c.City)
	cleaned.Address = cleanField(c.Address)
	cleaned.Phone = cleanPhone(c.Phone)

	if cleaned.HasEmail() {
		if reason, bad := rejectEmail(cleaned.Email); bad {
			return Result{Accepted: false, Reason: reason}
		}
	}

	score := qualityScore(cleaned)
	return Result{Accepted: true, QualityScore: score, Cleaned: cleaned}
}

// rejectEmail applies the garbage-domain and role/username checks.
func rejectEmail(email string) (reason string, reject bool) {
	at := strings.LastIndex(email, "@")
	if at < 0 {
		return "malformed email", true
	}
	local := strings.ToLower(email[:at])
	domain := strings.ToLower(email[at+1:])

	if garbageEmailDomains[domain] {
		return "tracking/CDN domain", true
	}
	if disposableEmailDomains[domain] {
		return "disposable mail domain", true
	}
	if exampleTestDomains[domain] {
		return "example/test domain", true
	}
	if roleOnlyLocalParts[local] {
		return "role-only address", true
	}
	if longDigitRunPattern.MatchString(local) {
		return "anti-bot generated username", true
	}
	return "", false
}

// cleanField normalizes whitespace and strips a leading label like "Name:"
// that some scrapers leave attached to a field.
func cleanField(s string) string {
	s = strings.Join(strings.Fields(s), " ")
	if idx := strings.Index(s, ":"); idx >= 0 && idx < 20 {
		label := strings.ToLower(strings.TrimSpace(s[:idx]))
		for _, known := range []string{"name", "company", "title", "phone", "address", "city"} {
			if label == known {
				s = strings.TrimSpace(s[idx+1:])
				break
			}
		}
	}
	return s
}

// cleanPhone strips everything except digits, leading +, spaces, and
// standard punctuation.
func cleanPhone(s string) string {
	s = strings.TrimSpace(s)
	var b strings.Builder
	for _, r := range s {
		switch {
		case r >= '0' && r <= '9', r == '+', r == ' ', r == '-', r == '(', r == ')':
			b.WriteRune(r)
		}
	}
	return strings.TrimSpace(b.String())
}

// qualityScore combines simple per-field presence/validity signals into a
// single 0-100 score.
func qualityScore(c contact.UnifiedContact) int {
	score := 0
	if c.HasEmail() {
		score += 30
	}
	if c.ContactName != "" {
		score += 20
	}
	if c.CompanyName != "" {
		score += 20
	}
	if validPhone(c.Phone) {
		score += 15
	}
	if c.Website != "" {
		score += 15
	}
	if score > 100 {
		score = 100
	}
	return score
}

// validPhone applies a loose length/char-class check: 7-20 chars after
// cleaning, with at least 7 digits.
func validPhone(phone string) bool {
	if phone == "" {
		return false
	}
	digits := 0
	for _, r := range phone {
		if r >= '0' && r <= '9' {
			digits++
		}
	}
	return digits >= 7 && len(phone) <= 20
}
