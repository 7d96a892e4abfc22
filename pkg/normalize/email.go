package normalize

import (
	"regexp"
	"strings"
)

// emailPattern is the extraction regex from §4.6 step 1.
var emailPattern = regexp.MustCompile(`[A-Za-z0-9._%+\-]+@[A-Za-z0-9.\-]+\.[A-Za-z]{2,}`)

// contextRadius is how many characters of surrounding text are captured on
// either side of an email match (§4.6 step 1: "±50 chars").
const contextRadius = 50

// genericRolePrefixes are local-part prefixes that mark a role address
// rather than a person, rejected during extraction.
var genericRolePrefixes = []string{
	"info", "contact", "support", "sales", "admin", "office",
	"hello", "hr", "jobs", "careers", "press", "media", "webmaster",
	"noreply", "no-reply", "donotreply",
}

// blacklistedDomains are domains that never identify a real mailbox:
// documentation placeholders, localhost variants, image hosts that leak
// into scraped text.
var blacklistedDomains = map[string]bool{
	"example.com": true, "example.org": true, "example.net": true,
	"test.com": true, "localhost": true, "sentry.io": true,
	"wixpress.com": true, "godaddy.com": true,
}

// rejectedTailExtensions catches emails scraped from an image or document
// filename that happens to look like an address (e.g. "foo@2x.png").
var rejectedTailExtensions = []string{
	".png", ".jpg", ".jpeg", ".gif", ".svg", ".webp",
	".pdf", ".doc", ".docx", ".zip",
}

// emailMatch is one accepted (or rejected) email with its surrounding text.
type emailMatch struct {
	Email   string
	Context string
}

// extractEmails scans text, then HTML (only when text is empty), then each
// structured block, for email matches, deduplicating case-insensitively
// while keeping first-seen context.
func extractEmails(in MinerOutput) []emailMatch {
	seen := make(map[string]bool)
	var out []emailMatch

	scan := func(source string) {
		for _, loc := range emailPattern.FindAllStringIndex(source, -1) {
			raw := source[loc[0]:loc[1]]
			lower := strings.ToLower(raw)
			if seen[lower] {
				continue
			}
			seen[lower] = true
			out = append(out, emailMatch{
				Email:   lower,
				Context: surroundingContext(source, loc[0], loc[1]),
			})
		}
	}

	scan(in.Text)
	if strings.TrimSpace(in.Text) == "" {
		scan(in.HTML)
	}
	for _, block := range in.StructuredBlocks {
		scan(block.Text)
	}

	return out
}

// surroundingContext returns up to contextRadius characters on either side
// of [start,end) in source.
func surroundingContext(source string, start, end int) string {
	lo := start - contextRadius
	if lo < 0 {
		lo = 0
	}
	hi := end + contextRadius
	if hi > len(source) {
		hi = len(source)
	}
	return source[lo:hi]
}

// isRejectedEmail applies the reject rules from §4.6 step 1: invalid
// format is already excluded by the regex match itself, so this covers
// blacklisted domains, generic role addresses, localhost-like patterns, and
// image/document extension tails.
func isRejectedEmail(email string) bool {
	at := strings.LastIndex(email, "@")
	if at < 0 {
		return true
	}
	local := email[:at]
	domain := email[at+1:]

	if blacklistedDomains[domain] {
		return true
	}
	if strings.HasPrefix(domain, "127.") || domain == "localhost" || strings.HasSuffix(domain, ".local") {
		return true
	}
	for _, ext := range rejectedTailExtensions {
		if strings.HasSuffix(email, ext) {
			return true
		}
	}

	localLower := strings.ToLower(local)
	for _, prefix := range genericRolePrefixes {
		if localLower == prefix || strings.HasPrefix(localLower, prefix+".") || strings.HasPrefix(localLower, prefix+"-") {
			return true
		}
	}

	return false
}
