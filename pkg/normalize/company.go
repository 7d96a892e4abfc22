package normalize

import (
	"regexp"
	"strings"
)

// companyContextPatterns are tried in priority order against context (§4.6
// step 3(i)): "X | ...", "X - ...", "at X", "from X".
var companyContextPatterns = []*regexp.Regexp{
	regexp.MustCompile(`([A-Z][\w&.,' ]{1,60})\s*\|`),
	regexp.MustCompile(`([A-Z][\w&.,' ]{1,60})\s*-\s`),
	regexp.MustCompile(`\bat\s+([A-Z][\w&.,' ]{1,60})\b`),
	regexp.MustCompile(`\bfrom\s+([A-Z][\w&.,' ]{1,60})\b`),
}

// titleSuffixes are stripped from a page title before splitting on a
// separator to find the site/company name (§4.6 step 3(ii)).
var titleSuffixes = []string{
	" - Home", " | Home", " - Contact Us", " | Contact", " - About Us",
}

// titleSeparators splits a page title into candidate segments.
var titleSeparators = regexp.MustCompile(`\s*[|\-–]\s*`)

// genericTerms reject a candidate company name outright.
var genericTerms = map[string]bool{
	"home": true, "contact": true, "contact us": true, "about": true,
	"about us": true, "welcome": true, "untitled": true,
}

// genericEmailProviders are domains that never identify a company.
var genericEmailProviders = map[string]bool{
	"gmail.com": true, "yahoo.com": true, "hotmail.com": true,
	"outlook.com": true, "icloud.com": true, "aol.com": true,
	"protonmail.com": true, "live.com": true, "gmx.com": true,
}

// IsGenericEmailDomain reports whether domain is a free/generic mailbox
// provider that never identifies a company, for callers outside this
// package that need the same fallback-website/company rule (e.g. the
// aggregator's website_urls extraction, §4.8 step 3).
func IsGenericEmailDomain(domain string) bool {
	return genericEmailProviders[strings.ToLower(domain)]
}

// hasLetter reports whether s contains at least one letter.
func hasLetter(s string) bool {
	for _, r := range s {
		if (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') {
			return true
		}
	}
	return false
}

// validCompanyName applies the length/letter/generic-term checks from §4.6
// step 3.
func validCompanyName(name string) bool {
	name = strings.TrimSpace(name)
	if len(name) < 2 || len(name) > 200 {
		return false
	}
	if !hasLetter(name) {
		return false
	}
	if genericTerms[strings.ToLower(name)] {
		return false
	}
	return true
}

// resolveCompany implements the §4.6 step 3 priority chain: context
// patterns, then page title, then domain-derived fallback.
func resolveCompany(context, pageTitle, email string) string {
	for _, pat := range companyContextPatterns {
		if m := pat.FindStringSubmatch(context); m != nil {
			candidate := strings.TrimSpace(m[1])
			if validCompanyName(candidate) {
				return candidate
			}
		}
	}

	if pageTitle != "" {
		title := pageTitle
		for _, suffix := range titleSuffixes {
			title = strings.TrimSuffix(title, suffix)
		}
		segments := titleSeparators.Split(title, -1)
		if len(segments) > 0 {
			candidate := strings.TrimSpace(segments[0])
			if validCompanyName(candidate) {
				return candidate
			}
		}
	}

	return domainDerivedCompany(email)
}

// domainDerivedCompany derives a candidate company name from the email
// domain, skipping generic consumer providers.
func domainDerivedCompany(email string) string {
	at := strings.LastIndex(email, "@")
	if at < 0 {
		return ""
	}
	domain := strings.ToLower(email[at+1:])
	if genericEmailProviders[domain] {
		return ""
	}
	labels := strings.Split(domain, ".")
	if len(labels) == 0 {
		return ""
	}
	base := labels[0]
	if len(base) < 2 {
		return ""
	}
	return titleCaseLabel(base)
}

// titleCaseLabel title-cases each '-' separated word in a domain-derived
// label, e.g. "acme-global" -> "Acme-Global".
func titleCaseLabel(s string) string {
	words := strings.Split(s, "-")
	for i, w := range words {
		if w == "" {
			continue
		}
		words[i] = strings.ToUpper(w[:1]) + w[1:]
	}
	return strings.Join(words, "-")
}
