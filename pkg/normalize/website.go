package normalize

import (
	"regexp"
	"strings"
)

// urlContextPattern finds an http(s) URL in surrounding context.
var urlContextPattern = regexp.MustCompile(`https?://[^\s"'<>)]+`)

// socialDomains are excluded from context-derived website resolution — a
// LinkedIn or Facebook link near an email isn't the contact's company site.
var socialDomains = []string{
	"linkedin.com", "facebook.com", "twitter.com", "x.com",
	"instagram.com", "youtube.com", "tiktok.com",
}

// resolveWebsite implements §4.6 step 6: a context URL match excluding
// social domains, else a domain-derived fallback for non-generic email
// providers.
func resolveWebsite(context, email string) string {
	for _, loc := range urlContextPattern.FindAllString(context, -1) {
		if !isSocialURL(loc) {
			return loc
		}
	}

	at := strings.LastIndex(email, "@")
	if at < 0 {
		return ""
	}
	domain := strings.ToLower(email[at+1:])
	if genericEmailProviders[domain] {
		return ""
	}
	return "https://" + domain
}

func isSocialURL(raw string) bool {
	lower := strings.ToLower(raw)
	for _, d := range socialDomains {
		if strings.Contains(lower, d) {
			return true
		}
	}
	return false
}
