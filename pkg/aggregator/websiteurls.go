package aggregator

import (
	"net/url"
	"sort"
	"strings"

	"github.com/contactminer/engine/pkg/contact"
	"github.com/contactminer/engine/pkg/normalize"
)

// MaxWebsiteURLs caps the website_urls list published with aggregation:done
// (§4.8 step 5: "website_urls[≤50]").
const MaxWebsiteURLs = 50

// extractWebsiteURLs collects unique origins from each contact's website
// field plus https://<domain> for non-generic email domains (§4.8 step 3).
func extractWebsiteURLs(contacts []contact.UnifiedContact) []string {
	seen := make(map[string]bool)
	var out []string

	add := func(origin string) {
		if origin == "" || seen[origin] {
			return
		}
		seen[origin] = true
		out = append(out, origin)
	}

	for _, c := range contacts {
		if c.Website != "" {
			add(originOf(c.Website))
		}
		if domain := emailDomain(c.Email); domain != "" && !normalize.IsGenericEmailDomain(domain) {
			add("https://" + domain)
		}
	}

	sort.Strings(out)
	if len(out) > MaxWebsiteURLs {
		out = out[:MaxWebsiteURLs]
	}
	return out
}

// originOf returns raw's scheme+host origin, lowercased, or raw itself if it
// doesn't parse as an absolute URL.
func originOf(raw string) string {
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return raw
	}
	scheme := u.Scheme
	if scheme == "" {
		scheme = "https"
	}
	return strings.ToLower(scheme) + "://" + strings.ToLower(u.Host)
}

// emailDomain returns the lowercase domain of email, or "" if malformed.
func emailDomain(email string) string {
	at := strings.LastIndex(email, "@")
	if at < 0 {
		return ""
	}
	return strings.ToLower(email[at+1:])
}
