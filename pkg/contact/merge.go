package contact

import (
	"sort"
	"strings"
)

// Merge combines extractor results across pages/extractors into a
// deduplicated, deterministic set, per the two-map algorithm in §4.8: one
// map keyed by lower(email) for email-keyed contacts, one keyed by
// (name_lower, source_url_lower) for profile-only contacts. Profile-only
// contacts never collide with the email map.
func Merge(contacts []UnifiedContact) []UnifiedContact {
	byEmail := make(map[string]*UnifiedContact)
	byProfile := make(map[string]*UnifiedContact)
	var emailOrder, profileOrder []string

	for i := range contacts {
		c := contacts[i]
		c.ClampConfidence()
		id := c.Identity()

		if id.Keyed {
			if existing, ok := byEmail[id.Key]; ok {
				merged := mergeTwo(*existing, c)
				byEmail[id.Key] = &merged
			} else {
				byEmail[id.Key] = &c
				emailOrder = append(emailOrder, id.Key)
			}
			continue
		}

		pk := id.ProfileKey()
		if existing, ok := byProfile[pk]; ok {
			merged := mergeTwo(*existing, c)
			merged.ClampConfidence()
			byProfile[pk] = &merged
		} else {
			byProfile[pk] = &c
			profileOrder = append(profileOrder, pk)
		}
	}

	out := make([]UnifiedContact, 0, len(emailOrder)+len(profileOrder))
	for _, k := range emailOrder {
		out = append(out, *byEmail[k])
	}
	for _, k := range profileOrder {
		out = append(out, *byProfile[k])
	}
	return out
}

// mergeTwo merges b onto a under the collision rules of §4.8: the record
// with higher confidence is the base; each string field prefers non-null,
// then the longer string; additional_emails union-deduped; source_url kept
// from the base; confidence = max.
func mergeTwo(a, b UnifiedContact) UnifiedContact {
	base, other := a, b
	if b.Confidence > a.Confidence {
		base, other = b, a
	}

	merged := base
	merged.ContactName = preferField(base.ContactName, other.ContactName)
	merged.JobTitle = preferField(base.JobTitle, other.JobTitle)
	merged.CompanyName = preferField(base.CompanyName, other.CompanyName)
	merged.Website = preferField(base.Website, other.Website)
	merged.Country = preferField(base.Country, other.Country)
	merged.City = preferField(base.City, other.City)
	merged.Address = preferField(base.Address, other.Address)
	merged.Phone = preferField(base.Phone, other.Phone)

	merged.AdditionalEmails = unionDeduped(base.AdditionalEmails, other.AdditionalEmails)
	if base.Confidence >= other.Confidence {
		merged.Confidence = base.Confidence
	} else {
		merged.Confidence = other.Confidence
	}
	// source_url is preferred from base (already the case via `merged := base`).
	return merged
}

// preferField picks the non-empty field, then the longer string when both
// are non-empty, per the §4.8 collision rule.
func preferField(base, other string) string {
	if base == "" {
		return other
	}
	if other == "" {
		return base
	}
	if len(other) > len(base) {
		return other
	}
	return base
}

// unionDeduped merges two string slices, deduplicating case-insensitively
// (the first-seen spelling is kept) and returning the result sorted.
func unionDeduped(a, b []string) []string {
	seen := make(map[string]bool, len(a)+len(b))
	out := make([]string, 0, len(a)+len(b))
	for _, list := range [][]string{a, b} {
		for _, v := range list {
			key := strings.ToLower(v)
			if !seen[key] {
				seen[key] = true
				out = append(out, v)
			}
		}
	}
	sort.Strings(out)
	return out
}
