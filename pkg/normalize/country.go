package normalize

import (
	"regexp"
	"strings"
)

// countryTable maps English names, common target-market localizations, and
// ISO-2 codes themselves to ISO-3166-alpha-2 (§4.6 step 4). Not exhaustive —
// curated for the markets this engine targets; unknowns map to "".
var countryTable = map[string]string{
	"united states": "US", "usa": "US", "u.s.a.": "US", "us": "US",
	"united kingdom": "GB", "uk": "GB", "great britain": "GB",
	"germany": "DE", "deutschland": "DE", "de": "DE",
	"france": "FR", "fr": "FR",
	"spain": "ES", "españa": "ES", "es": "ES",
	"italy": "IT", "italia": "IT", "it": "IT",
	"netherlands": "NL", "nederland": "NL", "holland": "NL", "nl": "NL",
	"belgium": "BE", "belgique": "BE", "belgië": "BE", "be": "BE",
	"switzerland": "CH", "schweiz": "CH", "suisse": "CH", "ch": "CH",
	"austria": "AT", "österreich": "AT", "at": "AT",
	"china": "CN", "cn": "CN",
	"japan": "JP", "jp": "JP",
	"india": "IN", "in": "IN",
	"canada": "CA", "ca": "CA",
	"brazil": "BR", "brasil": "BR", "br": "BR",
	"mexico": "MX", "méxico": "MX", "mx": "MX",
	"united arab emirates": "AE", "uae": "AE", "ae": "AE",
}

var isoCodePattern = regexp.MustCompile(`\b[A-Z]{2}\b`)

// normalizeCountry maps a raw country string to ISO-3166-alpha-2, or "" for
// unrecognized input.
func normalizeCountry(raw string) string {
	key := strings.ToLower(strings.TrimSpace(raw))
	if code, ok := countryTable[key]; ok {
		return code
	}
	return ""
}

// normalizeCountryFromContext scans context for the longest matching
// country-name substring from countryTable, falling back to a standalone
// two-letter ISO token (§4.6 step 4, "extract_country_from_context").
func normalizeCountryFromContext(context string) string {
	lower := strings.ToLower(context)

	bestMatch := ""
	bestCode := ""
	for name, code := range countryTable {
		if len(name) <= 2 {
			continue // handled by the ISO-token fallback below
		}
		if strings.Contains(lower, name) && len(name) > len(bestMatch) {
			bestMatch = name
			bestCode = code
		}
	}
	if bestCode != "" {
		return bestCode
	}

	if m := isoCodePattern.FindString(context); m != "" {
		return normalizeCountry(m)
	}
	return ""
}
