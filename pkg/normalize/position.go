package normalize

import "regexp"

// positionKeywordPattern matches common title keywords and captures the
// short phrase around them (§4.6 step 5).
var positionKeywordPattern = regexp.MustCompile(
	`(?i)\b((?:(?:Chief|Senior|Junior|Lead|Head of|Vice President of|VP of)\s+)?` +
		`(?:CEO|CFO|CTO|COO|President|Director|Manager|Engineer|Developer|Designer|` +
		`Sales Manager|Marketing Manager|Account Manager|Consultant|Analyst|` +
		`Coordinator|Specialist|Executive|Founder|Owner)\b)`,
)

// extractPosition pulls a job title from context via a title-keyword
// pattern list (§4.6 step 5).
func extractPosition(context string) string {
	if m := positionKeywordPattern.FindStringSubmatch(context); m != nil {
		return m[1]
	}
	return ""
}
