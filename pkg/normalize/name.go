package normalize

import (
	"regexp"
	"strings"
)

// nameShapePattern matches a "Firstname Lastname"-style local part, used as
// a fallback when context carries no separate name (§4.6 step 2).
var nameShapePattern = regexp.MustCompile(`^[a-z]+[._\-][a-z]+$`)

// namePattern looks for two-to-four capitalized words in context, a cheap
// approximation of a person's display name appearing near their email.
var namePattern = regexp.MustCompile(`\b([A-Z][a-z]+(?:\s+[A-Z][a-z]+){1,3})\b`)

// parseName extracts a display name from context when available, otherwise
// derives one from the email's local part when it has a name-like shape and
// isn't one of the generic prefixes already filtered during extraction.
func parseName(context, email string) string {
	if m := namePattern.FindStringSubmatch(context); m != nil {
		return m[1]
	}

	at := strings.Index(email, "@")
	if at < 0 {
		return ""
	}
	local := strings.ToLower(email[:at])
	if !nameShapePattern.MatchString(local) {
		return ""
	}

	parts := regexp.MustCompile(`[._\-]+`).Split(local, -1)
	for i, p := range parts {
		if p == "" {
			continue
		}
		parts[i] = strings.ToUpper(p[:1]) + p[1:]
	}
	return strings.Join(parts, " ")
}
