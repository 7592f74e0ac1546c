package resolver

import (
	"regexp"
	"strings"
)

// identifierPattern matches "IMDB: tt1234567" anywhere in free text
var identifierPattern = regexp.MustCompile(`(?i)IMDB:\s*(tt\d+)`)

// ExtractIdentifier returns the canonical (lower-case) content identifier
// embedded in a programme description
func ExtractIdentifier(description string) (string, bool) {
	match := identifierPattern.FindStringSubmatch(description)
	if len(match) < 2 {
		return "", false
	}
	return strings.ToLower(match[1]), true
}
