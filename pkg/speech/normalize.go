package speech

import (
	"regexp"
	"strings"
)

var (
	emphasisRe   = regexp.MustCompile(`\*(.*?)\*`)
	listMarkerRe = regexp.MustCompile(`(?m)^\s*\*\s`)
)

// Normalize strips formatting markup that speech engines read aloud.
// Emphasis pairs are unwrapped first, then list markers are rewritten as
// plain dashes, then any stray asterisks are deleted. Unwrapping must run
// before the stray-character pass or emphasis spans would lose their text
// delimiters one character at a time instead of as pairs. The result is
// stable under repeated application.
func Normalize(text string) string {
	text = emphasisRe.ReplaceAllString(text, "$1")
	text = listMarkerRe.ReplaceAllString(text, "- ")
	return strings.ReplaceAll(text, "*", "")
}
