// Package textnorm cleans extracted document text into a canonical form.
package textnorm

import (
	"regexp"
	"strings"

	"golang.org/x/text/unicode/norm"
)

var (
	horizontalSpace = regexp.MustCompile(`[ \t\x{00A0}\x{2007}\x{202F}]+`)
	blankLines      = regexp.MustCompile(`\n{3,}`)
)

// Normalize applies NFC composition, collapses runs of spaces, tabs and
// no-break spaces to a single space, squeezes three or more newlines down to two and trims the
// result. Normalize(Normalize(s)) == Normalize(s).
func Normalize(s string) string {
	if s == "" {
		return ""
	}
	s = norm.NFC.String(s)
	s = horizontalSpace.ReplaceAllString(s, " ")
	s = blankLines.ReplaceAllString(s, "\n\n")
	return strings.TrimSpace(s)
}

// CollapseFields joins the whitespace-separated fields of s with single spaces.
func CollapseFields(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
