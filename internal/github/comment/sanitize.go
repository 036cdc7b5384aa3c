package comment

import (
	"regexp"
	"strings"
)

var (
	reInvisible = regexp.MustCompile("[\u200B\u200C\u200D\uFEFF\u00AD]")
	reControl   = regexp.MustCompile("[\u0000-\u0008\u000B\u000C\u000E-\u001F\u007F-\u009F]")
	reBidi      = regexp.MustCompile("[\u202A-\u202E\u2066-\u2069]")
	reLineBreak = regexp.MustCompile(`\s*[\r\n]+\s*`)
)

// sanitizeInline makes user-supplied text safe to embed in a single
// markdown line: hidden characters are dropped and line breaks collapse to
// one space.
func sanitizeInline(s string) string {
	s = reInvisible.ReplaceAllString(s, "")
	s = reControl.ReplaceAllString(s, "")
	s = reBidi.ReplaceAllString(s, "")
	s = reLineBreak.ReplaceAllString(s, " ")
	return strings.TrimSpace(s)
}
