// Package sanitize bounds and de-fangs metadata values before they are
// displayed or stored. Raw tag values can contain markup, control bytes,
// or maliciously oversized payloads; nothing leaves this package with any
// of those intact.
package sanitize

import (
	"fmt"
	"regexp"
	"strings"
	"unicode"
)

// MaxLen bounds the rune length of any sanitized value.
const MaxLen = 500

var tagPattern = regexp.MustCompile(`<[^>]*>`)

// Clean strips markup and control characters from v and truncates the
// result to MaxLen runes. Clean is idempotent: no output of Clean is
// changed by a second pass.
func Clean(v string) string {
	s := tagPattern.ReplaceAllString(v, "")
	s = strings.Map(func(r rune) rune {
		if r == '<' || r == '>' {
			return -1
		}
		if unicode.IsControl(r) {
			return -1
		}
		return r
	}, s)

	runes := []rune(s)
	if len(runes) > MaxLen {
		runes = runes[:MaxLen]
	}
	return strings.TrimSpace(string(runes))
}

// CleanAny coerces v to its string representation and cleans it.
func CleanAny(v any) string {
	if s, ok := v.(string); ok {
		return Clean(s)
	}
	return Clean(fmt.Sprint(v))
}
