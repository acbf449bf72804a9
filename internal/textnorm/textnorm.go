// Package textnorm canonicalizes dialogue text so two renditions of the
// same spoken line compare equal regardless of punctuation, casing, and
// stage directions.
package textnorm

import "strings"

var punctuationReplacer = strings.NewReplacer(
	".", "",
	"!", "",
	"?", "",
	",", "",
	`"`, "",
	"'", "",
	"-", " ",
)

// StripAsides removes parenthesized actions like "(laughing)" and bracketed
// stage directions like "[Central Perk]" from a dialogue line. Spans are
// matched left to right and are not nested.
func StripAsides(s string) string {
	s = removeSpans(s, '(', ')')
	s = removeSpans(s, '[', ']')
	return collapseWhitespace(s)
}

// Clean lowercases, drops sentence punctuation, turns hyphens into spaces,
// and collapses whitespace. Clean is idempotent.
func Clean(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	s = punctuationReplacer.Replace(s)
	return collapseWhitespace(s)
}

func removeSpans(s string, opener, closer byte) string {
	var b strings.Builder
	b.Grow(len(s))
	rest := s
	for {
		start := strings.IndexByte(rest, opener)
		if start == -1 {
			b.WriteString(rest)
			return b.String()
		}
		end := strings.IndexByte(rest[start+1:], closer)
		if end == -1 {
			b.WriteString(rest)
			return b.String()
		}
		b.WriteString(rest[:start])
		rest = rest[start+1+end+1:]
	}
}

func collapseWhitespace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
