package wikilink

import (
	"regexp"
	"strings"
)

// RelatedPrefix is the label used for links appended by Connect.
const RelatedPrefix = "Related: "

var blankRunRe = regexp.MustCompile(`\n(?:[ \t]*\n){2,}`)

// Connect appends a "Related: [[target]]" footer to content unless it already
// links to target (with or without the .md suffix). Trailing whitespace of
// content is dropped so the footer always follows exactly one blank line.
// The returned flag reports whether content changed.
func Connect(content, targetName string) (string, bool) {
	base := Base(targetName)
	if linksTo(content, base, false) {
		return content, false
	}
	line := RelatedPrefix + Token(base)
	trimmed := strings.TrimRight(content, " \t\r\n")
	if trimmed == "" {
		return line, true
	}
	return trimmed + "\n\n" + line, true
}

// Disconnect removes every link to targetName from content. Matching ignores
// case and the .md suffix, and only considers tokens Links reports, so
// brackets nested inside another token never match. Lines that carry nothing
// but the link (bare, as a list item, or behind a relation label such as
// "Related:") are deleted; links inside prose lose their brackets and keep
// the name. Afterwards runs of blank lines collapse to one and the document
// is trimmed.
//
// Content without a matching token is returned unchanged.
func Disconnect(content, targetName string) (string, bool) {
	base := Base(targetName)
	if !linksTo(content, base, true) {
		return content, false
	}

	lines := strings.Split(content, "\n")
	kept := lines[:0]
	for _, line := range lines {
		spans := matchingSpans(line, base, true)
		if len(spans) == 0 {
			kept = append(kept, line)
			continue
		}
		if dropsLine(maskSpans(line, spans, func(int) string { return linkMark })) {
			continue
		}
		kept = append(kept, maskSpans(line, spans, func(i int) string {
			return line[spans[i][2]:spans[i][3]]
		}))
	}

	out := strings.Join(kept, "\n")
	out = blankRunRe.ReplaceAllString(out, "\n\n")
	return strings.TrimSpace(out), true
}

// Rename rewrites [[oldName]] and [[oldName.md]] to [[newName]] (both names
// without the suffix). Matching is case-sensitive.
func Rename(content, oldName, newName string) (string, bool) {
	spans := matchingSpans(content, Base(oldName), false)
	if len(spans) == 0 {
		return content, false
	}
	token := Token(Base(newName))
	return maskSpans(content, spans, func(int) string { return token }), true
}

// References reports whether content links to name, ignoring case and the
// .md suffix.
func References(content, name string) bool {
	return linksTo(content, Base(name), true)
}

// linkMark stands in for a matching token while a line's shape is checked.
const linkMark = "\x00"

var (
	bareLineRe = regexp.MustCompile(`^\s*\x00\s*$`)
	listItemRe = regexp.MustCompile(`^\s*(?:[-*+]|\d+[.)])\s+(?:\[[ xX]\]\s+)?\x00\s*$`)
	relationRe = regexp.MustCompile(`(?i)^\s*(?:[-*+]\s+)?(?:\*\*|__)?(?:Related|Parent|Child|See|Source|Upstream|Ref)(?:\*\*|__)?\s*:?\s*(?:\*\*|__)?\s*\x00\s*[.,;]?\s*$`)
)

func dropsLine(masked string) bool {
	return bareLineRe.MatchString(masked) || listItemRe.MatchString(masked) || relationRe.MatchString(masked)
}

// matchingSpans returns the submatch index pairs of link tokens in text whose
// name is base or base.md.
func matchingSpans(text, base string, foldCase bool) [][]int {
	var out [][]int
	for _, loc := range linkRe.FindAllStringSubmatchIndex(text, -1) {
		if namesBase(text[loc[2]:loc[3]], base, foldCase) {
			out = append(out, loc)
		}
	}
	return out
}

func linksTo(content, base string, foldCase bool) bool {
	for name := range Links(content) {
		if namesBase(name, base, foldCase) {
			return true
		}
	}
	return false
}

func namesBase(name, base string, foldCase bool) bool {
	if foldCase {
		return strings.EqualFold(name, base) || strings.EqualFold(name, base+Ext)
	}
	return name == base || name == base+Ext
}

// maskSpans replaces each whole token span of text with repl(i).
func maskSpans(text string, spans [][]int, repl func(i int) string) string {
	var b strings.Builder
	last := 0
	for i, loc := range spans {
		b.WriteString(text[last:loc[0]])
		b.WriteString(repl(i))
		last = loc[1]
	}
	b.WriteString(text[last:])
	return b.String()
}
