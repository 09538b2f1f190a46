// Package wikilink scans and rewrites [[Name]] link tokens in note text.
//
// The token syntax is the only bit-exact format contract of the link graph:
// any run of characters between "[[" and the next "]]" on the same line is a
// link name, wherever it appears in the document (code fences included).
package wikilink

import (
	"iter"
	"regexp"
	"strings"
)

// Ext is the conventional document name suffix.
const Ext = ".md"

var linkRe = regexp.MustCompile(`\[\[(.*?)\]\]`)

// Links returns the referenced names in order of appearance, duplicates
// included. The sequence is lazy and can be ranged over any number of times.
// The inner text is taken verbatim: no trimming, no alias handling.
func Links(content string) iter.Seq[string] {
	return func(yield func(string) bool) {
		rest := content
		for {
			loc := linkRe.FindStringSubmatchIndex(rest)
			if loc == nil {
				return
			}
			if !yield(rest[loc[2]:loc[3]]) {
				return
			}
			rest = rest[loc[1]:]
		}
	}
}

// Targets returns the distinct referenced names in order of first appearance.
func Targets(content string) []string {
	seen := make(map[string]struct{})
	var out []string
	for name := range Links(content) {
		if _, ok := seen[name]; ok {
			continue
		}
		seen[name] = struct{}{}
		out = append(out, name)
	}
	return out
}

// Count returns the number of link tokens in content.
func Count(content string) int {
	n := 0
	for range Links(content) {
		n++
	}
	return n
}

// Token formats name as a link token.
func Token(name string) string {
	return "[[" + name + "]]"
}

// Base strips the conventional ".md" suffix from a document name.
func Base(name string) string {
	return strings.TrimSuffix(name, Ext)
}
