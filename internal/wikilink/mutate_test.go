package wikilink

import (
	"slices"
	"strings"
	"testing"
)

func TestConnect_AppendsFooter(t *testing.T) {
	got, changed := Connect("# A\nbody\n", "B.md")
	if !changed {
		t.Fatal("expected change")
	}
	want := "# A\nbody\n\nRelated: [[B]]"
	if got != want {
		t.Errorf("content = %q, want %q", got, want)
	}
}

func TestConnect_Idempotent(t *testing.T) {
	once, _ := Connect("text", "B.md")
	twice, changed := Connect(once, "B.md")
	if changed || twice != once {
		t.Errorf("second connect changed content: %q", twice)
	}
	if strings.Count(twice, "[[B]]") != 1 {
		t.Errorf("duplicate footer in %q", twice)
	}
}

func TestConnect_ExistingSuffixedLink(t *testing.T) {
	in := "see [[B.md]]"
	got, changed := Connect(in, "B.md")
	if changed || got != in {
		t.Errorf("content = %q, changed = %v", got, changed)
	}
}

func TestConnect_EmptyContent(t *testing.T) {
	got, _ := Connect("", "Todo.md")
	if got != "Related: [[Todo]]" {
		t.Errorf("content = %q", got)
	}
}

func TestConnect_RoundTrip(t *testing.T) {
	got, _ := Connect("hello", "My Note.md")
	if !slices.Contains(Targets(got), "My Note") {
		t.Errorf("targets of %q missing My Note", got)
	}
}

func TestDisconnect_RelatedLine(t *testing.T) {
	in := "# A\n\nIntro text.\n\nRelated: [[B]]\n\nOutro."
	got, changed := Disconnect(in, "B.md")
	if !changed {
		t.Fatal("expected change")
	}
	want := "# A\n\nIntro text.\n\nOutro."
	if got != want {
		t.Errorf("content = %q, want %q", got, want)
	}
}

func TestDisconnect_LineRules(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"bare", "top\n[[B]]\nbottom", "top\nbottom"},
		{"list item", "- [[B]]\n- [[C]]", "- [[C]]"},
		{"numbered item", "1. [[b.md]]\n2. keep", "2. keep"},
		{"task item", "- [ ] [[B]]\nrest", "rest"},
		{"parent label", "Parent: [[B]]\nrest", "rest"},
		{"bold label", "**See:** [[B]]\nrest", "rest"},
		{"listed label", "- Upstream: [[B.md]]\nrest", "rest"},
		{"case insensitive", "ref: [[b]]\nrest", "rest"},
		{"inline prose", "I read [[B]] yesterday.", "I read B yesterday."},
		{"inline keeps written form", "see [[b.MD]] and [[B.md]]", "see b.MD and B.md"},
		{"list with prose", "- [[B]] and [[C]]", "- B and [[C]]"},
		{"other targets untouched", "[[Bee]] [[AB]] [[B]]x", "[[Bee]] [[AB]] Bx"},
		{"collapse blanks", "a\n\n[[B]]\n\n\n\nz", "a\n\nz"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, _ := Disconnect(tt.in, "B.md")
			if got != tt.want {
				t.Errorf("Disconnect(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestDisconnect_Idempotent(t *testing.T) {
	inputs := []string{
		"x\n\n- [[B]]\nsee [[B]] here\n\n\n\nRelated: [[B]]\n",
		"intro\n\n[[[[B]]]]\n\nend",
		"see [[x [[B]] here",
		"[[[B]] and [[B]]]]",
	}
	for _, in := range inputs {
		first, _ := Disconnect(in, "B.md")
		second, changed := Disconnect(first, "B.md")
		if changed || second != first {
			t.Errorf("input %q: second disconnect changed %q to %q", in, first, second)
		}
	}
}

func TestDisconnect_NestedBracketsDoNotMatch(t *testing.T) {
	for _, in := range []string{"intro\n\n[[[[B]]]]\n\nend", "see [[x [[B]] here"} {
		got, changed := Disconnect(in, "B.md")
		if changed || got != in {
			t.Errorf("Disconnect(%q) = %q, %v; want unchanged", in, got, changed)
		}
		if References(in, "B.md") {
			t.Errorf("References(%q) = true, but Links sees no link to B", in)
		}
	}
}

func TestConnect_NestedBracketsAreNotALink(t *testing.T) {
	got, changed := Connect("[[[[B]]]]", "B.md")
	if !changed {
		t.Fatal("a nested token does not link to B")
	}
	if !slices.Contains(Targets(got), "B") {
		t.Errorf("targets of %q missing B", got)
	}
}

func TestDisconnect_NoLink(t *testing.T) {
	in := "  untouched \n\n\n\n"
	got, changed := Disconnect(in, "B")
	if changed || got != in {
		t.Errorf("content = %q, changed = %v", got, changed)
	}
}

func TestDisconnect_RegexMetacharacters(t *testing.T) {
	got, _ := Disconnect("see [[a+b (draft)]] now\n[[a+b (draft).md]]", "a+b (draft).md")
	if got != "see a+b (draft) now" {
		t.Errorf("content = %q", got)
	}
}

func TestRename(t *testing.T) {
	in := "[[Old]] and [[Old.md]] but not [[Older]] or [[old]]"
	got, changed := Rename(in, "Old.md", "New.md")
	if !changed {
		t.Fatal("expected change")
	}
	want := "[[New]] and [[New]] but not [[Older]] or [[old]]"
	if got != want {
		t.Errorf("content = %q, want %q", got, want)
	}
}

func TestRename_NestedBracketsUntouched(t *testing.T) {
	in := "[[[[Old]]]] and [[Old]]"
	got, _ := Rename(in, "Old", "New")
	if got != "[[[[Old]]]] and [[New]]" {
		t.Errorf("content = %q", got)
	}
}

func TestRename_DollarInName(t *testing.T) {
	got, _ := Rename("[[a]]", "a", "$1 cost")
	if got != "[[$1 cost]]" {
		t.Errorf("content = %q", got)
	}
}

func TestRename_Unchanged(t *testing.T) {
	got, changed := Rename("nothing here", "Old", "New")
	if changed || got != "nothing here" {
		t.Errorf("content = %q, changed = %v", got, changed)
	}
}

func TestReferences(t *testing.T) {
	if !References("x [[todo.MD]]", "Todo.md") {
		t.Error("expected reference")
	}
	if References("x [[Todos]]", "Todo.md") {
		t.Error("unexpected reference")
	}
}
