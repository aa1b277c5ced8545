// Package matcher judges free-text guesses against a canonical answer.
//
// Matching is exact after normalization (trim + lower-case). There is no fuzzy or
// edit-distance matching: a misspelled guess is rejected.
package matcher

import (
	"strings"

	"golang.org/x/net/html"
)

// IsCorrect reports whether guess equals the canonical answer or one of its
// non-blank variants, ignoring case and surrounding whitespace.
func IsCorrect(guess, canonical string, variants []string) bool {
	g := normalize(guess)
	if g == "" {
		return false
	}
	if g == normalize(canonical) {
		return true
	}
	for _, v := range variants {
		nv := normalize(v)
		if nv == "" {
			continue
		}
		if g == nv {
			return true
		}
	}
	return false
}

func normalize(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// SplitVariants splits the comma separated storage form of variants and drops blanks.
func SplitVariants(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// PlainText extracts the visible text of a rich-text forum post.
// Script and style bodies are dropped and runs of whitespace collapse to one space.
func PlainText(markup string) string {
	z := html.NewTokenizer(strings.NewReader(markup))
	var b strings.Builder
	skip := 0
	for {
		switch z.Next() {
		case html.ErrorToken:
			return strings.Join(strings.Fields(b.String()), " ")
		case html.StartTagToken:
			if name, _ := z.TagName(); isHidden(name) {
				skip++
			} else if isBlock(name) {
				b.WriteByte(' ')
			}
		case html.EndTagToken:
			if name, _ := z.TagName(); isHidden(name) && skip > 0 {
				skip--
			} else if isBlock(name) {
				b.WriteByte(' ')
			}
		case html.SelfClosingTagToken:
			if name, _ := z.TagName(); isBlock(name) {
				b.WriteByte(' ')
			}
		case html.TextToken:
			if skip == 0 {
				b.Write(z.Text())
			}
		}
	}
}

func isHidden(tag []byte) bool {
	switch string(tag) {
	case "script", "style", "head", "title":
		return true
	}
	return false
}

func isBlock(tag []byte) bool {
	switch string(tag) {
	case "p", "br", "div", "li", "blockquote", "tr", "td", "th":
		return true
	}
	return false
}
