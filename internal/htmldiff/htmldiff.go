// Package htmldiff produces word-level diffs of HTML fragments, keeping
// markup intact while marking inserted and deleted text runs.
package htmldiff

import (
	"regexp"
	"strings"

	"github.com/sergi/go-diff/diffmatchpatch"
	"golang.org/x/net/html"
)

var htmlEscaper = strings.NewReplacer(
	"&", "&amp;",
	"<", "&lt;",
	">", "&gt;",
	`"`, "&quot;",
	"'", "&#39;",
	"/", "&#x2F;",
	"`", "&#x60;",
	"=", "&#x3D;",
)

// EscapeHTML escapes text for safe embedding in an HTML fragment.
func EscapeHTML(s string) string {
	return htmlEscaper.Replace(s)
}

var styleBlockRe = regexp.MustCompile(`(?is)<style\b[^>]*>.*?</style>`)

// RemoveStyle strips embedded <style> blocks. Rich-text fields carry
// editor-generated stylesheets that would otherwise leak into the panel.
func RemoveStyle(s string) string {
	return styleBlockRe.ReplaceAllString(s, "")
}

var newlineReplacer = strings.NewReplacer("\r\n", "<br>", "\n", "<br>", "\r", "<br>")

// NewlinesToBreaks converts newline characters to <br> tags so plain text
// keeps its line structure inside a table cell.
func NewlinesToBreaks(s string) string {
	return newlineReplacer.Replace(s)
}

// WildcardMatch reports whether s matches pattern, where '*' matches any
// run of characters. Matching is case-insensitive and anchored at both ends.
func WildcardMatch(s, pattern string) bool {
	s = strings.ToLower(s)
	pattern = strings.ToLower(pattern)

	si, pi := 0, 0
	star, mark := -1, 0
	for si < len(s) {
		switch {
		case pi < len(pattern) && pattern[pi] == '*':
			star, mark = pi, si
			pi++
		case pi < len(pattern) && pattern[pi] == s[si]:
			si++
			pi++
		case star >= 0:
			mark++
			si, pi = mark, star+1
		default:
			return false
		}
	}
	for pi < len(pattern) && pattern[pi] == '*' {
		pi++
	}
	return pi == len(pattern)
}

// Diff compares two HTML fragments and returns new markup where inserted
// runs are wrapped in <ins> and deleted runs in <del>, both carrying
// markerClass. Tags are treated as atomic tokens and never split, so the
// result stays well formed as long as the inputs were.
func Diff(oldHTML, newHTML, markerClass string) string {
	oldToks := tokenize(oldHTML)
	newToks := tokenize(newHTML)

	dmp := diffmatchpatch.New()
	c1, c2, lines := dmp.DiffLinesToChars(joinTokens(oldToks), joinTokens(newToks))
	diffs := dmp.DiffCharsToLines(dmp.DiffMain(c1, c2, false), lines)

	var b strings.Builder
	for _, d := range diffs {
		text := strings.ReplaceAll(d.Text, "\n", "")
		if text == "" {
			continue
		}
		switch d.Type {
		case diffmatchpatch.DiffInsert:
			b.WriteString(`<ins class="`)
			b.WriteString(markerClass)
			b.WriteString(`">`)
			b.WriteString(text)
			b.WriteString("</ins>")
		case diffmatchpatch.DiffDelete:
			b.WriteString(`<del class="`)
			b.WriteString(markerClass)
			b.WriteString(`">`)
			b.WriteString(text)
			b.WriteString("</del>")
		default:
			b.WriteString(text)
		}
	}
	return b.String()
}

// tokenize splits an HTML fragment into diffable tokens: each tag is one
// token, text is split into words, and whitespace runs collapse to a single
// space so reflowed editor output does not register as a change.
func tokenize(fragment string) []string {
	z := html.NewTokenizer(strings.NewReader(fragment))
	var toks []string
	for {
		tt := z.Next()
		if tt == html.ErrorToken {
			return toks
		}
		raw := string(z.Raw())
		if tt == html.TextToken {
			toks = append(toks, splitText(raw)...)
			continue
		}
		toks = append(toks, strings.ReplaceAll(raw, "\n", " "))
	}
}

func splitText(s string) []string {
	var toks []string
	start := -1
	inSpace := false
	for i, r := range s {
		isSpace := r == ' ' || r == '\t' || r == '\n' || r == '\r' || r == '\f'
		if start < 0 {
			start = i
			inSpace = isSpace
			continue
		}
		if isSpace != inSpace {
			toks = append(toks, tokenFor(s[start:i], inSpace))
			start = i
			inSpace = isSpace
		}
	}
	if start >= 0 {
		toks = append(toks, tokenFor(s[start:], inSpace))
	}
	return toks
}

func tokenFor(run string, isSpace bool) string {
	if isSpace {
		return " "
	}
	return run
}

func joinTokens(toks []string) string {
	return strings.Join(toks, "\n")
}
