// Package textnorm cleans raw resume text and records the structure the
// extractor relies on: lines, sentences and PII spans.
package textnorm

import (
	"fmt"
	"regexp"
	"sort"
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/unicode/norm"
)

// maxNoiseRatio is the share of control or replacement runes above which the
// input is treated as non-text.
const maxNoiseRatio = 0.3

// Span is a half-open byte range [Start, End) in Document.Text.
type Span struct {
	Start int `json:"start"`
	End   int `json:"end"`
}

// PIISpan is a detected piece of personal data and its display placeholder.
type PIISpan struct {
	Span
	Placeholder string
}

// Document is normalised resume text. Lower has the same byte offsets as Text.
type Document struct {
	Text      string
	Lower     string
	Lines     []Span
	Sentences []Span
	PII       []PIISpan
}

// Empty reports whether the document carries no text.
func (d Document) Empty() bool { return strings.TrimSpace(d.Text) == "" }

// Slice returns the text covered by s.
func (d Document) Slice(s Span) string { return d.Text[s.Start:s.End] }

// RuneOffset converts a byte offset in Text into a character offset.
func (d Document) RuneOffset(byteOffset int) int {
	if byteOffset <= 0 {
		return 0
	}
	if byteOffset >= len(d.Text) {
		return utf8.RuneCountInString(d.Text)
	}
	return utf8.RuneCountInString(d.Text[:byteOffset])
}

// LowerSlice returns the lowercased text covered by s.
func (d Document) LowerSlice(s Span) string {
	if len(d.Lower) != len(d.Text) {
		return strings.ToLower(d.Text[s.Start:s.End])
	}
	return d.Lower[s.Start:s.End]
}

// SentencesWithin returns the sentences clipped to s, or s itself when no
// sentence overlaps it.
func (d Document) SentencesWithin(s Span) []Span {
	var out []Span
	for _, sent := range d.Sentences {
		start, end := max(sent.Start, s.Start), min(sent.End, s.End)
		if start < end {
			out = append(out, Span{Start: start, End: end})
		}
	}
	if len(out) == 0 && s.Start < s.End {
		out = append(out, s)
	}
	return out
}

// InPII reports whether s overlaps any recorded PII span.
func (d Document) InPII(s Span) bool {
	for _, p := range d.PII {
		if s.Start < p.End && p.Start < s.End {
			return true
		}
	}
	return false
}

type piiPattern struct {
	re          *regexp.Regexp
	placeholder string
}

// Normalizer is safe for concurrent use once built.
type Normalizer struct {
	patterns []piiPattern
}

var (
	emailPattern = regexp.MustCompile(`[A-Za-z0-9._%+-]+@[A-Za-z0-9.-]+\.[A-Za-z]{2,}`)
	phonePattern = regexp.MustCompile(`(?:\+\d{1,3}[-.\s]?)?\(?\b\d{3}\)?[-.\s]?\d{3}[-.\s]?\d{4}\b`)
)

// New builds a normalizer with the default email and phone patterns plus any
// extra patterns, which are redacted as [REDACTED].
func New(extra []string) (*Normalizer, error) {
	n := &Normalizer{patterns: []piiPattern{
		{re: emailPattern, placeholder: "[EMAIL]"},
		{re: phonePattern, placeholder: "[PHONE]"},
	}}
	for _, raw := range extra {
		re, err := regexp.Compile(raw)
		if err != nil {
			return nil, fmt.Errorf("compile pii pattern %q: %w", raw, err)
		}
		n.patterns = append(n.patterns, piiPattern{re: re, placeholder: "[REDACTED]"})
	}
	return n, nil
}

// Normalize cleans raw text. Non-text input yields an empty document.
func (n *Normalizer) Normalize(raw string) Document {
	if !looksLikeText(raw) {
		return Document{}
	}
	text := norm.NFKC.String(strings.ToValidUTF8(raw, "�"))
	text = collapse(text)
	doc := Document{
		Text:  text,
		Lower: lowerSameWidth(text),
	}
	doc.Lines = splitLines(text)
	doc.Sentences = splitSentences(text, doc.Lines)
	doc.PII = n.findPII(text)
	return doc
}

// Preview returns the text with PII replaced by placeholders, cut to limit
// characters. Line breaks are flattened to spaces.
func (n *Normalizer) Preview(doc Document, limit int) string {
	if doc.Empty() {
		return ""
	}
	var b strings.Builder
	last := 0
	for _, p := range doc.PII {
		b.WriteString(doc.Text[last:p.Start])
		b.WriteString(p.Placeholder)
		last = p.End
	}
	b.WriteString(doc.Text[last:])
	out := strings.ReplaceAll(b.String(), "\n", " ")
	if limit > 0 && utf8.RuneCountInString(out) > limit {
		out = string([]rune(out)[:limit])
	}
	return out
}

func (n *Normalizer) findPII(text string) []PIISpan {
	var spans []PIISpan
	for _, p := range n.patterns {
		for _, loc := range p.re.FindAllStringIndex(text, -1) {
			spans = append(spans, PIISpan{Span: Span{Start: loc[0], End: loc[1]}, Placeholder: p.placeholder})
		}
	}
	sort.SliceStable(spans, func(i, j int) bool {
		if spans[i].Start != spans[j].Start {
			return spans[i].Start < spans[j].Start
		}
		return spans[i].End > spans[j].End
	})
	return mergePII(spans)
}

// mergePII joins overlapping spans so every covered byte is redacted once.
// A merged span keeps the placeholder of its earliest member.
func mergePII(spans []PIISpan) []PIISpan {
	var out []PIISpan
	for _, s := range spans {
		if n := len(out); n > 0 && s.Start < out[n-1].End {
			out[n-1].End = max(out[n-1].End, s.End)
			continue
		}
		out = append(out, s)
	}
	return out
}

func looksLikeText(raw string) bool {
	if strings.TrimSpace(raw) == "" {
		return false
	}
	var total, noise int
	for len(raw) > 0 {
		r, size := utf8.DecodeRuneInString(raw)
		raw = raw[size:]
		total++
		if r == utf8.RuneError && size <= 1 {
			noise++
			continue
		}
		if unicode.IsControl(r) && r != '\n' && r != '\r' && r != '\t' {
			noise++
		}
	}
	return float64(noise)/float64(total) <= maxNoiseRatio
}

// collapse unifies line endings, squeezes horizontal whitespace to a single
// space, trims each line and drops blank lines.
func collapse(text string) string {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	text = strings.ReplaceAll(text, "\r", "\n")
	var lines []string
	for _, line := range strings.Split(text, "\n") {
		line = strings.Join(strings.FieldsFunc(line, func(r rune) bool {
			return unicode.IsSpace(r) || (unicode.IsControl(r) && r != '\n')
		}), " ")
		if line != "" {
			lines = append(lines, line)
		}
	}
	return strings.Join(lines, "\n")
}

// lowerSameWidth lowercases rune by rune, keeping runes whose lowercase form
// has a different UTF-8 width so byte offsets line up with the source.
func lowerSameWidth(text string) string {
	var b strings.Builder
	b.Grow(len(text))
	for _, r := range text {
		l := unicode.ToLower(r)
		if utf8.RuneLen(l) != utf8.RuneLen(r) {
			l = r
		}
		b.WriteRune(l)
	}
	return b.String()
}

func splitLines(text string) []Span {
	var out []Span
	start := 0
	for i := 0; i <= len(text); i++ {
		if i == len(text) || text[i] == '\n' {
			if i > start {
				out = append(out, Span{Start: start, End: i})
			}
			start = i + 1
		}
	}
	return out
}

// splitSentences breaks each line on sentence punctuation followed by a space.
// Dots inside tokens such as "node.js" or "3.5" do not end a sentence.
func splitSentences(text string, lines []Span) []Span {
	var out []Span
	for _, line := range lines {
		start := line.Start
		for i := line.Start; i < line.End; i++ {
			c := text[i]
			if c != '.' && c != '!' && c != '?' {
				continue
			}
			if i+1 < line.End && text[i+1] != ' ' {
				continue
			}
			if i+1 > start {
				out = append(out, Span{Start: start, End: i + 1})
			}
			start = i + 1
			for start < line.End && text[start] == ' ' {
				start++
			}
		}
		if start < line.End {
			out = append(out, Span{Start: start, End: line.End})
		}
	}
	return out
}

// Fold reduces a skill surface to its comparison key: lowercase letters and
// digits plus '+' and '#'. "Node.js", "node js" and "NODEJS" fold to "nodejs".
func Fold(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range norm.NFKC.String(s) {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			b.WriteRune(unicode.ToLower(r))
		case r == '+' || r == '#':
			b.WriteRune(r)
		}
	}
	return b.String()
}
