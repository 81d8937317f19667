// Package extractor finds skill mentions in normalised resume text.
//
// The tagger is deterministic: catalog terms are matched longest-first inside
// list items, whole items under a skills heading are proposed as candidates,
// and technology-shaped tokens elsewhere get a lower confidence. Anything
// below the confidence floor is dropped.
package extractor

import (
	"context"
	"regexp"
	"sort"
	"strings"
	"unicode"
	"unicode/utf8"

	"skillgap-backend/internal/engine/textnorm"
)

const (
	maxNGram = 4

	confLexiconSection = 0.95
	confLexicon        = 0.9
	confListItem       = 0.7
	confShape          = 0.55
)

// Mention is a skill-like span of the normalised text. Start and End are byte
// offsets into textnorm.Document.Text.
type Mention struct {
	Surface    string  `json:"surface"`
	Start      int     `json:"start"`
	End        int     `json:"end"`
	Confidence float64 `json:"confidence"`
}

// Span returns the mention's offsets as a textnorm span.
func (m Mention) Span() textnorm.Span { return textnorm.Span{Start: m.Start, End: m.End} }

// Lexicon reports whether a folded term is a known catalog name or alias.
type Lexicon interface {
	Contains(folded string) bool
}

// Options tunes the tagger.
type Options struct {
	Floor float64
}

// Extractor is immutable after New and safe for concurrent use.
type Extractor struct {
	floor     float64
	stop      map[string]struct{}
	headers   map[string]struct{}
	versionRe *regexp.Regexp
	yearRe    *regexp.Regexp
}

var stopWords = []string{
	"a", "an", "the", "and", "or", "with", "using", "of", "to", "for", "in", "on",
	"experience", "developer", "engineer", "junior", "senior", "degree", "team", "work",
	"environment", "etc", "skills", "proficient", "knowledge", "strong", "familiar",
	"good", "excellent", "expert", "years", "year", "including", "various",
}

var skillHeaders = []string{
	"skills", "skill", "technicalskills", "keyskills", "coreskills", "technologies",
	"technology", "tools", "toolsandtechnologies", "techstack", "stack", "competencies",
	"corecompetencies", "languages", "programminglanguages", "frameworks", "expertise",
	"tools&technologies",
}

// New builds an extractor. A zero floor defaults to 0.5.
func New(opts Options) *Extractor {
	if opts.Floor <= 0 {
		opts.Floor = 0.5
	}
	e := &Extractor{
		floor:     opts.Floor,
		stop:      make(map[string]struct{}, len(stopWords)),
		headers:   make(map[string]struct{}, len(skillHeaders)),
		versionRe: regexp.MustCompile(`^v?\d+(\.\d+)*(\.x)?$`),
		yearRe:    regexp.MustCompile(`^\d{4}$`),
	}
	for _, w := range stopWords {
		e.stop[w] = struct{}{}
	}
	for _, h := range skillHeaders {
		e.headers[textnorm.Fold(h)] = struct{}{}
	}
	return e
}

// Extract returns mentions ordered by start offset. Overlapping mentions of
// the same folded surface are merged keeping the highest confidence.
func (e *Extractor) Extract(ctx context.Context, doc textnorm.Document, lex Lexicon) ([]Mention, error) {
	if doc.Empty() {
		return nil, nil
	}
	var out []Mention
	inSection := false
	for _, line := range doc.Lines {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		body, isHeading, isSkills := e.classifyLine(doc, line)
		if isHeading {
			// Only a stand-alone heading opens a section; "Skills: a, b" covers its own line.
			inSection = isSkills && body.Start >= body.End
			if body.Start >= body.End {
				continue
			}
		}
		skillsContext := inSection || (isHeading && isSkills)
		// Prose n-grams never cross a sentence boundary.
		segments := []textnorm.Span{body}
		if !skillsContext {
			segments = doc.SentencesWithin(body)
		}
		for _, seg := range segments {
			for _, item := range splitItems(doc.Text, seg) {
				for _, m := range e.tagItem(doc, item, lex, skillsContext) {
					if doc.InPII(m.Span()) {
						continue
					}
					out = append(out, m)
				}
			}
		}
	}
	return mergeMentions(out, e.floor), nil
}

// classifyLine detects "Heading:" prefixes and stand-alone headings such as
// "TECHNICAL SKILLS". It returns the part of the line that carries content.
func (e *Extractor) classifyLine(doc textnorm.Document, line textnorm.Span) (textnorm.Span, bool, bool) {
	text := doc.Slice(line)
	if idx := strings.IndexByte(text, ':'); idx > 0 {
		head := text[:idx]
		if len(strings.Fields(head)) <= 4 {
			_, skills := e.headers[textnorm.Fold(head)]
			body := textnorm.Span{Start: line.Start + idx + 1, End: line.End}
			if skills || idx == len(text)-1 || isUpperWords(head) {
				return body, true, skills
			}
		}
	}
	if _, ok := e.headers[textnorm.Fold(text)]; ok {
		return textnorm.Span{Start: line.End, End: line.End}, true, true
	}
	if isUpperWords(text) && len(strings.Fields(text)) <= 4 && !strings.ContainsAny(text, ",;|") {
		return textnorm.Span{Start: line.End, End: line.End}, true, false
	}
	return line, false, false
}

func (e *Extractor) tagItem(doc textnorm.Document, item textnorm.Span, lex Lexicon, skillsContext bool) []Mention {
	toks := tokenize(doc.Text, item)
	if len(toks) == 0 {
		return nil
	}
	var out []Mention
	covered := make([]bool, len(toks))
	for i := 0; i < len(toks); i++ {
		for n := min(maxNGram, len(toks)-i); n >= 1; n-- {
			span := textnorm.Span{Start: toks[i].Start, End: toks[i+n-1].End}
			surface := doc.Slice(span)
			folded := textnorm.Fold(surface)
			if folded == "" || lex == nil || !lex.Contains(folded) {
				continue
			}
			if !skillsContext && !e.acceptProse(surface, folded) {
				continue
			}
			conf := confLexicon
			if skillsContext {
				conf = confLexiconSection
			}
			out = append(out, Mention{Surface: surface, Start: span.Start, End: span.End, Confidence: conf})
			for k := i; k < i+n; k++ {
				covered[k] = true
			}
			i += n - 1
			break
		}
	}

	if skillsContext {
		if len(out) == 0 && len(toks) <= maxNGram {
			span := textnorm.Span{Start: toks[0].Start, End: toks[len(toks)-1].End}
			surface := doc.Slice(span)
			if e.validCandidate(textnorm.Fold(surface), doc.LowerSlice(span)) {
				out = append(out, Mention{Surface: surface, Start: span.Start, End: span.End, Confidence: confListItem})
			}
		}
		return out
	}

	for i, tok := range toks {
		if covered[i] {
			continue
		}
		surface := doc.Slice(tok)
		if !techShaped(surface) {
			continue
		}
		if !e.validCandidate(textnorm.Fold(surface), doc.LowerSlice(tok)) {
			continue
		}
		out = append(out, Mention{Surface: surface, Start: tok.Start, End: tok.End, Confidence: confShape})
	}
	return out
}

// acceptProse guards very short catalog terms ("Go", "R") outside skill lists:
// they must be written with a leading capital.
func (e *Extractor) acceptProse(surface, folded string) bool {
	if _, stop := e.stop[folded]; stop {
		return false
	}
	if utf8.RuneCountInString(folded) > 2 {
		return true
	}
	r, _ := utf8.DecodeRuneInString(surface)
	return unicode.IsUpper(r)
}

func (e *Extractor) validCandidate(folded, lower string) bool {
	n := utf8.RuneCountInString(folded)
	if n < 2 || n > 50 {
		return false
	}
	if _, stop := e.stop[folded]; stop {
		return false
	}
	if _, stop := e.stop[lower]; stop {
		return false
	}
	if e.versionRe.MatchString(lower) || e.yearRe.MatchString(lower) {
		return false
	}
	digits := 0
	for _, r := range folded {
		if unicode.IsDigit(r) {
			digits++
		}
	}
	return digits < max(2, n/2)
}

// techShaped matches tokens that look like technology names outside of lists:
// C++/C#, *.js, letter-digit mixes (S3, K8s), short acronyms (AWS, JS) and
// inner capitals (JavaScript, PostgreSQL).
func techShaped(tok string) bool {
	var letters, digits, upper, innerUpper int
	for i, r := range tok {
		switch {
		case unicode.IsUpper(r):
			upper++
			letters++
			if i > 0 {
				innerUpper++
			}
		case unicode.IsLetter(r):
			letters++
		case unicode.IsDigit(r):
			digits++
		}
	}
	lower := strings.ToLower(tok)
	switch {
	case letters == 0:
		return false
	case strings.ContainsAny(tok, "+#"):
		return true
	case strings.HasSuffix(lower, ".js") || strings.HasSuffix(lower, ".net"):
		return true
	case digits > 0 && unicode.IsLetter([]rune(tok)[0]):
		return true
	case upper == letters && letters >= 2 && letters <= 5 && digits == 0:
		return true
	case innerUpper > 0 && upper < letters:
		return true
	}
	return false
}

// splitItems cuts a line into list items on common list delimiters. A slash
// splits only when a space sits next to it, so "CI/CD" stays one item.
func splitItems(text string, span textnorm.Span) []textnorm.Span {
	var out []textnorm.Span
	start := span.Start
	flush := func(end int) {
		s, e := start, end
		for s < e && (text[s] == ' ' || text[s] == '-' || text[s] == '*') {
			s++
		}
		for e > s && (text[e-1] == ' ' || text[e-1] == '.') {
			e--
		}
		if e > s {
			out = append(out, textnorm.Span{Start: s, End: e})
		}
	}
	for i := span.Start; i < span.End; {
		r, size := utf8.DecodeRuneInString(text[i:])
		if isItemDelimiter(r) || (r == '/' && spacedSlash(text, span, i)) {
			flush(i)
			start = i + size
		}
		i += size
	}
	flush(span.End)
	return out
}

func isItemDelimiter(r rune) bool {
	switch r {
	case ',', ';', '|', '•', '·', '(', ')', '[', ']', '{', '}', ':', '●', '▪', '–', '—':
		return true
	}
	return false
}

func spacedSlash(text string, span textnorm.Span, i int) bool {
	before := i == span.Start || text[i-1] == ' '
	after := i+1 >= span.End || text[i+1] == ' '
	return before || after
}

// tokenize returns word tokens inside span. Tokens keep inner '.', '-' and
// trailing '+' or '#', so "node.js", "scikit-learn", "C++" and "C#" stay whole.
func tokenize(text string, span textnorm.Span) []textnorm.Span {
	var out []textnorm.Span
	i := span.Start
	for i < span.End {
		r, size := utf8.DecodeRuneInString(text[i:])
		if !isWordRune(r) && !(r == '.' && i+size < span.End && startsWord(text[i+size:])) {
			i += size
			continue
		}
		start := i
		i += size
		for i < span.End {
			r, size = utf8.DecodeRuneInString(text[i:])
			if isWordRune(r) || r == '+' || r == '#' {
				i += size
				continue
			}
			if (r == '.' || r == '-') && i+size < span.End && startsWord(text[i+size:]) {
				i += size
				continue
			}
			break
		}
		out = append(out, textnorm.Span{Start: start, End: i})
	}
	return out
}

func isWordRune(r rune) bool { return unicode.IsLetter(r) || unicode.IsDigit(r) }

func startsWord(s string) bool {
	r, _ := utf8.DecodeRuneInString(s)
	return isWordRune(r)
}

func isUpperWords(s string) bool {
	letters := 0
	for _, r := range s {
		if unicode.IsLetter(r) {
			letters++
			if !unicode.IsUpper(r) {
				return false
			}
		}
	}
	return letters >= 3
}

// mergeMentions drops low-confidence mentions and merges overlapping spans of
// the same folded surface into one mention with the union span.
func mergeMentions(in []Mention, floor float64) []Mention {
	byKey := make(map[string][]Mention)
	var keys []string
	for _, m := range in {
		if m.Confidence < floor {
			continue
		}
		key := textnorm.Fold(m.Surface)
		if _, ok := byKey[key]; !ok {
			keys = append(keys, key)
		}
		byKey[key] = append(byKey[key], m)
	}
	var out []Mention
	for _, key := range keys {
		group := byKey[key]
		sort.Slice(group, func(i, j int) bool { return group[i].Start < group[j].Start })
		cur := group[0]
		for _, m := range group[1:] {
			if m.Start < cur.End {
				if m.End > cur.End {
					cur.End = m.End
				}
				cur.Confidence = max(cur.Confidence, m.Confidence)
				continue
			}
			out = append(out, cur)
			cur = m
		}
		out = append(out, cur)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Start != out[j].Start {
			return out[i].Start < out[j].Start
		}
		if out[i].End != out[j].End {
			return out[i].End < out[j].End
		}
		return out[i].Surface < out[j].Surface
	})
	return out
}
