package catalog

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"

	"skillgap-backend/internal/engine/embedding"
	"skillgap-backend/internal/engine/textnorm"
)

// Term is one name or alias of a skill with its precomputed match keys.
type Term struct {
	SkillID   string
	Surface   string
	Folded    string
	Initials  string
	Numeronym string
}

func (s *Snapshot) buildTerms() {
	s.byFolded = make(map[string][]int)
	seen := make(map[string]struct{})
	for _, sk := range s.Skills {
		surfaces := append([]string{sk.Name, sk.ID}, sk.Aliases...)
		for _, surface := range surfaces {
			folded := textnorm.Fold(surface)
			if folded == "" {
				continue
			}
			key := sk.ID + "\x00" + folded
			if _, dup := seen[key]; dup {
				continue
			}
			seen[key] = struct{}{}
			s.terms = append(s.terms, Term{
				SkillID:   sk.ID,
				Surface:   surface,
				Folded:    folded,
				Initials:  Initials(surface),
				Numeronym: Numeronym(folded),
			})
		}
	}
	sort.SliceStable(s.terms, func(i, j int) bool {
		if s.terms[i].Folded != s.terms[j].Folded {
			return s.terms[i].Folded < s.terms[j].Folded
		}
		return s.terms[i].SkillID < s.terms[j].SkillID
	})
	for i, t := range s.terms {
		s.byFolded[t.Folded] = append(s.byFolded[t.Folded], i)
	}
}

// Contains reports whether folded is a known skill name or alias.
func (s *Snapshot) Contains(folded string) bool {
	if s == nil {
		return false
	}
	_, ok := s.byFolded[folded]
	return ok
}

// Terms returns every skill name and alias, ordered by folded form then ID.
func (s *Snapshot) Terms() []Term {
	if s == nil {
		return nil
	}
	return s.terms
}

// ExactSkills returns the IDs of skills that have folded as a name or alias.
func (s *Snapshot) ExactSkills(folded string) []string {
	if s == nil {
		return nil
	}
	var out []string
	for _, i := range s.byFolded[folded] {
		out = append(out, s.terms[i].SkillID)
	}
	return out
}

// WithEmbeddings returns a snapshot whose skills all carry vectors from emb.
// Stored vectors of the right dimension are kept only when the snapshot was
// embedded by the same model, or by an unknown one (stored catalogs).
func (s *Snapshot) WithEmbeddings(ctx context.Context, emb embedding.Embedder) (*Snapshot, error) {
	if s == nil || emb == nil {
		return s, nil
	}
	dims := emb.Dimensions()
	reuse := s.EmbeddedBy == "" || s.EmbeddedBy == emb.Name()
	var texts []string
	var idx []int
	for i, sk := range s.Skills {
		if reuse && len(sk.Embedding) == dims && dims > 0 {
			continue
		}
		texts = append(texts, sk.Name)
		idx = append(idx, i)
	}
	out := *s
	out.EmbeddedBy = emb.Name()
	if len(texts) == 0 {
		return &out, nil
	}
	vectors, err := emb.Embed(ctx, texts)
	if err != nil {
		return nil, fmt.Errorf("embed catalog skills: %w", err)
	}
	if len(vectors) != len(texts) {
		return nil, fmt.Errorf("embed catalog skills: got %d vectors for %d skills", len(vectors), len(texts))
	}
	out.Skills = append([]Skill(nil), s.Skills...)
	for j, i := range idx {
		out.Skills[i].Embedding = vectors[j]
	}
	return &out, nil
}

// Initials returns the lowercase initials of a multi-part name, splitting on
// spaces, punctuation and camel-case boundaries: "JavaScript" -> "js",
// "Machine Learning" -> "ml". Single-part names yield "".
func Initials(name string) string {
	var parts []string
	var cur []rune
	var prev rune
	flush := func() {
		if len(cur) > 0 {
			parts = append(parts, string(cur))
			cur = cur[:0]
		}
	}
	for _, r := range name {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			if unicode.IsUpper(r) && unicode.IsLower(prev) {
				flush()
			}
			cur = append(cur, r)
		default:
			flush()
		}
		prev = r
	}
	flush()
	if len(parts) < 2 {
		return ""
	}
	var b strings.Builder
	for _, p := range parts {
		r, _ := utf8.DecodeRuneInString(p)
		b.WriteRune(unicode.ToLower(r))
	}
	return b.String()
}

// Numeronym abbreviates a folded term of five or more letters as first
// letter, count of inner letters, last letter: "kubernetes" -> "k8s".
func Numeronym(folded string) string {
	runes := []rune(folded)
	if len(runes) < 5 {
		return ""
	}
	for _, r := range runes {
		if !unicode.IsLetter(r) {
			return ""
		}
	}
	return string(runes[0]) + strconv.Itoa(len(runes)-2) + string(runes[len(runes)-1])
}
