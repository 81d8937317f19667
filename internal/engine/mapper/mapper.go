// Package mapper resolves extracted mentions onto catalog skills.
package mapper

import (
	"context"
	"fmt"
	"sort"

	"skillgap-backend/internal/catalog"
	"skillgap-backend/internal/engine/embedding"
	"skillgap-backend/internal/engine/extractor"
	"skillgap-backend/internal/engine/textnorm"
)

// Options are the mapping thresholds.
type Options struct {
	MappingThreshold        float64
	NearMatchScore          float64
	AliasConfidentThreshold float64
	InferredThreshold       float64
	InferredDiscount        float64
	InferredCap             float64
	MaxInferred             int
}

// DefaultOptions mirror the configuration defaults.
func DefaultOptions() Options {
	return Options{
		MappingThreshold:        0.65,
		NearMatchScore:          0.9,
		AliasConfidentThreshold: 0.85,
		InferredThreshold:       0.8,
		InferredDiscount:        0.5,
		InferredCap:             0.45,
		MaxInferred:             5,
	}
}

// ResolvedSkill is a catalog skill found in (or inferred from) the resume.
// Evidence holds byte spans into the normalised text; empty means inferred.
type ResolvedSkill struct {
	SkillID    string
	Name       string
	Confidence float64
	Evidence   []textnorm.Span
}

// Inferred reports whether the skill has no direct textual evidence.
func (r ResolvedSkill) Inferred() bool { return len(r.Evidence) == 0 }

// Profile is a set of resolved skills unique by ID, ordered by confidence
// descending then ID ascending.
type Profile []ResolvedSkill

// Get returns the entry for id.
func (p Profile) Get(id string) (ResolvedSkill, bool) {
	for _, r := range p {
		if r.SkillID == id {
			return r, true
		}
	}
	return ResolvedSkill{}, false
}

// Top returns at most n entries.
func (p Profile) Top(n int) Profile {
	if n <= 0 || n >= len(p) {
		return p
	}
	return p[:n]
}

// Mapper is stateless; the snapshot and embedder are passed per call.
type Mapper struct {
	opts Options
}

// New creates a mapper.
func New(opts Options) *Mapper {
	return &Mapper{opts: opts}
}

type match struct {
	skillID    string
	similarity float64
}

// Map resolves mentions against snap. Unmappable mentions are dropped.
func (m *Mapper) Map(ctx context.Context, mentions []extractor.Mention, snap *catalog.Snapshot, emb embedding.Embedder) (Profile, error) {
	if snap == nil || len(snap.Skills) == 0 || len(mentions) == 0 {
		return Profile{}, nil
	}

	best := make([]match, len(mentions))
	var pending []int
	for i, mention := range mentions {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		best[i] = m.aliasMatch(textnorm.Fold(mention.Surface), snap)
		if best[i].similarity < m.opts.AliasConfidentThreshold {
			pending = append(pending, i)
		}
	}

	if len(pending) > 0 && emb != nil {
		if err := m.semanticMatch(ctx, mentions, pending, best, snap, emb); err != nil {
			return nil, err
		}
	}

	merged := make(map[string]*ResolvedSkill)
	for i, mention := range mentions {
		b := best[i]
		if b.skillID == "" || b.similarity < m.opts.MappingThreshold {
			continue
		}
		conf := clamp01(mention.Confidence * b.similarity)
		r, ok := merged[b.skillID]
		if !ok {
			sk, _ := snap.Skill(b.skillID)
			r = &ResolvedSkill{SkillID: sk.ID, Name: sk.Name}
			merged[b.skillID] = r
		}
		r.Confidence = max(r.Confidence, conf)
		r.Evidence = append(r.Evidence, mention.Span())
	}

	profile := make(Profile, 0, len(merged))
	for _, r := range merged {
		r.Evidence = mergeSpans(r.Evidence)
		profile = append(profile, *r)
	}

	if emb != nil && m.opts.MaxInferred > 0 && len(profile) > 0 {
		inferred, err := m.infer(ctx, profile, snap)
		if err != nil {
			return nil, err
		}
		profile = append(profile, inferred...)
	}

	sortProfile(profile)
	return profile, nil
}

// aliasMatch finds the best exact or near alias match for a folded surface.
func (m *Mapper) aliasMatch(folded string, snap *catalog.Snapshot) match {
	if folded == "" {
		return match{}
	}
	if ids := snap.ExactSkills(folded); len(ids) > 0 {
		sorted := append([]string(nil), ids...)
		sort.Strings(sorted)
		return match{skillID: sorted[0], similarity: 1}
	}
	var out match
	for _, term := range snap.Terms() {
		if !nearMatch(folded, term) {
			continue
		}
		if out.skillID == "" || term.SkillID < out.skillID {
			out = match{skillID: term.SkillID, similarity: m.opts.NearMatchScore}
		}
	}
	return out
}

// nearMatch accepts acronyms of multi-part names ("js" for "JavaScript"),
// numeronyms ("k8s") and single edits on longer terms.
func nearMatch(folded string, term catalog.Term) bool {
	if len(folded) >= 2 && term.Initials != "" && folded == term.Initials {
		return true
	}
	if term.Numeronym != "" && folded == term.Numeronym {
		return true
	}
	if len([]rune(folded)) >= 5 && len([]rune(term.Folded)) >= 5 {
		return withinOneEdit(folded, term.Folded)
	}
	return false
}

func (m *Mapper) semanticMatch(ctx context.Context, mentions []extractor.Mention, pending []int, best []match, snap *catalog.Snapshot, emb embedding.Embedder) error {
	texts := make([]string, len(pending))
	for j, i := range pending {
		texts[j] = mentions[i].Surface
	}
	vectors, err := emb.Embed(ctx, texts)
	if err != nil {
		return fmt.Errorf("embed mentions: %w", err)
	}
	if len(vectors) != len(texts) {
		return fmt.Errorf("embed mentions: got %d vectors for %d texts", len(vectors), len(texts))
	}
	for j, i := range pending {
		if err := ctx.Err(); err != nil {
			return err
		}
		for _, sk := range snap.Skills {
			sim := embedding.Cosine(vectors[j], sk.Embedding)
			if sim > best[i].similarity || (sim == best[i].similarity && sim > 0 && sk.ID < best[i].skillID) {
				best[i] = match{skillID: sk.ID, similarity: sim}
			}
		}
	}
	return nil
}

// infer adds catalog skills close to the centroid of the directly resolved
// ones, discounted and capped so they never outrank direct evidence.
func (m *Mapper) infer(ctx context.Context, direct Profile, snap *catalog.Snapshot) ([]ResolvedSkill, error) {
	have := make(map[string]struct{}, len(direct))
	var vectors [][]float32
	for _, r := range direct {
		have[r.SkillID] = struct{}{}
		if sk, ok := snap.Skill(r.SkillID); ok && len(sk.Embedding) > 0 {
			vectors = append(vectors, sk.Embedding)
		}
	}
	centroid, err := embedding.Centroid(vectors)
	if err != nil || centroid == nil {
		return nil, err
	}

	var out []ResolvedSkill
	for _, sk := range snap.Skills {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if _, ok := have[sk.ID]; ok {
			continue
		}
		sim := embedding.Cosine(centroid, sk.Embedding)
		if sim < m.opts.InferredThreshold {
			continue
		}
		conf := min(sim*m.opts.InferredDiscount, m.opts.InferredCap)
		out = append(out, ResolvedSkill{SkillID: sk.ID, Name: sk.Name, Confidence: clamp01(conf)})
	}
	sortProfile(out)
	if len(out) > m.opts.MaxInferred {
		out = out[:m.opts.MaxInferred]
	}
	return out, nil
}

func sortProfile(p []ResolvedSkill) {
	sort.SliceStable(p, func(i, j int) bool {
		if p[i].Confidence != p[j].Confidence {
			return p[i].Confidence > p[j].Confidence
		}
		return p[i].SkillID < p[j].SkillID
	})
}

// mergeSpans sorts spans and merges overlapping ones.
func mergeSpans(spans []textnorm.Span) []textnorm.Span {
	if len(spans) == 0 {
		return nil
	}
	sorted := append([]textnorm.Span(nil), spans...)
	sort.Slice(sorted, func(i, j int) bool {
		if sorted[i].Start != sorted[j].Start {
			return sorted[i].Start < sorted[j].Start
		}
		return sorted[i].End < sorted[j].End
	})
	out := []textnorm.Span{sorted[0]}
	for _, s := range sorted[1:] {
		last := &out[len(out)-1]
		if s.Start <= last.End {
			last.End = max(last.End, s.End)
			continue
		}
		out = append(out, s)
	}
	return out
}

// withinOneEdit reports whether a and b differ by at most one insertion,
// deletion, substitution or adjacent transposition.
func withinOneEdit(a, b string) bool {
	ra, rb := []rune(a), []rune(b)
	if len(ra) < len(rb) {
		ra, rb = rb, ra
	}
	switch len(ra) - len(rb) {
	case 0:
		var diff []int
		for i := range ra {
			if ra[i] != rb[i] {
				diff = append(diff, i)
				if len(diff) > 2 {
					return false
				}
			}
		}
		switch len(diff) {
		case 0, 1:
			return true
		case 2:
			i, j := diff[0], diff[1]
			return j == i+1 && ra[i] == rb[j] && ra[j] == rb[i]
		}
		return false
	case 1:
		i := 0
		for i < len(rb) && ra[i] == rb[i] {
			i++
		}
		return string(ra[i+1:]) == string(rb[i:])
	default:
		return false
	}
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
