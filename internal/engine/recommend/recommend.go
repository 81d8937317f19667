// Package recommend derives prioritised gaps for the selected role and ranks
// the remaining roles as alternatives.
package recommend

import (
	"sort"

	"skillgap-backend/internal/catalog"
	"skillgap-backend/internal/engine/mapper"
	"skillgap-backend/internal/engine/scoring"
)

// Options are the recommendation policy constants.
type Options struct {
	LowMatchThreshold int
	TopK              int
}

func DefaultOptions() Options {
	return Options{LowMatchThreshold: 35, TopK: 5}
}

// Gap is a skill the candidate lacks for the selected role. Priority 0 is
// the most urgent.
type Gap struct {
	SkillID  string
	Name     string
	Priority int
	Required bool
}

// Outcome is the selection, gap and alternatives part of an analysis.
type Outcome struct {
	Selected     *scoring.RoleScore
	Gaps         []Gap
	Alternatives []scoring.RoleScore
	NoGoodMatch  bool
}

// Rank orders role scores by score descending, then title, then role ID.
func Rank(scores []scoring.RoleScore) []scoring.RoleScore {
	ranked := append([]scoring.RoleScore(nil), scores...)
	sort.SliceStable(ranked, func(i, j int) bool {
		a, b := ranked[i], ranked[j]
		if a.Score != b.Score {
			return a.Score > b.Score
		}
		if a.Title != b.Title {
			return a.Title < b.Title
		}
		return a.RoleID < b.RoleID
	})
	return ranked
}

// Select picks the requested role, or the best-ranked one when roleID is
// empty or unknown. It returns nil when there are no roles.
func Select(ranked []scoring.RoleScore, roleID string) *scoring.RoleScore {
	if roleID != "" {
		for i := range ranked {
			if ranked[i].RoleID == roleID {
				sel := ranked[i]
				return &sel
			}
		}
	}
	if len(ranked) == 0 {
		return nil
	}
	sel := ranked[0]
	return &sel
}

// Alternatives returns the top K ranked roles other than selected.
func Alternatives(ranked []scoring.RoleScore, selected *scoring.RoleScore, k int) []scoring.RoleScore {
	out := make([]scoring.RoleScore, 0, min(k, len(ranked)))
	for _, rs := range ranked {
		if len(out) >= k {
			break
		}
		if selected != nil && rs.RoleID == selected.RoleID {
			continue
		}
		out = append(out, rs)
	}
	return out
}

// Gaps lists the required skills of role missing from present. When every
// required skill is held, the missing nice-to-have skills are listed instead.
func Gaps(snap *catalog.Snapshot, role catalog.Role, present map[string]mapper.ResolvedSkill) []Gap {
	gaps := missing(snap, role, role.Required, present, true)
	if len(gaps) == 0 {
		gaps = missing(snap, role, role.NiceToHave, present, false)
	}
	return gaps
}

func missing(snap *catalog.Snapshot, role catalog.Role, ids []string, present map[string]mapper.ResolvedSkill, required bool) []Gap {
	type candidate struct {
		id    string
		index int
	}
	var cands []candidate
	for i, id := range ids {
		if _, ok := present[id]; !ok {
			cands = append(cands, candidate{id: id, index: i})
		}
	}
	sort.SliceStable(cands, func(i, j int) bool {
		a, b := cands[i], cands[j]
		if role.Weighted() {
			wa, wb := role.Weight(a.id), role.Weight(b.id)
			if wa != wb {
				return wa > wb
			}
			return a.id < b.id
		}
		if a.index != b.index {
			return a.index < b.index
		}
		return a.id < b.id
	})
	out := make([]Gap, 0, len(cands))
	for i, c := range cands {
		name := c.id
		if sk, ok := snap.Skill(c.id); ok {
			name = sk.Name
		}
		out = append(out, Gap{SkillID: c.id, Name: name, Priority: i, Required: required})
	}
	return out
}

// Recommender combines selection, gaps and alternatives.
type Recommender struct {
	opts Options
}

func New(opts Options) *Recommender {
	if opts.TopK < 0 {
		opts.TopK = 0
	}
	return &Recommender{opts: opts}
}

// Recommend builds the outcome for a scored profile. An unreadable resume
// (inputOK false) gets no selection and no gaps, but still ranks every role.
func (r *Recommender) Recommend(snap *catalog.Snapshot, scores []scoring.RoleScore, present map[string]mapper.ResolvedSkill, roleID string, inputOK bool) Outcome {
	ranked := Rank(scores)
	var selected *scoring.RoleScore
	if inputOK {
		selected = Select(ranked, roleID)
	}

	out := Outcome{
		Selected:     selected,
		Gaps:         []Gap{},
		Alternatives: Alternatives(ranked, selected, r.opts.TopK),
		NoGoodMatch:  r.NoGoodMatch(selected),
	}
	if selected != nil {
		if role, ok := snap.Role(selected.RoleID); ok {
			out.Gaps = Gaps(snap, role, present)
		}
	}
	return out
}

// NoGoodMatch reports whether the selection is missing or scores below the
// low-match threshold.
func (r *Recommender) NoGoodMatch(selected *scoring.RoleScore) bool {
	return selected == nil || selected.Score < r.opts.LowMatchThreshold
}
