// Package scoring computes how well a skill profile covers each role template.
package scoring

import (
	"context"
	"math"
	"sort"

	"golang.org/x/sync/errgroup"

	"skillgap-backend/internal/catalog"
	"skillgap-backend/internal/engine/mapper"
)

const (
	LabelExcellent = "Excellent"
	LabelGood      = "Good"
	LabelFair      = "Fair"
	LabelLow       = "Low"
)

// Options are the scoring policy constants.
type Options struct {
	PresenceThreshold float64
	RequiredWeight    float64
	NiceWeight        float64
	EvidenceBonusMax  float64
	Parallelism       int
}

func DefaultOptions() Options {
	return Options{
		PresenceThreshold: 0.3,
		RequiredWeight:    0.70,
		NiceWeight:        0.25,
		EvidenceBonusMax:  0.05,
		Parallelism:       4,
	}
}

// RoleScore is the result of scoring one role.
type RoleScore struct {
	RoleID           string
	Title            string
	Score            int
	Suitability      string
	RequiredCoverage float64
	NiceCoverage     float64
}

// Label maps a composite score onto its suitability tier.
func Label(score int) string {
	switch {
	case score >= 80:
		return LabelExcellent
	case score >= 60:
		return LabelGood
	case score >= 40:
		return LabelFair
	default:
		return LabelLow
	}
}

type Scorer struct {
	opts Options
}

func New(opts Options) *Scorer {
	if opts.Parallelism <= 0 {
		opts.Parallelism = 1
	}
	return &Scorer{opts: opts}
}

// Present returns the profile entries counted as held by the candidate.
func (s *Scorer) Present(profile mapper.Profile) map[string]mapper.ResolvedSkill {
	out := make(map[string]mapper.ResolvedSkill, len(profile))
	for _, r := range profile {
		if r.Confidence >= s.opts.PresenceThreshold {
			out[r.SkillID] = r
		}
	}
	return out
}

// Score scores a single role against the present skills.
func (s *Scorer) Score(role catalog.Role, present map[string]mapper.ResolvedSkill) RoleScore {
	req, evidenced := coverage(role, role.Required, present)
	nice, _ := coverage(role, role.NiceToHave, present)

	var bonus float64
	if len(role.Required) > 0 {
		bonus = s.opts.EvidenceBonusMax * float64(evidenced) / float64(len(role.Required))
	}
	raw := 100 * (s.opts.RequiredWeight*req + s.opts.NiceWeight*nice + bonus)
	score := int(math.Round(raw))
	score = max(0, min(100, score))

	return RoleScore{
		RoleID:           role.ID,
		Title:            role.Title,
		Score:            score,
		Suitability:      Label(score),
		RequiredCoverage: req,
		NiceCoverage:     nice,
	}
}

// ScoreAll scores every role in the snapshot with bounded parallelism. The
// result is ordered by role ID regardless of scheduling.
func (s *Scorer) ScoreAll(ctx context.Context, snap *catalog.Snapshot, profile mapper.Profile) ([]RoleScore, error) {
	if snap == nil || len(snap.Roles) == 0 {
		return nil, nil
	}
	present := s.Present(profile)
	out := make([]RoleScore, len(snap.Roles))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(s.opts.Parallelism)
	for i, role := range snap.Roles {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			out[i] = s.Score(role, present)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	sort.Slice(out, func(i, j int) bool { return out[i].RoleID < out[j].RoleID })
	return out, nil
}

// coverage returns the weighted share of ids present, and how many of the
// present ones carry direct evidence. An empty set is fully covered.
func coverage(role catalog.Role, ids []string, present map[string]mapper.ResolvedSkill) (float64, int) {
	if len(ids) == 0 {
		return 1, 0
	}
	var total, matched float64
	evidenced := 0
	for _, id := range ids {
		w := role.Weight(id)
		total += w
		r, ok := present[id]
		if !ok {
			continue
		}
		matched += w
		if !r.Inferred() {
			evidenced++
		}
	}
	if total == 0 {
		return 1, evidenced
	}
	return matched / total, evidenced
}
