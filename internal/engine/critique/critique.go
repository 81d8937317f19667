// Package critique renders the deterministic summary and advice bullets of
// an analysis.
package critique

import (
	"fmt"
	"math"

	"skillgap-backend/internal/engine/recommend"
	"skillgap-backend/internal/engine/scoring"
)

const ToneSupportive = "supportive"

// Critique is the human readable part of an analysis.
type Critique struct {
	Summary string   `json:"summary"`
	Bullets []string `json:"bullets"`
	Tone    string   `json:"tone"`
}

// Options are the critique policy constants. RequiredWeight and NiceWeight
// decide which coverage shortfall dominates the summary.
type Options struct {
	MaxBullets     int
	RequiredWeight float64
	NiceWeight     float64
}

func DefaultOptions() Options {
	return Options{MaxBullets: 3, RequiredWeight: 0.70, NiceWeight: 0.25}
}

type Generator struct {
	opts Options
}

func New(opts Options) *Generator {
	return &Generator{opts: opts}
}

// Generate renders the critique for an outcome. Equal outcomes always yield
// equal text.
func (g *Generator) Generate(out recommend.Outcome) Critique {
	c := Critique{Tone: ToneSupportive, Bullets: []string{}}
	if out.Selected == nil {
		c.Summary = "No role could be matched against this resume."
	} else {
		c.Summary = fmt.Sprintf("Match to '%s' is %d%% (%s). %s",
			out.Selected.Title, out.Selected.Score, out.Selected.Suitability, g.dominantGap(*out.Selected))
	}

	if len(out.Gaps) > 0 {
		c.Bullets = append(c.Bullets, gapBullet(out.Gaps[0]))
	}
	if len(out.Alternatives) > 0 {
		c.Bullets = append(c.Bullets, alternativeBullet(out.Alternatives[0], out.NoGoodMatch))
	}
	if g.opts.MaxBullets >= 0 && len(c.Bullets) > g.opts.MaxBullets {
		c.Bullets = c.Bullets[:g.opts.MaxBullets]
	}
	return c
}

func (g *Generator) dominantGap(rs scoring.RoleScore) string {
	reqShort := g.opts.RequiredWeight * (1 - rs.RequiredCoverage)
	niceShort := g.opts.NiceWeight * (1 - rs.NiceCoverage)
	switch {
	case reqShort <= 0 && niceShort <= 0:
		return "All required and nice-to-have skills are covered."
	case reqShort >= niceShort:
		return fmt.Sprintf("The main gap is in required skills (%d%% covered).", percent(rs.RequiredCoverage))
	case rs.RequiredCoverage >= 1:
		return fmt.Sprintf("Required skills are in place; the main gap is in nice-to-have skills (%d%% covered).", percent(rs.NiceCoverage))
	default:
		return fmt.Sprintf("The larger gap is in nice-to-have skills (%d%% covered); required skills are %d%% covered.",
			percent(rs.NiceCoverage), percent(rs.RequiredCoverage))
	}
}

// alternativeBullet points at the top alternative role. Without a good match
// it doubles as the upskilling nudge.
func alternativeBullet(alt scoring.RoleScore, noGoodMatch bool) string {
	if noGoodMatch {
		return fmt.Sprintf("No strong match yet: '%s' is the closest role at %d%% (%s); build up its core skills.", alt.Title, alt.Score, alt.Suitability)
	}
	return fmt.Sprintf("Also consider '%s': %d%% (%s).", alt.Title, alt.Score, alt.Suitability)
}

func gapBullet(gap recommend.Gap) string {
	if gap.Required {
		return fmt.Sprintf("Most urgent gap: %s. Add projects or experience that show it.", gap.Name)
	}
	return fmt.Sprintf("To stand out, add %s to your profile.", gap.Name)
}

func percent(v float64) int {
	return int(math.Round(100 * v))
}
