package critique

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"skillgap-backend/internal/engine/recommend"
	"skillgap-backend/internal/engine/scoring"
)

func TestGenerateSelectedWithRequiredGap(t *testing.T) {
	out := recommend.Outcome{
		Selected: &scoring.RoleScore{RoleID: "DA", Title: "Data Analyst", Score: 50, Suitability: "Fair", RequiredCoverage: 2.0 / 3.0},
		Gaps:     []recommend.Gap{{SkillID: "pandas", Name: "Pandas", Required: true}},
		Alternatives: []scoring.RoleScore{
			{RoleID: "DS", Title: "Data Scientist", Score: 31, Suitability: "Low"},
		},
	}
	c := New(DefaultOptions()).Generate(out)

	assert.Equal(t, "Match to 'Data Analyst' is 50% (Fair). The main gap is in required skills (67% covered).", c.Summary)
	assert.Equal(t, []string{
		"Most urgent gap: Pandas. Add projects or experience that show it.",
		"Also consider 'Data Scientist': 31% (Low).",
	}, c.Bullets)
	assert.Equal(t, ToneSupportive, c.Tone)
}

func TestGenerateNiceGapDominates(t *testing.T) {
	out := recommend.Outcome{
		Selected: &scoring.RoleScore{Title: "Backend", Score: 80, Suitability: "Excellent", RequiredCoverage: 1, NiceCoverage: 0.5},
		Gaps:     []recommend.Gap{{SkillID: "docker", Name: "Docker"}},
	}
	c := New(DefaultOptions()).Generate(out)
	assert.Contains(t, c.Summary, "nice-to-have skills (50% covered)")
	assert.Equal(t, []string{"To stand out, add Docker to your profile."}, c.Bullets)

	out.Selected.NiceCoverage = 1
	out.Gaps = nil
	c = New(DefaultOptions()).Generate(out)
	assert.Contains(t, c.Summary, "All required and nice-to-have skills are covered.")
	assert.Empty(t, c.Bullets)
}

func TestGenerateNiceGapWithRequiredOutstanding(t *testing.T) {
	out := recommend.Outcome{
		Selected: &scoring.RoleScore{Title: "Backend", Score: 70, Suitability: "Good", RequiredCoverage: 0.9, NiceCoverage: 0},
		Gaps:     []recommend.Gap{{SkillID: "kubernetes", Name: "Kubernetes", Required: true}},
	}
	c := New(DefaultOptions()).Generate(out)

	assert.Equal(t, "Match to 'Backend' is 70% (Good). The larger gap is in nice-to-have skills (0% covered); required skills are 90% covered.", c.Summary)
	assert.NotContains(t, c.Summary, "in place")
	assert.Equal(t, []string{"Most urgent gap: Kubernetes. Add projects or experience that show it."}, c.Bullets)
}

func TestGenerateNoSelection(t *testing.T) {
	out := recommend.Outcome{
		NoGoodMatch:  true,
		Alternatives: []scoring.RoleScore{{Title: "Backend", Score: 25, Suitability: "Low"}},
	}
	c := New(DefaultOptions()).Generate(out)
	assert.Equal(t, "No role could be matched against this resume.", c.Summary)
	assert.Equal(t, []string{"No strong match yet: 'Backend' is the closest role at 25% (Low); build up its core skills."}, c.Bullets)

	empty := New(DefaultOptions()).Generate(recommend.Outcome{NoGoodMatch: true})
	assert.Empty(t, empty.Bullets)
}

func TestGenerateCapsBulletsAndIsDeterministic(t *testing.T) {
	out := recommend.Outcome{
		Selected:     &scoring.RoleScore{Title: "X", Score: 10, Suitability: "Low"},
		Gaps:         []recommend.Gap{{Name: "Go", Required: true}},
		Alternatives: []scoring.RoleScore{{Title: "Y", Score: 5, Suitability: "Low"}},
		NoGoodMatch:  true,
	}
	g := New(Options{MaxBullets: 1, RequiredWeight: 0.7, NiceWeight: 0.25})
	first := g.Generate(out)
	assert.Equal(t, []string{"Most urgent gap: Go. Add projects or experience that show it."}, first.Bullets)
	assert.Equal(t, first, g.Generate(out))
}
