package scoring

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"skillgap-backend/internal/catalog"
	"skillgap-backend/internal/engine/mapper"
	"skillgap-backend/internal/engine/textnorm"
)

func direct(id string, conf float64) mapper.ResolvedSkill {
	return mapper.ResolvedSkill{SkillID: id, Confidence: conf, Evidence: []textnorm.Span{{Start: 0, End: 1}}}
}

func TestLabelBoundaries(t *testing.T) {
	cases := map[int]string{100: LabelExcellent, 80: LabelExcellent, 79: LabelGood, 60: LabelGood, 59: LabelFair, 40: LabelFair, 39: LabelLow, 0: LabelLow}
	for score, want := range cases {
		assert.Equal(t, want, Label(score), score)
	}
}

func TestScoreScenarioTwoOfThreeRequired(t *testing.T) {
	s := New(DefaultOptions())
	role := catalog.Role{ID: "DA", Title: "Data Analyst", Required: []string{"python", "sql", "pandas"}, NiceToHave: []string{"git"}}
	present := s.Present(mapper.Profile{direct("python", 0.95), direct("sql", 0.95), direct("communication", 0.95)})

	got := s.Score(role, present)
	assert.InDelta(t, 2.0/3.0, got.RequiredCoverage, 1e-9)
	assert.Equal(t, 0.0, got.NiceCoverage)
	assert.Equal(t, 50, got.Score)
	assert.Equal(t, LabelFair, got.Suitability)
}

func TestScoreEmptyRequiredIsFullyCovered(t *testing.T) {
	s := New(DefaultOptions())
	got := s.Score(catalog.Role{ID: "X", Title: "X"}, nil)
	assert.Equal(t, 1.0, got.RequiredCoverage)
	assert.Equal(t, 1.0, got.NiceCoverage)
	assert.Equal(t, 95, got.Score)
}

func TestScorePerfectProfileReachesHundred(t *testing.T) {
	s := New(DefaultOptions())
	role := catalog.Role{ID: "BE", Title: "Backend", Required: []string{"go", "sql"}, NiceToHave: []string{"docker"}}
	present := s.Present(mapper.Profile{direct("go", 1), direct("sql", 1), direct("docker", 1)})
	assert.Equal(t, 100, s.Score(role, present).Score)
}

func TestScoreWithoutNiceIsFullyCovered(t *testing.T) {
	s := New(DefaultOptions())
	role := catalog.Role{ID: "BE", Title: "Backend", Required: []string{"go", "sql"}}

	empty := s.Score(role, nil)
	assert.Equal(t, 0.0, empty.RequiredCoverage)
	assert.Equal(t, 1.0, empty.NiceCoverage)
	assert.Equal(t, 25, empty.Score)
	assert.Equal(t, LabelLow, empty.Suitability)

	full := s.Score(role, s.Present(mapper.Profile{direct("go", 1), direct("sql", 1)}))
	assert.Equal(t, 100, full.Score)
}

func TestScoreIsMonotonicInRequiredSkills(t *testing.T) {
	s := New(DefaultOptions())
	role := catalog.Role{
		ID: "ML", Title: "ML Engineer",
		Required:   []string{"python", "pytorch", "mlops", "sql"},
		NiceToHave: []string{"kubernetes"},
		Weights:    map[string]float64{"python": 3, "pytorch": 2},
	}
	var profile mapper.Profile
	prev := s.Score(role, s.Present(profile))
	for _, id := range role.Required {
		profile = append(profile, direct(id, 0.9))
		cur := s.Score(role, s.Present(profile))
		assert.GreaterOrEqual(t, cur.Score, prev.Score, id)
		assert.GreaterOrEqual(t, cur.RequiredCoverage, prev.RequiredCoverage, id)
		prev = cur
	}
	assert.Equal(t, 1.0, prev.RequiredCoverage)
}

func TestScoreWeightsAndPresence(t *testing.T) {
	s := New(DefaultOptions())
	role := catalog.Role{ID: "R", Title: "R", Required: []string{"a", "b", "c", "d"}, Weights: map[string]float64{"a": 3}}

	got := s.Score(role, s.Present(mapper.Profile{direct("a", 0.9), direct("b", 0.29)}))
	assert.InDelta(t, 0.5, got.RequiredCoverage, 1e-9)

	inferred := mapper.ResolvedSkill{SkillID: "d", Confidence: 0.3}
	withInferred := s.Score(role, s.Present(mapper.Profile{direct("a", 0.9), direct("b", 0.9), direct("c", 0.9), inferred}))
	assert.InDelta(t, 1.0, withInferred.RequiredCoverage, 1e-9)
	assert.Equal(t, 99, withInferred.Score, "inferred skill earns coverage but no evidence bonus")
}

func TestScoreAllOrderIndependent(t *testing.T) {
	snap, err := catalog.NewSnapshot(catalog.Document{
		Skills: []catalog.Skill{{ID: "go", Name: "Go"}, {ID: "sql", Name: "SQL"}, {ID: "react", Name: "React"}},
		Roles: []catalog.Role{
			{ID: "FE", Title: "Frontend", Required: []string{"react"}},
			{ID: "BE", Title: "Backend", Required: []string{"go", "sql"}},
			{ID: "DBA", Title: "DBA", Required: []string{"sql"}},
		},
	})
	require.NoError(t, err)
	profile := mapper.Profile{direct("sql", 0.9), direct("go", 0.8)}

	first, err := New(Options{PresenceThreshold: 0.3, RequiredWeight: 0.7, NiceWeight: 0.25, EvidenceBonusMax: 0.05, Parallelism: 1}).ScoreAll(context.Background(), snap, profile)
	require.NoError(t, err)
	second, err := New(Options{PresenceThreshold: 0.3, RequiredWeight: 0.7, NiceWeight: 0.25, EvidenceBonusMax: 0.05, Parallelism: 8}).ScoreAll(context.Background(), snap, profile)
	require.NoError(t, err)

	assert.Equal(t, first, second)
	require.Len(t, first, 3)
	assert.Equal(t, []string{"BE", "DBA", "FE"}, []string{first[0].RoleID, first[1].RoleID, first[2].RoleID})
	assert.Equal(t, 100, first[0].Score)
	assert.Equal(t, 25, first[2].Score)
}

func TestScoreAllHonoursCancellation(t *testing.T) {
	snap, err := catalog.NewSnapshot(catalog.Document{
		Skills: []catalog.Skill{{ID: "go", Name: "Go"}},
		Roles:  []catalog.Role{{ID: "BE", Title: "Backend", Required: []string{"go"}}},
	})
	require.NoError(t, err)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = New(DefaultOptions()).ScoreAll(ctx, snap, nil)
	assert.ErrorIs(t, err, context.Canceled)
}
