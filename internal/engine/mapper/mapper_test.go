package mapper

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"skillgap-backend/internal/catalog"
	"skillgap-backend/internal/engine/embedding"
	"skillgap-backend/internal/engine/extractor"
	"skillgap-backend/internal/engine/textnorm"
)

// stubEmbedder returns fixed vectors by text; unknown texts get the zero vector.
type stubEmbedder map[string][]float32

func (s stubEmbedder) Name() string    { return "stub" }
func (s stubEmbedder) Dimensions() int { return 3 }
func (s stubEmbedder) Embed(_ context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, t := range texts {
		if v, ok := s[t]; ok {
			out[i] = v
			continue
		}
		out[i] = []float32{0, 0, 0}
	}
	return out, nil
}

func snapshot(t *testing.T, emb embedding.Embedder, skills ...catalog.Skill) *catalog.Snapshot {
	t.Helper()
	snap, err := catalog.NewSnapshot(catalog.Document{
		Skills: skills,
		Roles:  []catalog.Role{{ID: "R", Title: "R", Required: []string{skills[0].ID}}},
	})
	require.NoError(t, err)
	if emb != nil {
		snap, err = snap.WithEmbeddings(context.Background(), emb)
		require.NoError(t, err)
	}
	return snap
}

func mention(surface string, start int, conf float64) extractor.Mention {
	return extractor.Mention{Surface: surface, Start: start, End: start + len(surface), Confidence: conf}
}

func TestMapAcronymResolvesToCatalogSkill(t *testing.T) {
	snap := snapshot(t, embedding.NewHashed(64),
		catalog.Skill{ID: "javascript", Name: "JavaScript"},
		catalog.Skill{ID: "java", Name: "Java"},
	)
	profile, err := New(DefaultOptions()).Map(context.Background(), []extractor.Mention{mention("JS", 8, 0.7)}, snap, embedding.NewHashed(64))
	require.NoError(t, err)

	r, ok := profile.Get("javascript")
	require.True(t, ok)
	assert.Equal(t, []textnorm.Span{{Start: 8, End: 10}}, r.Evidence)
	assert.InDelta(t, 0.63, r.Confidence, 1e-9)
	assert.False(t, r.Inferred())
	_, hasJava := profile.Get("java")
	assert.False(t, hasJava)
}

func TestMapMergesMentionsOfSameSkill(t *testing.T) {
	snap := snapshot(t, nil,
		catalog.Skill{ID: "python", Name: "Python", Aliases: []string{"py"}},
		catalog.Skill{ID: "sql", Name: "SQL"},
	)
	mentions := []extractor.Mention{
		mention("Python", 0, 0.9),
		mention("py", 20, 0.95),
		mention("SQL", 30, 0.9),
		mention("Python", 2, 0.55),
	}
	profile, err := New(DefaultOptions()).Map(context.Background(), mentions, snap, nil)
	require.NoError(t, err)
	require.Len(t, profile, 2)

	assert.Equal(t, "python", profile[0].SkillID)
	assert.Equal(t, 0.95, profile[0].Confidence)
	assert.Equal(t, []textnorm.Span{{Start: 0, End: 8}, {Start: 20, End: 22}}, profile[0].Evidence)
	assert.Equal(t, "sql", profile[1].SkillID)
}

func TestMapNearMatchVariants(t *testing.T) {
	snap := snapshot(t, nil,
		catalog.Skill{ID: "kubernetes", Name: "Kubernetes"},
		catalog.Skill{ID: "machine_learning", Name: "Machine Learning"},
		catalog.Skill{ID: "postgresql", Name: "PostgreSQL"},
	)
	mentions := []extractor.Mention{
		mention("k8s", 0, 1),
		mention("ML", 10, 1),
		mention("Postgressql", 20, 1),
	}
	profile, err := New(DefaultOptions()).Map(context.Background(), mentions, snap, nil)
	require.NoError(t, err)
	for _, id := range []string{"kubernetes", "machine_learning", "postgresql"} {
		r, ok := profile.Get(id)
		require.True(t, ok, id)
		assert.InDelta(t, 0.9, r.Confidence, 1e-9, id)
	}
}

func TestMapEmbeddingFallbackAndThreshold(t *testing.T) {
	emb := stubEmbedder{
		"Data Visualization": {1, 0, 0},
		"Statistics":         {0, 1, 0},
		"charting":           {0.9, 0.1, 0},
		"cooking":            {0.5, 0.5, 0.7},
	}
	snap := snapshot(t, emb,
		catalog.Skill{ID: "dataviz", Name: "Data Visualization"},
		catalog.Skill{ID: "stats", Name: "Statistics"},
	)
	opts := DefaultOptions()
	opts.MaxInferred = 0
	profile, err := New(opts).Map(context.Background(), []extractor.Mention{
		mention("charting", 0, 0.7),
		mention("cooking", 20, 0.7),
	}, snap, emb)
	require.NoError(t, err)
	require.Len(t, profile, 1)
	assert.Equal(t, "dataviz", profile[0].SkillID)
	assert.Less(t, profile[0].Confidence, 0.7)
}

func TestMapInfersNeighboursWithDiscount(t *testing.T) {
	emb := stubEmbedder{
		"Pandas":  {1, 0, 0},
		"NumPy":   {0.9, 0.1, 0},
		"Cooking": {0, 0, 1},
	}
	snap := snapshot(t, emb,
		catalog.Skill{ID: "pandas", Name: "Pandas"},
		catalog.Skill{ID: "numpy", Name: "NumPy"},
		catalog.Skill{ID: "cooking", Name: "Cooking"},
	)
	profile, err := New(DefaultOptions()).Map(context.Background(), []extractor.Mention{mention("Pandas", 0, 0.9)}, snap, emb)
	require.NoError(t, err)
	require.Len(t, profile, 2)

	assert.Equal(t, "pandas", profile[0].SkillID)
	inferred := profile[1]
	assert.Equal(t, "numpy", inferred.SkillID)
	assert.True(t, inferred.Inferred())
	assert.InDelta(t, 0.45, inferred.Confidence, 1e-9)
	assert.Less(t, inferred.Confidence, profile[0].Confidence)
}

func TestMapEmptyInputs(t *testing.T) {
	m := New(DefaultOptions())
	profile, err := m.Map(context.Background(), []extractor.Mention{mention("Go", 0, 1)}, nil, nil)
	require.NoError(t, err)
	assert.Empty(t, profile)

	snap := snapshot(t, nil, catalog.Skill{ID: "go", Name: "Go"})
	profile, err = m.Map(context.Background(), nil, snap, nil)
	require.NoError(t, err)
	assert.Empty(t, profile)
}

func TestProfileOrderingTieBreaksByID(t *testing.T) {
	p := []ResolvedSkill{{SkillID: "b", Confidence: 0.5}, {SkillID: "a", Confidence: 0.5}, {SkillID: "c", Confidence: 0.9}}
	sortProfile(p)
	assert.Equal(t, []string{"c", "a", "b"}, []string{p[0].SkillID, p[1].SkillID, p[2].SkillID})
}

func TestWithinOneEdit(t *testing.T) {
	cases := []struct {
		a, b string
		want bool
	}{
		{"postgresql", "postgressql", true},
		{"kubernetes", "kubrenetes", true},
		{"terraform", "terrafrom", true},
		{"terraform", "teraform", true},
		{"terraform", "terraform", true},
		{"terraform", "tarrafrom", false},
		{"python", "pythonic", false},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, withinOneEdit(tc.a, tc.b), tc.a+"/"+tc.b)
	}
}
