package extractor

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"skillgap-backend/internal/engine/textnorm"
)

type setLexicon map[string]struct{}

func lexicon(terms ...string) setLexicon {
	out := setLexicon{}
	for _, t := range terms {
		out[textnorm.Fold(t)] = struct{}{}
	}
	return out
}

func (s setLexicon) Contains(folded string) bool {
	_, ok := s[folded]
	return ok
}

func extract(t *testing.T, text string, lex Lexicon) []Mention {
	t.Helper()
	n, err := textnorm.New(nil)
	require.NoError(t, err)
	doc := n.Normalize(text)
	out, err := New(Options{}).Extract(context.Background(), doc, lex)
	require.NoError(t, err)
	for _, m := range out {
		require.Equal(t, m.Surface, doc.Text[m.Start:m.End])
		require.GreaterOrEqual(t, m.Confidence, 0.5)
		require.LessOrEqual(t, m.Confidence, 1.0)
	}
	return out
}

func surfaces(ms []Mention) []string {
	var out []string
	for _, m := range ms {
		out = append(out, m.Surface)
	}
	return out
}

func TestExtractSkillsLine(t *testing.T) {
	out := extract(t, "Skills: Python, SQL, Communication", lexicon("Python", "SQL"))
	assert.Equal(t, []string{"Python", "SQL", "Communication"}, surfaces(out))
	assert.Equal(t, confLexiconSection, out[0].Confidence)
	assert.Equal(t, confListItem, out[2].Confidence)
}

func TestExtractSectionUnderHeading(t *testing.T) {
	text := "TECHNICAL SKILLS\nJS | Docker\nEXPERIENCE\nBuilt dashboards for sales teams"
	out := extract(t, text, lexicon("Docker"))
	assert.Equal(t, []string{"JS", "Docker"}, surfaces(out))
}

func TestExtractLongestLexiconMatch(t *testing.T) {
	out := extract(t, "Worked on Machine Learning pipelines with scikit-learn and Node.js", lexicon("Machine Learning", "Learning", "scikit-learn", "Node.js"))
	assert.Equal(t, []string{"Machine Learning", "scikit-learn", "Node.js"}, surfaces(out))
}

func TestExtractTechShapedProse(t *testing.T) {
	out := extract(t, "Deployed services on AWS with C++ and k8s in 2021 using v2 APIs", nil)
	assert.Equal(t, []string{"AWS", "C++", "k8s", "APIs"}, surfaces(out))
	for _, m := range out {
		assert.Equal(t, confShape, m.Confidence)
	}
}

func TestExtractShortTermsNeedCapitalInProse(t *testing.T) {
	out := extract(t, "I go to work daily. Wrote Go services.", lexicon("Go"))
	require.Len(t, out, 1)
	assert.Equal(t, "Go", out[0].Surface)
}

func TestExtractSlashSeparatedItems(t *testing.T) {
	out := extract(t, "Skills: Java / Kotlin, CI/CD, Terraform/ Ansible", lexicon("Java", "Kotlin", "CI/CD", "Terraform", "Ansible"))
	assert.Equal(t, []string{"Java", "Kotlin", "CI/CD", "Terraform", "Ansible"}, surfaces(out))
	for _, m := range out {
		assert.Equal(t, confLexiconSection, m.Confidence)
	}
}

func TestExtractProseStaysWithinSentence(t *testing.T) {
	out := extract(t, "Shipped the Spring. Boot camp mentor for juniors.", lexicon("Spring Boot"))
	assert.Empty(t, out)

	out = extract(t, "Shipped services with Spring Boot.", lexicon("Spring Boot"))
	assert.Equal(t, []string{"Spring Boot"}, surfaces(out))
}

func TestExtractSkipsPII(t *testing.T) {
	out := extract(t, "Email: Python@mail.io\nSkills: Python", lexicon("Python"))
	require.Len(t, out, 1)
	assert.Equal(t, "Python", out[0].Surface)
}

func TestExtractFiltersStopwordsAndVersions(t *testing.T) {
	out := extract(t, "Skills: experience, 3.11, 2020, a, Rust", nil)
	assert.Equal(t, []string{"Rust"}, surfaces(out))
}

func TestExtractEmptyDocument(t *testing.T) {
	out, err := New(Options{}).Extract(context.Background(), textnorm.Document{}, nil)
	require.NoError(t, err)
	assert.Empty(t, out)
}

func TestExtractHonoursCancellation(t *testing.T) {
	n, _ := textnorm.New(nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := New(Options{}).Extract(ctx, n.Normalize("Skills: Go"), nil)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestMergeMentionsKeepsMaxConfidence(t *testing.T) {
	out := mergeMentions([]Mention{
		{Surface: "SQL", Start: 0, End: 3, Confidence: 0.6},
		{Surface: "sql", Start: 1, End: 4, Confidence: 0.9},
		{Surface: "SQL", Start: 10, End: 13, Confidence: 0.7},
		{Surface: "Go", Start: 20, End: 22, Confidence: 0.2},
	}, 0.5)
	require.Len(t, out, 2)
	assert.Equal(t, Mention{Surface: "SQL", Start: 0, End: 4, Confidence: 0.9}, out[0])
	assert.Equal(t, 10, out[1].Start)
}
