package engine

import (
	"math"

	"skillgap-backend/internal/engine/critique"
	"skillgap-backend/internal/engine/mapper"
	"skillgap-backend/internal/engine/recommend"
	"skillgap-backend/internal/engine/scoring"
	"skillgap-backend/internal/engine/textnorm"
)

// Result is the analysis record returned to clients.
type Result struct {
	ResumeID             string            `json:"resume_id,omitempty"`
	CatalogVersion       string            `json:"catalog_version"`
	ModelVersion         string            `json:"model_ver"`
	SelectedRole         *RoleScore        `json:"selected_role"`
	Skills               []Skill           `json:"skills"`
	Gaps                 []Gap             `json:"gaps"`
	OtherRecommendations []RoleScore       `json:"other_recommendations"`
	NoGoodMatch          bool              `json:"no_good_match"`
	Critique             critique.Critique `json:"critique"`
	TextPreview          string            `json:"text_preview"`
}

type RoleScore struct {
	RoleID           string  `json:"role_id"`
	Title            string  `json:"title"`
	Score            int     `json:"score"`
	Suitability      string  `json:"suitability"`
	RequiredCoverage float64 `json:"required_coverage"`
	NiceCoverage     float64 `json:"nice_coverage"`
}

// Skill is a resolved skill. EvidenceOffsets are [start, end) character
// offsets into the normalised text.
type Skill struct {
	SkillID         string   `json:"skill_id"`
	Skill           string   `json:"skill"`
	Score           float64  `json:"score"`
	EvidenceOffsets [][2]int `json:"evidence_offsets"`
	AliasesMatched  []string `json:"aliases_matched"`
	Inferred        bool     `json:"inferred"`
}

type Gap struct {
	SkillID  string `json:"skill_id"`
	Skill    string `json:"skill"`
	Priority int    `json:"priority"`
	Required bool   `json:"required"`
}

func toRoleScore(rs scoring.RoleScore) RoleScore {
	return RoleScore{
		RoleID:           rs.RoleID,
		Title:            rs.Title,
		Score:            rs.Score,
		Suitability:      rs.Suitability,
		RequiredCoverage: round(rs.RequiredCoverage, 3),
		NiceCoverage:     round(rs.NiceCoverage, 3),
	}
}

func toSkills(doc textnorm.Document, profile mapper.Profile) []Skill {
	out := make([]Skill, 0, len(profile))
	for _, r := range profile {
		s := Skill{
			SkillID:         r.SkillID,
			Skill:           r.Name,
			Score:           round(r.Confidence, 3),
			EvidenceOffsets: [][2]int{},
			AliasesMatched:  []string{},
			Inferred:        r.Inferred(),
		}
		seen := make(map[string]struct{})
		for _, span := range r.Evidence {
			s.EvidenceOffsets = append(s.EvidenceOffsets, [2]int{doc.RuneOffset(span.Start), doc.RuneOffset(span.End)})
			surface := doc.Slice(span)
			if _, ok := seen[surface]; ok {
				continue
			}
			seen[surface] = struct{}{}
			s.AliasesMatched = append(s.AliasesMatched, surface)
		}
		out = append(out, s)
	}
	return out
}

func toGaps(gaps []recommend.Gap) []Gap {
	out := make([]Gap, 0, len(gaps))
	for _, g := range gaps {
		out = append(out, Gap{SkillID: g.SkillID, Skill: g.Name, Priority: g.Priority, Required: g.Required})
	}
	return out
}

func round(v float64, places int) float64 {
	p := math.Pow10(places)
	return math.Round(v*p) / p
}
