package engine

import (
	"time"

	"skillgap-backend/internal/engine/critique"
	"skillgap-backend/internal/engine/mapper"
	"skillgap-backend/internal/engine/recommend"
	"skillgap-backend/internal/engine/scoring"
	"skillgap-backend/internal/shared/config"
)

// Policy gathers the tunable constants of every stage.
type Policy struct {
	Mapper    mapper.Options
	Scoring   scoring.Options
	Recommend recommend.Options
	Critique  critique.Options

	ProfileLimit  int
	PreviewLength int
	Timeout       time.Duration
}

// DefaultPolicy returns the stock thresholds and weights.
func DefaultPolicy() Policy {
	return Policy{
		Mapper:        mapper.DefaultOptions(),
		Scoring:       scoring.DefaultOptions(),
		Recommend:     recommend.DefaultOptions(),
		Critique:      critique.DefaultOptions(),
		ProfileLimit:  25,
		PreviewLength: 1200,
		Timeout:       10 * time.Second,
	}
}

// PolicyFromConfig maps the engine section of the configuration. Zero values
// keep the defaults, except max_inferred where zero turns inference off.
func PolicyFromConfig(c config.Engine) Policy {
	p := DefaultPolicy()
	setF := func(dst *float64, v float64) {
		if v > 0 {
			*dst = v
		}
	}
	setI := func(dst *int, v int) {
		if v > 0 {
			*dst = v
		}
	}

	setF(&p.Mapper.MappingThreshold, c.MappingThreshold)
	setF(&p.Mapper.NearMatchScore, c.NearMatchScore)
	setF(&p.Mapper.AliasConfidentThreshold, c.AliasConfidentThreshold)
	setF(&p.Mapper.InferredThreshold, c.InferredThreshold)
	setF(&p.Mapper.InferredDiscount, c.InferredDiscount)
	setF(&p.Mapper.InferredCap, c.InferredCap)
	if c.MaxInferred >= 0 {
		p.Mapper.MaxInferred = c.MaxInferred
	}

	setF(&p.Scoring.PresenceThreshold, c.PresenceThreshold)
	setF(&p.Scoring.RequiredWeight, c.RequiredWeight)
	setF(&p.Scoring.NiceWeight, c.NiceWeight)
	setF(&p.Scoring.EvidenceBonusMax, c.EvidenceBonusMax)
	setI(&p.Scoring.Parallelism, c.ScoringParallelism)

	setI(&p.Recommend.LowMatchThreshold, c.LowMatchThreshold)
	setI(&p.Recommend.TopK, c.TopK)

	setI(&p.Critique.MaxBullets, c.MaxBullets)
	p.Critique.RequiredWeight = p.Scoring.RequiredWeight
	p.Critique.NiceWeight = p.Scoring.NiceWeight

	setI(&p.ProfileLimit, c.ProfileLimit)
	setI(&p.PreviewLength, c.PreviewLength)
	if c.Timeout > 0 {
		p.Timeout = c.Timeout
	}
	return p
}
