// Package engine runs the skill-gap analysis pipeline: normalise, extract,
// map onto the catalog, score every role, recommend and critique.
package engine

import (
	"context"
	"errors"
	"time"

	"skillgap-backend/internal/catalog"
	"skillgap-backend/internal/engine/critique"
	"skillgap-backend/internal/engine/embedding"
	"skillgap-backend/internal/engine/mapper"
	"skillgap-backend/internal/engine/recommend"
	"skillgap-backend/internal/engine/scoring"
	"skillgap-backend/internal/shared/metrics"
	"skillgap-backend/internal/shared/telemetry"
)

// Catalogs yields the catalog snapshot to analyse against.
type Catalogs interface {
	Current() *catalog.Snapshot
}

// Request is a single analysis. An empty RoleID asks for the best match.
type Request struct {
	Text   string
	RoleID string
}

// Engine is safe for concurrent use and keeps no per-request state.
type Engine struct {
	catalogs Catalogs
	models   *ModelProvider
	policy   Policy

	mapper      *mapper.Mapper
	scorer      *scoring.Scorer
	recommender *recommend.Recommender
	critic      *critique.Generator
}

func New(catalogs Catalogs, models *ModelProvider, policy Policy) *Engine {
	return &Engine{
		catalogs:    catalogs,
		models:      models,
		policy:      policy,
		mapper:      mapper.New(policy.Mapper),
		scorer:      scoring.New(policy.Scoring),
		recommender: recommend.New(policy.Recommend),
		critic:      critique.New(policy.Critique),
	}
}

// Analyze runs the pipeline. It returns either a complete result or an
// *Error; a deadline hit in any stage yields a retryable timeout error.
func (e *Engine) Analyze(ctx context.Context, req Request) (*Result, error) {
	start := time.Now()
	metrics.IncAnalysisStarted()

	model, err := e.models.Get()
	if err != nil {
		metrics.IncAnalysisFailed()
		return nil, errModelUnavailable(err)
	}
	snap := e.catalogs.Current()

	if e.policy.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.policy.Timeout)
		defer cancel()
	}

	res, err := e.run(ctx, model, snap, req)
	metrics.ObserveAnalysisDurationMs(float64(time.Since(start).Milliseconds()))
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			metrics.IncAnalysisTimeout()
			telemetry.Warn("analysis.timeout", map[string]any{
				"role_id":     req.RoleID,
				"duration_ms": time.Since(start).Milliseconds(),
			})
			return nil, errTimeout(err)
		}
		metrics.IncAnalysisFailed()
		if errors.Is(err, context.Canceled) {
			return nil, err
		}
		var engineErr *Error
		if errors.As(err, &engineErr) {
			return nil, err
		}
		return nil, errInternal(err)
	}

	metrics.IncAnalysisCompleted()
	if res.NoGoodMatch {
		metrics.IncNoGoodMatch()
	}
	return res, nil
}

func (e *Engine) run(ctx context.Context, model *Model, snap *catalog.Snapshot, req Request) (*Result, error) {
	doc := model.Normalizer.Normalize(req.Text)

	mentions, err := model.Extractor.Extract(ctx, doc, snap)
	if err != nil {
		return nil, err
	}

	// Vectors from another embedder are not comparable; fall back to aliases.
	var emb embedding.Embedder = model.Embedder
	if snap.EmbeddedBy != model.Embedder.Name() {
		emb = nil
	}
	profile, err := e.mapper.Map(ctx, mentions, snap, emb)
	if err != nil {
		return nil, err
	}

	scores, err := e.scorer.ScoreAll(ctx, snap, profile)
	if err != nil {
		return nil, err
	}
	outcome := e.recommender.Recommend(snap, scores, e.scorer.Present(profile), req.RoleID, !doc.Empty())
	crit := e.critic.Generate(outcome)

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	res := &Result{
		CatalogVersion:       snap.Version,
		ModelVersion:         model.Version,
		Skills:               toSkills(doc, profile.Top(e.policy.ProfileLimit)),
		Gaps:                 toGaps(outcome.Gaps),
		OtherRecommendations: make([]RoleScore, 0, len(outcome.Alternatives)),
		NoGoodMatch:          outcome.NoGoodMatch,
		Critique:             crit,
		TextPreview:          model.Normalizer.Preview(doc, e.policy.PreviewLength),
	}
	if outcome.Selected != nil {
		sel := toRoleScore(*outcome.Selected)
		res.SelectedRole = &sel
	}
	for _, alt := range outcome.Alternatives {
		res.OtherRecommendations = append(res.OtherRecommendations, toRoleScore(alt))
	}
	return res, nil
}

// Roles lists the roles of the current catalog ordered by title.
func (e *Engine) Roles() []catalog.RoleSummary {
	return e.catalogs.Current().RoleSummaries()
}

// ModelStatus reports the model state.
func (e *Engine) ModelStatus() ModelStatus {
	return e.models.Status()
}
