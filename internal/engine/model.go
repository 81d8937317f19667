package engine

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"skillgap-backend/internal/catalog"
	"skillgap-backend/internal/engine/embedding"
	"skillgap-backend/internal/engine/extractor"
	"skillgap-backend/internal/engine/textnorm"
	"skillgap-backend/internal/shared/config"
	"skillgap-backend/internal/shared/telemetry"
)

const modelRevision = "lexicon-ner+alias+semantic-v1"

// ModelConfig selects the embedder and tunes the text front end.
type ModelConfig struct {
	Embedder       string
	Dimensions     int
	GeminiAPIKey   string
	GeminiModel    string
	ExtractorFloor float64
	PIIPatterns    []string
	CacheSize      int
	LoadTimeout    time.Duration
}

// ModelConfigFromConfig maps application configuration onto ModelConfig.
func ModelConfigFromConfig(cfg config.Config) ModelConfig {
	return ModelConfig{
		Embedder:       cfg.Embedder,
		Dimensions:     cfg.EmbeddingDims,
		GeminiAPIKey:   cfg.GeminiAPIKey,
		GeminiModel:    cfg.GeminiModel,
		ExtractorFloor: cfg.Engine.ExtractorFloor,
		PIIPatterns:    cfg.Engine.PIIPatterns,
	}
}

// Model is the loaded, read-only analysis model shared by all requests.
type Model struct {
	Normalizer *textnorm.Normalizer
	Extractor  *extractor.Extractor
	Embedder   embedding.Embedder
	Version    string
	LoadedAt   time.Time
}

// ModelStatus describes the model for the status endpoint.
type ModelStatus struct {
	State      string    `json:"state"`
	Message    string    `json:"message,omitempty"`
	Version    string    `json:"model_ver,omitempty"`
	Embedder   string    `json:"embedder,omitempty"`
	Dimensions int       `json:"dimensions,omitempty"`
	LoadedAt   time.Time `json:"loaded_at,omitempty"`
}

// ModelProvider loads the model once, on first use. A failed load is
// remembered and reported on every call.
type ModelProvider struct {
	load   func() (*Model, error)
	loaded atomic.Bool
	closed atomic.Bool
}

// NewModelProvider creates a provider that builds the model from cfg.
func NewModelProvider(cfg ModelConfig) *ModelProvider {
	return NewModelProviderFunc(func() (*Model, error) { return buildModel(cfg) })
}

// NewModelProviderFunc wraps a custom loader.
func NewModelProviderFunc(load func() (*Model, error)) *ModelProvider {
	p := &ModelProvider{}
	once := sync.OnceValues(load)
	p.load = func() (*Model, error) {
		m, err := once()
		p.loaded.Store(true)
		return m, err
	}
	return p
}

// Get returns the model, loading it on first call.
func (p *ModelProvider) Get() (*Model, error) {
	if p.closed.Load() {
		return nil, errors.New("model provider closed")
	}
	return p.load()
}

// Status reports the model state without triggering a load.
func (p *ModelProvider) Status() ModelStatus {
	if p.closed.Load() {
		return ModelStatus{State: "closed"}
	}
	if !p.loaded.Load() {
		return ModelStatus{State: "not_loaded"}
	}
	m, err := p.load()
	if err != nil {
		return ModelStatus{State: "failed", Message: err.Error()}
	}
	return ModelStatus{
		State:      "ready",
		Version:    m.Version,
		Embedder:   m.Embedder.Name(),
		Dimensions: m.Embedder.Dimensions(),
		LoadedAt:   m.LoadedAt,
	}
}

// PrepareCatalog attaches embeddings from the model to a catalog snapshot.
// It is meant as the catalog registry's prepare hook.
func (p *ModelProvider) PrepareCatalog(ctx context.Context, s *catalog.Snapshot) (*catalog.Snapshot, error) {
	m, err := p.Get()
	if err != nil {
		return nil, errModelUnavailable(err)
	}
	return s.WithEmbeddings(ctx, m.Embedder)
}

// Close releases the model. Later calls to Get fail.
func (p *ModelProvider) Close() error {
	p.closed.Store(true)
	return nil
}

func buildModel(cfg ModelConfig) (*Model, error) {
	normalizer, err := textnorm.New(cfg.PIIPatterns)
	if err != nil {
		return nil, err
	}

	var emb embedding.Embedder
	switch cfg.Embedder {
	case "gemini":
		timeout := cfg.LoadTimeout
		if timeout <= 0 {
			timeout = 30 * time.Second
		}
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		g, err := embedding.NewGemini(ctx, cfg.GeminiAPIKey, cfg.GeminiModel, cfg.Dimensions)
		if err != nil {
			return nil, fmt.Errorf("load gemini embedder: %w", err)
		}
		emb = g
	case "", "hashed":
		emb = embedding.NewHashed(cfg.Dimensions)
	default:
		return nil, fmt.Errorf("unknown embedder %q", cfg.Embedder)
	}
	size := cfg.CacheSize
	if size <= 0 {
		size = 10000
	}

	m := &Model{
		Normalizer: normalizer,
		Extractor:  extractor.New(extractor.Options{Floor: cfg.ExtractorFloor}),
		Embedder:   embedding.NewCached(emb, size),
		Version:    modelRevision + "+" + emb.Name(),
		LoadedAt:   time.Now().UTC(),
	}
	telemetry.Info("model.loaded", map[string]any{
		"model_ver":  m.Version,
		"embedder":   emb.Name(),
		"dimensions": emb.Dimensions(),
	})
	return m, nil
}
