package embedding

import (
	"context"
	"errors"
	"fmt"

	"google.golang.org/genai"
)

const geminiBatchSize = 100

// Gemini embeds texts with the Gemini embedding API.
type Gemini struct {
	client *genai.Client
	model  string
	dims   int
}

// NewGemini creates a Gemini embedder. dims is requested as the output
// dimensionality so vectors line up with stored catalog embeddings.
func NewGemini(ctx context.Context, apiKey, model string, dims int) (*Gemini, error) {
	if apiKey == "" {
		return nil, errors.New("gemini api key is empty")
	}
	if model == "" {
		model = "text-embedding-004"
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("create genai client: %w", err)
	}
	return &Gemini{client: client, model: model, dims: dims}, nil
}

func (g *Gemini) Name() string    { return "gemini:" + g.model }
func (g *Gemini) Dimensions() int { return g.dims }

func (g *Gemini) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, 0, len(texts))
	for start := 0; start < len(texts); start += geminiBatchSize {
		end := min(start+geminiBatchSize, len(texts))
		var contents []*genai.Content
		for _, t := range texts[start:end] {
			contents = append(contents, genai.Text(t)...)
		}
		cfg := &genai.EmbedContentConfig{TaskType: "SEMANTIC_SIMILARITY"}
		if g.dims > 0 {
			d := int32(g.dims)
			cfg.OutputDimensionality = &d
		}
		resp, err := g.client.Models.EmbedContent(ctx, g.model, contents, cfg)
		if err != nil {
			return nil, fmt.Errorf("embed content: %w", err)
		}
		if resp == nil || len(resp.Embeddings) != end-start {
			return nil, fmt.Errorf("embed content: expected %d embeddings", end-start)
		}
		for _, e := range resp.Embeddings {
			if g.dims > 0 && len(e.Values) != g.dims {
				return nil, ErrDimensionMismatch
			}
			out = append(out, Normalize(append([]float32(nil), e.Values...)))
		}
	}
	return out, nil
}
