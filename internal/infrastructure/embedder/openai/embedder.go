// Package openai adapts the OpenAI embeddings API to the Embedder port.
package openai

import (
	"context"
	"errors"
	"fmt"

	"github.com/sashabaranov/go-openai"

	"github.com/ersonp/canon-core/internal/infrastructure/config"
)

// maxInputsPerRequest caps how many texts go into one embeddings call.
// Entities rarely carry more claims than this; rebuilds can.
const maxInputsPerRequest = 256

// modelDims maps the accepted embedding models to their vector width. The
// claim mirror needs the width up front to create its collection, before
// any embedding has been made.
var modelDims = map[openai.EmbeddingModel]uint64{
	openai.SmallEmbedding3: 1536,
	openai.LargeEmbedding3: 3072,
	openai.AdaEmbeddingV2:  1536,
}

// Embedder turns claim text into vectors for the claim mirror.
type Embedder struct {
	client *openai.Client
	model  openai.EmbeddingModel
	dims   uint64
}

// NewEmbedder builds an embedder from config. The model must be one with a
// known vector width; an unknown model would poison the mirror collection.
func NewEmbedder(cfg config.EmbedderConfig) (*Embedder, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("embedder API key is not configured")
	}

	model := openai.SmallEmbedding3
	if cfg.Model != "" {
		model = openai.EmbeddingModel(cfg.Model)
	}
	dims, ok := modelDims[model]
	if !ok {
		return nil, fmt.Errorf("unsupported embedding model %q", cfg.Model)
	}

	return &Embedder{
		client: openai.NewClient(cfg.APIKey),
		model:  model,
		dims:   dims,
	}, nil
}

// VectorSize returns the width of the vectors this embedder produces.
func (e *Embedder) VectorSize() uint64 {
	return e.dims
}

// Embed generates a vector embedding for one text.
func (e *Embedder) Embed(ctx context.Context, text string) ([]float32, error) {
	vectors, err := e.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	if len(vectors) != 1 {
		return nil, fmt.Errorf("expected 1 embedding, got %d", len(vectors))
	}
	return vectors[0], nil
}

// EmbedBatch generates embeddings for multiple texts, chunking the input so
// a full mirror rebuild never exceeds the per-request limit.
func (e *Embedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	vectors := make([][]float32, 0, len(texts))
	for start := 0; start < len(texts); start += maxInputsPerRequest {
		end := start + maxInputsPerRequest
		if end > len(texts) {
			end = len(texts)
		}

		resp, err := e.client.CreateEmbeddings(ctx, openai.EmbeddingRequest{
			Model: e.model,
			Input: texts[start:end],
		})
		if err != nil {
			return nil, fmt.Errorf("creating embeddings: %w", err)
		}
		if len(resp.Data) != end-start {
			return nil, fmt.Errorf("expected %d embeddings, got %d", end-start, len(resp.Data))
		}
		for _, data := range resp.Data {
			vectors = append(vectors, data.Embedding)
		}
	}
	return vectors, nil
}
