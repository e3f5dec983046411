package mocks

import "context"

// Embedder is a mock implementation of ports.Embedder. It returns a fixed
// small vector per text.
type Embedder struct {
	Err   error
	Calls int
}

// NewEmbedder creates a new mock Embedder.
func NewEmbedder() *Embedder {
	return &Embedder{}
}

// Embed generates a vector embedding for the given text.
func (m *Embedder) Embed(_ context.Context, text string) ([]float32, error) {
	if m.Err != nil {
		return nil, m.Err
	}
	m.Calls++
	return []float32{float32(len(text)), 1, 0}, nil
}

// EmbedBatch generates vector embeddings for multiple texts.
func (m *Embedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, 0, len(texts))
	for _, t := range texts {
		v, err := m.Embed(ctx, t)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}
