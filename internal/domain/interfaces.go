package domain

import "context"

// Embedder maps text to a fixed-length vector.
// The same embedder must be used to build an index and to query it.
type Embedder interface {
	Identity() EmbeddingIdentity
	Embed(ctx context.Context, text string) ([]float64, error)
}

// BatchEmbedder is implemented by embedders that can embed several texts per call.
type BatchEmbedder interface {
	Embedder
	EmbedBatch(ctx context.Context, texts []string) ([][]float64, error)
}

// Judge renders a free-text compliance judgment for a prompt.
type Judge interface {
	Judge(ctx context.Context, prompt string) (string, error)
}

// JudgeFunc adapts a function to the Judge interface.
type JudgeFunc func(ctx context.Context, prompt string) (string, error)

// Judge calls f(ctx, prompt).
func (f JudgeFunc) Judge(ctx context.Context, prompt string) (string, error) {
	return f(ctx, prompt)
}
