// Package vectorstore builds, searches and persists the chunk embedding index.
package vectorstore

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"compliance/internal/domain"
	"compliance/internal/vectorstore/memory"
	"compliance/internal/vectorstore/sqlite"
)

// FileName is the index file inside the index directory.
const FileName = "index.db"

// DefaultBatchSize is the number of chunks sent per EmbedBatch call.
const DefaultBatchSize = 32

// BuildOptions tune Build.
type BuildOptions struct {
	BatchSize int
	// Progress, when set, is called after each embedded batch.
	Progress func(done, total int)
}

// Index is a searchable set of embedded chunks pinned to one embedding identity.
// It is read-only after Build or Restore.
type Index struct {
	identity  domain.EmbeddingIdentity
	store     Storage
	createdAt time.Time
}

// Build embeds every chunk and returns an index over them. The build is
// all-or-nothing: any embedding failure yields domain.ErrIndexBuild.
func Build(ctx context.Context, chunks []domain.Chunk, emb domain.Embedder, opts BuildOptions) (*Index, error) {
	if len(chunks) == 0 {
		return nil, fmt.Errorf("%w: no chunks to index", domain.ErrIndexBuild)
	}
	if emb == nil {
		return nil, fmt.Errorf("%w: no embedder", domain.ErrIndexBuild)
	}
	if opts.BatchSize <= 0 {
		opts.BatchSize = DefaultBatchSize
	}

	vectors := make([][]float64, 0, len(chunks))
	batcher, batched := emb.(domain.BatchEmbedder)
	for startIdx := 0; startIdx < len(chunks); startIdx += opts.BatchSize {
		end := min(startIdx+opts.BatchSize, len(chunks))
		if batched {
			texts := make([]string, 0, end-startIdx)
			for _, c := range chunks[startIdx:end] {
				texts = append(texts, c.Text)
			}
			vecs, err := batcher.EmbedBatch(ctx, texts)
			if err != nil {
				return nil, fmt.Errorf("%w: embedding chunks %d-%d: %v", domain.ErrIndexBuild, startIdx, end-1, err)
			}
			if len(vecs) != len(texts) {
				return nil, fmt.Errorf("%w: embedder returned %d vectors for %d chunks", domain.ErrIndexBuild, len(vecs), len(texts))
			}
			vectors = append(vectors, vecs...)
		} else {
			for i := startIdx; i < end; i++ {
				vec, err := emb.Embed(ctx, chunks[i].Text)
				if err != nil {
					return nil, fmt.Errorf("%w: embedding chunk %s: %v", domain.ErrIndexBuild, chunks[i].ID, err)
				}
				vectors = append(vectors, vec)
			}
		}
		if opts.Progress != nil {
			opts.Progress(end, len(chunks))
		}
	}

	dim := len(vectors[0])
	if dim == 0 {
		return nil, fmt.Errorf("%w: embedder returned an empty vector", domain.ErrIndexBuild)
	}
	for i, v := range vectors {
		if len(v) != dim {
			return nil, fmt.Errorf("%w: chunk %s has %d dimensions, expected %d", domain.ErrIndexBuild, chunks[i].ID, len(v), dim)
		}
	}

	identity := emb.Identity()
	identity.Dimension = dim
	store := memory.NewStorage()
	if err := store.Init(dim); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrIndexBuild, err)
	}
	if err := store.Upsert(chunks, vectors); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrIndexBuild, err)
	}
	return &Index{identity: identity, store: store, createdAt: time.Now()}, nil
}

// Identity returns the embedding identity the index was built with.
func (x *Index) Identity() domain.EmbeddingIdentity { return x.identity }

// Len returns the number of indexed chunks.
func (x *Index) Len() int { return x.store.Len() }

// CreatedAt returns when the index was built.
func (x *Index) CreatedAt() time.Time { return x.createdAt }

// Search embeds query with emb and returns the k most similar chunks.
// emb must match the identity the index was built with.
func (x *Index) Search(ctx context.Context, query string, emb domain.Embedder, k int) ([]domain.SearchResult, error) {
	if k < 1 {
		return nil, fmt.Errorf("%w: k must be at least 1, got %d", domain.ErrInvalidInput, k)
	}
	if emb == nil {
		return nil, fmt.Errorf("%w: no embedder", domain.ErrEmbedding)
	}
	if got := emb.Identity(); !x.identity.Compatible(got) {
		return nil, fmt.Errorf("%w: index built with %s, query uses %s", domain.ErrEmbeddingMismatch, x.identity, got)
	}
	vec, err := emb.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrEmbedding, err)
	}
	if len(vec) != x.identity.Dimension {
		return nil, fmt.Errorf("%w: query has %d dimensions, index has %d", domain.ErrEmbeddingMismatch, len(vec), x.identity.Dimension)
	}
	return x.SearchVector(vec, k)
}

// SearchVector ranks a precomputed query vector against the index.
func (x *Index) SearchVector(vec []float64, k int) ([]domain.SearchResult, error) {
	if k < 1 {
		return nil, fmt.Errorf("%w: k must be at least 1, got %d", domain.ErrInvalidInput, k)
	}
	if len(vec) != x.identity.Dimension {
		return nil, fmt.Errorf("%w: query has %d dimensions, index has %d", domain.ErrEmbeddingMismatch, len(vec), x.identity.Dimension)
	}
	return x.store.Search(vec, k)
}

// Persist writes the index to dir/index.db, replacing any previous index.
func (x *Index) Persist(ctx context.Context, dir string) error {
	m := sqlite.Manifest{
		Version:   sqlite.FormatVersion,
		Identity:  x.identity,
		CreatedAt: x.createdAt,
	}
	if err := sqlite.Save(ctx, filepath.Join(dir, FileName), m, x.store.Entries()); err != nil {
		return fmt.Errorf("persist index: %w", err)
	}
	return nil
}

// Restore loads an index persisted by Persist.
// It returns domain.ErrIndexNotFound when dir holds no index.
func Restore(ctx context.Context, dir string) (*Index, error) {
	m, entries, err := sqlite.Load(ctx, filepath.Join(dir, FileName))
	if err != nil {
		if errors.Is(err, domain.ErrIndexNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("restore index: %w", err)
	}
	if len(entries) == 0 {
		return nil, fmt.Errorf("%w: %s is empty", domain.ErrIndexNotFound, dir)
	}
	store := memory.NewStorage()
	if err := store.Init(m.Identity.Dimension); err != nil {
		return nil, fmt.Errorf("restore index: %w", err)
	}
	chunks := make([]domain.Chunk, len(entries))
	vectors := make([][]float64, len(entries))
	for i, e := range entries {
		chunks[i] = e.Chunk
		vectors[i] = e.Vector
	}
	if err := store.Upsert(chunks, vectors); err != nil {
		return nil, fmt.Errorf("restore index: %w", err)
	}
	return &Index{identity: m.Identity, store: store, createdAt: m.CreatedAt}, nil
}

// Exists reports whether dir contains a persisted index file.
func Exists(dir string) bool {
	info, err := os.Stat(filepath.Join(dir, FileName))
	return err == nil && !info.IsDir()
}
