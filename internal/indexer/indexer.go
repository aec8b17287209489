// Package indexer turns a corpus into a persisted vector index.
package indexer

import (
	"context"
	"fmt"

	"compliance/internal/domain"
	"compliance/internal/logger"
	"compliance/internal/vectorstore"
)

// Splitter splits a document into ordered chunks.
type Splitter interface {
	Split(text, source string) []domain.Chunk
}

// Options tune an indexing run.
type Options struct {
	BatchSize int
	Progress  func(done, total int)
}

// Stats describes a completed run.
type Stats struct {
	Documents int
	Chunks    int
	Identity  domain.EmbeddingIdentity
}

// Indexer chunks, embeds and persists documents.
type Indexer struct {
	splitter Splitter
	embedder domain.Embedder
	opts     Options
}

// New creates an indexer.
func New(splitter Splitter, embedder domain.Embedder, opts Options) *Indexer {
	return &Indexer{splitter: splitter, embedder: embedder, opts: opts}
}

// Run indexes docs into outDir. Nothing is written unless every step succeeds.
func (ix *Indexer) Run(ctx context.Context, docs []domain.Document, outDir string) (Stats, error) {
	idx, stats, err := ix.Build(ctx, docs)
	if err != nil {
		return stats, err
	}
	logger.Info("Saving index to %s", outDir)
	if err := idx.Persist(ctx, outDir); err != nil {
		return stats, err
	}
	return stats, nil
}

// Build chunks and embeds docs without persisting the result.
func (ix *Indexer) Build(ctx context.Context, docs []domain.Document) (*vectorstore.Index, Stats, error) {
	stats := Stats{Documents: len(docs)}
	if len(docs) == 0 {
		return nil, stats, fmt.Errorf("%w: no documents", domain.ErrIndexBuild)
	}

	logger.Section("Chunking")
	var chunks []domain.Chunk
	for _, d := range docs {
		dc := ix.splitter.Split(d.Content, d.ID)
		logger.Debug("%s: %d chunks", d.ID, len(dc))
		chunks = append(chunks, dc...)
	}
	stats.Chunks = len(chunks)
	logger.Info("Total chunks created: %d", len(chunks))

	logger.Section("Embedding")
	idx, err := vectorstore.Build(ctx, chunks, ix.embedder, vectorstore.BuildOptions{
		BatchSize: ix.opts.BatchSize,
		Progress:  ix.opts.Progress,
	})
	if err != nil {
		return nil, stats, err
	}
	stats.Identity = idx.Identity()
	return idx, stats, nil
}
