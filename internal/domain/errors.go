package domain

import (
	"errors"
	"fmt"
)

// Domain errors. Callers wrap them with fmt.Errorf("%w: ...") and test with errors.Is.
var (
	// ErrNotFound indicates a requested entity does not exist.
	ErrNotFound = errors.New("not found")

	// ErrInvalidInput indicates malformed or invalid input.
	ErrInvalidInput = errors.New("invalid input")

	// ErrIndexBuild indicates the corpus was empty or an embedding failed during build.
	// Builds are all-or-nothing.
	ErrIndexBuild = errors.New("index build failed")

	// ErrIndexNotFound indicates no persisted index exists at the requested location.
	ErrIndexNotFound = errors.New("index not found")

	// ErrCatalog indicates a malformed rule catalog or a duplicate rule id.
	ErrCatalog = errors.New("invalid rule catalog")

	// ErrJudgeInvocation indicates the judge capability failed or timed out.
	ErrJudgeInvocation = errors.New("judge invocation failed")

	// ErrEmbedding indicates the embedding capability failed during a query.
	ErrEmbedding = errors.New("embedding failed")

	// ErrEmbeddingMismatch indicates the query embedder differs from the one
	// that built the index.
	ErrEmbeddingMismatch = errors.New("embedding identity mismatch")

	// ErrRuleNotFound indicates an unknown rule id.
	ErrRuleNotFound = fmt.Errorf("rule %w", ErrNotFound)
)
