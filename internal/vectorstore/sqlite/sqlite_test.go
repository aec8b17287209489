package sqlite

import (
	"context"
	"math"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"compliance/internal/domain"
)

func testEntries() []domain.IndexedVector {
	return []domain.IndexedVector{
		{Chunk: domain.Chunk{ID: "c1", Source: "alpha", Index: 0, Start: 0, End: 12, Text: "Governing law"}, Vector: []float64{0.1, -0.2, math.Pi}},
		{Chunk: domain.Chunk{ID: "c2", Source: "alpha", Index: 1, Start: 10, End: 30, Text: "Delaware, ünïcode"}, Vector: []float64{1e-300, 0, -1}},
		{Chunk: domain.Chunk{ID: "c3", Source: "beta", Index: 0, Start: 0, End: 5, Text: "Term"}, Vector: []float64{0.3333333333333333, 2, 3}},
	}
}

func TestSaveLoad_RoundTrip(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "nested", "index.db")
	created := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	m := Manifest{
		Version:   FormatVersion,
		Identity:  domain.EmbeddingIdentity{Provider: "hashing", Model: "tf-hash-v1", Dimension: 3},
		CreatedAt: created,
	}

	require.NoError(t, Save(ctx, path, m, testEntries()))

	got, entries, err := Load(ctx, path)
	require.NoError(t, err)
	assert.Equal(t, m.Identity, got.Identity)
	assert.Equal(t, 3, got.Chunks)
	assert.True(t, created.Equal(got.CreatedAt))
	assert.Equal(t, testEntries(), entries)
}

func TestSave_LeavesNoTempFiles(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "index.db")
	m := Manifest{Version: FormatVersion, Identity: domain.EmbeddingIdentity{Provider: "p", Model: "m", Dimension: 3}}

	require.NoError(t, Save(context.Background(), path, m, testEntries()))
	require.NoError(t, Save(context.Background(), path, m, testEntries()[:1]))

	files, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, files, 1)
	assert.Equal(t, "index.db", files[0].Name())

	_, entries, err := Load(context.Background(), path)
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestSave_CancelledContextKeepsPreviousIndex(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "index.db")
	m := Manifest{Version: FormatVersion, Identity: domain.EmbeddingIdentity{Provider: "p", Model: "m", Dimension: 3}}
	require.NoError(t, Save(context.Background(), path, m, testEntries()))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.Error(t, Save(ctx, path, m, testEntries()[:1]))

	_, entries, err := Load(context.Background(), path)
	require.NoError(t, err)
	assert.Len(t, entries, 3)
	files, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, files, 1)
}

func TestLoad_MissingFile(t *testing.T) {
	_, _, err := Load(context.Background(), filepath.Join(t.TempDir(), "index.db"))
	assert.ErrorIs(t, err, domain.ErrIndexNotFound)
}

func TestLoad_EmptyDatabaseHasNoManifest(t *testing.T) {
	path := filepath.Join(t.TempDir(), "index.db")
	require.NoError(t, os.WriteFile(path, nil, 0o644))

	_, _, err := Load(context.Background(), path)
	assert.ErrorIs(t, err, domain.ErrIndexNotFound)
}

func TestFloat64Encoding(t *testing.T) {
	in := []float64{0, -0.5, math.MaxFloat64, math.SmallestNonzeroFloat64, math.Inf(-1)}
	b := float64SliceToBytes(in)
	assert.Len(t, b, len(in)*8)
	assert.Equal(t, in, bytesToFloat64Slice(b))
}
