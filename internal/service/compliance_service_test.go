package service

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"compliance/internal/catalog"
	"compliance/internal/chunker"
	"compliance/internal/config"
	"compliance/internal/domain"
	"compliance/internal/embedding/hashing"
	"compliance/internal/evaluator"
	"compliance/internal/indexer"
	"compliance/internal/vectorstore"
)

func testCatalog(t *testing.T) *catalog.Catalog {
	t.Helper()
	c, err := catalog.New([]domain.Rule{
		{ID: 1, Name: "Governing Law", Category: "Legal", Description: "contract specifies governing law"},
		{ID: 2, Name: "Payment Terms", Category: "Finance", Description: "invoice payment within sixty days"},
	})
	require.NoError(t, err)
	return c
}

func testIndex(t *testing.T, emb domain.Embedder) *vectorstore.Index {
	t.Helper()
	ix := indexer.New(chunker.New(chunker.WithMaxChars(200), chunker.WithOverlap(20)), emb, indexer.Options{})
	idx, _, err := ix.Build(context.Background(), []domain.Document{
		{ID: "alpha", Content: "The governing law of this contract is the law of the State of Delaware."},
		{ID: "beta", Content: "Each invoice is payable within forty five days of receipt."},
	})
	require.NoError(t, err)
	return idx
}

func echoJudge(reply string) domain.Judge {
	return domain.JudgeFunc(func(context.Context, string) (string, error) { return reply, nil })
}

func TestEvaluate_ExplicitText(t *testing.T) {
	svc := NewComplianceService(testCatalog(t), nil, nil, echoJudge("Status: YES"), Config{})

	res, err := svc.Evaluate(context.Background(), 1, "This agreement is governed by the laws of Delaware.")
	require.NoError(t, err)
	assert.Equal(t, domain.StatusCompliant, res.Status)
	assert.Equal(t, []string{domain.SelectedContractSource}, res.Sources)
}

func TestEvaluate_UnknownRule(t *testing.T) {
	svc := NewComplianceService(testCatalog(t), nil, nil, echoJudge("YES"), Config{})
	_, err := svc.Evaluate(context.Background(), 42, "")
	assert.ErrorIs(t, err, domain.ErrRuleNotFound)
}

func TestEvaluate_CorpusWithoutIndex(t *testing.T) {
	svc := NewComplianceService(testCatalog(t), nil, nil, echoJudge("YES"), Config{})
	_, err := svc.Evaluate(context.Background(), 1, "")
	assert.ErrorIs(t, err, domain.ErrIndexNotFound)
	_, _, ok := svc.IndexInfo()
	assert.False(t, ok)
}

func TestEvaluate_RetrievesFromIndex(t *testing.T) {
	emb := hashing.NewEmbedder(256)
	svc := NewComplianceService(testCatalog(t), testIndex(t, emb), emb, echoJudge("Status: NO"), Config{
		Evaluator: evaluator.Config{TopK: 1},
	})

	res, err := svc.Evaluate(context.Background(), 1, "")
	require.NoError(t, err)
	assert.Equal(t, domain.StatusNonCompliant, res.Status)
	assert.Equal(t, []string{"alpha"}, res.Sources)
	require.Len(t, res.Excerpts, 1)
}

func TestRunAll_CountsAndOrder(t *testing.T) {
	emb := hashing.NewEmbedder(256)
	var seen []int
	svc := NewComplianceService(testCatalog(t), testIndex(t, emb), emb, echoJudge("Status: YES"), Config{
		OnResult: func(r domain.EvaluationResult) { seen = append(seen, r.RuleID) },
	})

	summary := svc.RunAll(context.Background())
	require.Len(t, summary.Results, 2)
	assert.Equal(t, 2, summary.Compliant)
	assert.Equal(t, []int{1, 2}, seen)
	assert.Len(t, svc.Rules(), 2)

	n, id, ok := svc.IndexInfo()
	assert.True(t, ok)
	assert.Equal(t, 2, n)
	assert.Equal(t, hashing.Provider, id.Provider)
	assert.Contains(t, svc.String(), "2 rules, 2 chunks")
}

func TestOpen_FromConfig(t *testing.T) {
	dir := t.TempDir()
	rulesPath := filepath.Join(dir, "rules.json")
	require.NoError(t, os.WriteFile(rulesPath,
		[]byte(`{"rules": [{"id": 1, "name": "Governing Law", "category": "Legal", "description": "governing law"}]}`), 0o644))
	t.Setenv("TEST_SERVICE_KEY", "secret")

	cfg := &config.AppConfig{}
	cfg.Catalog.Path = rulesPath
	cfg.Index.Path = filepath.Join(dir, "vectorstore")
	cfg.Judge.APIKeyEnv = "TEST_SERVICE_KEY"
	cfg.Embedder.Hashing.Dimension = 64

	svc, err := Open(context.Background(), cfg)
	require.NoError(t, err)
	_, _, ok := svc.IndexInfo()
	assert.False(t, ok)

	emb := hashing.NewEmbedder(64)
	require.NoError(t, testIndex(t, emb).Persist(context.Background(), cfg.Index.Path))
	svc, err = Open(context.Background(), cfg)
	require.NoError(t, err)
	n, _, ok := svc.IndexInfo()
	assert.True(t, ok)
	assert.Equal(t, 2, n)

	rule, err := svc.Rule(1)
	require.NoError(t, err)
	assert.Equal(t, "Governing Law", rule.Name)
}

func TestOpen_BadCatalog(t *testing.T) {
	cfg := &config.AppConfig{}
	cfg.Catalog.Path = filepath.Join(t.TempDir(), "missing.json")
	_, err := Open(context.Background(), cfg)
	assert.ErrorIs(t, err, domain.ErrCatalog)
}
