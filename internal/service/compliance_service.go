package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"compliance/internal/audit"
	"compliance/internal/catalog"
	"compliance/internal/config"
	"compliance/internal/domain"
	"compliance/internal/embedding"
	"compliance/internal/evaluator"
	"compliance/internal/judge"
	"compliance/internal/logger"
	"compliance/internal/vectorstore"
)

// Config tunes evaluation and audits.
type Config struct {
	Evaluator evaluator.Config
	Workers   int
	OnResult  func(domain.EvaluationResult)
}

// ComplianceService is the request surface used by the CLI, TUI and HTTP API.
type ComplianceService struct {
	catalog   *catalog.Catalog
	index     *vectorstore.Index
	evaluator *evaluator.Evaluator
	runner    *audit.Runner
}

// NewComplianceService wires an evaluator and audit runner. index may be nil,
// in which case only explicit contract text can be evaluated.
func NewComplianceService(cat *catalog.Catalog, index *vectorstore.Index, emb domain.Embedder, j domain.Judge, cfg Config) *ComplianceService {
	var retriever evaluator.Retriever
	if index != nil {
		retriever = index
	}
	ev := evaluator.New(retriever, emb, j, cfg.Evaluator)
	return &ComplianceService{
		catalog:   cat,
		index:     index,
		evaluator: ev,
		runner:    audit.NewRunner(ev, audit.Options{Workers: cfg.Workers, OnResult: cfg.OnResult}),
	}
}

// Open loads the catalog and index named by cfg and builds the embedder and judge.
// A missing index is logged and tolerated.
func Open(ctx context.Context, cfg *config.AppConfig) (*ComplianceService, error) {
	cat, err := catalog.Load(cfg.Catalog.Path)
	if err != nil {
		return nil, err
	}
	emb, err := embedding.New(cfg.Embedder)
	if err != nil {
		return nil, err
	}
	j, err := judge.New(cfg.Judge)
	if err != nil {
		return nil, err
	}
	index, err := vectorstore.Restore(ctx, cfg.Index.Path)
	switch {
	case errors.Is(err, domain.ErrIndexNotFound):
		logger.Warn("No index at %s, run `compliance index` to search the corpus", cfg.Index.Path)
		index = nil
	case err != nil:
		return nil, err
	default:
		logger.Info("Loaded index %s: %d chunks (%s)", cfg.Index.Path, index.Len(), index.Identity())
	}
	return NewComplianceService(cat, index, emb, j, Config{
		Evaluator: evaluator.Config{
			TopK:          cfg.Evaluator.TopK,
			ContractChars: cfg.Evaluator.ContractChars,
			ExcerptChars:  cfg.Evaluator.ExcerptChars,
			PreviewChars:  cfg.Evaluator.PreviewChars,
			JudgeTimeout:  time.Duration(cfg.Judge.TimeoutSecs) * time.Second,
		},
		Workers: cfg.Audit.Workers,
	}), nil
}

// Evaluate checks one rule against contractText, or against the indexed
// corpus when contractText is empty.
func (s *ComplianceService) Evaluate(ctx context.Context, ruleID int, contractText string) (domain.EvaluationResult, error) {
	rule, err := s.catalog.Get(ruleID)
	if err != nil {
		return domain.EvaluationResult{}, err
	}
	return s.evaluator.Evaluate(ctx, rule, contractText)
}

// RunAll audits every rule against the indexed corpus.
func (s *ComplianceService) RunAll(ctx context.Context) domain.AuditSummary {
	return s.runner.RunAll(ctx, s.catalog.Rules())
}

// Rules returns the catalog in order.
func (s *ComplianceService) Rules() []domain.Rule { return s.catalog.Rules() }

// Rule returns one rule by id.
func (s *ComplianceService) Rule(id int) (domain.Rule, error) { return s.catalog.Get(id) }

// IndexInfo describes the loaded index, if any.
func (s *ComplianceService) IndexInfo() (chunks int, identity domain.EmbeddingIdentity, ok bool) {
	if s.index == nil {
		return 0, domain.EmbeddingIdentity{}, false
	}
	return s.index.Len(), s.index.Identity(), true
}

// String implements fmt.Stringer for log lines.
func (s *ComplianceService) String() string {
	n, id, ok := s.IndexInfo()
	if !ok {
		return fmt.Sprintf("%d rules, no index", s.catalog.Len())
	}
	return fmt.Sprintf("%d rules, %d chunks (%s)", s.catalog.Len(), n, id)
}
