// Package evaluator checks a single rule against contract text.
package evaluator

import (
	"context"
	"fmt"
	"strings"
	"time"

	"compliance/internal/domain"
)

// Default budgets, in runes.
const (
	DefaultTopK          = 3
	DefaultContractChars = 4000
	DefaultExcerptChars  = 500
	DefaultPreviewChars  = 1000
)

// Retriever finds the chunks most relevant to a query.
type Retriever interface {
	Search(ctx context.Context, query string, emb domain.Embedder, k int) ([]domain.SearchResult, error)
}

// Config holds retrieval and truncation budgets.
type Config struct {
	TopK          int
	ContractChars int
	ExcerptChars  int
	PreviewChars  int
	// JudgeTimeout bounds each judge call. Zero means no limit beyond ctx.
	JudgeTimeout time.Duration
}

func (c *Config) applyDefaults() {
	if c.TopK <= 0 {
		c.TopK = DefaultTopK
	}
	if c.ContractChars <= 0 {
		c.ContractChars = DefaultContractChars
	}
	if c.ExcerptChars <= 0 {
		c.ExcerptChars = DefaultExcerptChars
	}
	if c.PreviewChars <= 0 {
		c.PreviewChars = DefaultPreviewChars
	}
}

// Evaluator assembles context for a rule, asks the judge and extracts a verdict.
type Evaluator struct {
	index    Retriever
	embedder domain.Embedder
	judge    domain.Judge
	cfg      Config
}

// New creates an evaluator. index may be nil when only explicit contract text
// will be evaluated.
func New(index Retriever, embedder domain.Embedder, judge domain.Judge, cfg Config) *Evaluator {
	cfg.applyDefaults()
	return &Evaluator{index: index, embedder: embedder, judge: judge, cfg: cfg}
}

// Config returns the effective configuration.
func (e *Evaluator) Config() Config { return e.cfg }

// Evaluate checks rule against explicitText, or against the most relevant
// indexed chunks when explicitText is empty. Errors are returned, never
// turned into a verdict.
func (e *Evaluator) Evaluate(ctx context.Context, rule domain.Rule, explicitText string) (domain.EvaluationResult, error) {
	res := domain.EvaluationResult{RuleID: rule.ID, RuleName: rule.Name}

	var contextText string
	if explicitText != "" {
		contextText = truncate(explicitText, e.cfg.ContractChars)
		res.Sources = []string{domain.SelectedContractSource}
	} else {
		if e.index == nil {
			return res, fmt.Errorf("%w: no index loaded", domain.ErrIndexNotFound)
		}
		hits, err := e.index.Search(ctx, rule.Description, e.embedder, e.cfg.TopK)
		if err != nil {
			return res, err
		}
		blocks := make([]string, 0, len(hits))
		res.Sources = make([]string, 0, len(hits))
		for _, h := range hits {
			blocks = append(blocks, "["+h.Chunk.Source+"]\n"+truncate(h.Chunk.Text, e.cfg.ExcerptChars))
			res.Sources = append(res.Sources, h.Chunk.Source)
			res.Excerpts = append(res.Excerpts, domain.Excerpt{
				Source: h.Chunk.Source,
				Text:   truncate(h.Chunk.Text, e.cfg.PreviewChars),
				Score:  h.Score,
			})
		}
		contextText = strings.Join(blocks, "\n\n")
	}

	answer, err := e.ask(ctx, BuildPrompt(rule, contextText))
	if err != nil {
		return res, err
	}
	res.Response = answer
	res.Status = ExtractVerdict(answer)
	return res, nil
}

func (e *Evaluator) ask(ctx context.Context, prompt string) (string, error) {
	if e.judge == nil {
		return "", fmt.Errorf("%w: no judge configured", domain.ErrJudgeInvocation)
	}
	if e.cfg.JudgeTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.cfg.JudgeTimeout)
		defer cancel()
	}
	answer, err := e.judge.Judge(ctx, prompt)
	if err != nil {
		return "", fmt.Errorf("%w: %w", domain.ErrJudgeInvocation, err)
	}
	return answer, nil
}

// ExtractVerdict marks a response compliant when it contains "YES" in any
// case anywhere in the text.
// TODO: ask the judge for structured output and parse the Status line instead.
func ExtractVerdict(response string) domain.Status {
	if strings.Contains(strings.ToUpper(response), "YES") {
		return domain.StatusCompliant
	}
	return domain.StatusNonCompliant
}

// truncate returns the first n runes of s.
func truncate(s string, n int) string {
	if n <= 0 {
		return s
	}
	i := 0
	for pos := range s {
		if i == n {
			return s[:pos]
		}
		i++
	}
	return s
}
