// Package audit runs every catalog rule against the indexed corpus.
package audit

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"compliance/internal/domain"
	"compliance/internal/logger"
)

// RuleEvaluator evaluates one rule.
type RuleEvaluator interface {
	Evaluate(ctx context.Context, rule domain.Rule, explicitText string) (domain.EvaluationResult, error)
}

// Options tune a Runner.
type Options struct {
	// Workers is the number of rules evaluated concurrently. Values below 2
	// run sequentially.
	Workers int
	// OnResult, when set, is called once per finished rule. It may be called
	// from several goroutines.
	OnResult func(domain.EvaluationResult)
}

// Runner evaluates a whole catalog, isolating per-rule failures.
type Runner struct {
	eval RuleEvaluator
	opts Options
	now  func() time.Time
}

// NewRunner creates a runner.
func NewRunner(eval RuleEvaluator, opts Options) *Runner {
	return &Runner{eval: eval, opts: opts, now: time.Now}
}

// RunAll evaluates rules against the corpus and returns one result per rule in
// input order. A failing rule is recorded with status ERROR and never stops
// the remaining rules.
func (r *Runner) RunAll(ctx context.Context, rules []domain.Rule) domain.AuditSummary {
	summary := domain.AuditSummary{
		RunID:     uuid.NewString(),
		StartedAt: r.now(),
		Results:   make([]domain.EvaluationResult, len(rules)),
	}
	logger.Section("Audit " + summary.RunID)

	if r.opts.Workers < 2 {
		for i, rule := range rules {
			summary.Results[i] = r.evaluate(ctx, rule)
		}
	} else {
		var g errgroup.Group
		g.SetLimit(r.opts.Workers)
		for i, rule := range rules {
			g.Go(func() error {
				summary.Results[i] = r.evaluate(ctx, rule)
				return nil
			})
		}
		_ = g.Wait()
	}

	summary.FinishedAt = r.now()
	summary.Summarize()
	logger.Info("Audit finished: %d compliant, %d non-compliant, %d errors",
		summary.Compliant, summary.NonCompliant, summary.Errors)
	return summary
}

func (r *Runner) evaluate(ctx context.Context, rule domain.Rule) domain.EvaluationResult {
	res, err := r.check(ctx, rule)
	if err != nil {
		logger.Error("Error checking rule %d: %v", rule.ID, err)
		res = domain.EvaluationResult{
			RuleID:   rule.ID,
			RuleName: rule.Name,
			Status:   domain.StatusError,
			Response: err.Error(),
			Sources:  []string{},
		}
	} else {
		logger.Info("Checked rule %d: %s - %s", rule.ID, rule.Name, res.Status)
	}
	if r.opts.OnResult != nil {
		r.opts.OnResult(res)
	}
	return res
}

func (r *Runner) check(ctx context.Context, rule domain.Rule) (res domain.EvaluationResult, err error) {
	if err := ctx.Err(); err != nil {
		return res, err
	}
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("panic: %v", p)
		}
	}()
	res, err = r.eval.Evaluate(ctx, rule, "")
	if err == nil && res.Sources == nil {
		res.Sources = []string{}
	}
	return res, err
}

// WriteJSON writes the results array, indented by two spaces.
func WriteJSON(w io.Writer, summary domain.AuditSummary) error {
	results := summary.Results
	if results == nil {
		results = []domain.EvaluationResult{}
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(results)
}

// WriteFile writes the results array to path.
func WriteFile(path string, summary domain.AuditSummary) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := WriteJSON(f, summary); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
