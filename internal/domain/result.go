package domain

import "time"

// Status is the verdict assigned to a (rule, evaluation) pair.
type Status string

const (
	StatusCompliant    Status = "COMPLIANT"
	StatusNonCompliant Status = "NON_COMPLIANT"
	StatusError        Status = "ERROR"
)

// SelectedContractSource is the only source reported when the contract text
// was supplied directly.
const SelectedContractSource = "selected_contract"

// Excerpt is a preview of a retrieved chunk.
type Excerpt struct {
	Source string  `json:"source"`
	Text   string  `json:"text"`
	Score  float64 `json:"score"`
}

// EvaluationResult is the outcome of checking one rule.
type EvaluationResult struct {
	RuleID   int       `json:"rule_id"`
	RuleName string    `json:"rule_name"`
	Status   Status    `json:"status"`
	Response string    `json:"response"`
	Sources  []string  `json:"sources"`
	Excerpts []Excerpt `json:"raw_excerpts,omitempty"`
}

// AuditSummary is the ordered outcome of a full audit.
type AuditSummary struct {
	RunID        string             `json:"run_id"`
	StartedAt    time.Time          `json:"started_at"`
	FinishedAt   time.Time          `json:"finished_at"`
	Results      []EvaluationResult `json:"results"`
	Compliant    int                `json:"compliant"`
	NonCompliant int                `json:"non_compliant"`
	Errors       int                `json:"errors"`
}

// Summarize recomputes the per-status counts from s.Results.
func (s *AuditSummary) Summarize() {
	s.Compliant, s.NonCompliant, s.Errors = 0, 0, 0
	for _, r := range s.Results {
		switch r.Status {
		case StatusCompliant:
			s.Compliant++
		case StatusNonCompliant:
			s.NonCompliant++
		default:
			s.Errors++
		}
	}
}
