package tui

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"compliance/internal/domain"
	"compliance/internal/evidence"
)

// CompliancePort is the TUI-facing subset of the compliance service.
type CompliancePort interface {
	Rules() []domain.Rule
	Evaluate(ctx context.Context, ruleID int, contractText string) (domain.EvaluationResult, error)
	RunAll(ctx context.Context) domain.AuditSummary
}

// ContractReader loads a contract file for the explicit-text path.
type ContractReader func(path string) (string, error)

type evalDoneMsg struct {
	result domain.EvaluationResult
	err    error
}

type auditDoneMsg struct {
	summary domain.AuditSummary
}

// Model is the Bubble Tea model for the TUI application.
type Model struct {
	ctx          context.Context
	service      CompliancePort
	readContract ContractReader
	rules        []domain.Rule
	cursor       int

	contractName string
	contractText string

	input    textinput.Model
	editing  bool
	viewport viewport.Model
	spinner  spinner.Model
	busy     bool
	ready    bool

	result  *domain.EvaluationResult
	summary *domain.AuditSummary
	status  string
}

// New creates a new TUI model. contractPath, when non-empty, is loaded as the
// selected contract.
func New(ctx context.Context, service CompliancePort, read ContractReader, contractPath string) Model {
	ti := textinput.New()
	ti.Prompt = "contract> "
	ti.Placeholder = "path to a .txt or .pdf contract, empty to search all"
	ti.CharLimit = 0
	sp := spinner.New()
	sp.Spinner = spinner.Dot
	m := Model{
		ctx:          ctx,
		service:      service,
		readContract: read,
		rules:        service.Rules(),
		input:        ti,
		viewport:     viewport.New(0, 0),
		spinner:      sp,
		status:       "enter: check rule  a: full audit  c: choose contract  q: quit",
	}
	if contractPath != "" {
		m.loadContract(contractPath)
	}
	return m
}

// Init starts the spinner ticking.
func (m Model) Init() tea.Cmd { return m.spinner.Tick }

// Update handles key, window and completion events.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.ready = true
		_, rh := resultBoxStyle.GetFrameSize()
		reserved := 3 + m.listHeight() + 1 // header, contract, spacer, list, status
		m.viewport.Width = max(20, msg.Width)
		m.viewport.Height = max(3, msg.Height-reserved-rh)
		m.viewport.SetContent(m.renderResult())
		return m, nil
	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	case evalDoneMsg:
		m.busy = false
		if msg.err != nil {
			m.status = "Error: " + msg.err.Error()
			m.result = &domain.EvaluationResult{Status: domain.StatusError, Response: msg.err.Error(), Sources: []string{}}
		} else {
			m.result = &msg.result
			m.status = fmt.Sprintf("Rule %d checked: %s", msg.result.RuleID, msg.result.Status)
		}
		m.summary = nil
		m.viewport.SetContent(m.renderResult())
		m.viewport.GotoTop()
		return m, nil
	case auditDoneMsg:
		m.busy = false
		m.summary = &msg.summary
		m.result = nil
		m.status = fmt.Sprintf("Audit done: %d compliant, %d non-compliant, %d errors",
			msg.summary.Compliant, msg.summary.NonCompliant, msg.summary.Errors)
		m.viewport.SetContent(m.renderResult())
		m.viewport.GotoTop()
		return m, nil
	case tea.KeyMsg:
		if msg.Type == tea.KeyCtrlC || msg.Type == tea.KeyCtrlD {
			return m, tea.Quit
		}
		if m.editing {
			return m.updateInput(msg)
		}
		switch msg.String() {
		case "q":
			return m, tea.Quit
		case "down", "j":
			if len(m.rules) > 0 {
				m.cursor = (m.cursor + 1) % len(m.rules)
			}
			if m.result == nil && m.summary == nil {
				m.viewport.SetContent(m.renderResult())
			}
			return m, nil
		case "up", "k":
			if len(m.rules) > 0 {
				m.cursor = (m.cursor - 1 + len(m.rules)) % len(m.rules)
			}
			if m.result == nil && m.summary == nil {
				m.viewport.SetContent(m.renderResult())
			}
			return m, nil
		case "enter":
			if m.busy || len(m.rules) == 0 {
				return m, nil
			}
			m.busy = true
			rule := m.rules[m.cursor]
			m.status = fmt.Sprintf("Checking rule %d: %s", rule.ID, rule.Name)
			return m, m.evaluateCmd(rule.ID, m.contractText)
		case "a":
			if m.busy {
				return m, nil
			}
			m.busy = true
			m.status = fmt.Sprintf("Running audit of %d rules", len(m.rules))
			return m, m.auditCmd()
		case "c":
			m.editing = true
			m.input.SetValue("")
			return m, m.input.Focus()
		case "x":
			m.contractName, m.contractText = "", ""
			m.status = "Searching the whole corpus"
			return m, nil
		}
	}
	var cmd tea.Cmd
	m.viewport, cmd = m.viewport.Update(msg)
	return m, cmd
}

func (m Model) updateInput(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyEsc:
		m.editing = false
		m.input.Blur()
		return m, nil
	case tea.KeyEnter:
		m.editing = false
		m.input.Blur()
		path := strings.TrimSpace(m.input.Value())
		if path == "" {
			m.contractName, m.contractText = "", ""
			m.status = "Searching the whole corpus"
			return m, nil
		}
		m.loadContract(path)
		return m, nil
	}
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m *Model) loadContract(path string) {
	if m.readContract == nil {
		m.status = "Error: contract loading is not available"
		return
	}
	text, err := m.readContract(path)
	if err != nil {
		m.status = "Error: " + err.Error()
		return
	}
	m.contractName = filepath.Base(path)
	m.contractText = text
	m.status = fmt.Sprintf("Selected %s (%d chars)", m.contractName, len([]rune(text)))
}

func (m Model) evaluateCmd(ruleID int, text string) tea.Cmd {
	return func() tea.Msg {
		res, err := m.service.Evaluate(m.ctx, ruleID, text)
		return evalDoneMsg{result: res, err: err}
	}
}

func (m Model) auditCmd() tea.Cmd {
	return func() tea.Msg {
		return auditDoneMsg{summary: m.service.RunAll(m.ctx)}
	}
}

// View renders the rule list, the result pane and the status line.
func (m Model) View() string {
	if !m.ready {
		return "Loading..."
	}
	header := headerStyle.Render("Contract Compliance Checker")
	contract := "Contract: (search all)"
	if m.contractName != "" {
		contract = "Contract: " + m.contractName
	}
	contract = dimStyle.Render(contract)
	status := m.status
	if m.busy {
		status = m.spinner.View() + " " + status
	}
	var b strings.Builder
	b.WriteString(header + "\n" + contract + "\n")
	b.WriteString(m.renderRules() + "\n")
	b.WriteString(resultBoxStyle.Render(m.viewport.View()) + "\n")
	if m.editing {
		b.WriteString(m.input.View() + "\n")
	}
	b.WriteString(statusStyle.Render(status))
	return b.String()
}

func (m Model) listHeight() int {
	return min(len(m.rules), maxListRows)
}

func (m Model) renderRules() string {
	if len(m.rules) == 0 {
		return "No rules loaded."
	}
	n := m.listHeight()
	first := max(0, min(m.cursor-n/2, len(m.rules)-n))
	lines := make([]string, 0, n)
	for i := first; i < first+n; i++ {
		r := m.rules[i]
		line := fmt.Sprintf("%d. %s", r.ID, r.Name)
		if r.Category != "" {
			line += dimStyle.Render("  [" + r.Category + "]")
		}
		if i == m.cursor {
			lines = append(lines, cursorStyle.Render("> "+line))
		} else {
			lines = append(lines, "  "+line)
		}
	}
	return strings.Join(lines, "\n")
}

func (m Model) renderResult() string {
	switch {
	case m.summary != nil:
		return renderSummary(*m.summary)
	case m.result != nil:
		return m.renderEvaluation(*m.result)
	default:
		if len(m.rules) > 0 {
			return "Description: " + m.rules[m.cursor].Description
		}
		return "No results yet."
	}
}

func (m Model) renderEvaluation(r domain.EvaluationResult) string {
	var b strings.Builder
	b.WriteString(fmt.Sprintf("%d. %s  %s\n\n", r.RuleID, r.RuleName, statusBadge(r.Status)))
	b.WriteString(r.Response)
	b.WriteString("\n\nSources:\n")
	for _, s := range r.Sources {
		b.WriteString("- " + s + "\n")
	}
	query := ""
	for _, rule := range m.rules {
		if rule.ID == r.RuleID {
			query = rule.Description
		}
	}
	for i, e := range r.Excerpts {
		b.WriteString(fmt.Sprintf("\nDoc %d - %s  score=%.3f\n", i+1, e.Source, e.Score))
		b.WriteString(highlightBestSentence(e.Text, query) + "\n")
	}
	return b.String()
}

func renderSummary(s domain.AuditSummary) string {
	var b strings.Builder
	b.WriteString(fmt.Sprintf("%s %d   %s %d   %s %d\n\n",
		statusBadge(domain.StatusCompliant), s.Compliant,
		statusBadge(domain.StatusNonCompliant), s.NonCompliant,
		statusBadge(domain.StatusError), s.Errors))
	for _, r := range s.Results {
		b.WriteString(fmt.Sprintf("%s - %s\n", r.RuleName, statusBadge(r.Status)))
		if len(r.Sources) > 0 {
			b.WriteString(dimStyle.Render("  Sources: "+strings.Join(r.Sources, ", ")) + "\n")
		}
	}
	return b.String()
}

func statusBadge(s domain.Status) string {
	switch s {
	case domain.StatusCompliant:
		return compliantStyle.Render(string(s))
	case domain.StatusNonCompliant:
		return nonCompliantStyle.Render(string(s))
	default:
		return errorStyle.Render(string(s))
	}
}

const maxListRows = 8

var (
	headerStyle       = lipgloss.NewStyle().Bold(true)
	dimStyle          = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	statusStyle       = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	cursorStyle       = lipgloss.NewStyle().Foreground(lipgloss.Color("12")).Bold(true)
	resultBoxStyle    = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
	highlightStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("11")).Bold(true)
	compliantStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("10")).Bold(true)
	nonCompliantStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("11")).Bold(true)
	errorStyle        = lipgloss.NewStyle().Foreground(lipgloss.Color("9")).Bold(true)
	ranker            = evidence.NewRanker()
)

// highlightBestSentence marks the sentence most relevant to query.
func highlightBestSentence(text, query string) string {
	sentences := ranker.Split(text)
	if len(sentences) == 0 {
		return text
	}
	if best, ok := ranker.Best(text, query); ok {
		sentences[best.Index] = highlightStyle.Render(sentences[best.Index])
	}
	return strings.Join(sentences, " ")
}
