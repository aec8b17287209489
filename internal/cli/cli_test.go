package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"compliance/internal/catalog"
	"compliance/internal/config"
	"compliance/internal/domain"
	"compliance/internal/embedding/hashing"
	"compliance/internal/service"
	"compliance/internal/vectorstore"
)

const testRules = `{"rules": [
	{"id": 1, "name": "Governing Law", "category": "Legal", "description": "contract specifies governing law"},
	{"id": 2, "name": "Payment Terms", "category": "Finance", "description": "invoice payment within sixty days"}
]}`

type fixture struct {
	dir        string
	configPath string
	output     string
	index      string
}

// newFixture writes a corpus, a catalog and a config into a temp dir.
func newFixture(t *testing.T) fixture {
	t.Helper()
	dir := t.TempDir()
	corpusDir := filepath.Join(dir, "contracts")
	require.NoError(t, os.Mkdir(corpusDir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(corpusDir, "alpha.txt"),
		[]byte("The governing law of this contract is the law of the State of Delaware."), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(corpusDir, "beta.txt"),
		[]byte("Each invoice is payable within forty five days of receipt."), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "rules.json"), []byte(testRules), 0o644))

	f := fixture{
		dir:        dir,
		configPath: filepath.Join(dir, "config.yaml"),
		output:     filepath.Join(dir, "compliance_results.json"),
		index:      filepath.Join(dir, "vectorstore"),
	}
	cfg := `corpus:
  dir: ` + corpusDir + `
index:
  path: ` + f.index + `
catalog:
  path: ` + filepath.Join(dir, "rules.json") + `
embedder:
  hashing:
    dimension: 128
audit:
  output: ` + f.output + `
`
	require.NoError(t, os.WriteFile(f.configPath, []byte(cfg), 0o644))
	return f
}

// stubOpen builds the real service with a canned judge instead of a remote model.
func stubOpen(t *testing.T, reply func(prompt string) (string, error)) {
	t.Helper()
	orig := openService
	t.Cleanup(func() { openService = orig })
	openService = func(ctx context.Context, cfg *config.AppConfig) (*service.ComplianceService, error) {
		cat, err := catalog.Load(cfg.Catalog.Path)
		if err != nil {
			return nil, err
		}
		emb := hashing.NewEmbedder(cfg.Embedder.Hashing.Dimension)
		idx, err := vectorstore.Restore(ctx, cfg.Index.Path)
		if err != nil {
			idx = nil
		}
		judge := domain.JudgeFunc(func(_ context.Context, p string) (string, error) { return reply(p) })
		return service.NewComplianceService(cat, idx, emb, judge, service.Config{Workers: cfg.Audit.Workers}), nil
	}
}

func resetFlags() {
	reset := func(fs *pflag.FlagSet) {
		fs.VisitAll(func(f *pflag.Flag) {
			_ = f.Value.Set(f.DefValue)
			f.Changed = false
		})
	}
	reset(rootCmd.PersistentFlags())
	for _, c := range rootCmd.Commands() {
		reset(c.Flags())
	}
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	resetFlags()
	var out, stderr bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&stderr)
	rootCmd.SetArgs(args)
	t.Cleanup(func() { rootCmd.SetArgs(nil) })
	err := rootCmd.ExecuteContext(context.Background())
	return out.String(), err
}

func TestVersionCmd(t *testing.T) {
	orig := version
	version = "test-version-1.0.0"
	defer func() { version = orig }()

	out, err := run(t, "version")
	require.NoError(t, err)
	assert.Contains(t, out, "compliance version test-version-1.0.0")
}

func TestRulesCmd(t *testing.T) {
	f := newFixture(t)
	out, err := run(t, "--config", f.configPath, "rules")
	require.NoError(t, err)
	assert.Contains(t, out, "Governing Law")
	assert.Contains(t, out, "Finance")
	assert.Contains(t, out, "Total Rules: 2")
}

func TestIndexThenAudit(t *testing.T) {
	f := newFixture(t)
	stubOpen(t, func(p string) (string, error) { return "Status: YES\nEvidence: ok", nil })

	out, err := run(t, "--config", f.configPath, "index")
	require.NoError(t, err)
	assert.Contains(t, out, "Total contracts loaded: 2")
	assert.Contains(t, out, "Total chunks created: 2")
	assert.True(t, vectorstore.Exists(f.index))

	out, err = run(t, "--config", f.configPath, "audit", "--workers", "2")
	require.NoError(t, err)
	assert.Contains(t, out, "Compliant:     2")
	assert.Contains(t, out, "Governing Law - COMPLIANT")

	data, err := os.ReadFile(f.output)
	require.NoError(t, err)
	var results []domain.EvaluationResult
	require.NoError(t, json.Unmarshal(data, &results))
	require.Len(t, results, 2)
	assert.Equal(t, 1, results[0].RuleID)
	assert.NotEmpty(t, results[0].Sources)
}

func TestAuditWithoutIndexReportsErrors(t *testing.T) {
	f := newFixture(t)
	stubOpen(t, func(string) (string, error) { return "YES", nil })
	custom := filepath.Join(f.dir, "out", "results.json")

	out, err := run(t, "--config", f.configPath, "audit", "-o", custom, "--json")
	require.NoError(t, err)

	var summary domain.AuditSummary
	require.NoError(t, json.Unmarshal([]byte(out), &summary))
	assert.Equal(t, 2, summary.Errors)
	assert.Equal(t, domain.StatusError, summary.Results[0].Status)
	assert.FileExists(t, custom)
}

func TestCheckCmd_WithContract(t *testing.T) {
	f := newFixture(t)
	var prompts []string
	stubOpen(t, func(p string) (string, error) {
		prompts = append(prompts, p)
		return "Status: YES\nEvidence: governed by the laws of Delaware", nil
	})
	contract := filepath.Join(f.dir, "contracts", "alpha.txt")

	out, err := run(t, "--config", f.configPath, "check", "--rule", "1", "--contract", contract, "--json")
	require.NoError(t, err)

	var res domain.EvaluationResult
	require.NoError(t, json.Unmarshal([]byte(out), &res))
	assert.Equal(t, domain.StatusCompliant, res.Status)
	assert.Equal(t, []string{domain.SelectedContractSource}, res.Sources)
	require.Len(t, prompts, 1)
	assert.Contains(t, prompts[0], "State of Delaware")
}

func TestCheckCmd_Errors(t *testing.T) {
	f := newFixture(t)
	stubOpen(t, func(string) (string, error) { return "NO", nil })

	_, err := run(t, "--config", f.configPath, "check", "--rule", "9", "--contract", filepath.Join(f.dir, "contracts", "beta.txt"))
	assert.ErrorIs(t, err, domain.ErrRuleNotFound)

	_, err = run(t, "--config", f.configPath, "check", "--rule", "1")
	assert.ErrorIs(t, err, domain.ErrIndexNotFound)

	_, err = run(t, "--config", f.configPath, "check")
	assert.Error(t, err)
}

func TestCheckCmd_TextOutput(t *testing.T) {
	f := newFixture(t)
	stubOpen(t, func(string) (string, error) { return "Status: NO\nRemediation: add a payment clause", nil })
	_, err := run(t, "--config", f.configPath, "index")
	require.NoError(t, err)

	out, err := run(t, "--config", f.configPath, "check", "-r", "2")
	require.NoError(t, err)
	assert.Contains(t, out, "Rule 2: Payment Terms")
	assert.Contains(t, out, "Status: NON_COMPLIANT")
	assert.Contains(t, out, "Sources:")
	assert.Contains(t, out, "Doc 1 - ")
	assert.Contains(t, out, "Key sentence: Each invoice is payable within forty five days of receipt.")
}

func TestIndexCmd_EmptyCorpusFails(t *testing.T) {
	f := newFixture(t)
	empty := filepath.Join(f.dir, "empty")
	require.NoError(t, os.Mkdir(empty, 0o755))

	_, err := run(t, "--config", f.configPath, "index", "--corpus", empty)
	assert.ErrorIs(t, err, domain.ErrIndexBuild)
	assert.False(t, vectorstore.Exists(f.index))
}
