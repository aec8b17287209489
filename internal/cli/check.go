package cli

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"compliance/internal/corpus"
	"compliance/internal/domain"
	"compliance/internal/evidence"
)

var (
	checkRuleID   int
	checkContract string
	checkJSON     bool
)

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Check one rule against a contract or the whole corpus",
	Long: `Checks a single rule. With --contract the rule is checked against that
contract's text; otherwise the most relevant passages of the indexed corpus
are retrieved for the rule description.`,
	Args: cobra.NoArgs,
	RunE: runCheck,
}

func init() {
	checkCmd.Flags().IntVarP(&checkRuleID, "rule", "r", 0, "rule id to check (required)")
	checkCmd.Flags().StringVarP(&checkContract, "contract", "c", "", "contract file (.txt or .pdf) to check instead of searching the corpus")
	checkCmd.Flags().BoolVar(&checkJSON, "json", false, "output the result as JSON")
	_ = checkCmd.MarkFlagRequired("rule")
	rootCmd.AddCommand(checkCmd)
}

func runCheck(cmd *cobra.Command, _ []string) error {
	if checkRuleID <= 0 {
		return fmt.Errorf("%w: --rule must be a positive rule id", domain.ErrInvalidInput)
	}
	text := ""
	if checkContract != "" {
		var err error
		if text, err = corpus.ReadContract(checkContract); err != nil {
			return fmt.Errorf("reading contract: %w", err)
		}
		if text == "" {
			return errors.New("contract is empty")
		}
	}

	svc, err := openService(cmd.Context(), appConfig)
	if err != nil {
		return err
	}
	res, err := svc.Evaluate(cmd.Context(), checkRuleID, text)
	if err != nil {
		return err
	}
	if checkJSON {
		data, err := json.MarshalIndent(res, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to marshal result: %w", err)
		}
		cmd.Println(string(data))
		return nil
	}
	query := ""
	if rule, err := svc.Rule(checkRuleID); err == nil {
		query = rule.Description
	}
	outputResult(cmd, res, query)
	return nil
}

var ranker = evidence.NewRanker()

func outputResult(cmd *cobra.Command, res domain.EvaluationResult, query string) {
	cmd.Printf("Rule %d: %s\n", res.RuleID, res.RuleName)
	cmd.Printf("Status: %s\n\n", res.Status)
	cmd.Println(res.Response)
	cmd.Println()
	cmd.Println("Sources:")
	for _, s := range res.Sources {
		cmd.Printf("  - %s\n", s)
	}
	for i, e := range res.Excerpts {
		cmd.Printf("\nDoc %d - %s (%.3f)\n", i+1, e.Source, e.Score)
		cmd.Println(e.Text)
		if best, ok := ranker.Best(e.Text, query); ok {
			cmd.Printf("Key sentence: %s\n", best.Text)
		}
	}
}
