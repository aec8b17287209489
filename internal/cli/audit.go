package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"compliance/internal/audit"
)

var (
	auditOutput  string
	auditWorkers int
	auditJSON    bool
)

var auditCmd = &cobra.Command{
	Use:   "audit",
	Short: "Check every rule against the indexed corpus",
	Long: `Runs every rule of the catalog against the indexed corpus. A rule that
fails to evaluate is reported as ERROR and does not stop the audit.
Results are saved as a JSON array.`,
	Args: cobra.NoArgs,
	RunE: runAudit,
}

func init() {
	auditCmd.Flags().StringVarP(&auditOutput, "output", "o", "", "results file (overrides audit.output)")
	auditCmd.Flags().IntVarP(&auditWorkers, "workers", "w", 0, "rules evaluated in parallel (overrides audit.workers)")
	auditCmd.Flags().BoolVar(&auditJSON, "json", false, "print the full summary as JSON")
	rootCmd.AddCommand(auditCmd)
}

func runAudit(cmd *cobra.Command, _ []string) error {
	cfg := *appConfig
	if auditWorkers > 0 {
		cfg.Audit.Workers = auditWorkers
	}
	out := firstNonEmpty(auditOutput, cfg.Audit.Output)

	svc, err := openService(cmd.Context(), &cfg)
	if err != nil {
		return err
	}
	summary := svc.RunAll(cmd.Context())

	if err := audit.WriteFile(out, summary); err != nil {
		return fmt.Errorf("saving results: %w", err)
	}

	if auditJSON {
		data, err := json.MarshalIndent(summary, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to marshal summary: %w", err)
		}
		cmd.Println(string(data))
		return nil
	}

	cmd.Println("Audit Results Summary")
	cmd.Printf("  Compliant:     %d\n", summary.Compliant)
	cmd.Printf("  Non-Compliant: %d\n", summary.NonCompliant)
	cmd.Printf("  Errors:        %d\n\n", summary.Errors)
	for _, r := range summary.Results {
		cmd.Printf("%s - %s\n", r.RuleName, r.Status)
	}
	cmd.Printf("\nResults saved to %s\n", out)
	return nil
}
