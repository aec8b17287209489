package cli

import (
	"strconv"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"

	"compliance/internal/catalog"
)

var rulesCmd = &cobra.Command{
	Use:   "rules",
	Short: "List the compliance rules",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		cat, err := catalog.Load(appConfig.Catalog.Path)
		if err != nil {
			return err
		}
		t := table.New().
			Border(lipgloss.NormalBorder()).
			Headers("ID", "NAME", "CATEGORY", "DESCRIPTION")
		for _, r := range cat.Rules() {
			t.Row(strconv.Itoa(r.ID), r.Name, r.Category, r.Description)
		}
		cmd.Println(t.Render())
		cmd.Printf("\nTotal Rules: %d\n", cat.Len())
		return nil
	},
}

func init() {
	rootCmd.AddCommand(rulesCmd)
}
