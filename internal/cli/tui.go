package cli

import (
	"io"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"compliance/internal/corpus"
	"compliance/internal/logger"
	"compliance/internal/tui"
)

var tuiContract string

var tuiCmd = &cobra.Command{
	Use:   "tui",
	Short: "Browse rules and run checks interactively",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		svc, err := openService(cmd.Context(), appConfig)
		if err != nil {
			return err
		}
		// Log lines would corrupt the alternate screen.
		logger.SetVerbose(false)
		logger.SetOutput(io.Discard)

		m := tui.New(cmd.Context(), svc, corpus.ReadContract, tuiContract)
		_, err = tea.NewProgram(m, tea.WithAltScreen(), tea.WithContext(cmd.Context())).Run()
		return err
	},
}

func init() {
	tuiCmd.Flags().StringVarP(&tuiContract, "contract", "c", "", "contract file to check instead of searching the corpus")
	rootCmd.AddCommand(tuiCmd)
}
