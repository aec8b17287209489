package cli

import (
	"github.com/spf13/cobra"

	"compliance/internal/server"
)

var serveAddr string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the compliance API over HTTP",
	Long: `Serves GET /health, GET /rules, POST /evaluate and POST /audit until
interrupted.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		svc, err := openService(cmd.Context(), appConfig)
		if err != nil {
			return err
		}
		addr := firstNonEmpty(serveAddr, appConfig.Server.Addr)
		cmd.Printf("Serving %s on %s\n", svc, addr)
		return server.New(svc).Run(cmd.Context(), addr)
	},
}

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "listen address (overrides server.addr)")
	rootCmd.AddCommand(serveCmd)
}
