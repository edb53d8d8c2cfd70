package main

import (
	"fmt"
	"os"

	"github.com/bwise1/gunaso/config"
	"github.com/bwise1/gunaso/util/logger"
	"github.com/spf13/cobra"
)

var cfg *config.Config

var rootCmd = &cobra.Command{
	Use:   "gunaso",
	Short: "gunaso - citizen complaint service",
	Long: `gunaso accepts citizen complaints, forwards each one to the responsible
government office and lets complainants follow its status.

Run without arguments to start the HTTP server.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		cfg = config.New()
		if err := logger.Init(cfg.LogLevel, cfg.LogFormat); err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		logger.Sync()
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		return runServe(cmd.Context(), false)
	},
}

func init() {
	rootCmd.AddCommand(serveCmd, migrateCmd, routeCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
