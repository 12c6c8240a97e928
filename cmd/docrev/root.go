package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"docrev/internal/config"
)

func newRootCmd(cfg *config.Config) *cobra.Command {
	var (
		jsonOutput bool
		logLevel   string
	)

	cmd := &cobra.Command{
		Use:   "docrev",
		Short: "Docrev manages engineering drawings and their revision history",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			warning, err := configureLoggerForCLI(logLevel, cfg.LogLevel)
			if err != nil {
				return err
			}
			if warning != "" {
				fmt.Fprintln(os.Stderr, warning)
			}
			return nil
		},
	}

	cmd.Version = version
	cmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "output JSON")
	cmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level (debug, info, warn, error)")

	cmd.AddCommand(
		newSrvCmd(cfg),
		newSeedCmd(cfg, &jsonOutput),
		newSweepCmd(cfg, &jsonOutput),
		newUserCmd(cfg, &jsonOutput),
		newConfigCmd(cfg),
	)

	return cmd
}
