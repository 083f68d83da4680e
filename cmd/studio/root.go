package main

import (
	"github.com/spf13/cobra"

	"github.com/diagnosis/studio16/pkg/config"
	"github.com/diagnosis/studio16/pkg/logger"
)

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "studio",
		Short: "Studio 1.6 portfolio site",
		Long: `Serves the Studio 1.6 portfolio: the public artwork pages, the WhatsApp hand-off,
and the admin editor behind the one-time-code gate.

Configuration comes from the environment, with .env loaded when present.`,
		SilenceUsage: true,
	}
	cmd.AddCommand(newServeCmd(), newEventsCmd())
	return cmd
}

// loadConfig reads and validates configuration and applies the log level.
func loadConfig() (*config.Config, error) {
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	logger.SetLevel(cfg.Log.Level)
	return cfg, nil
}
