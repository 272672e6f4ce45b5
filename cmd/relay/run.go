package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"helios-ai/relay/pkg/cli"
	"helios-ai/relay/pkg/config"
	"helios-ai/relay/pkg/server"
	"helios-ai/relay/pkg/telemetry/logging"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Start the relay server",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		logger, err := logging.Setup(logging.Config{
			Level:     cfg.Logging.Level,
			Format:    cfg.Logging.Format,
			AddSource: cfg.Logging.AddSource,
		})
		if err != nil {
			return fmt.Errorf("logging: %w", err)
		}

		srv, err := server.New(cfg, logger)
		if err != nil {
			return err
		}

		return srv.Run(cli.SignalContext())
	},
}

func loadConfig() (*config.Config, error) {
	if cfgFile == "" {
		return config.Default(), nil
	}
	return config.Load(cfgFile)
}

func init() {
	rootCmd.AddCommand(runCmd)
}
