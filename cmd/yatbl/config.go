package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Enkel-Digital/yatbl/internal/config"
)

func configCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Configuration management",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "check <path>",
		Short: "Validate configuration",
		Args:  cobra.ExactArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			cfg, err := config.Load(args[0])
			if err != nil {
				return err
			}
			if err := config.Validate(cfg); err != nil {
				return err
			}

			fmt.Printf("Configuration OK (mode: %s)\n", cfg.Mode)
			if cfg.Sessions.Path != "" {
				fmt.Printf("  sessions: sqlite at %s\n", cfg.Sessions.Path)
			} else {
				fmt.Println("  sessions: in-memory")
			}
			if n := len(cfg.Schedule); n > 0 {
				fmt.Printf("  scheduled jobs: %d\n", n)
			}
			if cfg.Telemetry.Endpoint != "" {
				fmt.Printf("  telemetry: %s\n", cfg.Telemetry.Endpoint)
			}
			return nil
		},
	})
	return cmd
}
