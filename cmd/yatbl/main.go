// Package main is the entry point for the yatbl command line tool. It
// runs a configured bot, manages the webhook registration on
// Telegram's side, and installs the bot as a system service.
package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
)

// Set by goreleaser ldflags.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	if err := rootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "yatbl",
		Short:         "Run and manage Telegram bots built on yatbl",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.AddCommand(
		versionCmd(),
		initCmd(),
		configCmd(),
		startCmd(),
		getmeCmd(),
		webhookCmd(),
		serviceCmd(),
	)

	return root
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(_ *cobra.Command, _ []string) {
			fmt.Printf("yatbl %s (commit: %s, built: %s)\n", version, commit, date)
		},
	}
}

// resolveConfigPath searches for a config file in standard locations.
// Search order: $XDG_CONFIG_HOME/yatbl/yatbl.yaml, then ./yatbl.yaml.
func resolveConfigPath() (string, error) {
	var candidates []string

	if xdg, ok := os.LookupEnv("XDG_CONFIG_HOME"); ok {
		candidates = append(candidates, filepath.Join(xdg, "yatbl", "yatbl.yaml"))
	} else if home, err := os.UserHomeDir(); err == nil {
		candidates = append(candidates, filepath.Join(home, ".config", "yatbl", "yatbl.yaml"))
	}

	candidates = append(candidates, "yatbl.yaml")

	for _, path := range candidates {
		if _, err := os.Stat(path); err == nil {
			return path, nil
		}
	}

	return "", fmt.Errorf("no configuration file found (searched: %v), run 'yatbl init' to create one", candidates)
}
