package main

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/charmbracelet/huh"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

func initCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Interactively create a configuration file",
		RunE: func(cmd *cobra.Command, _ []string) error {
			path, _ := cmd.Flags().GetString("output")
			force, _ := cmd.Flags().GetBool("force")

			if _, err := os.Stat(path); err == nil && !force {
				return fmt.Errorf("%s already exists, use --force to overwrite", path)
			}

			doc, err := runInitWizard()
			if err != nil {
				return err
			}
			if err := writeInitConfig(path, doc); err != nil {
				return err
			}

			fmt.Printf("Configuration written to %s\n", path)
			fmt.Println("Start the bot with: yatbl start --config", path)
			return nil
		},
	}
	cmd.Flags().StringP("output", "o", "yatbl.yaml", "Where to write the configuration")
	cmd.Flags().Bool("force", false, "Overwrite an existing file")
	return cmd
}

// initDoc is the subset of the configuration the wizard writes. Field
// order here is the order in the generated file.
type initDoc struct {
	Token    string        `yaml:"token"`
	Mode     string        `yaml:"mode"`
	Webhook  *initWebhook  `yaml:"webhook,omitempty"`
	Sessions *initSessions `yaml:"sessions,omitempty"`
	Echo     bool          `yaml:"echo,omitempty"`
	Log      initLog       `yaml:"log"`
}

type initWebhook struct {
	URL string `yaml:"url"`
}

type initSessions struct {
	Path string `yaml:"path"`
}

type initLog struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

func runInitWizard() (initDoc, error) {
	var (
		token      string
		mode       = "polling"
		webhookURL string
		sessions   string
		echo       bool
	)

	form := huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Bot token").
				Description("From @BotFather. Leave empty to read ${BOT_TOKEN} from the environment.").
				EchoMode(huh.EchoModePassword).
				Value(&token),
			huh.NewSelect[string]().
				Title("Update source").
				Options(
					huh.NewOption("Long polling (no public URL needed)", "polling"),
					huh.NewOption("Webhook (public HTTPS URL)", "webhook"),
				).
				Value(&mode),
		),
		huh.NewGroup(
			huh.NewInput().
				Title("Public webhook URL").
				Placeholder("https://bot.example.com").
				Validate(func(s string) error {
					if !strings.HasPrefix(s, "https://") {
						return errors.New("Telegram only delivers to https:// URLs")
					}
					return nil
				}).
				Value(&webhookURL),
		).WithHideFunc(func() bool { return mode != "webhook" }),
		huh.NewGroup(
			huh.NewInput().
				Title("Session database path").
				Description("Leave empty to keep per-chat state in memory only.").
				Placeholder("yatbl.db").
				Value(&sessions),
			huh.NewConfirm().
				Title("Enable the echo demo handler?").
				Value(&echo),
		),
	)

	if err := form.Run(); err != nil {
		return initDoc{}, err
	}

	doc := initDoc{
		Token: strings.TrimSpace(token),
		Mode:  mode,
		Echo:  echo,
		Log:   initLog{Level: "info", Format: "text"},
	}
	if doc.Token == "" {
		doc.Token = "${BOT_TOKEN}"
	}
	if mode == "webhook" {
		doc.Webhook = &initWebhook{URL: strings.TrimSpace(webhookURL)}
	}
	if path := strings.TrimSpace(sessions); path != "" {
		doc.Sessions = &initSessions{Path: path}
	}
	return doc, nil
}

func writeInitConfig(path string, doc initDoc) error {
	data, err := yaml.Marshal(doc)
	if err != nil {
		return fmt.Errorf("encoding configuration: %w", err)
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}
	return nil
}
