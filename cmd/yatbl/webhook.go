package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/Enkel-Digital/yatbl/tapi"
)

func getmeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "getme",
		Short: "Verify the token by fetching the bot's identity",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfigFromFlags(cmd)
			if err != nil {
				return err
			}

			client := tapi.NewClient(cfg.Token, cfg.APIURL)
			me, err := client.GetMe(cmd.Context())
			if err != nil {
				return err
			}

			fmt.Printf("@%s (id %d, name %q)\n", me.Username, me.ID, me.FirstName)
			return nil
		},
	}
	cmd.Flags().StringP("config", "c", "", "Path to configuration file")
	return cmd
}

func webhookCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "webhook",
		Short: "Manage the webhook registration on Telegram's side",
	}
	cmd.PersistentFlags().StringP("config", "c", "", "Path to configuration file")
	cmd.AddCommand(webhookSetCmd(), webhookDeleteCmd(), webhookInfoCmd())
	return cmd
}

func webhookSetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "set",
		Short: "Register the configured webhook URL without starting a server",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfigFromFlags(cmd)
			if err != nil {
				return err
			}

			wcfg := webhookSettings(cfg)
			wcfg.Token = cfg.Token
			if err := wcfg.Validate(); err != nil {
				return err
			}

			client := tapi.NewClient(cfg.Token, cfg.APIURL)
			if _, err := client.Call(cmd.Context(), "setWebhook", wcfg.RegistrationPayload()); err != nil {
				return err
			}

			fmt.Printf("Webhook registered: %s\n", wcfg.Endpoint())
			return nil
		},
	}
}

func webhookDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete",
		Short: "Remove the webhook registration",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfigFromFlags(cmd)
			if err != nil {
				return err
			}

			client := tapi.NewClient(cfg.Token, cfg.APIURL)
			if err := client.DeleteWebhook(cmd.Context()); err != nil {
				return err
			}

			fmt.Println("Webhook deleted.")
			return nil
		},
	}
}

func webhookInfoCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "info",
		Short: "Show what Telegram currently has registered",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfigFromFlags(cmd)
			if err != nil {
				return err
			}

			client := tapi.NewClient(cfg.Token, cfg.APIURL)
			info, err := client.GetWebhookInfo(cmd.Context())
			if err != nil {
				return err
			}

			if info.URL == "" {
				fmt.Println("No webhook registered (long polling available).")
				return nil
			}

			fmt.Printf("URL:             %s\n", info.URL)
			fmt.Printf("Pending updates: %d\n", info.PendingUpdateCount)
			if info.IPAddress != "" {
				fmt.Printf("IP address:      %s\n", info.IPAddress)
			}
			if info.MaxConnections > 0 {
				fmt.Printf("Max connections: %d\n", info.MaxConnections)
			}
			if len(info.AllowedUpdates) > 0 {
				fmt.Printf("Allowed updates: %v\n", info.AllowedUpdates)
			}
			if info.LastErrorMessage != "" {
				when := time.Unix(int64(info.LastErrorDate), 0).Format(time.RFC3339)
				fmt.Printf("Last error:      %s (%s)\n", info.LastErrorMessage, when)
			}
			return nil
		},
	}
}
