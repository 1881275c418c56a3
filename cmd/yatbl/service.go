package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/kardianos/service"
	"github.com/spf13/cobra"
)

func serviceCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "service",
		Short: "Run or manage the bot as a system service",
	}
	cmd.PersistentFlags().StringP("config", "c", "", "Path to configuration file")
	cmd.AddCommand(
		serviceActionCmd("install", "Install the system service"),
		serviceActionCmd("uninstall", "Remove the system service"),
		serviceActionCmd("start", "Start the installed service"),
		serviceActionCmd("stop", "Stop the installed service"),
		serviceRunCmd(),
	)
	return cmd
}

func serviceActionCmd(action, short string) *cobra.Command {
	return &cobra.Command{
		Use:   action,
		Short: short,
		RunE: func(cmd *cobra.Command, _ []string) error {
			svc, err := newService(cmd)
			if err != nil {
				return err
			}
			if err := service.Control(svc, action); err != nil {
				return err
			}
			fmt.Printf("Service %s: done\n", action)
			return nil
		},
	}
}

func serviceRunCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Run under the service manager (used by the installed unit)",
		RunE: func(cmd *cobra.Command, _ []string) error {
			svc, err := newService(cmd)
			if err != nil {
				return err
			}
			return svc.Run()
		},
	}
}

func newService(cmd *cobra.Command) (service.Service, error) {
	cfgPath, _ := cmd.Flags().GetString("config")

	arguments := []string{"service", "run"}
	if cfgPath != "" {
		arguments = append(arguments, "--config", cfgPath)
	}

	svcConfig := &service.Config{
		Name:        "yatbl",
		DisplayName: "yatbl Telegram bot",
		Description: "Runs a Telegram bot from a yatbl configuration file.",
		Arguments:   arguments,
	}

	prg := &program{cfgPath: cfgPath}
	return service.New(prg, svcConfig)
}

// program adapts the bot run loop to the service manager's lifecycle.
// Start must return promptly, so the loop runs in a goroutine; Stop
// cancels it and waits for teardown to finish.
type program struct {
	cfgPath string
	cancel  context.CancelFunc
	done    chan struct{}
}

func (p *program) Start(_ service.Service) error {
	ctx, cancel := context.WithCancel(context.Background())
	p.cancel = cancel
	p.done = make(chan struct{})

	go func() {
		defer close(p.done)
		cfg, err := loadConfigAt(p.cfgPath)
		if err != nil {
			slog.Error("service start failed", "error", err)
			return
		}
		logger := buildLogger(cfg)
		if err := runBot(ctx, cfg, logger); err != nil {
			logger.Error("bot stopped", "error", err)
		}
	}()
	return nil
}

func (p *program) Stop(_ service.Service) error {
	if p.cancel != nil {
		p.cancel()
		<-p.done
	}
	return nil
}
