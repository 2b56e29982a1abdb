// ABOUTME: serve command: loads config, prints the startup banner and runs the gateway
// ABOUTME: Blocks until the context is cancelled, then shuts the gateway down gracefully

package main

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/2389/wadash/internal/config"
	"github.com/2389/wadash/internal/gateway"
)

func newServeCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the dashboard server",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd, opts)
		},
	}
}

func runServe(cmd *cobra.Command, opts *rootOptions) error {
	configPath := opts.configPath()
	out := cmd.OutOrStdout()

	cyan := color.New(color.FgCyan)
	cyan.Fprint(out, banner)

	gray := color.New(color.FgHiBlack)
	gray.Fprintf(out, "    version: %s\n\n", version)

	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	logger := setupLogger(cfg.Logging, out)

	green := color.New(color.FgGreen)
	yellow := color.New(color.FgYellow)

	green.Fprint(out, "    ▶ ")
	fmt.Fprintf(out, "Config:    %s\n", configPath)
	green.Fprint(out, "    ▶ ")
	fmt.Fprintf(out, "HTTP:      %s\n", cfg.Server.HTTPAddr)
	green.Fprint(out, "    ▶ ")
	fmt.Fprintf(out, "Storage:   %s", cfg.Storage.Backend)
	switch cfg.Storage.Backend {
	case config.BackendFile:
		gray.Fprintf(out, " (%s)", cfg.Storage.DataDir)
	case config.BackendSQLite:
		gray.Fprintf(out, " (%s)", cfg.Storage.SQLitePath)
	case config.BackendMemory:
		yellow.Fprint(out, " [not persisted]")
	}
	fmt.Fprintln(out)

	if cfg.Relay.Redis.Addr != "" {
		green.Fprint(out, "    ▶ ")
		fmt.Fprintf(out, "Redis:     %s ", cfg.Relay.Redis.Addr)
		cyan.Fprintln(out, cfg.Relay.Redis.Channel)
	}
	if cfg.Relay.AMQP.URL != "" {
		green.Fprint(out, "    ▶ ")
		fmt.Fprint(out, "AMQP:      ")
		cyan.Fprintln(out, cfg.Relay.AMQP.Exchange)
	}
	fmt.Fprintln(out)

	logger.Info("starting wadash",
		"config", configPath,
		"http_addr", cfg.Server.HTTPAddr,
		"storage", cfg.Storage.Backend,
	)

	gw, err := gateway.New(cfg, logger)
	if err != nil {
		return fmt.Errorf("creating gateway: %w", err)
	}

	return gw.Run(cmd.Context())
}
