// ABOUTME: Entry point for the wadash WhatsApp dashboard server
// ABOUTME: Builds the cobra command tree and runs it under a signal-aware context

package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/2389/wadash/internal/config"
)

// version is set at build time.
var version = "dev"

const banner = `
                    _           _
 __      ____ _  __| | __ _ ___| |__
 \ \ /\ / / _' |/ _' |/ _' / __| '_ \
  \ V  V / (_| | (_| | (_| \__ \ | | |
   \_/\_/ \__,_|\__,_|\__,_|___/_| |_|
`

// rootOptions holds global flags for all commands.
type rootOptions struct {
	ConfigPath string
	EnvFile    string
}

// configPath returns the --config flag, falling back to the default lookup.
func (o *rootOptions) configPath() string {
	if o.ConfigPath != "" {
		return o.ConfigPath
	}
	return config.DefaultPath()
}

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := newRootCommand().ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// newRootCommand creates the wadash command and its subcommands.
func newRootCommand() *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:           "wadash",
		Short:         "wadash - WhatsApp Business dashboard server",
		Long:          "Receives WhatsApp Business webhooks, stores conversations and serves the operator dashboard API.",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return loadEnv(opts.EnvFile)
		},
	}

	cmd.PersistentFlags().StringVarP(&opts.ConfigPath, "config", "c", "", "config file (default $WADASH_CONFIG or ~/.config/wadash/wadash.yaml)")
	cmd.PersistentFlags().StringVar(&opts.EnvFile, "env-file", ".env", "dotenv file loaded before the config")

	cmd.AddCommand(newServeCommand(opts))
	cmd.AddCommand(newInitCommand(opts))
	cmd.AddCommand(newHashPasswordCommand())
	cmd.AddCommand(newHealthCommand(opts))

	return cmd
}

// loadEnv populates the environment from a dotenv file so ${VAR} references
// in the config resolve. A missing file is not an error; variables already
// set in the environment win.
func loadEnv(path string) error {
	if path == "" {
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("loading %s: %w", path, err)
	}
	return nil
}
