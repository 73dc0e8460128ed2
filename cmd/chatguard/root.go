package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/jonwraymond/chatguard/config"
)

// Build metadata, set with -ldflags.
var (
	Version   = "0.1.0-dev"
	GitCommit = "unknown"
)

// configEnv names the config file when --config is not given.
const configEnv = "CHATGUARD_CONFIG"

type rootOptions struct {
	configPath string
}

// load reads the configuration named by --config or CHATGUARD_CONFIG.
// With neither set it returns the defaults with environment overrides.
func (o *rootOptions) load(ctx context.Context) (*config.Config, error) {
	return config.Load(ctx, o.path())
}

func (o *rootOptions) path() string {
	if o.configPath != "" {
		return o.configPath
	}
	return os.Getenv(configEnv)
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}
	cmd := &cobra.Command{
		Use:   "chatguard",
		Short: "Guard layer for chat-service API access",
		Long: `chatguard decides whether requests to a chat service may run: it
authenticates callers, validates inputs, applies per-caller rate limits,
enforces the room write policy, caches reads and neutralizes mass mentions
and dangerous URL schemes in outbound text.`,
		SilenceUsage: true,
	}
	cmd.PersistentFlags().StringVar(&opts.configPath, "config", "", "Path to config YAML (default: $"+configEnv+")")

	cmd.AddCommand(
		newServeCmd(opts),
		newSanitizeCmd(opts),
		newValidateCmd(opts),
		newCheckWriteCmd(opts),
		newConfigCmd(opts),
		newTokenCmd(opts),
		newVersionCmd(),
	)
	return cmd
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print chatguard version",
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "chatguard %s (%s)\n", Version, GitCommit)
		},
	}
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
