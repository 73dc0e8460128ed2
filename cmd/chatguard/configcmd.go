package main

import (
	"fmt"
	"maps"
	"slices"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/jonwraymond/chatguard/config"
)

const redacted = "[REDACTED]"

func newConfigCmd(opts *rootOptions) *cobra.Command {
	var showSecrets bool
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Print the effective configuration as YAML",
		Long: `Loads the configuration with every override applied and prints it.
API keys and the JWT secret are redacted unless --show-secrets is given.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := opts.load(cmd.Context())
			if err != nil {
				return err
			}
			if !showSecrets {
				cfg = redact(cfg)
			}
			enc := yaml.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent(2)
			if err := enc.Encode(cfg); err != nil {
				return err
			}
			return enc.Close()
		},
	}
	cmd.Flags().BoolVar(&showSecrets, "show-secrets", false, "Print API keys and the JWT secret")
	return cmd
}

// redact returns a copy of cfg with credentials replaced.
func redact(cfg *config.Config) *config.Config {
	out := *cfg
	if len(cfg.Auth.APIKeys) > 0 {
		out.Auth.APIKeys = make(map[string]string, len(cfg.Auth.APIKeys))
		for i, principal := range slices.Sorted(maps.Values(cfg.Auth.APIKeys)) {
			out.Auth.APIKeys[fmt.Sprintf("%s-%d", redacted, i+1)] = principal
		}
	}
	if cfg.Auth.JWTSecret != "" {
		out.Auth.JWTSecret = redacted
	}
	out.RateLimits = maps.Clone(cfg.RateLimits)
	return &out
}
