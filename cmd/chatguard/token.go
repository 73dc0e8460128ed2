package main

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/jonwraymond/chatguard/auth"
)

func newTokenCmd(opts *rootOptions) *cobra.Command {
	var (
		principal string
		roles     []string
		ttl       time.Duration
	)
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Mint a bearer token for local testing",
		Long: `Signs an HS256 token for --principal with auth.jwt_secret and the
configured issuer and audience. The token's subject becomes the caller's rate-limit key.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := opts.load(cmd.Context())
			if err != nil {
				return err
			}
			if cfg.Auth.JWTSecret == "" {
				return errors.New("auth.jwt_secret is not configured")
			}
			tok, err := auth.SignHS256([]byte(cfg.Auth.JWTSecret), auth.TokenSpec{
				Principal: principal,
				Issuer:    cfg.Auth.JWTIssuer,
				Audience:  cfg.Auth.JWTAudience,
				Roles:     roles,
				TTL:       ttl,
			})
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), tok)
			return nil
		},
	}
	cmd.Flags().StringVar(&principal, "principal", "", "Token subject (required)")
	cmd.Flags().StringSliceVar(&roles, "role", nil, "Role to grant (repeatable)")
	cmd.Flags().DurationVar(&ttl, "ttl", time.Hour, "Token lifetime")
	_ = cmd.MarkFlagRequired("principal")
	return cmd
}
