package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/jonwraymond/chatguard/sanitize"
)

func newSanitizeCmd(opts *rootOptions) *cobra.Command {
	var checkOnly bool
	cmd := &cobra.Command{
		Use:   "sanitize [text...]",
		Short: "Neutralize mentions and URL schemes in text",
		Long: `Sanitizes the arguments joined by spaces, or stdin when no arguments
are given, using the mention settings of the loaded configuration, and
prints the result as JSON. With --check the text is only inspected.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			text, err := inputText(cmd, args)
			if err != nil {
				return err
			}
			if checkOnly {
				return printJSON(cmd.OutOrStdout(), sanitize.Check(text))
			}

			cfg, err := opts.load(cmd.Context())
			if err != nil {
				return err
			}
			s, err := sanitize.New(cfg.Safety.Sanitize())
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), s.Sanitize(text))
		},
	}
	cmd.Flags().BoolVar(&checkOnly, "check", false, "Report dangerous patterns without rewriting")
	return cmd
}

func inputText(cmd *cobra.Command, args []string) (string, error) {
	if len(args) > 0 {
		return strings.Join(args, " "), nil
	}
	data, err := io.ReadAll(cmd.InOrStdin())
	if err != nil {
		return "", fmt.Errorf("read stdin: %w", err)
	}
	return strings.TrimSuffix(string(data), "\n"), nil
}
