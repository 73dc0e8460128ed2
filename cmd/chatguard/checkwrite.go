package main

import (
	"github.com/spf13/cobra"

	"github.com/jonwraymond/chatguard/auth"
)

func newCheckWriteCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "check-write <roomId> [roomName]",
		Short: "Evaluate the write policy for a room",
		Long: `Prints the write guard's decision for a room under the loaded
configuration and exits non-zero when the write would be denied.`,
		Args: cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := opts.load(cmd.Context())
			if err != nil {
				return err
			}
			name := ""
			if len(args) == 2 {
				name = args[1]
			}
			d := auth.NewWriteGuard(cfg.Write).CheckWrite(args[0], name)
			if err := printJSON(cmd.OutOrStdout(), d); err != nil {
				return err
			}
			if !d.Allowed {
				return errInvalid
			}
			return nil
		},
	}
}
