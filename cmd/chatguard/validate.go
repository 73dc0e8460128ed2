package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/jonwraymond/chatguard/observe"
	"github.com/jonwraymond/chatguard/validate"
)

// errInvalid makes the command exit non-zero after printing the result.
var errInvalid = errors.New("invalid")

var fieldValidators = map[string]func(any) validate.Result{
	"roomId":    validate.RoomID,
	"messageId": validate.MessageID,
	"threadId":  validate.ThreadID,
	"userId":    validate.UserID,
	"username":  validate.Username,
	"query":     validate.Query,
	"text":      validate.MessageText,
	"emoji":     validate.Emoji,
}

var responseSchemas = map[string]validate.Checker{
	"base":     validate.BaseResponseSchema,
	"message":  validate.MessageSchema,
	"room":     validate.RoomSchema,
	"messages": validate.MessagesResponseSchema,
	"channels": validate.ChannelsResponseSchema,
	"send":     validate.SendMessageResponseSchema,
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func newValidateCmd(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Validate request parameters and upstream responses",
	}
	cmd.AddCommand(newValidateFieldCmd(), newValidateResponseCmd(opts))
	return cmd
}

func newValidateFieldCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "field <name> <value>",
		Short: "Validate one request parameter",
		Long:  "Validates value as the named parameter. Fields: " + strings.Join(sortedKeys(fieldValidators), ", "),
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			fn, ok := fieldValidators[args[0]]
			if !ok {
				return fmt.Errorf("unknown field %q (want one of %s)", args[0], strings.Join(sortedKeys(fieldValidators), ", "))
			}
			r := fn(args[1])
			if err := printJSON(cmd.OutOrStdout(), r); err != nil {
				return err
			}
			if !r.Valid {
				return errInvalid
			}
			return nil
		},
	}
}

func newValidateResponseCmd(opts *rootOptions) *cobra.Command {
	var (
		schema string
		strict bool
	)
	cmd := &cobra.Command{
		Use:   "response [file]",
		Short: "Validate an upstream JSON response against a schema",
		Long: `Checks a response body read from file, or stdin, against a named
schema. The schema mode comes from safety.schema_mode unless --strict is
given. Lenient mismatches are logged to stderr and exit zero. Schemas: ` +
			strings.Join(sortedKeys(responseSchemas), ", "),
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			checker, ok := responseSchemas[schema]
			if !ok {
				return fmt.Errorf("unknown schema %q (want one of %s)", schema, strings.Join(sortedKeys(responseSchemas), ", "))
			}

			var (
				data []byte
				err  error
			)
			if len(args) == 1 {
				data, err = os.ReadFile(args[0])
			} else {
				data, err = io.ReadAll(cmd.InOrStdin())
			}
			if err != nil {
				return err
			}

			mode := validate.ModeStrict
			if !strict {
				cfg, err := opts.load(cmd.Context())
				if err != nil {
					return err
				}
				mode = cfg.Safety.SchemaMode
			}

			logger := observe.NewLoggerWithWriter("warn", cmd.ErrOrStderr())
			if err := validate.Apply(cmd.Context(), checker, mode, data, logger); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s: ok\n", checker.Name())
			return nil
		},
	}
	cmd.Flags().StringVar(&schema, "schema", "base", "Schema name")
	cmd.Flags().BoolVar(&strict, "strict", false, "Fail on mismatch regardless of configuration")
	return cmd
}
