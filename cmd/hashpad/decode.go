package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/hashpad-dev/hashpad/internal/errors"
	"github.com/hashpad-dev/hashpad/pkg/fragment"
)

func decodeCmd(a *app) *cobra.Command {
	var raw bool

	cmd := &cobra.Command{
		Use:   "decode <token|link>",
		Short: "Print the text a link holds",
		Long: `Decode a hashpad link, or the bare token after its '#', and print the text.

A link that does not decode exits with a non-zero status and a coded error
describing what is wrong with it.

Examples:
  hashpad decode 'http://localhost:3000/#y0jNyclXKM8vykkBAA'
  hashpad decode y0jNyclXKM8vykkBAA
  pbpaste | hashpad decode -`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			input := args[0]
			if input == "-" {
				data, err := io.ReadAll(cmd.InOrStdin())
				if err != nil {
					return errors.FromError(err, "E151").WithDetail("Failed to read standard input.")
				}
				input = string(data)
			}

			token := fragment.TokenOf(input)
			if token == "" {
				return nil
			}
			text, err := a.cfg.NewCodec().Decode(token)
			if err != nil {
				a.logger.Debug("decode failed", "token_length", len(token), "error", err)
				return errors.FromDecodeError(err)
			}

			out := cmd.OutOrStdout()
			fmt.Fprint(out, text)
			if !raw && text != "" && !strings.HasSuffix(text, "\n") {
				fmt.Fprintln(out)
			}
			return nil
		},
	}

	cmd.Flags().BoolVarP(&raw, "raw", "r", false, "Print the text exactly, without a trailing newline")

	return cmd
}
