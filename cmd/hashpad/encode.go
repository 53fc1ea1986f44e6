package main

import (
	"fmt"
	"io"
	"strings"
	"unicode/utf8"

	"github.com/atotto/clipboard"
	"github.com/spf13/cobra"

	"github.com/hashpad-dev/hashpad/internal/errors"
	"github.com/hashpad-dev/hashpad/pkg/fragment"
)

// writeClipboard is replaced in tests.
var writeClipboard = clipboard.WriteAll

func encodeCmd(a *app) *cobra.Command {
	var (
		link        bool
		base        string
		copyLink    bool
		keepNewline bool
	)

	cmd := &cobra.Command{
		Use:   "encode [text]",
		Short: "Encode text into a link token",
		Long: `Encode text into the token that goes after '#' in a hashpad link.

With no argument, or with "-", the text is read from standard input and a
single trailing newline is dropped unless --keep-newline is set.

Examples:
  hashpad encode "hello world"
  cat notes.md | hashpad encode --link
  hashpad encode --link --copy < todo.txt`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			text, err := readText(cmd.InOrStdin(), args, keepNewline)
			if err != nil {
				return err
			}
			if !utf8.ValidString(text) {
				return errors.New("E151").WithDetail("Input is not valid UTF-8 text.")
			}

			// Empty text is the link without a fragment.
			var token string
			if text != "" {
				token, err = a.cfg.NewCodec().Encode(text)
				if err != nil {
					return errors.FromError(err, "E151")
				}
			}

			out := token
			if link || copyLink {
				if base == "" {
					base = a.cfg.BaseURL
				}
				out = fragment.Join(base, token)
			}
			if a.cfg.LinkWarnLength > 0 && len(out) > a.cfg.LinkWarnLength {
				warn(cmd.ErrOrStderr(), "link is %d characters and may be truncated when shared", len(out))
			}

			fmt.Fprintln(cmd.OutOrStdout(), out)

			if copyLink {
				if err := writeClipboard(out); err != nil {
					return errors.New("E150").Wrap(err)
				}
				success(cmd.ErrOrStderr(), "Link copied to clipboard")
			}
			return nil
		},
	}

	cmd.Flags().BoolVarP(&link, "link", "l", false, "Print the full link instead of the bare token")
	cmd.Flags().StringVarP(&base, "base", "b", "", "Base URL for --link (default: baseURL from config)")
	cmd.Flags().BoolVar(&copyLink, "copy", false, "Copy the link to the clipboard (implies --link)")
	cmd.Flags().BoolVar(&keepNewline, "keep-newline", false, "Keep the trailing newline of standard input")

	return cmd
}

// readText returns the argument, or standard input when there is none or
// it is "-".
func readText(stdin io.Reader, args []string, keepNewline bool) (string, error) {
	if len(args) == 1 && args[0] != "-" {
		return args[0], nil
	}
	data, err := io.ReadAll(stdin)
	if err != nil {
		return "", errors.FromError(err, "E151").WithDetail("Failed to read standard input.")
	}
	text := string(data)
	if !keepNewline {
		if t, ok := strings.CutSuffix(text, "\r\n"); ok {
			text = t
		} else {
			text = strings.TrimSuffix(text, "\n")
		}
	}
	return text, nil
}
