package main

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	herrors "github.com/hashpad-dev/hashpad/internal/errors"
	"github.com/hashpad-dev/hashpad/internal/tui"
)

func editCmd(a *app) *cobra.Command {
	var (
		base    string
		logFile string
	)

	cmd := &cobra.Command{
		Use:   "edit [link]",
		Short: "Edit a pad in the terminal",
		Long: `Open a terminal editor whose text lives in a link.

The link in the footer is rewritten as you type, exactly like the address
bar of the browser pad. Copy it with ctrl+y, open a link from the
clipboard with ctrl+o and step through earlier links with alt+left and
alt+right. The final link is printed when the editor exits.

Examples:
  hashpad edit
  hashpad edit 'http://localhost:3000/#y0jNyclXKM8vykkBAA'
  hashpad edit --log-file=/tmp/hashpad.log`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var link string
			if len(args) == 1 {
				link = args[0]
			}
			if base == "" {
				base = a.cfg.BaseURL
			}

			// The editor owns the terminal, so logs go to a file or nowhere.
			var logOut io.Writer = io.Discard
			if logFile != "" {
				f, err := os.OpenFile(logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
				if err != nil {
					return herrors.FromError(err, "E151").WithDetail("Cannot open log file " + logFile)
				}
				defer f.Close()
				logOut = f
			}

			m := tui.New(tui.Options{
				BaseURL:        base,
				Link:           link,
				Codec:          a.cfg.NewCodec(),
				Debounce:       a.cfg.Debounce.Std(),
				LinkWarnLength: a.cfg.LinkWarnLength,
				Logger:         a.cfg.Log.NewLogger(logOut),
			})

			final, err := tui.Run(cmd.Context(), m)
			if errors.Is(err, tui.ErrNoTerminal) {
				return herrors.New("E151").
					WithDetail("edit needs an interactive terminal.").
					WithSuggestion("Use 'hashpad encode' to build a link from piped text.")
			}
			if err != nil {
				return err
			}

			fmt.Fprintln(cmd.OutOrStdout(), final)
			return nil
		},
	}

	cmd.Flags().StringVarP(&base, "base", "b", "", "Base URL for the link (default: baseURL from config)")
	cmd.Flags().StringVar(&logFile, "log-file", "", "Append logs to this file")

	return cmd
}
