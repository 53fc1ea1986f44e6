package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/hashpad-dev/hashpad/internal/config"
	"github.com/hashpad-dev/hashpad/internal/errors"
)

// Version information set at build time.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

const banner = `
  ╦ ╦┌─┐┌─┐┬ ┬┌─┐┌─┐┌┬┐
  ╠═╣├─┤└─┐├─┤├─┘├─┤ ││
  ╩ ╩┴ ┴└─┘┴ ┴┴  ┴ ┴─┴┘
`

// globalFlags are the persistent flags shared by every command.
type globalFlags struct {
	configPath string
	logLevel   string
	noColor    bool
}

// app is the state the root command prepares for its subcommands.
type app struct {
	flags  globalFlags
	cfg    *config.Config
	logger *slog.Logger
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		errors.PrintError(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	a := &app{}

	rootCmd := &cobra.Command{
		Use:   "hashpad",
		Short: "Text pads that live in the link",
		Long: `Hashpad stores text in the fragment of a URL.

The text is compressed with raw deflate and encoded as base64url after
the '#', so a link carries the whole document and nothing is stored
on a server. Features include:

  • encode and decode links from the shell
  • a live browser pad served over WebSocket
  • a terminal editor that keeps the link current as you type`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.setup(cmd.ErrOrStderr())
		},
	}

	pf := rootCmd.PersistentFlags()
	pf.StringVarP(&a.flags.configPath, "config", "c", "", "Path to hashpad.yaml (default: nearest one above the working directory)")
	pf.StringVar(&a.flags.logLevel, "log-level", "", "Log level: debug, info, warn or error")
	pf.BoolVar(&a.flags.noColor, "no-color", false, "Disable colored output")

	rootCmd.AddCommand(
		encodeCmd(a),
		decodeCmd(a),
		serveCmd(a),
		editCmd(a),
		versionCmd(),
	)

	return rootCmd
}

// setup loads and validates the configuration and builds the logger.
func (a *app) setup(logOut io.Writer) error {
	if a.flags.noColor || os.Getenv("NO_COLOR") != "" {
		errors.DisableColors()
	} else {
		errors.EnableColors()
	}

	var (
		cfg *config.Config
		err error
	)
	if a.flags.configPath != "" {
		cfg, err = config.LoadFile(a.flags.configPath)
	} else {
		cfg, err = config.LoadFromWorkingDir()
	}
	if err != nil {
		return err
	}
	if a.flags.logLevel != "" {
		cfg.Log.Level = a.flags.logLevel
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	a.cfg = cfg
	a.logger = cfg.Log.NewLogger(logOut)
	slog.SetDefault(a.logger)
	return nil
}

// printBanner prints the Hashpad ASCII art banner.
func printBanner(w io.Writer) {
	fmt.Fprint(w, banner)
}

// mark colors a status symbol unless colors are disabled.
func mark(code, symbol string) string {
	if !errors.ColorsEnabled() {
		return symbol
	}
	return code + symbol + "\033[0m"
}

// success prints a success message.
func success(w io.Writer, format string, args ...any) {
	fmt.Fprintf(w, "%s %s\n", mark("\033[32m", "✓"), fmt.Sprintf(format, args...))
}

// info prints an info message.
func info(w io.Writer, format string, args ...any) {
	fmt.Fprintf(w, "  %s\n", fmt.Sprintf(format, args...))
}

// warn prints a warning message.
func warn(w io.Writer, format string, args ...any) {
	fmt.Fprintf(w, "%s %s\n", mark("\033[33m", "⚠"), fmt.Sprintf(format, args...))
}
