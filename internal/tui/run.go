package tui

import (
	"context"
	"errors"
	"os"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/mattn/go-isatty"
)

// ErrNoTerminal is returned by Run when stdin is not a terminal.
var ErrNoTerminal = errors.New("tui: stdin is not a terminal")

// Run runs the editor until the user quits or ctx is cancelled, and
// returns the final link. Any pending write is published first, so the
// link always carries the last text.
func Run(ctx context.Context, m *Model, opts ...tea.ProgramOption) (string, error) {
	if len(opts) == 0 && !isatty.IsTerminal(os.Stdin.Fd()) && !isatty.IsCygwinTerminal(os.Stdin.Fd()) {
		return "", ErrNoTerminal
	}

	opts = append([]tea.ProgramOption{tea.WithAltScreen(), tea.WithContext(ctx)}, opts...)
	p := tea.NewProgram(m, opts...)
	m.SetSender(p.Send)

	_, err := p.Run()

	// The program loop has exited; nothing else touches the controller.
	m.ctrl.Flush()
	m.ctrl.Close()

	if err != nil && !errors.Is(err, tea.ErrProgramKilled) {
		return m.Link(), err
	}
	return m.Link(), nil
}
