package tui

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/atotto/clipboard"
	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textarea"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/hashpad-dev/hashpad/pkg/codec"
	"github.com/hashpad-dev/hashpad/pkg/fragment"
	"github.com/hashpad-dev/hashpad/pkg/linksync"
)

// footerHeight is the number of lines below the textarea: border, link,
// status and help.
const footerHeight = 4

// statusTTL is how long a status message stays in the footer.
const statusTTL = 4 * time.Second

// alteredTextWarning is shown when the textarea cannot display a loaded
// pad exactly, for example because it holds tabs or carriage returns.
const alteredTextWarning = "this pad has tabs or carriage returns shown as spaces or line breaks; editing saves them that way"

// Clipboard is the system clipboard.
type Clipboard interface {
	ReadAll() (string, error)
	WriteAll(text string) error
}

type systemClipboard struct{}

func (systemClipboard) ReadAll() (string, error)   { return clipboard.ReadAll() }
func (systemClipboard) WriteAll(text string) error { return clipboard.WriteAll(text) }

// SystemClipboard uses the OS clipboard.
var SystemClipboard Clipboard = systemClipboard{}

// Options configures a Model.
type Options struct {
	// BaseURL is the page URL links are built on.
	BaseURL string

	// Link is an optional link or bare token to open at start.
	Link string

	Codec          *codec.Codec
	Debounce       time.Duration
	LinkWarnLength int

	// Clock schedules debounced writes. nil uses the system clock.
	Clock linksync.Clock

	// Clipboard defaults to SystemClipboard.
	Clipboard Clipboard

	Logger *slog.Logger
}

// dispatchMsg carries a controller callback into the bubbletea loop.
type dispatchMsg func()

// readyMsg triggers the controller's document-ready transition.
type readyMsg struct{}

// clearStatusMsg expires a status message.
type clearStatusMsg struct{ id int }

type statusLevel int

const (
	statusInfo statusLevel = iota
	statusWarn
)

// Model is the bubbletea model of the terminal editor. The textarea is the
// controller's Editor and an in-memory history is its Location.
type Model struct {
	textarea textarea.Model
	help     help.Model
	keys     KeyMap
	styles   Styles

	loc       *fragment.MemoryLocation
	ctrl      *linksync.Controller
	clipboard Clipboard
	logger    *slog.Logger
	warnLen   int

	// send delivers messages to the running program.
	send func(tea.Msg)

	// loaded is the exact text of the last load while held is set. The
	// textarea rewrites tabs and carriage returns, so until the user edits,
	// the pad text is loaded and not the textarea value.
	loaded string
	held   bool

	width, height int
	status        string
	statusLevel   statusLevel
	statusID      int
	quitting      bool
}

// New creates a Model.
func New(opts Options) *Model {
	if opts.Clipboard == nil {
		opts.Clipboard = SystemClipboard
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.LinkWarnLength == 0 {
		opts.LinkWarnLength = linksync.DefaultLinkWarnLength
	}

	ta := textarea.New()
	ta.Placeholder = "Type here. The text lives in the link."
	ta.ShowLineNumbers = false
	ta.Prompt = ""
	ta.CharLimit = 0
	ta.MaxHeight = 0

	href := fragment.Join(opts.BaseURL, fragment.TokenOf(opts.Link))

	m := &Model{
		textarea:  ta,
		help:      help.New(),
		keys:      DefaultKeyMap(),
		styles:    DefaultStyles(),
		loc:       fragment.NewMemoryLocation(href),
		clipboard: opts.Clipboard,
		logger:    opts.Logger.With("component", "tui"),
		warnLen:   opts.LinkWarnLength,
		send:      func(tea.Msg) {},
	}

	ctrlOpts := []linksync.Option{
		linksync.WithCodec(opts.Codec),
		linksync.WithDebounce(opts.Debounce),
		linksync.WithLinkWarnLength(opts.LinkWarnLength),
		linksync.WithLogger(opts.Logger.With("component", "linksync")),
		linksync.OnInvalidLink(func(error) {
			m.setStatus(statusWarn, "invalid or corrupt URL payload, double-check your link")
		}),
	}
	if opts.Clock != nil {
		ctrlOpts = append(ctrlOpts, linksync.WithClock(opts.Clock))
	}
	m.ctrl = linksync.New(editor{m}, m.loc, m.dispatch, ctrlOpts...)

	// Open, Back and Forward run inside Update, so the controller is
	// already on the loop when the subscriber fires.
	m.loc.Subscribe(func(string) { m.ctrl.HashChanged() })

	return m
}

// SetSender sets the function that delivers messages to the program,
// normally (*tea.Program).Send.
func (m *Model) SetSender(send func(tea.Msg)) {
	m.send = send
}

func (m *Model) dispatch(fn func()) {
	m.send(dispatchMsg(fn))
}

// Link returns the current link.
func (m *Model) Link() string {
	return m.loc.Href()
}

// Text returns the pad text. Right after a load it is the loaded text,
// even where the textarea displays it differently.
func (m *Model) Text() string {
	if m.held {
		return m.loaded
	}
	return m.textarea.Value()
}

// Controller returns the sync controller.
func (m *Model) Controller() *linksync.Controller {
	return m.ctrl
}

// Init implements tea.Model.
func (m *Model) Init() tea.Cmd {
	return tea.Batch(textarea.Blink, func() tea.Msg { return readyMsg{} })
}

// Update implements tea.Model.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case readyMsg:
		m.ctrl.Ready()
		if m.status != "" {
			return m, m.expireStatus()
		}
		return m, nil

	case dispatchMsg:
		msg()
		return m, nil

	case clearStatusMsg:
		if msg.id == m.statusID {
			m.status = ""
		}
		return m, nil

	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.textarea.SetWidth(max(msg.Width, 1))
		m.textarea.SetHeight(max(msg.Height-footerHeight, 1))
		m.help.Width = msg.Width
		return m, nil

	case tea.KeyMsg:
		switch {
		case key.Matches(msg, m.keys.Quit):
			m.ctrl.Flush()
			m.quitting = true
			return m, tea.Quit

		case key.Matches(msg, m.keys.CopyLink):
			return m, m.copyLink()

		case key.Matches(msg, m.keys.OpenLink):
			return m, m.openFromClipboard()

		case key.Matches(msg, m.keys.Back):
			m.ctrl.Flush()
			return m, m.navigate(m.loc.Back)

		case key.Matches(msg, m.keys.Forward):
			m.ctrl.Flush()
			return m, m.navigate(m.loc.Forward)
		}
	}

	before := m.textarea.Value()
	var cmd tea.Cmd
	m.textarea, cmd = m.textarea.Update(msg)
	if m.textarea.Value() != before {
		m.held = false
		m.loaded = ""
		m.ctrl.Input()
	}
	return m, cmd
}

// navigate moves through the history and expires any status the load set.
func (m *Model) navigate(move func() bool) tea.Cmd {
	id := m.statusID
	move()
	if m.statusID != id {
		return m.expireStatus()
	}
	return nil
}

func (m *Model) copyLink() tea.Cmd {
	m.ctrl.Flush()
	if err := m.clipboard.WriteAll(m.Link()); err != nil {
		m.logger.Warn("clipboard write failed", "error", err)
		return m.setStatus(statusWarn, "could not copy link: "+err.Error())
	}
	return m.setStatus(statusInfo, "link copied")
}

func (m *Model) openFromClipboard() tea.Cmd {
	text, err := m.clipboard.ReadAll()
	if err != nil {
		m.logger.Warn("clipboard read failed", "error", err)
		return m.setStatus(statusWarn, "could not read clipboard: "+err.Error())
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return m.setStatus(statusWarn, "clipboard is empty")
	}

	m.ctrl.Flush()
	m.status = ""
	m.loc.Open(fragment.Join(m.Link(), fragment.TokenOf(text)))
	if m.status != "" {
		// The link did not decode; keep the warning the controller set.
		return m.expireStatus()
	}
	return m.setStatus(statusInfo, "link opened")
}

func (m *Model) setStatus(level statusLevel, text string) tea.Cmd {
	m.status = text
	m.statusLevel = level
	return m.expireStatus()
}

func (m *Model) expireStatus() tea.Cmd {
	m.statusID++
	id := m.statusID
	return tea.Tick(statusTTL, func(time.Time) tea.Msg { return clearStatusMsg{id: id} })
}

// View implements tea.Model.
func (m *Model) View() string {
	if m.quitting {
		return ""
	}
	return lipgloss.JoinVertical(lipgloss.Left,
		m.textarea.View(),
		m.styles.Footer.Width(max(m.width, 1)).Render(m.footer()),
	)
}

func (m *Model) footer() string {
	var b strings.Builder

	link := m.Link()
	linkStyle := m.styles.Link
	if m.warnLen > 0 && len(link) > m.warnLen {
		linkStyle = m.styles.LongLink
	}
	label := m.styles.Label.Render(fmt.Sprintf("link (%d chars) ", len(link)))
	avail := m.width - lipgloss.Width(label)
	if _, frag, _ := fragment.Split(link); frag == "" {
		b.WriteString(label + m.styles.EmptyLink.Render(truncate(link, avail)))
	} else {
		b.WriteString(label + linkStyle.Render(truncate(link, avail)))
	}
	b.WriteByte('\n')

	switch {
	case m.status != "" && m.statusLevel == statusWarn:
		b.WriteString(m.styles.Warn.Render(m.status))
	case m.status != "":
		b.WriteString(m.styles.Info.Render(m.status))
	case m.warnLen > 0 && len(link) > m.warnLen:
		b.WriteString(m.styles.Warn.Render("link is long and may be truncated when shared"))
	}
	b.WriteByte('\n')

	b.WriteString(m.help.View(m.keys))
	return b.String()
}

// truncate shortens s to width cells, keeping the end, which is where the
// link changes while typing.
func truncate(s string, width int) string {
	if width <= 0 || lipgloss.Width(s) <= width {
		return s
	}
	if width == 1 {
		return "…"
	}
	r := []rune(s)
	return "…" + string(r[len(r)-(width-1):])
}

// editor adapts the textarea to linksync.Editor. It is only used from the
// bubbletea loop.
type editor struct{ m *Model }

func (e editor) Text() string { return e.m.Text() }
func (e editor) Focus()       { e.m.textarea.Focus() }

// SetText loads text into the textarea. When the textarea cannot hold it
// as is, the exact text is kept as the pad text and the user is warned.
func (e editor) SetText(text string) {
	m := e.m
	m.textarea.SetValue(text)
	if m.textarea.Value() == text {
		m.held = false
		m.loaded = ""
		return
	}
	m.held = true
	m.loaded = text
	m.logger.Debug("loaded text altered by the textarea", "text_len", len(text))
	m.setStatus(statusWarn, alteredTextWarning)
}
