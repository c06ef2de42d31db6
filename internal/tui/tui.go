// Package tui provides a Bubble Tea terminal user interface for bookfetch.
package tui

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	neturl "net/url"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/handiism/bookfetch/internal/config"
	"github.com/handiism/bookfetch/internal/cookies"
	"github.com/handiism/bookfetch/internal/download"
	"github.com/handiism/bookfetch/internal/engine"
	"github.com/handiism/bookfetch/internal/esjzone"
)

// Styles for the TUI
var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FF6B6B")).
			MarginBottom(1)

	subtitleStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#4ECDC4"))

	successStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#95E1A3"))

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FF6B6B"))

	infoStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#A8DADC"))

	dimStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#6C757D"))

	boxStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("#4ECDC4")).
			Padding(1, 2)
)

// State represents the current UI state.
type State int

const (
	StateInput State = iota
	StateDownloading
	StateComplete
	StateError
)

// counters collect progress from the manager's callbacks. The callbacks
// fire on worker goroutines, so the model polls these instead of
// receiving them as messages.
type counters struct {
	chapterResolved atomic.Int64
	chapterTotal    atomic.Int64
	imageResolved   atomic.Int64
	imageTotal      atomic.Int64

	mu     sync.Mutex
	rate   string
	active int
}

func (c *counters) setRate(rate string, active int) {
	c.mu.Lock()
	c.rate = rate
	c.active = active
	c.mu.Unlock()
}

func (c *counters) getRate() (string, int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.rate, c.active
}

// Model is the Bubble Tea model for the TUI.
type Model struct {
	state     State
	textInput textinput.Model
	spinner   spinner.Model
	progress  progress.Model
	settings  *config.Settings
	counters  *counters
	err       error

	ctx    context.Context
	cancel context.CancelFunc

	// Result of the finished run
	outPath string
	stats   engine.Stats

	// Options
	txtFormat bool
	images    bool

	width  int
	height int
}

// NewModel creates a new TUI model over the loaded settings.
func NewModel(settings *config.Settings) Model {
	ti := textinput.New()
	ti.Placeholder = "https://www.esjzone.one/detail/XXXXXXXXXX.html"
	ti.Focus()
	ti.CharLimit = 500
	ti.Width = 60

	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF6B6B"))

	prog := progress.New(progress.WithDefaultGradient())
	prog.Width = 50

	ctx, cancel := context.WithCancel(context.Background())

	return Model{
		state:     StateInput,
		textInput: ti,
		spinner:   sp,
		progress:  prog,
		settings:  settings,
		counters:  &counters{},
		txtFormat: settings.Download.Format == "txt",
		images:    settings.Download.Images,
		ctx:       ctx,
		cancel:    cancel,
	}
}

// Init initializes the model.
func (m Model) Init() tea.Cmd {
	return tea.Batch(textinput.Blink, m.spinner.Tick)
}

// Message types
type (
	// DownloadDoneMsg is sent when the whole run finishes.
	DownloadDoneMsg struct {
		Path  string
		Stats engine.Stats
		Err   error
	}

	// TickMsg is for periodic progress updates.
	TickMsg struct{}
)

// Update handles messages and updates the model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.progress.Width = msg.Width - 20
		if m.progress.Width > 80 {
			m.progress.Width = 80
		}
		if m.progress.Width < 20 {
			m.progress.Width = 20
		}
		return m, nil

	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c":
			m.cancel()
			return m, tea.Quit

		case "esc":
			if m.state == StateInput {
				return m, tea.Quit
			}
			if m.state == StateDownloading {
				m.cancel()
				m.state = StateError
				m.err = fmt.Errorf("cancelled by user")
			}

		case "enter":
			if m.state == StateInput && m.textInput.Value() != "" {
				m.state = StateDownloading
				return m, tea.Batch(m.startDownload(), m.spinner.Tick, m.tickProgress())
			}

		case "t":
			if m.state == StateInput {
				m.txtFormat = !m.txtFormat
			}

		case "i":
			if m.state == StateInput {
				m.images = !m.images
			}

		case "q":
			if m.state == StateComplete || m.state == StateError {
				return m, tea.Quit
			}

		case "r":
			if m.state == StateComplete || m.state == StateError {
				// Reset for a new download
				m.state = StateInput
				m.err = nil
				m.outPath = ""
				m.stats = engine.Stats{}
				m.counters = &counters{}
				m.ctx, m.cancel = context.WithCancel(context.Background())
				m.textInput.SetValue("")
				m.textInput.Focus()
			}
		}

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		cmds = append(cmds, cmd)

	case DownloadDoneMsg:
		m.outPath = msg.Path
		m.stats = msg.Stats
		if msg.Err != nil && m.ctx.Err() == nil {
			m.state = StateError
			m.err = msg.Err
		} else if m.ctx.Err() != nil {
			m.state = StateError
			m.err = fmt.Errorf("cancelled by user")
		} else {
			m.state = StateComplete
		}

	case TickMsg:
		if m.state == StateDownloading {
			resolved := m.counters.chapterResolved.Load() + m.counters.imageResolved.Load()
			total := m.counters.chapterTotal.Load() + m.counters.imageTotal.Load()
			var percent float64
			if total > 0 {
				percent = float64(resolved) / float64(total)
			}
			cmds = append(cmds, m.progress.SetPercent(percent), m.tickProgress())
		}

	case progress.FrameMsg:
		progressModel, cmd := m.progress.Update(msg)
		m.progress = progressModel.(progress.Model)
		cmds = append(cmds, cmd)
	}

	// Update text input
	if m.state == StateInput {
		var cmd tea.Cmd
		m.textInput, cmd = m.textInput.Update(msg)
		cmds = append(cmds, cmd)
	}

	return m, tea.Batch(cmds...)
}

// tickProgress returns a command to tick progress updates.
func (m Model) tickProgress() tea.Cmd {
	return tea.Tick(200*time.Millisecond, func(_ time.Time) tea.Msg {
		return TickMsg{}
	})
}

// View renders the UI.
func (m Model) View() string {
	var b strings.Builder

	b.WriteString(titleStyle.Render("📖 bookfetch"))
	b.WriteString("\n")
	b.WriteString(dimStyle.Render("Download books from esjzone"))
	b.WriteString("\n\n")

	switch m.state {
	case StateInput:
		b.WriteString(m.viewInput())
	case StateDownloading:
		b.WriteString(m.viewDownloading())
	case StateComplete:
		b.WriteString(m.viewComplete())
	case StateError:
		b.WriteString(m.viewError())
	}

	b.WriteString("\n")
	b.WriteString(dimStyle.Render(m.getHelpText()))

	return b.String()
}

func (m Model) viewInput() string {
	var b strings.Builder

	b.WriteString(subtitleStyle.Render("Enter book URL:"))
	b.WriteString("\n\n")
	b.WriteString(m.textInput.View())
	b.WriteString("\n\n")

	txtCheck := "[ ]"
	if m.txtFormat {
		txtCheck = "[×]"
	}
	imagesCheck := "[ ]"
	if m.images {
		imagesCheck = "[×]"
	}

	b.WriteString(infoStyle.Render("Options:"))
	b.WriteString("\n")
	b.WriteString(fmt.Sprintf("  %s Plain text instead of EPUB (t)\n", txtCheck))
	b.WriteString(fmt.Sprintf("  %s Download images (i)\n", imagesCheck))
	b.WriteString("\n")
	b.WriteString(dimStyle.Render(fmt.Sprintf("Download path: %s", m.settings.Download.Dir)))
	b.WriteString("\n")

	return b.String()
}

func (m Model) viewDownloading() string {
	var b strings.Builder

	chResolved := m.counters.chapterResolved.Load()
	chTotal := m.counters.chapterTotal.Load()
	imResolved := m.counters.imageResolved.Load()
	imTotal := m.counters.imageTotal.Load()
	rate, active := m.counters.getRate()

	b.WriteString(m.spinner.View())
	b.WriteString(" ")
	b.WriteString(subtitleStyle.Render("Downloading..."))
	b.WriteString("\n\n")

	var percent float64
	if total := chTotal + imTotal; total > 0 {
		percent = float64(chResolved+imResolved) / float64(total)
	}
	b.WriteString(m.progress.ViewAs(percent))
	b.WriteString("\n")

	b.WriteString(infoStyle.Render(fmt.Sprintf(
		"Chapters: %d/%d | Images: %d/%d",
		chResolved, chTotal, imResolved, imTotal,
	)))
	b.WriteString("\n")
	if rate != "" {
		b.WriteString(dimStyle.Render(fmt.Sprintf("%s | %d active workers", rate, active)))
		b.WriteString("\n")
	}

	return b.String()
}

func (m Model) viewComplete() string {
	box := boxStyle.Render(successStyle.Render("✨ Download Complete!") + fmt.Sprintf(
		"\n\n"+
			"Chapters: %d\n"+
			"Images: %d\n"+
			"Failed: %d\n"+
			"Saved to: %s",
		m.stats.ChaptersSucceeded,
		m.stats.ImagesSucceeded,
		m.stats.FailedTasks(),
		m.outPath,
	))
	return box
}

func (m Model) viewError() string {
	var b strings.Builder

	b.WriteString(errorStyle.Render("❌ Error occurred:"))
	b.WriteString("\n\n")
	if m.err != nil {
		b.WriteString(fmt.Sprintf("  %s", m.err.Error()))
	}

	return b.String()
}

func (m Model) getHelpText() string {
	switch m.state {
	case StateInput:
		return "enter: start • t: text format • i: images • esc: quit"
	case StateDownloading:
		return "esc: cancel"
	case StateComplete, StateError:
		return "r: new download • q: quit"
	}
	return ""
}

// startDownload runs the whole download in the background and reports
// the result as a single message. Progress flows through the shared
// counters, which the model polls on TickMsg.
func (m *Model) startDownload() tea.Cmd {
	url := m.textInput.Value()
	settings := *m.settings
	if m.txtFormat {
		settings.Download.Format = "txt"
	} else {
		settings.Download.Format = "epub"
	}
	settings.Download.Images = m.images

	ctx := m.ctx
	c := m.counters

	return func() tea.Msg {
		// Logs would corrupt the alternate screen, so drop them here.
		log := slog.New(slog.NewTextHandler(io.Discard, nil))
		mgr := download.NewManager(&settings, log)
		if saved, err := cookies.NewStore(settings.Cookie.Path).Load(); err == nil && len(saved) > 0 {
			if base, err := neturl.Parse(esjzone.BaseURL); err == nil {
				mgr.Client().SetCookies(base, cookies.ToHTTP(saved))
			}
		}
		mgr.OnProgress = func(class engine.Class, resolved, total int) {
			switch class {
			case engine.ClassChapter:
				c.chapterResolved.Store(int64(resolved))
				c.chapterTotal.Store(int64(total))
			case engine.ClassImage:
				c.imageResolved.Store(int64(resolved))
				c.imageTotal.Store(int64(total))
			}
		}
		mgr.OnRateUpdate = c.setRate

		path, stats, err := mgr.Download(ctx, url)
		return DownloadDoneMsg{Path: path, Stats: stats, Err: err}
	}
}

// Run starts the TUI application.
func Run(settings *config.Settings) error {
	p := tea.NewProgram(NewModel(settings), tea.WithAltScreen())
	_, err := p.Run()
	return err
}
