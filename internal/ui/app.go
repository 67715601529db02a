package ui

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/five82/reel/internal/state"
)

// Options configures the UI.
type Options struct {
	Store     *state.Store
	ThemeName string
	PollTick  time.Duration
	// Cancel is called when the user quits before the batch has finished.
	Cancel func()
	// OnThemeChange receives the new theme name after the user cycles themes.
	OnThemeChange func(name string)
}

// Model is the root application state for Bubble Tea.
type Model struct {
	store         *state.Store
	cancel        func()
	onThemeChange func(string)
	pollTick      time.Duration

	theme  Theme
	keys   keyMap
	help   help.Model
	bar    progress.Model
	logs   viewport.Model
	width  int
	height int
	ready  bool

	snapshot    state.Snapshot
	lastUpdated time.Time
	selected    int
	quitting    bool
}

const (
	defaultPollTick = 250 * time.Millisecond
	headerLines     = 2
	minLogLines     = 4
)

// New creates a new Bubble Tea model.
func New(opts Options) Model {
	pollTick := opts.PollTick
	if pollTick <= 0 {
		pollTick = defaultPollTick
	}
	m := Model{
		store:         opts.Store,
		cancel:        opts.Cancel,
		onThemeChange: opts.OnThemeChange,
		pollTick:      pollTick,
		theme:         GetTheme(opts.ThemeName),
		keys:          defaultKeyMap(),
		help:          help.New(),
		logs:          viewport.New(0, 0),
	}
	m.bar = m.newBar()
	return m
}

func (m Model) newBar() progress.Model {
	return progress.New(
		progress.WithSolidFill(m.theme.Accent),
		progress.WithoutPercentage(),
		progress.WithWidth(progressWidth(m.width)),
	)
}

// Init implements tea.Model.
func (m Model) Init() tea.Cmd {
	cmds := []tea.Cmd{tickCmd(m.pollTick)}
	if m.store != nil {
		cmds = append(cmds, fetchSnapshotCmd(m.store))
	}
	return tea.Batch(cmds...)
}

// Update implements tea.Model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.help.Width = msg.Width
		m.bar.Width = progressWidth(msg.Width)
		m.ready = true
		m.resizeLogs()
		m.updateLogs()
		return m, nil

	case tickMsg:
		if m.quitting {
			return m, nil
		}
		var cmds []tea.Cmd
		if m.store != nil {
			cmds = append(cmds, fetchSnapshotCmd(m.store))
		}
		cmds = append(cmds, tickCmd(m.pollTick))
		return m, tea.Batch(cmds...)

	case snapshotMsg:
		m.snapshot = state.Snapshot(msg)
		m.lastUpdated = time.Now()
		if m.selected >= len(m.snapshot.Records) {
			m.selected = max(0, len(m.snapshot.Records)-1)
		}
		m.resizeLogs()
		m.updateLogs()
		if m.snapshot.Finished {
			m.quitting = true
			return m, tea.Quit
		}
		return m, nil
	}
	return m, nil
}

// View implements tea.Model.
func (m Model) View() string {
	if !m.ready {
		return "Loading..."
	}
	if m.help.ShowAll {
		return m.renderHeader() + "\n" + m.help.View(m.keys)
	}
	return m.renderHeader() + "\n" + m.renderCommandBar() + "\n" + m.renderQueue() + "\n" + m.renderDetail()
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	count := len(m.snapshot.Records)
	switch {
	case key.Matches(msg, m.keys.Quit):
		if !m.snapshot.Finished && m.cancel != nil {
			m.cancel()
		}
		m.quitting = true
		return m, tea.Quit

	case key.Matches(msg, m.keys.Help):
		m.help.ShowAll = !m.help.ShowAll

	case key.Matches(msg, m.keys.CycleTheme):
		m.theme = GetTheme(NextTheme(m.theme.Name))
		m.bar = m.newBar()
		if m.onThemeChange != nil {
			m.onThemeChange(m.theme.Name)
		}

	case key.Matches(msg, m.keys.Up):
		if m.selected > 0 {
			m.selected--
			m.updateLogs()
		}
	case key.Matches(msg, m.keys.Down):
		if m.selected < count-1 {
			m.selected++
			m.updateLogs()
		}
	case key.Matches(msg, m.keys.Top):
		m.selected = 0
		m.updateLogs()
	case key.Matches(msg, m.keys.Bottom):
		m.selected = max(0, count-1)
		m.updateLogs()

	case key.Matches(msg, m.keys.LogUp):
		m.logs.HalfPageUp()
	case key.Matches(msg, m.keys.LogDown):
		m.logs.HalfPageDown()
	}
	return m, nil
}

// resizeLogs gives the log viewport whatever height the record table leaves.
func (m *Model) resizeLogs() {
	used := headerLines + len(m.snapshot.Records) + detailHeaderLines + 1
	m.logs.Width = m.width
	m.logs.Height = max(minLogLines, m.height-used)
}

// Messages

type tickMsg time.Time

type snapshotMsg state.Snapshot

// Commands

func tickCmd(d time.Duration) tea.Cmd {
	return tea.Tick(d, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

func fetchSnapshotCmd(store *state.Store) tea.Cmd {
	return func() tea.Msg {
		return snapshotMsg(store.Snapshot())
	}
}

// Run starts the monitor and blocks until the batch finishes, the user quits
// or ctx is cancelled.
func Run(ctx context.Context, opts Options) error {
	if opts.Store == nil {
		return fmt.Errorf("ui requires a state store")
	}
	p := tea.NewProgram(New(opts), tea.WithAltScreen(), tea.WithContext(ctx))
	_, err := p.Run()
	if errors.Is(err, tea.ErrProgramKilled) && ctx.Err() != nil {
		return nil
	}
	return err
}
