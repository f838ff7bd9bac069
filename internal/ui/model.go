package ui

import (
	"context"
	"errors"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/sirupsen/logrus"

	"github.com/five82/tailmerge/internal/logtail"
	"github.com/five82/tailmerge/internal/merge"
	"github.com/five82/tailmerge/internal/prefs"
	"github.com/five82/tailmerge/internal/state"
)

const (
	defaultRefreshEvery = 250 * time.Millisecond

	// statusReserve is the status bar width kept free of key hints for the
	// position and theme indicators.
	statusReserve = 36
)

// Options configures the viewer.
type Options struct {
	Merged    *merge.Merged
	Store     *state.Store
	Prefs     prefs.Prefs
	PrefsPath string
	Logger    logrus.FieldLogger

	// RefreshEvery is how often the poller status is re-read. New merged
	// lines are picked up as soon as the merged stream reports them.
	RefreshEvery time.Duration
}

// Model is the root application state for Bubble Tea.
type Model struct {
	// Configuration
	merged       *merge.Merged
	store        *state.Store
	logger       logrus.FieldLogger
	prefsPath    string
	refreshEvery time.Duration
	changed      <-chan struct{}
	// done stops the wait for merged changes once the program exits.
	done <-chan struct{}

	// UI state
	theme      Theme
	keys       keyMap
	help       help.Model
	width      int
	height     int
	ready      bool
	showHelp   bool
	follow     bool
	showSource bool

	// Visible window of the merged stream. Only these rows are ever
	// resolved to text.
	top    int
	count  int
	window []merge.Line
	levels []logtail.Level

	snapshot state.Snapshot
}

// New creates the viewer model. It subscribes to opts.Merged so that the
// view reloads whenever the merged stream changes.
func New(opts Options) Model {
	logger := opts.Logger
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	refreshEvery := opts.RefreshEvery
	if refreshEvery <= 0 {
		refreshEvery = defaultRefreshEvery
	}

	var changed chan struct{}
	if opts.Merged != nil {
		changed = make(chan struct{}, 1)
		opts.Merged.AddListener(func([]merge.Modification) {
			select {
			case changed <- struct{}{}:
			default:
			}
		})
	}

	m := Model{
		merged:       opts.Merged,
		store:        opts.Store,
		logger:       logger.WithField("component", "ui"),
		prefsPath:    opts.PrefsPath,
		refreshEvery: refreshEvery,
		changed:      changed,
		theme:        GetTheme(opts.Prefs.Theme),
		keys:         DefaultKeyMap(),
		help:         help.New(),
		follow:       opts.Prefs.Follow,
		showSource:   opts.Prefs.ShowSource,
	}
	m.applyTheme()
	return m
}

// Init implements tea.Model.
func (m Model) Init() tea.Cmd {
	cmds := []tea.Cmd{tickCmd(m.refreshEvery)}
	if m.store != nil {
		cmds = append(cmds, fetchSnapshotCmd(m.store))
	}
	if m.changed != nil {
		cmds = append(cmds, waitForChangeCmd(m.changed, m.done))
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
		m.help.Width = max(0, msg.Width-statusReserve)
		m.ready = true
		m.load()
		return m, nil

	case tickMsg:
		var cmds []tea.Cmd
		if m.store != nil {
			cmds = append(cmds, fetchSnapshotCmd(m.store))
		}
		cmds = append(cmds, tickCmd(m.refreshEvery))
		return m, tea.Batch(cmds...)

	case snapshotMsg:
		m.snapshot = state.Snapshot(msg)
		m.load()
		return m, nil

	case changedMsg:
		m.load()
		return m, waitForChangeCmd(m.changed, m.done)
	}

	return m, nil
}

// View implements tea.Model.
func (m Model) View() string {
	if !m.ready {
		return "Loading..."
	}
	if m.showHelp {
		return m.renderHelp()
	}
	return m.renderMain()
}

// handleKey processes keyboard input.
func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.showHelp {
		// Any key closes help
		m.showHelp = false
		return m, nil
	}

	rows := m.bodyHeight()
	switch {
	case key.Matches(msg, m.keys.Quit):
		return m, tea.Quit

	case key.Matches(msg, m.keys.Help):
		m.showHelp = true

	case key.Matches(msg, m.keys.CycleTheme):
		m.theme = GetTheme(NextTheme(m.theme.Name))
		m.applyTheme()
		m.savePrefs()

	case key.Matches(msg, m.keys.ToggleFollow):
		m.follow = !m.follow
		m.load()
		m.savePrefs()

	case key.Matches(msg, m.keys.ToggleSource):
		m.showSource = !m.showSource
		m.savePrefs()

	case key.Matches(msg, m.keys.Top):
		m.follow = false
		m.top = 0
		m.load()

	case key.Matches(msg, m.keys.Bottom):
		m.follow = true
		m.load()

	case key.Matches(msg, m.keys.Up):
		m.scroll(-1)
	case key.Matches(msg, m.keys.Down):
		m.scroll(1)
	case key.Matches(msg, m.keys.PageUp):
		m.scroll(-rows)
	case key.Matches(msg, m.keys.PageDown):
		m.scroll(rows)
	case key.Matches(msg, m.keys.HalfPageUp):
		m.scroll(-max(1, rows/2))
	case key.Matches(msg, m.keys.HalfPageDown):
		m.scroll(max(1, rows/2))
	}

	return m, nil
}

// scroll moves the window by delta lines and leaves follow mode.
func (m *Model) scroll(delta int) {
	m.follow = false
	m.top += delta
	m.load()
}

// bodyHeight is the number of log rows between the header and status bar.
func (m Model) bodyHeight() int {
	return max(1, m.height-2)
}

// load re-reads the visible window from the merged stream.
func (m *Model) load() {
	if m.merged == nil {
		return
	}
	rows := m.bodyHeight()
	m.count = m.merged.Count()

	maxTop := max(0, m.count-rows)
	if m.follow {
		m.top = maxTop
	}
	m.top = min(max(m.top, 0), maxTop)

	n := min(rows, m.count-m.top)
	if n <= 0 {
		m.window = nil
		m.levels = nil
		return
	}
	m.window = m.merged.Lines(m.top, n)
	m.levels = lineLevels(m.merged.Index(), m.window)
}

// leveled is implemented by sources that classify their lines.
type leveled interface {
	Level(line int) logtail.Level
}

// lineLevels looks up the level of every line with its originating source.
func lineLevels(ix *merge.Index, lines []merge.Line) []logtail.Level {
	levels := make([]logtail.Level, len(lines))
	sources := make(map[merge.SourceHandle]leveled)
	for i, l := range lines {
		if !l.Record.IsValid() {
			continue
		}
		h := l.Record.Source
		src, ok := sources[h]
		if !ok {
			s, _ := ix.Source(h)
			src, _ = s.(leveled)
			sources[h] = src
		}
		if src != nil {
			levels[i] = src.Level(l.Record.SourceLine)
		}
	}
	return levels
}

// applyTheme restyles the help bubble for the current theme.
func (m *Model) applyTheme() {
	styles := m.theme.Styles()
	surface := lipgloss.Color(m.theme.Surface)
	m.help.Styles.ShortKey = styles.AccentText.Background(surface)
	m.help.Styles.ShortDesc = styles.MutedText.Background(surface)
	m.help.Styles.ShortSeparator = styles.FaintText.Background(surface)
	m.help.Styles.FullKey = styles.WarningText
	m.help.Styles.FullDesc = styles.Text
	m.help.Styles.FullSeparator = styles.FaintText
}

// savePrefs persists the viewer preferences. Failures are logged and
// otherwise ignored.
func (m Model) savePrefs() {
	if m.prefsPath == "" {
		return
	}
	p := prefs.Prefs{Theme: m.theme.Name, ShowSource: m.showSource, Follow: m.follow}
	if err := prefs.Save(m.prefsPath, p); err != nil {
		m.logger.WithError(err).Warn("failed to save preferences")
	}
}

// Messages

type tickMsg time.Time

type snapshotMsg state.Snapshot

type changedMsg struct{}

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

func waitForChangeCmd(changed, done <-chan struct{}) tea.Cmd {
	return func() tea.Msg {
		select {
		case <-changed:
			return changedMsg{}
		case <-done:
			return nil
		}
	}
}

// Run starts the Bubble Tea program and blocks until the user quits or ctx
// is cancelled.
func Run(ctx context.Context, opts Options) error {
	if opts.Merged == nil {
		return errors.New("ui requires a merged stream")
	}
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	model := New(opts)
	model.done = ctx.Done()
	p := tea.NewProgram(model, tea.WithAltScreen(), tea.WithContext(ctx))
	_, err := p.Run()
	if errors.Is(err, tea.ErrProgramKilled) && ctx.Err() != nil {
		return nil
	}
	return err
}
