// Package ui renders the companion in the terminal with Bubble Tea.
// The model only reads the controller's View; the one write it can cause is
// the user's start action.
package ui

import (
	"log/slog"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/asheshgoplani/tama-deck/internal/companion"
	"github.com/asheshgoplani/tama-deck/internal/logging"
	"github.com/asheshgoplani/tama-deck/internal/presentation"
)

var uiLog = logging.ForComponent(logging.CompUI)

// Source is what the model needs from the controller.
type Source interface {
	View() *companion.View
	Changes() <-chan struct{}
	Quit() <-chan struct{}
	StartSession() bool
	Debug() *companion.DebugSurface
}

// Options configures the model.
type Options struct {
	// Endpoint is shown while connecting.
	Endpoint string
	// FPS is the render rate (default 30).
	FPS int
	// Theme is "dark" or "light", already resolved.
	Theme string
	// Watcher, when set, follows OS appearance changes.
	Watcher *ThemeWatcher
	// LogLines is the number of recent log lines in the debug panel.
	LogLines int
}

type tickMsg time.Time

type viewChangedMsg struct{}

type quitMsg struct{}

const (
	defaultWidth = 60
	stageWidth   = 40
)

// Model is the Bubble Tea model.
type Model struct {
	src  Source
	opts Options

	keys    keyMap
	help    help.Model
	spinner spinner.Model
	bar     progress.Model
	motion  motion

	interval    time.Duration
	finishedSeq uint64
	width       int
	height      int
}

// New builds the model around src.
func New(src Source, opts Options) Model {
	if opts.FPS <= 0 {
		opts.FPS = 30
	}
	if opts.LogLines <= 0 {
		opts.LogLines = 6
	}
	InitTheme(opts.Theme)

	sp := spinner.New(spinner.WithSpinner(spinner.Dot))
	return Model{
		src:      src,
		opts:     opts,
		keys:     defaultKeys(),
		help:     help.New(),
		spinner:  sp,
		bar:      newAlignmentBar(),
		motion:   newMotion(opts.FPS, src.View().Params),
		interval: time.Second / time.Duration(opts.FPS),
		width:    defaultWidth,
	}
}

func newAlignmentBar() progress.Model {
	return progress.New(
		progress.WithSolidFill(string(AlertColor(presentation.ColorCalm))),
		progress.WithoutPercentage(),
		progress.WithWidth(stageWidth-16),
	)
}

// Init starts the frame clock and the listeners.
func (m Model) Init() tea.Cmd {
	return tea.Batch(
		m.tick(),
		m.spinner.Tick,
		waitForChange(m.src),
		m.opts.Watcher.Listen(),
	)
}

func (m Model) tick() tea.Cmd {
	return tea.Tick(m.interval, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

// waitForChange blocks on the controller until it publishes or asks to quit.
func waitForChange(src Source) tea.Cmd {
	return func() tea.Msg {
		select {
		case <-src.Changes():
			return viewChangedMsg{}
		case <-src.Quit():
			return quitMsg{}
		}
	}
}

// Update handles messages.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.help.Width = msg.Width
		return m, nil

	case tickMsg:
		v := m.src.View()
		cue := m.currentCue(v)
		m.motion.step(v.Params, cue.Name, cue.Rate, m.interval)
		if v.AnimSeq > m.finishedSeq && !cue.Loop && m.oneShotDone(cue) {
			m.finishedSeq = v.AnimSeq
		}
		return m, m.tick()

	case viewChangedMsg:
		return m, waitForChange(m.src)

	case quitMsg:
		uiLog.Info("ui_quit", slog.String("reason", "analyzer"))
		return m, tea.Quit

	case themeChangedMsg:
		if msg.dark {
			InitTheme(string(ThemeDark))
		} else {
			InitTheme(string(ThemeLight))
		}
		m.bar = newAlignmentBar()
		return m, m.opts.Watcher.Listen()

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case tea.KeyMsg:
		return m.handleKey(msg)
	}
	return m, nil
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Quit):
		return m, tea.Quit
	case key.Matches(msg, m.keys.Start):
		if m.src.StartSession() {
			uiLog.Info("ui_start_session")
		}
	case key.Matches(msg, m.keys.Debug):
		m.src.Debug().Toggle()
	case key.Matches(msg, m.keys.Help):
		m.help.ShowAll = !m.help.ShowAll
	}
	return m, nil
}

// currentCue picks the clip for v. A TAMA_ANIM request wins until its
// one-shot clip has played through.
func (m Model) currentCue(v *companion.View) presentation.Cue {
	requested := ""
	if v.AnimSeq > m.finishedSeq {
		requested = v.RequestedCue
	}
	cue, err := presentation.SelectCue(clipNames(), requested, v.Params.Tier)
	if err != nil {
		return presentation.Cue{Name: spriteClips[0].name, Rate: v.Params.AnimationRate, Loop: true}
	}
	if requested != "" && v.RequestedLoop {
		cue.Loop = true
	}
	return cue
}

func (m Model) oneShotDone(cue presentation.Cue) bool {
	c := findClip(cue.Name)
	return int(m.motion.frame) >= len(c.frames)+1
}
