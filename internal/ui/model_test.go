package ui

import (
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/asheshgoplani/tama-deck/internal/companion"
	"github.com/asheshgoplani/tama-deck/internal/presentation"
	"github.com/asheshgoplani/tama-deck/internal/session"
)

func newTestModel(t *testing.T) (Model, *companion.Controller) {
	t.Helper()
	ctrl := companion.New(companion.Options{})
	return New(ctrl, Options{Endpoint: "ws://localhost:8080", FPS: 30, Theme: "dark"}), ctrl
}

func runes(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func update(t *testing.T, m Model, msg tea.Msg) (Model, tea.Cmd) {
	t.Helper()
	next, cmd := m.Update(msg)
	out, ok := next.(Model)
	require.True(t, ok)
	return out, cmd
}

func TestLobbyViewPromptsForStart(t *testing.T) {
	m, _ := newTestModel(t)
	out := m.View()
	assert.Contains(t, out, "press s to start")
	assert.Contains(t, out, "waiting for the analyzer")
	assert.Contains(t, out, "connecting")
}

func TestStartKeyStartsSession(t *testing.T) {
	m, ctrl := newTestModel(t)
	m, _ = update(t, m, runes("s"))
	assert.Equal(t, session.PhaseActive, ctrl.Phase())
	assert.NotContains(t, m.View(), "press s to start")
}

func TestDebugKeyTogglesPanel(t *testing.T) {
	m, ctrl := newTestModel(t)
	ctrl.HandleMessage([]byte(`{"suspicion_index":7,"state":"SUSPICIOUS","active_window":"Reddit"}`))
	assert.NotContains(t, m.View(), "suspicion_index")

	m, _ = update(t, m, runes("d"))
	assert.True(t, ctrl.Debug().Visible())
	assert.Contains(t, m.View(), "suspicion_index")

	m, _ = update(t, m, runes("d"))
	assert.NotContains(t, m.View(), "suspicion_index")
}

func TestQuitKey(t *testing.T) {
	m, _ := newTestModel(t)
	_, cmd := update(t, m, runes("q"))
	require.NotNil(t, cmd)
	assert.IsType(t, tea.QuitMsg{}, cmd())
}

func TestTicksEaseTowardTarget(t *testing.T) {
	m, ctrl := newTestModel(t)
	ctrl.StartSession()
	ctrl.HandleMessage([]byte(`{"suspicion_index":9,"state":"RAID"}`))

	start := m.motion.offset
	m, _ = update(t, m, tickMsg(time.Now()))
	assert.Less(t, m.motion.offset, start, "moves toward surfaced")
	assert.Greater(t, m.motion.offset, 0.0, "but not in one jump")

	for i := 0; i < 90; i++ {
		m, _ = update(t, m, tickMsg(time.Now()))
	}
	assert.True(t, m.motion.settled(ctrl.Presentation()))
	assert.InDelta(t, 1.0, m.motion.opacity, 0.01)
}

func TestOneShotCueReturnsToTierClip(t *testing.T) {
	m, ctrl := newTestModel(t)
	ctrl.HandleMessage([]byte(`{"suspicion_index":1,"state":"CALM"}`))
	ctrl.HandleMessage([]byte(`{"command":"TAMA_ANIM","anim":"strike"}`))

	assert.Equal(t, "strike", m.currentCue(ctrl.View()).Name)
	for i := 0; i < 60; i++ {
		m, _ = update(t, m, tickMsg(time.Now()))
	}
	assert.Equal(t, "Hello", m.currentCue(ctrl.View()).Name)
}

func TestAnalyzerQuitEndsProgram(t *testing.T) {
	_, ctrl := newTestModel(t)
	ctrl.HandleMessage([]byte(`{"command":"QUIT"}`))
	msg := waitForChange(ctrl)()
	// QUIT publishes no view, so only the quit signal is ready.
	assert.IsType(t, quitMsg{}, msg)
}

func TestThemeChangeSwitchesPalette(t *testing.T) {
	m, _ := newTestModel(t)
	_, _ = update(t, m, themeChangedMsg{dark: false})
	assert.Equal(t, ThemeLight, CurrentTheme())
	_, _ = update(t, m, themeChangedMsg{dark: true})
	assert.Equal(t, ThemeDark, CurrentTheme())
}

func TestAlertColorFollowsTier(t *testing.T) {
	InitTheme("dark")
	assert.Equal(t, darkPalette.Red, AlertColor(presentation.TierRaid.Color()))
	assert.Equal(t, darkPalette.Green, AlertColor(presentation.TierCalm.Color()))
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "short", truncate("short", 10))
	assert.Equal(t, "a very...", truncate("a very long window title", 9))
	assert.Equal(t, "", truncate("anything", 2))
}
