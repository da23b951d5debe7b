package ui

import (
	"fmt"
	"math"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-runewidth"

	"github.com/asheshgoplani/tama-deck/internal/companion"
	"github.com/asheshgoplani/tama-deck/internal/logging"
	"github.com/asheshgoplani/tama-deck/internal/session"
	"github.com/asheshgoplani/tama-deck/internal/transport"
)

// Opacity below hiddenBelow draws nothing; below faintBelow draws faint.
const (
	hiddenBelow = 0.15
	faintBelow  = 0.75
)

// View renders the frame.
func (m Model) View() string {
	v := m.src.View()
	width := m.width
	if width <= 0 {
		width = defaultWidth
	}

	sections := []string{
		m.renderHeader(v, width),
		m.renderStage(v, width),
		m.renderStatus(v, width),
	}
	if m.src.Debug().Visible() {
		sections = append(sections, m.renderDebug(width))
	}
	sections = append(sections, m.help.View(m.keys))
	return lipgloss.JoinVertical(lipgloss.Left, sections...)
}

func (m Model) renderHeader(v *companion.View, width int) string {
	title := TitleStyle.Render("tama")
	var status string
	switch v.Connection {
	case transport.StateOpen:
		status = lipgloss.NewStyle().Foreground(ConnectionColor(true)).Render("● connected")
	case transport.StateClosedPendingRetry:
		status = DimStyle.Render(m.spinner.View() + " analyzer offline, retrying")
	default:
		status = DimStyle.Render(m.spinner.View() + " connecting " + truncate(m.opts.Endpoint, width/2))
	}
	gap := width - lipgloss.Width(title) - lipgloss.Width(status)
	if gap < 1 {
		gap = 1
	}
	return title + strings.Repeat(" ", gap) + status
}

// renderStage draws the character above a ground line. The spring offset is
// a percentage of the sprite height below the fully surfaced row; rows that
// sink below the ground are clipped.
func (m Model) renderStage(v *companion.View, width int) string {
	cue := m.currentCue(v)
	c := findClip(cue.Name)
	frame := c.frames[m.motion.frameIndex(len(c.frames), cue.Loop)]

	shift := int(math.Round(m.motion.offset / 100 * spriteHeight))
	rows := make([]string, spriteHeight)
	if m.motion.opacity >= hiddenBelow {
		for i, line := range frame {
			row := i + shift
			if row >= 0 && row < spriteHeight {
				rows[row] = line
			}
		}
	}

	style := StageStyle.Foreground(AlertColor(v.Params.AlertColor))
	if m.motion.opacity < faintBelow {
		style = style.Faint(true)
	}
	stageW := min(width, stageWidth)
	body := make([]string, 0, spriteHeight+2)
	for _, r := range rows {
		body = append(body, lipgloss.PlaceHorizontal(stageW, lipgloss.Center, style.Render(r)))
	}
	body = append(body, GroundStyle.Render(strings.Repeat("▔", stageW)))

	if v.Phase == session.PhaseLobby {
		body = append(body, lipgloss.PlaceHorizontal(stageW, lipgloss.Center,
			DimStyle.Render("press s to start a focus session")))
	}
	return strings.Join(body, "\n")
}

func (m Model) renderStatus(v *companion.View, width int) string {
	if !v.HasSnapshot {
		return DimStyle.Render("waiting for the analyzer…")
	}
	s := v.Snapshot
	tier := lipgloss.NewStyle().Foreground(AlertColor(v.Params.AlertColor)).Bold(true).
		Render(fmt.Sprintf("%s %d/10", v.Params.Tier, s.SuspicionIndex))

	lines := []string{
		tier,
		LabelStyle.Render("window") + ValueStyle.Render(truncate(s.ActiveWindow, width-18)),
		LabelStyle.Render("task") + ValueStyle.Render(truncate(s.CurrentTask, width-18)),
		LabelStyle.Render("alignment") + m.bar.ViewAs(unit(float64(s.Alignment)/100)),
	}
	if s.BreakReminder {
		lines = append(lines, BubbleStyle.BorderForeground(AlertColor(v.Params.AlertColor)).
			Render("time for a break"))
	}
	return strings.Join(lines, "\n")
}

func (m Model) renderDebug(width int) string {
	var b strings.Builder
	for _, f := range m.src.Debug().Fields() {
		b.WriteString(LabelStyle.Render(f.Label))
		b.WriteString(ValueStyle.Render(truncate(f.Value, width-22)))
		b.WriteString("\n")
	}
	for _, line := range logging.RecentLines(m.opts.LogLines) {
		b.WriteString(DimStyle.Render(truncate(line, width-6)))
		b.WriteString("\n")
	}
	return PanelStyle.Render(strings.TrimRight(b.String(), "\n"))
}

// truncate shortens s to limit display cells.
func truncate(s string, limit int) string {
	if limit <= 3 {
		return ""
	}
	if runewidth.StringWidth(s) <= limit {
		return s
	}
	return runewidth.Truncate(s, limit, "...")
}

// unit limits a display fraction to [0,1]. Only the bar is limited; the
// reported value is shown as is elsewhere.
func unit(f float64) float64 {
	return math.Max(0, math.Min(1, f))
}
