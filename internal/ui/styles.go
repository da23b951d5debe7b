package ui

import (
	"sync"

	"github.com/charmbracelet/lipgloss"

	"github.com/asheshgoplani/tama-deck/internal/presentation"
)

// Theme is the active color scheme.
type Theme string

const (
	ThemeDark  Theme = "dark"
	ThemeLight Theme = "light"
)

type palette struct {
	Bg, Surface, Border, Text, TextDim lipgloss.Color
	Accent, Green, Yellow, Orange, Red lipgloss.Color
}

// Tokyo Night
var darkPalette = palette{
	Bg:      lipgloss.Color("#1a1b26"),
	Surface: lipgloss.Color("#24283b"),
	Border:  lipgloss.Color("#414868"),
	Text:    lipgloss.Color("#c0caf5"),
	TextDim: lipgloss.Color("#787fa0"),
	Accent:  lipgloss.Color("#7aa2f7"),
	Green:   lipgloss.Color("#9ece6a"),
	Yellow:  lipgloss.Color("#e0af68"),
	Orange:  lipgloss.Color("#ff9e64"),
	Red:     lipgloss.Color("#f7768e"),
}

// Tokyo Night Day
var lightPalette = palette{
	Bg:      lipgloss.Color("#d5d6db"),
	Surface: lipgloss.Color("#e9e9ec"),
	Border:  lipgloss.Color("#9699a3"),
	Text:    lipgloss.Color("#343b58"),
	TextDim: lipgloss.Color("#6a6d7c"),
	Accent:  lipgloss.Color("#34548a"),
	Green:   lipgloss.Color("#485e30"),
	Yellow:  lipgloss.Color("#8f5e15"),
	Orange:  lipgloss.Color("#965027"),
	Red:     lipgloss.Color("#8c4351"),
}

// themeMu guards the palette and styles during live theme switches.
var themeMu sync.RWMutex

var (
	currentTheme = ThemeDark
	colors       = darkPalette
)

var (
	TitleStyle  lipgloss.Style
	DimStyle    lipgloss.Style
	StageStyle  lipgloss.Style
	GroundStyle lipgloss.Style
	PanelStyle  lipgloss.Style
	LabelStyle  lipgloss.Style
	ValueStyle  lipgloss.Style
	BubbleStyle lipgloss.Style
)

// InitTheme switches the palette. Anything other than "light" is dark.
func InitTheme(theme string) {
	themeMu.Lock()
	defer themeMu.Unlock()
	if Theme(theme) == ThemeLight {
		currentTheme, colors = ThemeLight, lightPalette
	} else {
		currentTheme, colors = ThemeDark, darkPalette
	}
	initStyles()
}

// CurrentTheme returns the active theme.
func CurrentTheme() Theme {
	themeMu.RLock()
	defer themeMu.RUnlock()
	return currentTheme
}

func init() {
	InitTheme(string(ThemeDark))
}

func initStyles() {
	TitleStyle = lipgloss.NewStyle().Bold(true).Foreground(colors.Accent)
	DimStyle = lipgloss.NewStyle().Foreground(colors.TextDim)
	StageStyle = lipgloss.NewStyle().Foreground(colors.Text)
	GroundStyle = lipgloss.NewStyle().Foreground(colors.Border)
	PanelStyle = lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(colors.Border).
		Padding(0, 1)
	LabelStyle = lipgloss.NewStyle().Foreground(colors.TextDim).Width(16)
	ValueStyle = lipgloss.NewStyle().Foreground(colors.Text)
	BubbleStyle = lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		Padding(0, 1)
}

// AlertColor maps a presentation color token onto the palette.
func AlertColor(token string) lipgloss.Color {
	themeMu.RLock()
	defer themeMu.RUnlock()
	switch token {
	case presentation.ColorCurious:
		return colors.Yellow
	case presentation.ColorSuspicious:
		return colors.Orange
	case presentation.ColorRaid:
		return colors.Red
	default:
		return colors.Green
	}
}

// ConnectionColor colors the header status dot.
func ConnectionColor(open bool) lipgloss.Color {
	themeMu.RLock()
	defer themeMu.RUnlock()
	if open {
		return colors.Green
	}
	return colors.TextDim
}
