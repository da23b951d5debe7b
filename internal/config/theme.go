package config

import (
	dark "github.com/thiagokokada/dark-mode-go"
)

// ResolveTheme resolves the configured theme to "dark" or "light".
// "system" asks the OS and falls back to dark when detection fails.
func (c *Config) ResolveTheme() string {
	theme := c.GetUISettings().Theme
	if theme != "system" {
		return theme
	}
	isDark, err := dark.IsDarkMode()
	if err != nil || isDark {
		return "dark"
	}
	return "light"
}
