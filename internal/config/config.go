package config

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/BurntSushi/toml"
)

// FileName is the TOML config file inside the config directory.
const FileName = "config.toml"

// DirName is the default config directory under the user's home.
const DirName = ".tama-deck"

// DefaultEndpoint is where the analyzer listens by default.
const DefaultEndpoint = "ws://localhost:8080"

// Config is the user-facing configuration in TOML format.
type Config struct {
	// Analyzer describes the connection to the behavior analyzer.
	Analyzer AnalyzerSettings `toml:"analyzer"`

	// Relay controls forwarding of snapshots to the hosting shell.
	Relay RelaySettings `toml:"relay"`

	// Push controls web push alerts for high suspicion tiers.
	Push PushSettings `toml:"push"`

	// UI controls the overlay renderer.
	UI UISettings `toml:"ui"`

	// Logs controls structured logging.
	Logs LogSettings `toml:"logs"`
}

// AnalyzerSettings configures the transport client.
type AnalyzerSettings struct {
	// Endpoint is the websocket URL of the analyzer (default: ws://localhost:8080)
	Endpoint string `toml:"endpoint"`

	// ReconnectDelayMS is the fixed delay before each reconnect attempt (default: 2000)
	ReconnectDelayMS int `toml:"reconnect_delay_ms"`

	// HandshakeTimeoutMS bounds the websocket handshake (default: 5000)
	HandshakeTimeoutMS int `toml:"handshake_timeout_ms"`
}

// RelaySettings configures the status file relay.
type RelaySettings struct {
	// Enabled writes every snapshot to StatusFile (default: true)
	Enabled *bool `toml:"enabled"`

	// StatusFile is the file the tray host watches (default: <config dir>/status.json)
	StatusFile string `toml:"status_file"`
}

// PushSettings configures web push alerts.
type PushSettings struct {
	// Enabled turns on web push alerts (default: false)
	Enabled bool `toml:"enabled"`

	// Subject is the VAPID subject, usually a mailto: URL
	Subject string `toml:"subject"`

	// MinTier is the lowest alert tier that triggers a push: "curious", "suspicious", "raid" (default: raid)
	MinTier string `toml:"min_tier"`

	// IntervalSecs is the minimum spacing between pushes (default: 60)
	IntervalSecs int `toml:"interval_secs"`
}

// UISettings configures the renderer.
type UISettings struct {
	// Theme is "dark" (default), "light", or "system"
	Theme string `toml:"theme"`

	// ShowDebug opens the debug panel at startup
	ShowDebug bool `toml:"show_debug"`

	// FPS is the render loop frequency (default: 30)
	FPS int `toml:"fps"`
}

// LogSettings configures structured logging.
type LogSettings struct {
	Debug      bool   `toml:"debug"`
	Level      string `toml:"level"`
	Format     string `toml:"format"`
	MaxSizeMB  int    `toml:"max_size_mb"`
	MaxBackups int    `toml:"max_backups"`
	MaxAgeDays int    `toml:"max_age_days"`
	Compress   bool   `toml:"compress"`
}

var (
	cache   *Config
	cacheMu sync.RWMutex
)

// Dir returns the config directory. TAMA_DECK_HOME overrides ~/.tama-deck.
func Dir() (string, error) {
	if d := strings.TrimSpace(os.Getenv(EnvHome)); d != "" {
		return d, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolve home dir: %w", err)
	}
	return filepath.Join(home, DirName), nil
}

// Path returns the path to config.toml.
func Path() (string, error) {
	dir, err := Dir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, FileName), nil
}

// Load reads config.toml and applies environment overrides.
// The result is cached; a missing file yields the defaults.
func Load() (*Config, error) {
	cacheMu.RLock()
	if cache != nil {
		defer cacheMu.RUnlock()
		return cache, nil
	}
	cacheMu.RUnlock()

	cacheMu.Lock()
	defer cacheMu.Unlock()
	if cache != nil {
		return cache, nil
	}

	cfg := &Config{}
	var loadErr error
	if path, err := Path(); err == nil {
		if _, statErr := os.Stat(path); statErr == nil {
			if _, err := toml.DecodeFile(path, cfg); err != nil {
				// Keep going with defaults so a typo never stops the companion.
				cfg = &Config{}
				loadErr = fmt.Errorf("config.toml parse error: %w", err)
			}
		}
	}

	if err := applyEnv(cfg); err != nil && loadErr == nil {
		loadErr = err
	}
	cache = cfg
	return cache, loadErr
}

// Reload drops the cache and loads again.
func Reload() (*Config, error) {
	ClearCache()
	return Load()
}

// ClearCache forgets the cached config. The next Load reads from disk.
func ClearCache() {
	cacheMu.Lock()
	cache = nil
	cacheMu.Unlock()
}

// Save writes cfg to config.toml with a tmp file + fsync + rename.
func Save(cfg *Config) error {
	path, err := Path()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return fmt.Errorf("create config directory: %w", err)
	}

	var buf bytes.Buffer
	buf.WriteString("# Tama Deck Configuration\n\n")
	if err := toml.NewEncoder(&buf).Encode(cfg); err != nil {
		return fmt.Errorf("encode config: %w", err)
	}

	tmpPath := path + ".tmp"
	if err := os.WriteFile(tmpPath, buf.Bytes(), 0o600); err != nil {
		return fmt.Errorf("write temp file: %w", err)
	}
	if f, err := os.Open(tmpPath); err == nil {
		_ = f.Sync()
		f.Close()
	}
	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("finalize config save: %w", err)
	}

	ClearCache()
	return nil
}

// GetAnalyzerSettings returns analyzer settings with defaults applied.
func (c *Config) GetAnalyzerSettings() AnalyzerSettings {
	s := c.Analyzer
	if strings.TrimSpace(s.Endpoint) == "" {
		s.Endpoint = DefaultEndpoint
	}
	if s.ReconnectDelayMS <= 0 {
		s.ReconnectDelayMS = 2000
	}
	if s.HandshakeTimeoutMS <= 0 {
		s.HandshakeTimeoutMS = 5000
	}
	return s
}

// ReconnectDelay returns the reconnect delay as a duration.
func (s AnalyzerSettings) ReconnectDelay() time.Duration {
	return time.Duration(s.ReconnectDelayMS) * time.Millisecond
}

// HandshakeTimeout returns the handshake timeout as a duration.
func (s AnalyzerSettings) HandshakeTimeout() time.Duration {
	return time.Duration(s.HandshakeTimeoutMS) * time.Millisecond
}

// GetRelaySettings returns relay settings with defaults applied.
func (c *Config) GetRelaySettings() RelaySettings {
	s := c.Relay
	if s.Enabled == nil {
		enabled := true
		s.Enabled = &enabled
	}
	if strings.TrimSpace(s.StatusFile) == "" {
		if dir, err := Dir(); err == nil {
			s.StatusFile = filepath.Join(dir, "status.json")
		}
	}
	s.StatusFile = expandHome(s.StatusFile)
	return s
}

// IsEnabled reports whether the status relay is on.
func (s RelaySettings) IsEnabled() bool {
	return s.Enabled == nil || *s.Enabled
}

// GetPushSettings returns push settings with defaults applied.
func (c *Config) GetPushSettings() PushSettings {
	s := c.Push
	switch s.MinTier {
	case "curious", "suspicious", "raid":
	default:
		s.MinTier = "raid"
	}
	if s.IntervalSecs <= 0 {
		s.IntervalSecs = 60
	}
	if strings.TrimSpace(s.Subject) == "" {
		s.Subject = "mailto:tama@localhost"
	}
	return s
}

// GetUISettings returns renderer settings with defaults applied.
func (c *Config) GetUISettings() UISettings {
	s := c.UI
	switch s.Theme {
	case "dark", "light", "system":
	default:
		s.Theme = "dark"
	}
	if s.FPS <= 0 || s.FPS > 120 {
		s.FPS = 30
	}
	return s
}

func expandHome(path string) string {
	if !strings.HasPrefix(path, "~/") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, path[2:])
}
