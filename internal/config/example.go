package config

import (
	"fmt"
	"os"
	"path/filepath"
)

const exampleConfig = `# Tama Deck Configuration

[analyzer]
# Websocket endpoint of the focus analyzer
endpoint = "ws://localhost:8080"
# Fixed delay between reconnect attempts while the analyzer is down
reconnect_delay_ms = 2000
handshake_timeout_ms = 5000

[relay]
# Mirror every snapshot to a status file for the tray host (tama-deck tray)
enabled = true
# status_file = "~/.tama-deck/status.json"

[push]
# Send a web push when suspicion reaches min_tier
enabled = false
subject = "mailto:you@example.com"
min_tier = "raid"
interval_secs = 60

[ui]
# "dark", "light" or "system"
theme = "dark"
show_debug = false
fps = 30

[logs]
debug = false
level = "info"
format = "json"
`

// CreateExample writes a commented config.toml if none exists.
// It returns the path and whether a file was written.
func CreateExample() (string, bool, error) {
	path, err := Path()
	if err != nil {
		return "", false, err
	}
	if _, err := os.Stat(path); err == nil {
		return path, false, nil
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return "", false, fmt.Errorf("create config directory: %w", err)
	}
	if err := os.WriteFile(path, []byte(exampleConfig), 0o600); err != nil {
		return "", false, fmt.Errorf("write example config: %w", err)
	}
	return path, true, nil
}
