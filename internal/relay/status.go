package relay

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/asheshgoplani/tama-deck/internal/presentation"
	"github.com/asheshgoplani/tama-deck/internal/session"
	"github.com/asheshgoplani/tama-deck/internal/snapshot"
)

// Status is the document written to the status file for the tray host.
type Status struct {
	Snapshot  snapshot.Snapshot `json:"snapshot"`
	Phase     session.Phase     `json:"phase,omitempty"`
	Tier      string            `json:"tier"`
	UpdatedAt time.Time         `json:"updated_at"`
}

// NewStatus wraps a snapshot and the phase it was seen in for the status file.
func NewStatus(s snapshot.Snapshot, phase session.Phase, now time.Time) Status {
	return Status{
		Snapshot:  s,
		Phase:     phase,
		Tier:      presentation.TierFor(s.SuspicionIndex).String(),
		UpdatedAt: now.UTC(),
	}
}

// Active reports whether a focus session is running, either because the
// companion is ACTIVE or because the analyzer said so.
func (s Status) Active() bool {
	return s.Phase == session.PhaseActive || s.Snapshot.SessionActive
}

// Indicator is the tray line for a status: idle before a session, green while
// calm, red otherwise.
func (s Status) Indicator() string {
	if !s.Active() {
		return "🟢 Tama idle"
	}
	if presentation.TierFor(s.Snapshot.SuspicionIndex) == presentation.TierCalm {
		return "🟢 Working"
	}
	return fmt.Sprintf("💢 Distraction (%d/10, %s)", s.Snapshot.SuspicionIndex, s.Snapshot.ActiveWindow)
}

// WriteStatus writes the status atomically (tmp file + rename) so watchers
// never observe a partial document.
func WriteStatus(path string, st Status) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create status dir: %w", err)
	}
	data, err := json.Marshal(st)
	if err != nil {
		return fmt.Errorf("marshal status: %w", err)
	}
	tmpPath := path + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0o644); err != nil {
		return fmt.Errorf("write tmp status: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("rename status: %w", err)
	}
	return nil
}

// ReadStatus reads the last relayed status.
func ReadStatus(path string) (Status, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Status{}, err
	}
	var st Status
	if err := json.Unmarshal(data, &st); err != nil {
		return Status{}, fmt.Errorf("parse status: %w", err)
	}
	return st, nil
}
