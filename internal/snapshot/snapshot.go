// Package snapshot turns raw analyzer messages into typed, immutable state records.
package snapshot

import "time"

// State is the analyzer's mood tag. The set is open: unknown tags pass through.
type State string

const (
	StateCalm       State = "CALM"
	StateCurious    State = "CURIOUS"
	StateSuspicious State = "SUSPICIOUS"
	StateRaid       State = "RAID"
)

// Snapshot is one reported analyzer state. It holds only value fields, so a
// copy can never alias another snapshot; a new message always builds a new one.
//
// Numeric fields are passed through exactly as reported: suspicion_index is
// documented as 0..10 and alignment as 0..100, but neither is clamped.
type Snapshot struct {
	SuspicionIndex int    `json:"suspicion_index"`
	ActiveWindow   string `json:"active_window"`
	ActiveDuration int    `json:"active_duration"`
	State          State  `json:"state"`
	Alignment      int    `json:"alignment"`
	CurrentTask    string `json:"current_task"`

	// Optional fields; zero when the analyzer omits them.
	SessionActive  bool   `json:"session_active,omitempty"`
	Category       string `json:"category,omitempty"`
	CanBeClosed    bool   `json:"can_be_closed,omitempty"`
	SessionMinutes int    `json:"session_minutes,omitempty"`
	BreakReminder  bool   `json:"break_reminder,omitempty"`
	OnBreak        bool   `json:"is_on_break,omitempty"`
	NextBreakAt    int    `json:"next_break_at,omitempty"`
	WindowReady    bool   `json:"window_ready,omitempty"`

	ReceivedAt time.Time `json:"received_at"`
}

// Command names on the wire.
const (
	CommandStartSession = "START_SESSION"
	CommandQuit         = "QUIT"
	CommandAnim         = "TAMA_ANIM"
	CommandShowRadial   = "SHOW_RADIAL"
)

// Command is a control message in either direction.
// Outbound the only command is START_SESSION.
type Command struct {
	Name string `json:"command"`
	Anim string `json:"anim,omitempty"`
	Loop bool   `json:"loop,omitempty"`
}

// StartSession is the outbound session start command.
func StartSession() Command {
	return Command{Name: CommandStartSession}
}
