// Package session holds the companion's session phase and its one outbound intent.
package session

import (
	"log/slog"
	"sync"

	"github.com/asheshgoplani/tama-deck/internal/logging"
	"github.com/asheshgoplani/tama-deck/internal/snapshot"
)

var sessionLog = logging.ForComponent(logging.CompSession)

// Phase is the session phase. A process starts in LOBBY.
type Phase string

const (
	PhaseLobby  Phase = "LOBBY"
	PhaseActive Phase = "ACTIVE"
)

// SendFunc delivers one command to the analyzer. It returns an error when the
// command was not sent, e.g. because the connection is not open.
type SendFunc func(cmd snapshot.Command) error

// Machine is the LOBBY -> ACTIVE state machine. There is no way back to LOBBY.
//
// Starting a session emits START_SESSION. If that send fails the intent is
// kept and replayed by ConnectionOpened until one send succeeds.
type Machine struct {
	mu           sync.Mutex
	phase        Phase
	pendingStart bool
}

// NewMachine returns a machine in LOBBY.
func NewMachine() *Machine {
	return &Machine{phase: PhaseLobby}
}

// Phase returns the current phase.
func (m *Machine) Phase() Phase {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.phase
}

// PendingStart reports whether START_SESSION still has to be delivered.
func (m *Machine) PendingStart() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.pendingStart
}

// Start handles the user's start action. It returns true when the phase
// changed; starting an active session is a no-op.
func (m *Machine) Start(send SendFunc) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.phase == PhaseActive {
		sessionLog.Debug("session_start_ignored", slog.String("reason", "already_active"))
		return false
	}
	m.phase = PhaseActive
	m.pendingStart = true
	sessionLog.Info("session_started", slog.String("source", "user"))
	m.deliverLocked(send)
	return true
}

// ConnectionOpened replays a pending START_SESSION on a fresh connection.
func (m *Machine) ConnectionOpened(send SendFunc) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.pendingStart {
		return
	}
	m.deliverLocked(send)
}

// StartedRemotely records that the analyzer started the session itself
// (tray menu, another client). Nothing is sent and any pending start is
// dropped because the analyzer already has the intent.
func (m *Machine) StartedRemotely() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.pendingStart = false
	if m.phase == PhaseActive {
		return false
	}
	m.phase = PhaseActive
	sessionLog.Info("session_started", slog.String("source", "analyzer"))
	return true
}

func (m *Machine) deliverLocked(send SendFunc) {
	if send == nil {
		sessionLog.Debug("session_start_deferred", slog.String("reason", "no_transport"))
		return
	}
	if err := send(snapshot.StartSession()); err != nil {
		sessionLog.Debug("session_start_deferred", slog.String("error", err.Error()))
		return
	}
	m.pendingStart = false
	sessionLog.Info("session_start_sent")
}
