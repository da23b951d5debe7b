// Package relay mirrors snapshots out of process to the hosting shell.
// Forwarding is one-way and best effort: a Relay never reports failure.
package relay

import (
	"github.com/asheshgoplani/tama-deck/internal/logging"
	"github.com/asheshgoplani/tama-deck/internal/session"
	"github.com/asheshgoplani/tama-deck/internal/snapshot"
)

var relayLog = logging.ForComponent(logging.CompRelay)

// Relay receives a copy of every successfully interpreted snapshot together
// with the companion's session phase. Forward must not block the caller.
type Relay interface {
	Forward(s snapshot.Snapshot, phase session.Phase)
}

// Nop is used when no shell integration is available.
type Nop struct{}

// Forward does nothing.
func (Nop) Forward(snapshot.Snapshot, session.Phase) {}

// Multi fans a snapshot out to several relays in order.
type Multi []Relay

// Forward implements Relay.
func (m Multi) Forward(s snapshot.Snapshot, phase session.Phase) {
	for _, r := range m {
		if r != nil {
			r.Forward(s, phase)
		}
	}
}
