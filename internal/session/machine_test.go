package session

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/asheshgoplani/tama-deck/internal/snapshot"
)

type fakeLink struct {
	open bool
	sent []snapshot.Command
}

var errNotOpen = errors.New("not open")

func (f *fakeLink) send(cmd snapshot.Command) error {
	if !f.open {
		return errNotOpen
	}
	f.sent = append(f.sent, cmd)
	return nil
}

func TestNewMachineStartsInLobby(t *testing.T) {
	m := NewMachine()
	assert.Equal(t, PhaseLobby, m.Phase())
	assert.False(t, m.PendingStart())
}

func TestStartWhileOpenSendsImmediately(t *testing.T) {
	link := &fakeLink{open: true}
	m := NewMachine()

	require.True(t, m.Start(link.send))
	assert.Equal(t, PhaseActive, m.Phase())
	assert.Equal(t, []snapshot.Command{snapshot.StartSession()}, link.sent)
	assert.False(t, m.PendingStart())

	// A later reconnect must not resend.
	m.ConnectionOpened(link.send)
	assert.Len(t, link.sent, 1)
}

func TestStartBeforeOpenIsReplayedOnceOnOpen(t *testing.T) {
	link := &fakeLink{}
	m := NewMachine()

	require.True(t, m.Start(link.send))
	assert.Equal(t, PhaseActive, m.Phase(), "phase changes even when the command cannot be sent")
	assert.Empty(t, link.sent, "nothing is sent before the connection opens")
	assert.True(t, m.PendingStart())

	link.open = true
	m.ConnectionOpened(link.send)
	assert.Len(t, link.sent, 1)

	m.ConnectionOpened(link.send)
	m.ConnectionOpened(link.send)
	assert.Len(t, link.sent, 1, "START_SESSION is not duplicated")
}

func TestStartWithoutTransportStaysPending(t *testing.T) {
	m := NewMachine()
	require.True(t, m.Start(nil))
	assert.True(t, m.PendingStart())

	link := &fakeLink{open: true}
	m.ConnectionOpened(link.send)
	assert.Len(t, link.sent, 1)
	assert.False(t, m.PendingStart())
}

func TestStartIsStickyAndIdempotent(t *testing.T) {
	link := &fakeLink{open: true}
	m := NewMachine()

	require.True(t, m.Start(link.send))
	assert.False(t, m.Start(link.send))
	assert.Equal(t, PhaseActive, m.Phase())
	assert.Len(t, link.sent, 1)
}

func TestStartedRemotelyClearsPendingWithoutSending(t *testing.T) {
	link := &fakeLink{}
	m := NewMachine()
	m.Start(link.send)
	require.True(t, m.PendingStart())

	assert.False(t, m.StartedRemotely(), "already active")
	assert.False(t, m.PendingStart())

	link.open = true
	m.ConnectionOpened(link.send)
	assert.Empty(t, link.sent)
}

func TestStartedRemotelyFromLobby(t *testing.T) {
	m := NewMachine()
	assert.True(t, m.StartedRemotely())
	assert.Equal(t, PhaseActive, m.Phase())
}
