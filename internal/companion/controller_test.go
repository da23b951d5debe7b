package companion

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/asheshgoplani/tama-deck/internal/presentation"
	"github.com/asheshgoplani/tama-deck/internal/relay"
	"github.com/asheshgoplani/tama-deck/internal/session"
	"github.com/asheshgoplani/tama-deck/internal/snapshot"
	"github.com/asheshgoplani/tama-deck/internal/transport"
)

const raidPayload = `{"suspicion_index":9,"active_window":"Twitter","active_duration":42,"state":"RAID","alignment":10,"current_task":"none"}`

var fixedNow = time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

// fakeLink behaves like transport.Client.Send: it drops while closed.
type fakeLink struct {
	mu   sync.Mutex
	open bool
	sent []any
}

func (f *fakeLink) Send(v any) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.open {
		return transport.ErrNotOpen
	}
	f.sent = append(f.sent, v)
	return nil
}

func (f *fakeLink) setOpen(open bool) {
	f.mu.Lock()
	f.open = open
	f.mu.Unlock()
}

func (f *fakeLink) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.sent)
}

type captureRelay struct {
	seen   []snapshot.Snapshot
	phases []session.Phase
}

func (c *captureRelay) Forward(s snapshot.Snapshot, phase session.Phase) {
	c.seen = append(c.seen, s)
	c.phases = append(c.phases, phase)
}

func newTestController(r *captureRelay) *Controller {
	opts := Options{Now: func() time.Time { return fixedNow }}
	if r != nil {
		opts.Relay = r
	}
	return New(opts)
}

func TestNewControllerStartsInLobbyWithoutSnapshot(t *testing.T) {
	c := newTestController(nil)
	_, ok := c.Current()
	assert.False(t, ok)
	assert.Equal(t, session.PhaseLobby, c.Phase())
	assert.Equal(t, presentation.PoseResting, c.Presentation().Pose)
	assert.Equal(t, transport.StateIdle, c.View().Connection)
}

func TestMalformedPayloadKeepsPriorSnapshot(t *testing.T) {
	r := &captureRelay{}
	c := newTestController(r)

	c.HandleMessage([]byte(`{"suspicion_index":4,"state":"CURIOUS","active_window":"Docs"}`))
	before := c.View()

	for _, raw := range []string{
		`{"suspicion_index":`,
		`{"state":"RAID"}`,
		`not json`,
		`[]`,
	} {
		outcome, err := c.Apply([]byte(raw))
		assert.Equal(t, OutcomeDiscarded, outcome, raw)
		assert.ErrorIs(t, err, snapshot.ErrMalformed, raw)

		assert.NotPanics(t, func() { c.HandleMessage([]byte(raw)) })
	}

	assert.Same(t, before, c.View(), "view must not be republished")
	got, ok := c.Current()
	require.True(t, ok)
	assert.Equal(t, 4, got.SuspicionIndex)
	assert.Len(t, r.seen, 1, "only the good snapshot is relayed")
}

func TestMessagesApplyInArrivalOrder(t *testing.T) {
	c := newTestController(nil)
	c.StartSession()
	for _, raw := range []string{
		`{"suspicion_index":9,"state":"RAID"}`,
		`{"suspicion_index":1,"state":"CALM"}`,
	} {
		c.HandleMessage([]byte(raw))
	}
	assert.Equal(t, presentation.TierCalm, c.Presentation().Tier)
	assert.Equal(t, presentation.PoseRetracted, c.Presentation().Pose)
}

func TestStartSessionBeforeOpenIsSentOnceOnOpen(t *testing.T) {
	link := &fakeLink{}
	c := newTestController(nil)
	c.Bind(link)

	require.True(t, c.StartSession())
	assert.Equal(t, session.PhaseActive, c.Phase())
	assert.Zero(t, link.count(), "nothing goes out while closed")

	link.setOpen(true)
	c.HandleOpen()
	require.Equal(t, 1, link.count())
	assert.Equal(t, snapshot.StartSession(), link.sent[0])

	c.HandleOpen()
	assert.False(t, c.StartSession())
	assert.Equal(t, 1, link.count(), "never duplicated")
}

func TestStartSessionWhileOpenSendsImmediately(t *testing.T) {
	link := &fakeLink{open: true}
	c := newTestController(nil)
	c.Bind(link)

	c.StartSession()
	assert.Equal(t, 1, link.count())
}

func TestStartSessionWithoutTransportReplaysAfterBind(t *testing.T) {
	c := newTestController(nil)
	c.StartSession()

	link := &fakeLink{open: true}
	c.Bind(link)
	c.HandleOpen()
	assert.Equal(t, 1, link.count())
}

func TestRaidScenario(t *testing.T) {
	r := &captureRelay{}
	c := newTestController(r)
	c.StartSession()

	outcome, err := c.Apply([]byte(raidPayload))
	require.NoError(t, err)
	assert.Equal(t, OutcomeApplied, outcome)

	p := c.Presentation()
	assert.Equal(t, presentation.TierRaid, p.Tier)
	assert.Equal(t, presentation.PoseSurfaced, p.Pose)
	assert.Equal(t, 1.0, p.Opacity)
	assert.GreaterOrEqual(t, p.AnimationRate, 3.0)
	assert.LessOrEqual(t, p.AnimationRate, 4.0)

	require.Len(t, r.seen, 1)
	assert.Equal(t, "Twitter", r.seen[0].ActiveWindow)
	assert.Equal(t, fixedNow, r.seen[0].ReceivedAt)
}

func TestRelayCarriesSessionPhase(t *testing.T) {
	r := &captureRelay{}
	c := newTestController(r)

	c.HandleMessage([]byte(raidPayload))
	require.Len(t, r.phases, 1)
	assert.Equal(t, session.PhaseLobby, r.phases[0])
	assert.Contains(t, relay.NewStatus(r.seen[0], r.phases[0], fixedNow).Indicator(), "idle")

	// Starting re-relays the last snapshot so the tray leaves idle right away.
	c.StartSession()
	require.Len(t, r.phases, 2)
	assert.Equal(t, session.PhaseActive, r.phases[1])

	c.HandleMessage([]byte(raidPayload))
	require.Len(t, r.phases, 3)
	assert.Equal(t, session.PhaseActive, r.phases[2])
	line := relay.NewStatus(r.seen[2], r.phases[2], fixedNow).Indicator()
	assert.Equal(t, "💢 Distraction (9/10, Twitter)", line)
}

func TestRemoteStartRelaysCurrentSnapshot(t *testing.T) {
	r := &captureRelay{}
	c := newTestController(r)
	c.HandleMessage([]byte(raidPayload))

	_, err := c.Apply([]byte(`{"command":"START_SESSION"}`))
	require.NoError(t, err)
	require.Len(t, r.phases, 2)
	assert.Equal(t, session.PhaseActive, r.phases[1])

	_, err = c.Apply([]byte(`{"command":"START_SESSION"}`))
	require.NoError(t, err)
	assert.Len(t, r.phases, 2, "already active, nothing new to relay")
}

func TestLobbyIgnoresSuspicion(t *testing.T) {
	c := newTestController(nil)
	c.HandleMessage([]byte(raidPayload))
	assert.Equal(t, presentation.PoseResting, c.Presentation().Pose)
	assert.Equal(t, presentation.TierRaid, c.Presentation().Tier)
}

func TestRemoteStartCommand(t *testing.T) {
	link := &fakeLink{}
	c := newTestController(nil)
	c.Bind(link)
	c.StartSession()

	outcome, err := c.Apply([]byte(`{"command":"start_session"}`))
	require.NoError(t, err)
	assert.Equal(t, OutcomeCommand, outcome)

	link.setOpen(true)
	c.HandleOpen()
	assert.Zero(t, link.count(), "analyzer already knows")
	assert.Equal(t, session.PhaseActive, c.Phase())
}

func TestSessionActiveSnapshotLeavesLobby(t *testing.T) {
	c := newTestController(nil)
	c.HandleMessage([]byte(`{"suspicion_index":7,"state":"SUSPICIOUS","session_active":true}`))
	assert.Equal(t, session.PhaseActive, c.Phase())
	assert.Equal(t, presentation.PoseSurfaced, c.Presentation().Pose)
}

func TestAnimAndQuitCommands(t *testing.T) {
	c := newTestController(nil)

	_, err := c.Apply([]byte(`{"command":"TAMA_ANIM","anim":"strike","loop":true}`))
	require.NoError(t, err)
	assert.Equal(t, "strike", c.View().RequestedCue)
	assert.True(t, c.View().RequestedLoop)
	assert.Equal(t, uint64(1), c.View().AnimSeq)

	c.HandleMessage([]byte(`{"command":"QUIT"}`))
	c.HandleMessage([]byte(`{"command":"QUIT"}`))
	select {
	case <-c.Quit():
	default:
		t.Fatal("quit channel not closed")
	}

	_, err = c.Apply([]byte(`{"command":"SELF_DESTRUCT"}`))
	assert.True(t, errors.Is(err, errUnknownCommand))
}

func TestChangesCoalesce(t *testing.T) {
	c := newTestController(nil)
	c.HandleMessage([]byte(`{"suspicion_index":1,"state":"CALM"}`))
	c.HandleMessage([]byte(`{"suspicion_index":2,"state":"CALM"}`))

	select {
	case <-c.Changes():
	default:
		t.Fatal("expected a change signal")
	}
	select {
	case <-c.Changes():
		t.Fatal("signals should coalesce")
	default:
	}
}

func TestHandleStateTracksConnection(t *testing.T) {
	c := newTestController(nil)
	h := c.Handlers()
	h.OnState(transport.StateConnecting)
	assert.Equal(t, transport.StateConnecting, c.View().Connection)
	h.OnState(transport.StateOpen)
	assert.Equal(t, transport.StateOpen, c.View().Connection)
	h.OnClose(errors.New("eof"))
}
