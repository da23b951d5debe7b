// Package companion owns the single current view of the analyzer: the last
// good snapshot, the session phase and the presentation targets derived from
// them. Transport callbacks write through it; the renderer only reads.
package companion

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/asheshgoplani/tama-deck/internal/logging"
	"github.com/asheshgoplani/tama-deck/internal/presentation"
	"github.com/asheshgoplani/tama-deck/internal/relay"
	"github.com/asheshgoplani/tama-deck/internal/session"
	"github.com/asheshgoplani/tama-deck/internal/snapshot"
	"github.com/asheshgoplani/tama-deck/internal/transport"
)

var controllerLog = logging.ForComponent(logging.CompCompanion)

// Sender is the outbound half of the transport. *transport.Client implements it.
type Sender interface {
	Send(v any) error
}

// View is an immutable picture of everything the renderer needs. A new View
// replaces the old one wholesale.
type View struct {
	Snapshot    snapshot.Snapshot
	HasSnapshot bool
	Phase       session.Phase
	Params      presentation.Params
	Connection  transport.State

	// RequestedCue is the last clip asked for by a TAMA_ANIM command.
	RequestedCue  string
	RequestedLoop bool

	// AnimSeq increases with every TAMA_ANIM so a repeated clip replays.
	AnimSeq uint64

	UpdatedAt time.Time
}

// Outcome reports what HandleMessage did with a payload.
type Outcome int

const (
	OutcomeApplied Outcome = iota
	OutcomeCommand
	OutcomeDiscarded
)

func (o Outcome) String() string {
	switch o {
	case OutcomeApplied:
		return "applied"
	case OutcomeCommand:
		return "command"
	default:
		return "discarded"
	}
}

// Options configures a Controller.
type Options struct {
	Relay relay.Relay
	Now   func() time.Time
}

// Controller is the only writer of the current View.
type Controller struct {
	machine *session.Machine
	relay   relay.Relay
	now     func() time.Time

	senderMu sync.RWMutex
	sender   Sender

	// writeMu serializes publishers; readers go through view without locking.
	writeMu sync.Mutex
	view    atomic.Pointer[View]

	changes  chan struct{}
	quit     chan struct{}
	quitOnce sync.Once

	debug *DebugSurface
}

// New returns a controller in LOBBY with no snapshot.
func New(opts Options) *Controller {
	if opts.Relay == nil {
		opts.Relay = relay.Nop{}
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	c := &Controller{
		machine: session.NewMachine(),
		relay:   opts.Relay,
		now:     opts.Now,
		changes: make(chan struct{}, 1),
		quit:    make(chan struct{}),
	}
	c.debug = newDebugSurface(c)
	initial := &View{
		Phase:     session.PhaseLobby,
		Params:    presentation.Derive(snapshot.Snapshot{}, session.PhaseLobby),
		UpdatedAt: c.now(),
	}
	c.view.Store(initial)
	return c
}

// Bind attaches the transport used for outbound commands.
func (c *Controller) Bind(s Sender) {
	c.senderMu.Lock()
	c.sender = s
	c.senderMu.Unlock()
}

// Handlers wires the controller into a transport client.
func (c *Controller) Handlers() transport.Handlers {
	return transport.Handlers{
		OnMessage: c.HandleMessage,
		OnOpen:    c.HandleOpen,
		OnClose:   c.HandleClose,
		OnState:   c.HandleState,
	}
}

// View returns the current view. The result must be treated as read-only.
func (c *Controller) View() *View { return c.view.Load() }

// Current returns the last good snapshot, if any.
func (c *Controller) Current() (snapshot.Snapshot, bool) {
	v := c.view.Load()
	return v.Snapshot, v.HasSnapshot
}

// Presentation returns the current display targets.
func (c *Controller) Presentation() presentation.Params { return c.view.Load().Params }

// Phase returns the session phase.
func (c *Controller) Phase() session.Phase { return c.view.Load().Phase }

// Debug returns the read-only debug surface.
func (c *Controller) Debug() *DebugSurface { return c.debug }

// Changes signals after every published view. Signals coalesce.
func (c *Controller) Changes() <-chan struct{} { return c.changes }

// Quit is closed when the analyzer asks the companion to exit.
func (c *Controller) Quit() <-chan struct{} { return c.quit }

// StartSession is the user's start action. The START_SESSION command is sent
// now if the connection is open, otherwise on the next open.
func (c *Controller) StartSession() bool {
	changed := c.machine.Start(c.sendFunc())
	if changed {
		c.publish(func(v *View) { v.Phase = session.PhaseActive })
		c.forwardCurrent()
	}
	return changed
}

// HandleOpen replays a pending start on the fresh connection.
func (c *Controller) HandleOpen() {
	c.machine.ConnectionOpened(c.sendFunc())
}

// HandleClose records a dropped connection. The transport reconnects on its own.
func (c *Controller) HandleClose(err error) {
	if err != nil {
		controllerLog.Debug("analyzer_disconnected", slog.String("error", err.Error()))
	}
}

// HandleState mirrors the transport state into the view.
func (c *Controller) HandleState(s transport.State) {
	c.publish(func(v *View) { v.Connection = s })
}

// HandleMessage is the transport's message callback. Failures never reach
// the transport: a malformed payload is logged and the prior snapshot kept.
func (c *Controller) HandleMessage(raw []byte) {
	outcome, err := c.Apply(raw)
	if err != nil {
		logging.Aggregate(logging.CompSnapshot, "snapshot_discarded")
		controllerLog.Debug("snapshot_discarded",
			slog.String("outcome", outcome.String()),
			slog.String("error", err.Error()))
	}
}

// Apply decodes one payload and updates the view. It returns
// OutcomeDiscarded with an error wrapping snapshot.ErrMalformed when the
// payload was rejected; the view is then untouched.
func (c *Controller) Apply(raw []byte) (Outcome, error) {
	msg, err := snapshot.Decode(raw, c.now())
	if err != nil {
		return OutcomeDiscarded, err
	}
	if msg.Kind == snapshot.KindCommand {
		return OutcomeCommand, c.applyCommand(msg.Command)
	}

	s := msg.Snapshot
	if s.SessionActive && c.machine.StartedRemotely() {
		controllerLog.Info("session_active_reported")
	}
	phase := c.machine.Phase()
	c.publish(func(v *View) {
		v.Snapshot = s
		v.HasSnapshot = true
		v.Phase = phase
	})
	c.relay.Forward(s, phase)
	return OutcomeApplied, nil
}

// forwardCurrent re-relays the last snapshot after a phase change so the
// shell does not wait for the next broadcast.
func (c *Controller) forwardCurrent() {
	v := c.view.Load()
	if v.HasSnapshot {
		c.relay.Forward(v.Snapshot, v.Phase)
	}
}

var errUnknownCommand = errors.New("unknown command")

func (c *Controller) applyCommand(cmd snapshot.Command) error {
	switch cmd.Name {
	case snapshot.CommandStartSession:
		if c.machine.StartedRemotely() {
			c.publish(func(v *View) { v.Phase = session.PhaseActive })
			c.forwardCurrent()
		}
	case snapshot.CommandAnim:
		c.publish(func(v *View) {
			v.RequestedCue = cmd.Anim
			v.RequestedLoop = cmd.Loop
			v.AnimSeq++
		})
	case snapshot.CommandQuit:
		controllerLog.Info("quit_requested")
		c.quitOnce.Do(func() { close(c.quit) })
	case snapshot.CommandShowRadial:
		// Radial menus belong to the desktop shell.
		controllerLog.Debug("command_ignored", slog.String("command", cmd.Name))
	default:
		return fmt.Errorf("%w: %s", errUnknownCommand, cmd.Name)
	}
	return nil
}

func (c *Controller) sendFunc() session.SendFunc {
	c.senderMu.RLock()
	s := c.sender
	c.senderMu.RUnlock()
	if s == nil {
		return nil
	}
	return func(cmd snapshot.Command) error { return s.Send(cmd) }
}

// publish copies the current view, applies mutate, re-derives the
// presentation targets and swaps the result in.
func (c *Controller) publish(mutate func(v *View)) {
	c.writeMu.Lock()
	next := *c.view.Load()
	mutate(&next)
	next.Params = presentation.Derive(next.Snapshot, next.Phase)
	next.UpdatedAt = c.now()
	c.view.Store(&next)
	c.writeMu.Unlock()

	select {
	case c.changes <- struct{}{}:
	default:
	}
}
