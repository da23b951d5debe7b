// Package transport owns the single connection to the analyzer.
package transport

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/asheshgoplani/tama-deck/internal/logging"
)

var transportLog = logging.ForComponent(logging.CompTransport)

// DefaultReconnectDelay is the fixed wait before every reconnect attempt.
const DefaultReconnectDelay = 2 * time.Second

var (
	// ErrNotOpen is returned by Send when the connection is not open. The command is dropped.
	ErrNotOpen = errors.New("connection not open")
	// ErrClosed is returned after Close.
	ErrClosed = errors.New("client closed")
)

// State is the connection state.
type State int32

const (
	// StateIdle is before the first Connect and after Close.
	StateIdle State = iota
	StateConnecting
	StateOpen
	StateClosedPendingRetry
)

func (s State) String() string {
	switch s {
	case StateConnecting:
		return "CONNECTING"
	case StateOpen:
		return "OPEN"
	case StateClosedPendingRetry:
		return "CLOSED_PENDING_RETRY"
	default:
		return "IDLE"
	}
}

// Conn is the part of *websocket.Conn the client uses.
type Conn interface {
	ReadMessage() (messageType int, p []byte, err error)
	WriteJSON(v any) error
	Close() error
}

// DialFunc opens one connection to endpoint.
type DialFunc func(ctx context.Context, endpoint string) (Conn, error)

// WebsocketDialer dials with gorilla/websocket.
func WebsocketDialer(handshakeTimeout time.Duration) DialFunc {
	dialer := &websocket.Dialer{
		Proxy:            http.ProxyFromEnvironment,
		HandshakeTimeout: handshakeTimeout,
		ReadBufferSize:   4096,
		WriteBufferSize:  4096,
	}
	return func(ctx context.Context, endpoint string) (Conn, error) {
		conn, resp, err := dialer.DialContext(ctx, endpoint, nil)
		if resp != nil && resp.Body != nil {
			resp.Body.Close()
		}
		if err != nil {
			return nil, fmt.Errorf("dial %s: %w", endpoint, err)
		}
		return conn, nil
	}
}

// Handlers receive connection events. All callbacks for one client run
// serially: OnOpen, then every OnMessage in arrival order, then OnClose.
type Handlers struct {
	OnMessage func(payload []byte)
	OnOpen    func()
	OnClose   func(err error)
	OnState   func(State)
}

// Options configures a Client.
type Options struct {
	Endpoint       string
	ReconnectDelay time.Duration
	Dial           DialFunc
	Scheduler      Scheduler
	Handlers       Handlers
}

// Client keeps one logical connection to the analyzer alive. Every
// disconnect, including a failed dial, schedules exactly one reconnect after
// a fixed delay, forever.
type Client struct {
	endpoint string
	delay    time.Duration
	dial     DialFunc
	sched    Scheduler
	handlers Handlers

	ctx    context.Context
	cancel context.CancelFunc

	// callbackMu serializes handler invocations across connection generations.
	callbackMu sync.Mutex
	writeMu    sync.Mutex

	mu       sync.Mutex
	state    State
	conn     Conn
	gen      uint64
	retry    Timer
	retrySeq uint64
	closed   bool
}

// NewClient creates an idle client. Call Connect to start.
func NewClient(opts Options) *Client {
	if opts.ReconnectDelay <= 0 {
		opts.ReconnectDelay = DefaultReconnectDelay
	}
	if opts.Dial == nil {
		opts.Dial = WebsocketDialer(5 * time.Second)
	}
	if opts.Scheduler == nil {
		opts.Scheduler = SystemScheduler
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Client{
		endpoint: opts.Endpoint,
		delay:    opts.ReconnectDelay,
		dial:     opts.Dial,
		sched:    opts.Scheduler,
		handlers: opts.Handlers,
		ctx:      ctx,
		cancel:   cancel,
	}
}

// Endpoint returns the analyzer URL.
func (c *Client) Endpoint() string { return c.endpoint }

// State returns the current connection state.
func (c *Client) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Connect starts a connection attempt. A pending reconnect timer is
// cancelled first. It is a no-op while connecting or open, so there is never
// more than one live connection. Results arrive through the handlers.
func (c *Client) Connect() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return ErrClosed
	}
	if c.state == StateConnecting || c.state == StateOpen {
		c.mu.Unlock()
		return nil
	}
	c.cancelRetryLocked()
	gen := c.beginDialLocked()
	c.mu.Unlock()

	c.emitState(StateConnecting)
	go c.run(gen)
	return nil
}

// Send writes v as JSON if the connection is open. Otherwise the command is
// dropped and ErrNotOpen is returned; callers that care must retry themselves.
func (c *Client) Send(v any) error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return ErrClosed
	}
	conn := c.conn
	if c.state != StateOpen || conn == nil {
		c.mu.Unlock()
		return ErrNotOpen
	}
	c.mu.Unlock()

	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	if err := conn.WriteJSON(v); err != nil {
		return fmt.Errorf("write command: %w", err)
	}
	return nil
}

// Close stops reconnecting and closes the live connection. Safe to call more than once.
func (c *Client) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	c.cancelRetryLocked()
	conn := c.conn
	c.conn = nil
	c.state = StateIdle
	c.gen++
	c.mu.Unlock()

	c.cancel()
	if conn != nil {
		conn.Close()
	}
	transportLog.Info("client_closed", slog.String("endpoint", c.endpoint))
	return nil
}

func (c *Client) beginDialLocked() uint64 {
	c.gen++
	c.state = StateConnecting
	return c.gen
}

func (c *Client) cancelRetryLocked() {
	if c.retry != nil {
		c.retry.Stop()
		c.retry = nil
	}
	c.retrySeq++
}

// run dials and, on success, reads until the connection drops.
func (c *Client) run(gen uint64) {
	conn, err := c.dial(c.ctx, c.endpoint)

	c.mu.Lock()
	if c.closed || gen != c.gen {
		c.mu.Unlock()
		if conn != nil {
			conn.Close()
		}
		return
	}
	if err != nil {
		c.scheduleRetryLocked()
		c.mu.Unlock()
		logging.Aggregate(logging.CompTransport, "dial_failed", slog.String("error", err.Error()))
		c.emitState(StateClosedPendingRetry)
		c.emitClose(err)
		return
	}
	c.conn = conn
	c.state = StateOpen
	c.mu.Unlock()

	transportLog.Info("connected", slog.String("endpoint", c.endpoint))
	c.emitState(StateOpen)
	c.emitOpen()

	readErr := c.readLoop(conn)

	c.mu.Lock()
	if c.closed || gen != c.gen {
		c.mu.Unlock()
		return
	}
	c.conn = nil
	c.scheduleRetryLocked()
	c.mu.Unlock()

	conn.Close()
	transportLog.Info("connection_lost", slog.String("error", readErr.Error()))
	c.emitState(StateClosedPendingRetry)
	c.emitClose(readErr)
}

func (c *Client) readLoop(conn Conn) error {
	for {
		_, payload, err := conn.ReadMessage()
		if err != nil {
			return err
		}
		c.emitMessage(payload)
	}
}

func (c *Client) scheduleRetryLocked() {
	c.cancelRetryLocked()
	c.state = StateClosedPendingRetry
	seq := c.retrySeq
	c.retry = c.sched.AfterFunc(c.delay, func() { c.retryFired(seq) })
	transportLog.Debug("reconnect_scheduled", slog.Int64("delay_ms", c.delay.Milliseconds()))
}

func (c *Client) retryFired(seq uint64) {
	c.mu.Lock()
	if c.closed || seq != c.retrySeq || c.state != StateClosedPendingRetry {
		c.mu.Unlock()
		return
	}
	c.retry = nil
	gen := c.beginDialLocked()
	c.mu.Unlock()

	c.emitState(StateConnecting)
	go c.run(gen)
}

func (c *Client) emitState(s State) {
	if c.handlers.OnState == nil {
		return
	}
	c.callbackMu.Lock()
	defer c.callbackMu.Unlock()
	c.handlers.OnState(s)
}

func (c *Client) emitOpen() {
	if c.handlers.OnOpen == nil {
		return
	}
	c.callbackMu.Lock()
	defer c.callbackMu.Unlock()
	c.handlers.OnOpen()
}

func (c *Client) emitMessage(p []byte) {
	if c.handlers.OnMessage == nil {
		return
	}
	c.callbackMu.Lock()
	defer c.callbackMu.Unlock()
	c.handlers.OnMessage(p)
}

func (c *Client) emitClose(err error) {
	if c.handlers.OnClose == nil {
		return
	}
	c.callbackMu.Lock()
	defer c.callbackMu.Unlock()
	c.handlers.OnClose(err)
}
