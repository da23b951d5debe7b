package transport

import (
	"context"
	"errors"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var errRefused = errors.New("connection refused")

// fakeConn is an in-memory Conn fed through a channel.
type fakeConn struct {
	inbox  chan []byte
	mu     sync.Mutex
	writes []any
	closed chan struct{}
	once   sync.Once
}

func newFakeConn() *fakeConn {
	return &fakeConn{inbox: make(chan []byte, 16), closed: make(chan struct{})}
}

func (f *fakeConn) ReadMessage() (int, []byte, error) {
	select {
	case p := <-f.inbox:
		return 1, p, nil
	case <-f.closed:
		return 0, nil, io.EOF
	}
}

func (f *fakeConn) WriteJSON(v any) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.writes = append(f.writes, v)
	return nil
}

func (f *fakeConn) Close() error {
	f.once.Do(func() { close(f.closed) })
	return nil
}

func (f *fakeConn) Writes() []any {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]any(nil), f.writes...)
}

// scriptedDialer hands out results in order; after the script it refuses.
type scriptedDialer struct {
	mu      sync.Mutex
	results []*fakeConn
	calls   int
}

func (d *scriptedDialer) dial(ctx context.Context, endpoint string) (Conn, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.calls++
	if len(d.results) == 0 {
		return nil, errRefused
	}
	next := d.results[0]
	d.results = d.results[1:]
	if next == nil {
		return nil, errRefused
	}
	return next, nil
}

func (d *scriptedDialer) Calls() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.calls
}

type recorder struct {
	mu       sync.Mutex
	messages []string
	opens    int
	closes   int
}

func (r *recorder) handlers() Handlers {
	return Handlers{
		OnMessage: func(p []byte) {
			r.mu.Lock()
			r.messages = append(r.messages, string(p))
			r.mu.Unlock()
		},
		OnOpen: func() {
			r.mu.Lock()
			r.opens++
			r.mu.Unlock()
		},
		OnClose: func(error) {
			r.mu.Lock()
			r.closes++
			r.mu.Unlock()
		},
	}
}

func (r *recorder) snapshot() (opens, closes int, messages []string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.opens, r.closes, append([]string(nil), r.messages...)
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	require.Eventually(t, cond, 2*time.Second, 5*time.Millisecond)
}

func TestStateStrings(t *testing.T) {
	assert.Equal(t, "IDLE", StateIdle.String())
	assert.Equal(t, "CONNECTING", StateConnecting.String())
	assert.Equal(t, "OPEN", StateOpen.String())
	assert.Equal(t, "CLOSED_PENDING_RETRY", StateClosedPendingRetry.String())
}

func TestReconnectEveryFixedDelayIndefinitely(t *testing.T) {
	sched := &ManualScheduler{}
	dialer := &scriptedDialer{}
	rec := &recorder{}
	c := NewClient(Options{
		Endpoint:  "ws://analyzer.test",
		Dial:      dialer.dial,
		Scheduler: sched,
		Handlers:  rec.handlers(),
	})
	defer c.Close()

	require.NoError(t, c.Connect())

	// Three consecutive failures, three retries, each at the same fixed delay.
	for drop := 1; drop <= 3; drop++ {
		waitFor(t, func() bool { return sched.Pending() == 1 })
		assert.Equal(t, StateClosedPendingRetry, c.State())
		assert.Len(t, sched.Scheduled(), drop, "exactly one retry per drop")
		require.Equal(t, 1, sched.Fire())
	}
	waitFor(t, func() bool { return sched.Pending() == 1 })

	for _, d := range sched.Scheduled() {
		assert.Equal(t, DefaultReconnectDelay, d)
	}
	assert.Equal(t, 4, dialer.Calls())
	_, closes, _ := rec.snapshot()
	assert.GreaterOrEqual(t, closes, 3)
}

func TestMessagesDeliveredInOrderThenReconnect(t *testing.T) {
	sched := &ManualScheduler{}
	conn := newFakeConn()
	dialer := &scriptedDialer{results: []*fakeConn{conn}}
	rec := &recorder{}
	c := NewClient(Options{Dial: dialer.dial, Scheduler: sched, Handlers: rec.handlers()})
	defer c.Close()

	require.NoError(t, c.Connect())
	waitFor(t, func() bool { return c.State() == StateOpen })

	conn.inbox <- []byte("1")
	conn.inbox <- []byte("2")
	conn.inbox <- []byte("3")
	waitFor(t, func() bool { _, _, m := rec.snapshot(); return len(m) == 3 })

	conn.Close() // remote drop
	waitFor(t, func() bool { return sched.Pending() == 1 })

	opens, _, messages := rec.snapshot()
	assert.Equal(t, 1, opens)
	assert.Equal(t, []string{"1", "2", "3"}, messages)
	assert.Equal(t, []time.Duration{DefaultReconnectDelay}, sched.Scheduled())
}

func TestSendDropsWhenNotOpen(t *testing.T) {
	sched := &ManualScheduler{}
	dialer := &scriptedDialer{}
	c := NewClient(Options{Dial: dialer.dial, Scheduler: sched})
	defer c.Close()

	assert.ErrorIs(t, c.Send(map[string]string{"command": "START_SESSION"}), ErrNotOpen)

	require.NoError(t, c.Connect())
	waitFor(t, func() bool { return sched.Pending() == 1 })
	assert.ErrorIs(t, c.Send(map[string]string{"command": "START_SESSION"}), ErrNotOpen)
}

func TestSendWhenOpen(t *testing.T) {
	conn := newFakeConn()
	dialer := &scriptedDialer{results: []*fakeConn{conn}}
	c := NewClient(Options{Dial: dialer.dial, Scheduler: &ManualScheduler{}})
	defer c.Close()

	require.NoError(t, c.Connect())
	waitFor(t, func() bool { return c.State() == StateOpen })

	require.NoError(t, c.Send("hello"))
	assert.Equal(t, []any{"hello"}, conn.Writes())
}

func TestManualConnectCancelsPendingRetry(t *testing.T) {
	sched := &ManualScheduler{}
	conn := newFakeConn()
	dialer := &scriptedDialer{results: []*fakeConn{nil, conn}}
	c := NewClient(Options{Dial: dialer.dial, Scheduler: sched})
	defer c.Close()

	require.NoError(t, c.Connect())
	waitFor(t, func() bool { return sched.Pending() == 1 })

	require.NoError(t, c.Connect())
	waitFor(t, func() bool { return c.State() == StateOpen })
	assert.Equal(t, 0, sched.Pending(), "the old timer was cancelled")

	// Firing the cancelled timer must not start a second connection.
	assert.Equal(t, 0, sched.Fire())
	assert.Equal(t, 2, dialer.Calls())
}

func TestConnectWhileOpenIsNoop(t *testing.T) {
	conn := newFakeConn()
	dialer := &scriptedDialer{results: []*fakeConn{conn}}
	c := NewClient(Options{Dial: dialer.dial, Scheduler: &ManualScheduler{}})
	defer c.Close()

	require.NoError(t, c.Connect())
	waitFor(t, func() bool { return c.State() == StateOpen })
	require.NoError(t, c.Connect())
	assert.Equal(t, 1, dialer.Calls())
}

func TestCloseStopsReconnecting(t *testing.T) {
	sched := &ManualScheduler{}
	dialer := &scriptedDialer{}
	c := NewClient(Options{Dial: dialer.dial, Scheduler: sched})

	require.NoError(t, c.Connect())
	waitFor(t, func() bool { return sched.Pending() == 1 })

	require.NoError(t, c.Close())
	assert.Equal(t, StateIdle, c.State())
	assert.Equal(t, 0, sched.Fire())
	assert.ErrorIs(t, c.Connect(), ErrClosed)
	assert.ErrorIs(t, c.Send("x"), ErrClosed)
	assert.NoError(t, c.Close())
}
