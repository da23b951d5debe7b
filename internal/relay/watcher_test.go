package relay

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/asheshgoplani/tama-deck/internal/session"
)

func TestStatusWatcherDeliversUpdates(t *testing.T) {
	path := filepath.Join(t.TempDir(), "status.json")
	w, err := NewStatusWatcher(path)
	require.NoError(t, err)
	defer func() { _ = w.Stop() }()

	require.NoError(t, WriteStatus(path, NewStatus(snap(8), session.PhaseActive, time.Now())))

	select {
	case st := <-w.Updates():
		assert.Equal(t, 8, st.Snapshot.SuspicionIndex)
		assert.Equal(t, "suspicious", st.Tier)
	case <-time.After(3 * time.Second):
		t.Fatal("no status update delivered")
	}
}

func TestStatusWatcherStopIsIdempotent(t *testing.T) {
	w, err := NewStatusWatcher(filepath.Join(t.TempDir(), "status.json"))
	require.NoError(t, err)
	require.NoError(t, w.Stop())
	assert.NoError(t, w.Stop())
}
