package logging

import (
	"log/slog"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAggregatorSummarizesOnStop(t *testing.T) {
	dir := t.TempDir()
	Shutdown()
	Init(Config{Debug: true, LogDir: dir})
	defer Shutdown()

	agg := NewAggregator(Logger(), 3600)
	agg.Start()

	agg.Record(CompSnapshot, "snapshot_received", slog.Int("suspicion_index", 2))
	agg.Record(CompSnapshot, "snapshot_received", slog.Int("suspicion_index", 9))
	agg.Record(CompSnapshot, "snapshot_discarded")
	assert.Equal(t, int64(2), agg.Pending(CompSnapshot, "snapshot_received"))

	agg.Stop()
	assert.Equal(t, int64(0), agg.Pending(CompSnapshot, "snapshot_received"))

	records := readRecords(t, filepath.Join(dir, LogFileName))

	var received map[string]any
	for _, r := range records {
		if r["msg"] == "event_summary" && r["event"] == "snapshot_received" {
			received = r
		}
	}
	require.NotNil(t, received, "snapshot_received summary not found")
	assert.Equal(t, float64(2), received["count"])
	assert.Equal(t, float64(9), received["suspicion_index"], "latest fields are reported")
}

func TestAggregatorNilLoggerDrops(t *testing.T) {
	agg := NewAggregator(nil, 1)
	agg.Start()
	agg.Record(CompRelay, "status_written")
	agg.Stop()
	agg.Stop()
}
