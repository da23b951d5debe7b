package logging

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRingBufferKeepsCompleteLines(t *testing.T) {
	rb := NewRingBuffer(4)

	n, err := rb.Write([]byte("alpha\nbet"))
	require.NoError(t, err)
	assert.Equal(t, 9, n)
	assert.Equal(t, []string{"alpha"}, rb.Lines())

	_, _ = rb.Write([]byte("a\n"))
	assert.Equal(t, []string{"alpha", "beta"}, rb.Lines())
}

func TestRingBufferWrapsOldestFirst(t *testing.T) {
	rb := NewRingBuffer(3)
	for _, l := range []string{"1\n", "2\n", "3\n", "4\n", "5\n"} {
		_, _ = rb.Write([]byte(l))
	}
	assert.Equal(t, []string{"3", "4", "5"}, rb.Lines())
}

func TestRingBufferTail(t *testing.T) {
	rb := NewRingBuffer(10)
	_, _ = rb.Write([]byte("a\nb\nc\nd\n"))

	assert.Equal(t, []string{"c", "d"}, rb.Tail(2))
	assert.Equal(t, []string{"a", "b", "c", "d"}, rb.Tail(0))
	assert.Equal(t, []string{"a", "b", "c", "d"}, rb.Tail(99))
}

func TestRingBufferDumpToFile(t *testing.T) {
	rb := NewRingBuffer(8)
	_, _ = rb.Write([]byte("one\ntwo\n"))

	path := filepath.Join(t.TempDir(), "dump.log")
	require.NoError(t, rb.DumpToFile(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "one\ntwo\n", string(data))
}
