package companion

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func fieldMap(fields []Field) map[string]string {
	m := make(map[string]string, len(fields))
	for _, f := range fields {
		m[f.Label] = f.Value
	}
	return m
}

func TestDebugToggleIsLocal(t *testing.T) {
	c := newTestController(nil)
	before := c.View()

	d := c.Debug()
	assert.False(t, d.Visible())
	assert.True(t, d.Toggle())
	assert.True(t, d.Visible())
	assert.False(t, d.Toggle())
	d.SetVisible(true)
	assert.True(t, d.Visible())

	assert.Same(t, before, c.View(), "toggling never touches controller state")
}

func TestDebugFieldsBeforeSnapshot(t *testing.T) {
	c := newTestController(nil)
	m := fieldMap(c.Debug().Fields())
	assert.Equal(t, "waiting", m["snapshot"])
	assert.Equal(t, "LOBBY", m["phase"])
	assert.Equal(t, "IDLE", m["connection"])
}

func TestDebugFieldsMirrorSnapshot(t *testing.T) {
	c := newTestController(nil)
	c.StartSession()
	c.HandleMessage([]byte(raidPayload))

	m := fieldMap(c.Debug().Fields())
	assert.Equal(t, "9", m["suspicion_index"])
	assert.Equal(t, "RAID", m["state"])
	assert.Equal(t, "Twitter", m["active_window"])
	assert.Equal(t, "42s", m["active_duration"])
	assert.Equal(t, "raid", m["tier"])
	assert.Equal(t, "surfaced", m["pose"])
	assert.Equal(t, "3.5x", m["rate"])
	assert.Equal(t, "10:00:00", m["received"])
}
