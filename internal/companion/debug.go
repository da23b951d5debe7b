package companion

import (
	"fmt"
	"strconv"
	"sync/atomic"
)

// Field is one labelled debug value.
type Field struct {
	Label string
	Value string
}

// DebugSurface shows the current snapshot as text. Its toggle is local UI
// state; nothing here writes to the controller or the transport.
type DebugSurface struct {
	visible atomic.Bool
	source  *Controller
}

func newDebugSurface(c *Controller) *DebugSurface {
	return &DebugSurface{source: c}
}

// Toggle flips visibility and returns the new value.
func (d *DebugSurface) Toggle() bool {
	for {
		old := d.visible.Load()
		if d.visible.CompareAndSwap(old, !old) {
			return !old
		}
	}
}

// SetVisible sets visibility directly, e.g. from ui.show_debug.
func (d *DebugSurface) SetVisible(v bool) { d.visible.Store(v) }

// Visible reports whether the panel is shown.
func (d *DebugSurface) Visible() bool { return d.visible.Load() }

// Fields renders the current view. Before the first snapshot only the
// session and connection rows are present.
func (d *DebugSurface) Fields() []Field {
	v := d.source.View()
	fields := []Field{
		{"phase", string(v.Phase)},
		{"connection", v.Connection.String()},
	}
	if !v.HasSnapshot {
		return append(fields, Field{"snapshot", "waiting"})
	}
	s := v.Snapshot
	return append(fields,
		Field{"suspicion_index", strconv.Itoa(s.SuspicionIndex)},
		Field{"state", string(s.State)},
		Field{"active_window", s.ActiveWindow},
		Field{"active_duration", fmt.Sprintf("%ds", s.ActiveDuration)},
		Field{"alignment", strconv.Itoa(s.Alignment)},
		Field{"current_task", s.CurrentTask},
		Field{"tier", v.Params.Tier.String()},
		Field{"pose", string(v.Params.Pose)},
		Field{"rate", fmt.Sprintf("%.1fx", v.Params.AnimationRate)},
		Field{"received", s.ReceivedAt.Format("15:04:05")},
	)
}
