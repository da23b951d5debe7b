package ui

import (
	"math"
	"time"

	"github.com/charmbracelet/harmonica"

	"github.com/asheshgoplani/tama-deck/internal/presentation"
)

// motion eases the character toward the presentation targets. The targets
// change instantly; the rendered offset and opacity follow on a spring that
// settles in roughly TransitionSeconds.
type motion struct {
	spring harmonica.Spring

	offset, offsetVel   float64
	opacity, opacityVel float64

	// frame is the fractional animation frame of the current clip.
	frame float64
	cue   string
}

// baseFramesPerSecond is the clip frame rate at multiplier 1.
const baseFramesPerSecond = 2.0

func newMotion(fps int, start presentation.Params) motion {
	return motion{
		spring:  newSpring(fps, start.TransitionSeconds),
		offset:  start.OffsetPercent,
		opacity: start.Opacity,
	}
}

// newSpring picks a critically damped spring whose settle time matches the
// transition duration.
func newSpring(fps int, settleSeconds float64) harmonica.Spring {
	if fps <= 0 {
		fps = 30
	}
	if settleSeconds <= 0 {
		settleSeconds = presentation.TransitionSeconds
	}
	// A critically damped spring is within ~1% of its target after 6.6/ω.
	omega := 6.6 / settleSeconds
	return harmonica.NewSpring(harmonica.FPS(fps), omega, 1.0)
}

// step advances one frame toward p. cue is the selected clip name; a clip
// change restarts the animation.
func (m *motion) step(p presentation.Params, cue string, rate float64, dt time.Duration) {
	m.offset, m.offsetVel = m.spring.Update(m.offset, m.offsetVel, p.OffsetPercent)
	m.opacity, m.opacityVel = m.spring.Update(m.opacity, m.opacityVel, p.Opacity)
	m.opacity = math.Max(0, math.Min(1, m.opacity))

	if cue != m.cue {
		m.cue = cue
		m.frame = 0
	}
	m.frame += dt.Seconds() * baseFramesPerSecond * rate
}

// settled reports whether both springs are at rest on p.
func (m *motion) settled(p presentation.Params) bool {
	const eps = 0.01
	return math.Abs(m.offset-p.OffsetPercent) < eps &&
		math.Abs(m.opacity-p.Opacity) < eps &&
		math.Abs(m.offsetVel) < eps &&
		math.Abs(m.opacityVel) < eps
}

// frameIndex picks the frame of an n-frame clip. One-shot clips hold their
// last frame.
func (m *motion) frameIndex(n int, loop bool) int {
	if n <= 1 {
		return 0
	}
	i := int(m.frame)
	if loop {
		return i % n
	}
	if i >= n {
		return n - 1
	}
	return i
}
