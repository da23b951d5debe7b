package presentation

import (
	"fmt"

	"github.com/asheshgoplani/tama-deck/internal/session"
	"github.com/asheshgoplani/tama-deck/internal/snapshot"
)

// Pose is the character's target position.
type Pose string

const (
	// PoseResting is the lobby position: centered, low, independent of suspicion.
	PoseResting Pose = "resting"
	// PoseRetracted is fully off-screen.
	PoseRetracted Pose = "retracted"
	// PosePeeking is partially surfaced.
	PosePeeking Pose = "peeking"
	// PoseSurfaced is fully popped up.
	PoseSurfaced Pose = "surfaced"
)

// TransitionSeconds is the eased transition duration between targets.
const TransitionSeconds = 0.8

// Offsets are percentages of the character height below the surfaced position.
var poseOffsets = map[Pose]float64{
	PoseSurfaced:  0,
	PoseResting:   30,
	PosePeeking:   55,
	PoseRetracted: 110,
}

var poseOpacity = map[Pose]float64{
	PoseSurfaced:  1,
	PoseResting:   1,
	PosePeeking:   0.5,
	PoseRetracted: 0,
}

// Params are derived display targets. They are recomputed wholesale, never patched.
type Params struct {
	Tier              Tier
	Pose              Pose
	Opacity           float64
	OffsetPercent     float64
	VerticalOffset    string
	AnimationRate     float64
	AlertColor        string
	TransitionSeconds float64
}

// Derive maps a snapshot and session phase to display targets.
// Smoothing toward the targets is the renderer's job.
func Derive(s snapshot.Snapshot, phase session.Phase) Params {
	tier := TierFor(s.SuspicionIndex)
	pose := poseFor(s.SuspicionIndex, phase)
	offset := poseOffsets[pose]
	return Params{
		Tier:              tier,
		Pose:              pose,
		Opacity:           poseOpacity[pose],
		OffsetPercent:     offset,
		VerticalOffset:    fmt.Sprintf("%g%%", offset),
		AnimationRate:     tier.Multiplier(),
		AlertColor:        tier.Color(),
		TransitionSeconds: TransitionSeconds,
	}
}

func poseFor(index int, phase session.Phase) Pose {
	if phase != session.PhaseActive {
		return PoseResting
	}
	switch {
	case index >= suspiciousFrom:
		return PoseSurfaced
	case index >= curiousFrom:
		return PosePeeking
	default:
		return PoseRetracted
	}
}
