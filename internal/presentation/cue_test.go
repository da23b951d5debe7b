package presentation

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var fixedTime = time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

func TestSelectCueExactTierClip(t *testing.T) {
	cue, err := SelectCue([]string{"Hello", "Peek", "Angry"}, "", TierRaid)
	require.NoError(t, err)
	assert.Equal(t, "Angry", cue.Name)
	assert.Equal(t, 3.5, cue.Rate)
	assert.True(t, cue.Loop)
	assert.False(t, cue.Fallback)
}

func TestSelectCuePrefersRequested(t *testing.T) {
	cue, err := SelectCue([]string{"Hello", "Strike", "Angry"}, "strike", TierRaid)
	require.NoError(t, err)
	assert.Equal(t, "Strike", cue.Name)
	assert.False(t, cue.Loop, "strike is a one-shot")
}

func TestSelectCueFuzzyMatch(t *testing.T) {
	cue, err := SelectCue([]string{"Armature|Idle", "Armature|PeekLoop"}, "", TierCurious)
	require.NoError(t, err)
	assert.Equal(t, "Armature|PeekLoop", cue.Name)
	assert.Equal(t, 1.5, cue.Rate)
}

func TestSelectCueFallsBackToFirstClip(t *testing.T) {
	cue, err := SelectCue([]string{"mixamo.com", "Take 001"}, "", TierSuspicious)
	require.NoError(t, err)
	assert.Equal(t, "mixamo.com", cue.Name)
	assert.True(t, cue.Fallback)
	assert.Equal(t, TierSuspicious.Multiplier(), cue.Rate)
}

func TestSelectCueNoClips(t *testing.T) {
	_, err := SelectCue(nil, "Angry", TierRaid)
	assert.ErrorIs(t, err, ErrNoCue)
}

func TestSelectCueTierClipAlwaysLoops(t *testing.T) {
	cue, err := SelectCue([]string{"Hello", "Peek"}, "", TierCurious)
	require.NoError(t, err)
	assert.Equal(t, "Peek", cue.Name)
	assert.True(t, cue.Loop)

	cue, err = SelectCue([]string{"Hello", "Peek"}, "peek", TierCalm)
	require.NoError(t, err)
	assert.Equal(t, "Peek", cue.Name)
	assert.False(t, cue.Loop, "a requested peek plays once")
}
