package presentation

import (
	"errors"
	"strings"

	"github.com/sahilm/fuzzy"
)

// ErrNoCue means the asset exposes no animation clips at all.
var ErrNoCue = errors.New("no animation cue available")

var tierCues = map[Tier]string{
	TierCalm:       "Hello",
	TierCurious:    "Peek",
	TierSuspicious: "Suspicious",
	TierRaid:       "Angry",
}

// Requested clips that play once. Tier clips always loop.
var oneShotCues = map[string]bool{
	"strike": true,
	"bye":    true,
	"peek":   true,
}

// Cue is the animation clip to play and its playback rate.
type Cue struct {
	Name     string
	Rate     float64
	Loop     bool
	Fallback bool
}

// TierCue returns the authored clip name for a tier.
func TierCue(t Tier) string {
	return tierCues[t]
}

// SelectCue picks a clip from the asset's available clips. It prefers the
// requested clip, then the tier's clip, each matched exactly
// (case-insensitive) and then fuzzily. When nothing matches, the first
// available clip is used. The rate is always scaled by the tier multiplier.
func SelectCue(available []string, requested string, tier Tier) (Cue, error) {
	if len(available) == 0 {
		return Cue{}, ErrNoCue
	}

	type want struct {
		name string
		loop bool
	}
	wanted := make([]want, 0, 2)
	if r := strings.TrimSpace(requested); r != "" {
		wanted = append(wanted, want{r, !oneShotCues[strings.ToLower(r)]})
	}
	wanted = append(wanted, want{TierCue(tier), true})

	for _, w := range wanted {
		if name, ok := matchExact(available, w.name); ok {
			return newCue(name, tier, w.loop, false), nil
		}
	}
	for _, w := range wanted {
		if name, ok := matchFuzzy(available, w.name); ok {
			return newCue(name, tier, w.loop, false), nil
		}
	}
	return newCue(available[0], tier, true, true), nil
}

func newCue(name string, tier Tier, loop, fallback bool) Cue {
	return Cue{
		Name:     name,
		Rate:     tier.Multiplier(),
		Loop:     loop,
		Fallback: fallback,
	}
}

func matchExact(available []string, want string) (string, bool) {
	for _, name := range available {
		if strings.EqualFold(name, want) {
			return name, true
		}
	}
	return "", false
}

func matchFuzzy(available []string, want string) (string, bool) {
	lowered := make([]string, len(available))
	for i, name := range available {
		lowered[i] = strings.ToLower(name)
	}
	matches := fuzzy.Find(strings.ToLower(want), lowered)
	if len(matches) == 0 {
		return "", false
	}
	return available[matches[0].Index], true
}
