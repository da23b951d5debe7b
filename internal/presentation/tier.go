// Package presentation derives display parameters from analyzer state.
// Everything here is a pure function of its inputs.
package presentation

// Tier is an alert tier bucket of suspicion_index.
type Tier int

const (
	TierCalm Tier = iota
	TierCurious
	TierSuspicious
	TierRaid
)

// Lower bounds, inclusive. Evaluated highest first.
const (
	curiousFrom    = 3
	suspiciousFrom = 6
	raidFrom       = 9
)

// TierFor buckets a suspicion index.
func TierFor(index int) Tier {
	switch {
	case index >= raidFrom:
		return TierRaid
	case index >= suspiciousFrom:
		return TierSuspicious
	case index >= curiousFrom:
		return TierCurious
	default:
		return TierCalm
	}
}

// ParseTier maps a config name to a tier. Unknown names map to raid.
func ParseTier(name string) Tier {
	switch name {
	case "calm":
		return TierCalm
	case "curious":
		return TierCurious
	case "suspicious":
		return TierSuspicious
	default:
		return TierRaid
	}
}

func (t Tier) String() string {
	switch t {
	case TierCurious:
		return "curious"
	case TierSuspicious:
		return "suspicious"
	case TierRaid:
		return "raid"
	default:
		return "calm"
	}
}

// Multiplier is the animation playback rate for the tier.
func (t Tier) Multiplier() float64 {
	switch t {
	case TierCurious:
		return 1.5
	case TierSuspicious:
		return 2.0
	case TierRaid:
		return 3.5
	default:
		return 1.0
	}
}

// Color tokens. The renderer maps them onto its palette.
const (
	ColorCalm       = "green"
	ColorCurious    = "yellow"
	ColorSuspicious = "orange"
	ColorRaid       = "red"
)

// Color is the alert color token for the tier.
func (t Tier) Color() string {
	switch t {
	case TierCurious:
		return ColorCurious
	case TierSuspicious:
		return ColorSuspicious
	case TierRaid:
		return ColorRaid
	default:
		return ColorCalm
	}
}
