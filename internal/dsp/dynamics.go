package dsp

import "math"

// Sensitivity selects the display gain tier.
type Sensitivity int

const (
	SensitivityHigh Sensitivity = iota
	SensitivityMedium
	SensitivityLow
)

func (s Sensitivity) String() string {
	switch s {
	case SensitivityHigh:
		return "high"
	case SensitivityLow:
		return "low"
	default:
		return "medium"
	}
}

// gain returns the tier's display multiplier. High must exceed low by enough
// that switching tiers is visible at a glance.
func (s Sensitivity) gain() float64 {
	switch s {
	case SensitivityHigh:
		return 1.8
	case SensitivityLow:
		return 0.7
	default:
		return 1.15
	}
}

// VisualLevels holds one display level in [0, 1] per band.
type VisualLevels [NumBands]float64

// Smoothing constants. Attack reaches >90% of a higher target within three
// frames; decay takes dozens of frames to drain so falling bars look natural
// instead of flickering to zero.
const (
	compressK   = 50.0
	attackCoeff = 0.6
	decayCoeff  = 0.12
)

// Normalizer converts raw band energies into bounded, temporally smooth
// visual levels. It carries the previous frame's levels as its only state.
type Normalizer struct {
	levels VisualLevels
}

// NewNormalizer starts from all-zero levels.
func NewNormalizer() *Normalizer { return &Normalizer{} }

// Step maps energies to targets via logarithmic compression and the
// sensitivity gain, clamps to [0, 1], then applies asymmetric smoothing:
// rise fast, fall slow. Output is always within [0, 1].
func (n *Normalizer) Step(energies BandEnergies, sens Sensitivity) VisualLevels {
	gain := sens.gain()
	for b := 0; b < NumBands; b++ {
		e := energies[b]
		if e < 0 || math.IsNaN(e) || math.IsInf(e, 0) {
			e = 0
		}
		target := gain * math.Log1p(compressK*e) / math.Log1p(compressK)
		target = clamp01(target)

		prev := n.levels[b]
		coeff := decayCoeff
		if target > prev {
			coeff = attackCoeff
		}
		n.levels[b] = clamp01(prev + coeff*(target-prev))
	}
	return n.levels
}

// Levels returns the current levels without advancing the state.
func (n *Normalizer) Levels() VisualLevels { return n.levels }

// Reset drops back to silence instantly. Used only at startup.
func (n *Normalizer) Reset() { n.levels = VisualLevels{} }

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
