package dsp

import (
	"math"
	"testing"
)

func TestStepStaysWithinUnitRange(t *testing.T) {
	inputs := []BandEnergies{
		{},
		{1, 1, 1, 1, 1, 1, 1, 1},
		{1e6, 0, 1e-9, 3, 0.5, 42, 0, 1},
		{math.Inf(1), math.NaN(), -1, 0, 0, 0, 0, 0},
	}

	n := NewNormalizer()
	for _, sens := range []Sensitivity{SensitivityHigh, SensitivityMedium, SensitivityLow} {
		for _, e := range inputs {
			for i := 0; i < 10; i++ {
				levels := n.Step(e, sens)
				for b, v := range levels {
					if v < 0 || v > 1 || math.IsNaN(v) {
						t.Fatalf("sens %v input %v band %d: level = %v, want in [0,1]", sens, e, b, v)
					}
				}
			}
		}
	}
}

func TestAttackReachesTargetWithinThreeFrames(t *testing.T) {
	n := NewNormalizer()

	// Large energy whose compressed target is 1.0.
	loud := BandEnergies{1, 1, 1, 1, 1, 1, 1, 1}
	var levels VisualLevels
	for i := 0; i < 3; i++ {
		levels = n.Step(loud, SensitivityMedium)
	}
	for b, v := range levels {
		if v < 0.9 {
			t.Fatalf("band %d after 3 attack frames = %v, want >= 0.9", b, v)
		}
	}
}

func TestDecayIsMonotonicAndBounded(t *testing.T) {
	n := NewNormalizer()

	loud := BandEnergies{1, 1, 1, 1, 1, 1, 1, 1}
	for i := 0; i < 10; i++ {
		n.Step(loud, SensitivityMedium)
	}

	prev := n.Levels()
	const maxDecayFrames = 80
	reached := -1
	for i := 0; i < maxDecayFrames; i++ {
		levels := n.Step(BandEnergies{}, SensitivityMedium)
		for b := 0; b < NumBands; b++ {
			if levels[b] > prev[b]+1e-12 {
				t.Fatalf("frame %d band %d: level rose from %v to %v during silence", i, b, prev[b], levels[b])
			}
		}
		prev = levels
		if reached < 0 {
			allQuiet := true
			for _, v := range levels {
				if v >= 0.01 {
					allQuiet = false
					break
				}
			}
			if allQuiet {
				reached = i
			}
		}
	}
	if reached < 0 {
		t.Fatalf("levels still at %v after %d silent frames, want < 0.01", prev, maxDecayFrames)
	}
	if reached == 0 {
		t.Fatal("levels hit zero instantly, want a gradual decay")
	}
}

func TestSilenceFromStartStaysZero(t *testing.T) {
	n := NewNormalizer()
	for i := 0; i < 10; i++ {
		levels := n.Step(BandEnergies{}, SensitivityMedium)
		if levels != (VisualLevels{}) {
			t.Fatalf("frame %d: silent input produced %v, want all zero", i, levels)
		}
	}
}

func TestHigherSensitivityRaisesConvergedLevels(t *testing.T) {
	// Moderate energy so neither tier clamps at 1.0.
	energy := BandEnergies{0.05, 0.05, 0.05, 0.05, 0.05, 0.05, 0.05, 0.05}

	converge := func(sens Sensitivity) VisualLevels {
		n := NewNormalizer()
		var levels VisualLevels
		for i := 0; i < 60; i++ {
			levels = n.Step(energy, sens)
		}
		return levels
	}

	medium := converge(SensitivityMedium)
	high := converge(SensitivityHigh)
	low := converge(SensitivityLow)

	for b := 0; b < NumBands; b++ {
		if high[b] <= medium[b] {
			t.Fatalf("band %d: high %v <= medium %v, want strict increase", b, high[b], medium[b])
		}
		if medium[b] <= low[b] {
			t.Fatalf("band %d: medium %v <= low %v, want strict increase", b, medium[b], low[b])
		}
	}
}
