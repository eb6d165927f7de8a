package dsp

import (
	"math"
	"math/cmplx"
	"sort"

	"github.com/mjibson/go-dsp/fft"
)

// NumBands is the number of spectrum bands. The palette, the icon layout and
// the menu all assume this count.
const NumBands = 8

// Band frequency range. Log spacing between these cutoffs approximates how
// the ear distributes resolution: narrow low bands, wide high ones.
const (
	BandLowHz  = 80.0
	BandHighHz = 16000.0
)

// BandEnergies holds one non-negative energy value per band.
type BandEnergies [NumBands]float64

// Stat selects how bin magnitudes within a band collapse to one value.
type Stat int

const (
	// StatRMS tracks energy; the steadiest display.
	StatRMS Stat = iota
	// StatPeak tracks the loudest bin; punchy on transients.
	StatPeak
	// StatP90 is the 90th percentile; resists one-off spikes.
	StatP90
)

func (s Stat) String() string {
	switch s {
	case StatPeak:
		return "peak"
	case StatP90:
		return "p90"
	default:
		return "rms"
	}
}

// Analyzer computes the magnitude spectrum of a frame and folds it into
// NumBands log-spaced bands. Band boundaries depend only on the sample rate
// and are rebuilt whenever it changes.
type Analyzer struct {
	sampleRate int
	bins       [NumBands][2]int // half-open [lo, hi) magnitude bin ranges
	mags       []float64
	scratch    []float64
}

// NewAnalyzer builds an analyzer for the given sample rate.
func NewAnalyzer(sampleRate int) *Analyzer {
	a := &Analyzer{
		mags:    make([]float64, FrameLen/2+1),
		scratch: make([]float64, 0, FrameLen/2+1),
	}
	a.setSampleRate(sampleRate)
	return a
}

// setSampleRate recomputes band boundaries. Edges are log-spaced between the
// low cutoff (never below one bin) and the high cutoff (never above Nyquist),
// then forced strictly increasing so each band owns at least one bin and no
// bin belongs to two bands.
func (a *Analyzer) setSampleRate(sampleRate int) {
	a.sampleRate = sampleRate
	binHz := float64(sampleRate) / FrameLen
	maxBin := FrameLen / 2

	lowHz := math.Max(BandLowHz, binHz)
	highHz := math.Min(BandHighHz, float64(sampleRate)/2)

	edges := [NumBands + 1]int{}
	for i := 0; i <= NumBands; i++ {
		hz := lowHz * math.Pow(highHz/lowHz, float64(i)/NumBands)
		edges[i] = int(hz / binHz)
	}
	if edges[0] < 1 {
		edges[0] = 1
	}
	for i := 1; i <= NumBands; i++ {
		if edges[i] <= edges[i-1] {
			edges[i] = edges[i-1] + 1
		}
	}
	for i := NumBands; i >= 0; i-- {
		if limit := maxBin - (NumBands - i); edges[i] > limit {
			edges[i] = limit
		}
	}

	for b := 0; b < NumBands; b++ {
		a.bins[b] = [2]int{edges[b], edges[b+1]}
	}
}

// Analyze returns the per-band energies of one frame. Deterministic for a
// fixed frame and sample rate.
func (a *Analyzer) Analyze(frame Frame, stat Stat) BandEnergies {
	if frame.SampleRate != a.sampleRate && frame.SampleRate > 0 {
		a.setSampleRate(frame.SampleRate)
	}

	spectrum := fft.FFTReal(frame.Samples)

	// Normalize so a full-scale Hann-windowed sine lands near 1.0 at its
	// peak bin (window coherent gain 0.5, one-sided spectrum factor 2).
	norm := 4.0 / FrameLen
	for i := 0; i <= FrameLen/2; i++ {
		a.mags[i] = cmplx.Abs(spectrum[i]) * norm
	}

	var out BandEnergies
	for b := 0; b < NumBands; b++ {
		lo, hi := a.bins[b][0], a.bins[b][1]
		out[b] = a.collapse(a.mags[lo:hi], stat)
	}
	return out
}

func (a *Analyzer) collapse(mags []float64, stat Stat) float64 {
	if len(mags) == 0 {
		return 0
	}
	switch stat {
	case StatPeak:
		peak := 0.0
		for _, m := range mags {
			if m > peak {
				peak = m
			}
		}
		return peak
	case StatP90:
		a.scratch = append(a.scratch[:0], mags...)
		sort.Float64s(a.scratch)
		return a.scratch[int(0.9*float64(len(a.scratch)-1))]
	default:
		var sum float64
		for _, m := range mags {
			sum += m * m
		}
		return math.Sqrt(sum / float64(len(mags)))
	}
}

// BandRange reports band b's frequency range in Hz.
func (a *Analyzer) BandRange(b int) (lo, hi float64) {
	binHz := float64(a.sampleRate) / FrameLen
	return float64(a.bins[b][0]) * binHz, float64(a.bins[b][1]) * binHz
}
