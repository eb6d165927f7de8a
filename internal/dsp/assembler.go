// Package dsp turns raw capture blocks into per-band visual levels: frame
// assembly, windowed spectral analysis into 8 log-spaced bands, and
// attack/decay normalization.
package dsp

import (
	"math"

	"github.com/mjibson/go-dsp/window"
)

const (
	// FrameLen is the analysis frame length in samples. Fixed for the
	// process lifetime.
	FrameLen = 2048

	// HopLen is the stride between successive frames. Half-frame overlap
	// keeps the bars moving smoothly between updates.
	HopLen = FrameLen / 2

	// maxPending bounds the assembler's backlog. Beyond this the oldest
	// samples are discarded; a stalled consumer must not grow memory.
	maxPending = FrameLen * 4
)

// Frame is one windowed mono analysis frame.
type Frame struct {
	Samples    []float64 // length FrameLen
	SampleRate int
}

// Assembler accumulates downmixed mono samples and cuts them into
// overlapping Hann-windowed frames.
type Assembler struct {
	win        []float64
	pending    []float64
	sampleRate int
}

// NewAssembler returns an assembler producing FrameLen-sample frames.
func NewAssembler() *Assembler {
	return &Assembler{
		win:     window.Hann(FrameLen), // precomputed once, reused per frame
		pending: make([]float64, 0, maxPending),
	}
}

// Push downmixes a block to mono and appends it to the backlog. Non-finite
// samples are treated as silence. A sample-rate change discards buffered
// samples from the old device.
func (a *Assembler) Push(samples []float64, channels, sampleRate int) {
	if channels < 1 || sampleRate <= 0 {
		return
	}
	if sampleRate != a.sampleRate {
		a.sampleRate = sampleRate
		a.pending = a.pending[:0]
	}

	frames := len(samples) / channels
	for f := 0; f < frames; f++ {
		var sum float64
		for c := 0; c < channels; c++ {
			v := samples[f*channels+c]
			if math.IsNaN(v) || math.IsInf(v, 0) {
				v = 0
			}
			sum += v
		}
		a.pending = append(a.pending, sum/float64(channels))
	}

	if overflow := len(a.pending) - maxPending; overflow > 0 {
		a.pending = append(a.pending[:0], a.pending[overflow:]...)
	}
}

// TryFrame cuts the next frame once FrameLen samples have accumulated,
// advancing by HopLen. Returns false when more input is needed.
func (a *Assembler) TryFrame() (Frame, bool) {
	if len(a.pending) < FrameLen {
		return Frame{}, false
	}

	out := make([]float64, FrameLen)
	for i := range out {
		out[i] = a.pending[i] * a.win[i]
	}
	a.pending = append(a.pending[:0], a.pending[HopLen:]...)

	return Frame{Samples: out, SampleRate: a.sampleRate}, true
}

// Buffered returns the number of mono samples awaiting a full frame.
func (a *Assembler) Buffered() int { return len(a.pending) }
