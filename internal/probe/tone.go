// Package probe plays a short sine sweep through the default output so a
// user can verify that loopback capture sees what the machine plays.
package probe

import (
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"sync"
	"time"

	"github.com/ebitengine/oto/v3"
)

const (
	sampleRate = 48000
	channels   = 2

	sweepSeconds = 3.0
	sweepLowHz   = 100.0
	sweepHighHz  = 8000.0
	amplitude    = 0.4
)

var (
	globalOtoCtx *oto.Context
	otoOnce      sync.Once
	otoInitErr   error
)

func initOto() (*oto.Context, error) {
	otoOnce.Do(func() {
		op := &oto.NewContextOptions{
			SampleRate:   sampleRate,
			ChannelCount: channels,
			Format:       oto.FormatSignedInt16LE,
		}
		var ready chan struct{}
		globalOtoCtx, ready, otoInitErr = oto.NewContext(op)
		if otoInitErr == nil {
			<-ready
		}
	})
	return globalOtoCtx, otoInitErr
}

// sweepReader generates a logarithmic sine sweep as s16le stereo PCM.
type sweepReader struct {
	frame int
	phase float64
}

func (r *sweepReader) totalFrames() int { return int(sweepSeconds * sampleRate) }

func (r *sweepReader) Read(p []byte) (int, error) {
	total := r.totalFrames()
	if r.frame >= total {
		return 0, io.EOF
	}

	frames := len(p) / (channels * 2)
	if remaining := total - r.frame; frames > remaining {
		frames = remaining
	}
	if frames == 0 {
		return 0, nil
	}

	for i := 0; i < frames; i++ {
		t := float64(r.frame) / sampleRate
		freq := sweepLowHz * math.Pow(sweepHighHz/sweepLowHz, t/sweepSeconds)
		r.phase += 2 * math.Pi * freq / sampleRate
		sample := int16(amplitude * math.Sin(r.phase) * 32767)
		for c := 0; c < channels; c++ {
			binary.LittleEndian.PutUint16(p[(i*channels+c)*2:], uint16(sample))
		}
		r.frame++
	}
	return frames * channels * 2, nil
}

// Run plays the sweep and blocks until it finishes.
func Run() error {
	ctx, err := initOto()
	if err != nil {
		return fmt.Errorf("probe: opening audio output: %w", err)
	}

	player := ctx.NewPlayer(&sweepReader{})
	player.Play()

	// Poll until the device has drained its buffer.
	for player.IsPlaying() {
		time.Sleep(50 * time.Millisecond)
	}
	return player.Close()
}
