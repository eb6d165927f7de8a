// Package capture produces continuous blocks of the audio the machine is
// currently playing. The primary implementation monitors the default output
// device in loopback mode; a file-backed implementation decodes local audio
// files for demo and test use.
package capture

import (
	"context"
	"errors"
	"time"
)

// Read timeouts and block sizing shared by all sources.
const (
	// DefaultBlockFrames is the number of sample frames per block. At 48 kHz
	// this is ~21 ms, comfortably below the pipeline's read timeout.
	DefaultBlockFrames = 1024

	// DefaultReadTimeout bounds a single ReadBlock call. On expiry the caller
	// substitutes silence and keeps going.
	DefaultReadTimeout = 100 * time.Millisecond
)

var (
	// ErrDeviceUnavailable means no loopback-capable device could be opened.
	// The pipeline retries with backoff.
	ErrDeviceUnavailable = errors.New("capture: no loopback device available")

	// ErrDeviceLost means the device vanished or was reconfigured mid-capture.
	// The handle is dead; the caller must reopen.
	ErrDeviceLost = errors.New("capture: device lost")

	// ErrTimeout means no audio arrived within the read window. Non-fatal.
	ErrTimeout = errors.New("capture: read timed out")
)

// Block is one chunk of interleaved samples handed off by a source. The
// receiver owns it; sources never reuse the Samples slice.
type Block struct {
	Samples    []float64 // interleaved, [-1, 1]
	Channels   int
	SampleRate int
	Time       time.Time
}

// Frames returns the number of sample frames in the block.
func (b Block) Frames() int {
	if b.Channels == 0 {
		return 0
	}
	return len(b.Samples) / b.Channels
}

// Source is a continuous producer of audio blocks.
type Source interface {
	// ReadBlock blocks until a block is available, the read window expires
	// (ErrTimeout), the device dies (ErrDeviceLost), or ctx is done.
	ReadBlock(ctx context.Context) (Block, error)

	SampleRate() int
	Channels() int
	Close() error
}

// Titled is implemented by sources that know what they are playing.
type Titled interface {
	Title() string
}

// Silence returns an all-zero block matching the source's shape, used when a
// read times out so the pipeline keeps rendering.
func Silence(src Source, frames int) Block {
	return Block{
		Samples:    make([]float64, frames*src.Channels()),
		Channels:   src.Channels(),
		SampleRate: src.SampleRate(),
		Time:       time.Now(),
	}
}
