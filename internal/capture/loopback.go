package capture

import (
	"context"
	"fmt"
	"math"
	"runtime"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gen2brain/malgo"
)

const (
	loopbackSampleRate = 48000
	loopbackChannels   = 2

	// blockQueueDepth bounds how far capture may run ahead of analysis.
	// When full the newest block is dropped; the pipeline tolerates gaps.
	blockQueueDepth = 8
)

// monitorNames identifies virtual loopback devices on platforms without a
// native loopback capture mode (everything except WASAPI).
var monitorNames = []string{"monitor", "loopback", "blackhole", "soundflower", "vb-audio"}

// Backend wraps the audio context shared by successive device opens. Creating
// one fails only when the platform has no usable audio API at all, which is
// the unrecoverable startup condition.
type Backend struct {
	ctx *malgo.AllocatedContext
}

// NewBackend initializes the platform audio context.
func NewBackend() (*Backend, error) {
	ctx, err := malgo.InitContext(nil, malgo.ContextConfig{}, nil)
	if err != nil {
		return nil, fmt.Errorf("capture: init audio context: %w", err)
	}
	return &Backend{ctx: ctx}, nil
}

// Close tears down the audio context. Call only after all sources are closed.
func (b *Backend) Close() {
	_ = b.ctx.Uninit()
	b.ctx.Free()
}

// LoopbackSource captures the default output device's playback stream as
// 48 kHz stereo float blocks. The capture lock is shared and non-exclusive;
// other applications keep playing.
type LoopbackSource struct {
	dev     *malgo.Device
	blocks  chan Block
	lost    chan struct{}
	timeout time.Duration

	lostOnce  sync.Once
	closing   atomic.Bool
	closeOnce sync.Once
}

// OpenLoopback opens a monitoring capture on the default output. On WASAPI
// this is native loopback; elsewhere it looks for a monitor/virtual device
// among the capture devices. Returns ErrDeviceUnavailable when neither works.
func (b *Backend) OpenLoopback() (*LoopbackSource, error) {
	s := &LoopbackSource{
		blocks:  make(chan Block, blockQueueDepth),
		lost:    make(chan struct{}),
		timeout: DefaultReadTimeout,
	}

	cfg := malgo.DefaultDeviceConfig(malgo.Loopback)
	if runtime.GOOS != "windows" {
		cfg = malgo.DefaultDeviceConfig(malgo.Capture)
		id, ok := b.findMonitorDevice()
		if !ok {
			return nil, ErrDeviceUnavailable
		}
		cfg.Capture.DeviceID = id.Pointer()
	}
	cfg.Capture.Format = malgo.FormatF32
	cfg.Capture.Channels = loopbackChannels
	cfg.SampleRate = loopbackSampleRate
	cfg.Alsa.NoMMap = 1
	cfg.PeriodSizeInFrames = DefaultBlockFrames

	callbacks := malgo.DeviceCallbacks{
		Data: s.onFrames,
		Stop: s.onStop,
	}

	dev, err := malgo.InitDevice(b.ctx.Context, cfg, callbacks)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDeviceUnavailable, err)
	}
	if err := dev.Start(); err != nil {
		dev.Uninit()
		return nil, fmt.Errorf("%w: %v", ErrDeviceUnavailable, err)
	}

	s.dev = dev
	return s, nil
}

// findMonitorDevice scans capture devices for a loopback-looking name.
func (b *Backend) findMonitorDevice() (malgo.DeviceID, bool) {
	infos, err := b.ctx.Devices(malgo.Capture)
	if err != nil {
		return malgo.DeviceID{}, false
	}
	for _, info := range infos {
		name := strings.ToLower(info.Name())
		for _, key := range monitorNames {
			if strings.Contains(name, key) {
				return info.ID, true
			}
		}
	}
	return malgo.DeviceID{}, false
}

// onFrames runs on the audio thread: copy out, convert, hand off, return.
func (s *LoopbackSource) onFrames(_, input []byte, frameCount uint32) {
	if frameCount == 0 || len(input) == 0 {
		return
	}
	n := int(frameCount) * loopbackChannels
	samples := make([]float64, n)
	for i := 0; i < n; i++ {
		bits := uint32(input[i*4]) | uint32(input[i*4+1])<<8 |
			uint32(input[i*4+2])<<16 | uint32(input[i*4+3])<<24
		samples[i] = float64(math.Float32frombits(bits))
	}
	block := Block{
		Samples:    samples,
		Channels:   loopbackChannels,
		SampleRate: loopbackSampleRate,
		Time:       time.Now(),
	}
	select {
	case s.blocks <- block:
	default:
		// Queue full: analysis is behind, drop the block.
	}
}

// onStop fires when miniaudio stops the device. During Close that is
// expected; otherwise the device disappeared underneath us.
func (s *LoopbackSource) onStop() {
	if s.closing.Load() {
		return
	}
	s.lostOnce.Do(func() { close(s.lost) })
}

func (s *LoopbackSource) ReadBlock(ctx context.Context) (Block, error) {
	timer := time.NewTimer(s.timeout)
	defer timer.Stop()

	select {
	case b := <-s.blocks:
		return b, nil
	case <-s.lost:
		return Block{}, ErrDeviceLost
	case <-ctx.Done():
		return Block{}, ctx.Err()
	case <-timer.C:
		return Block{}, ErrTimeout
	}
}

func (s *LoopbackSource) SampleRate() int { return loopbackSampleRate }
func (s *LoopbackSource) Channels() int   { return loopbackChannels }

// Close stops and releases the device. Safe to call more than once.
func (s *LoopbackSource) Close() error {
	s.closeOnce.Do(func() {
		s.closing.Store(true)
		if s.dev != nil {
			s.dev.Uninit()
		}
	})
	return nil
}
