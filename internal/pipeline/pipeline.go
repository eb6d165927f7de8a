package pipeline

import (
	"context"
	"errors"
	"image"
	"time"

	"github.com/charmbracelet/log"

	"github.com/1061700625/SpectraTray/internal/capture"
	"github.com/1061700625/SpectraTray/internal/dsp"
	"github.com/1061700625/SpectraTray/internal/icon"
)

// State is the pipeline's lifecycle phase as seen by consumers.
type State int

const (
	StateStarting State = iota
	StateCapturing
	StateRecovering
	StateUnavailable
	StateStopped
)

func (s State) String() string {
	switch s {
	case StateStarting:
		return "starting"
	case StateCapturing:
		return "capturing"
	case StateRecovering:
		return "recovering"
	case StateUnavailable:
		return "unavailable"
	case StateStopped:
		return "stopped"
	}
	return "unknown"
}

// Update is one published pipeline result. The icon is regenerated every
// frame and owned by the consumer once received.
type Update struct {
	Levels dsp.VisualLevels
	Icon   *image.RGBA
	State  State
}

// OpenFunc opens (or reopens) the capture source. It is called again after
// ErrDeviceLost and retried with backoff on ErrDeviceUnavailable.
type OpenFunc func() (capture.Source, error)

// Reopen backoff. After maxOpenFailures consecutive failures the published
// state switches to Unavailable; retrying continues at the capped interval
// so a device that comes back is still picked up.
const (
	initialBackoff  = 1 * time.Second
	maxBackoff      = 8 * time.Second
	maxOpenFailures = 20

	// decayTick paces the zero-energy frames rendered while no device is
	// delivering audio, so the bars drain instead of freezing.
	decayTick = 40 * time.Millisecond
)

// Pipeline drives the capture→render loop on its own goroutine and publishes
// the newest Update to a single-slot channel. Consumers read at their own
// cadence; stale updates are overwritten, never queued.
type Pipeline struct {
	open    OpenFunc
	cfg     *ConfigStore
	logger  *log.Logger
	updates chan Update

	assembler  *dsp.Assembler
	analyzer   *dsp.Analyzer
	normalizer *dsp.Normalizer
}

// New builds a pipeline around the given source opener and config store.
func New(open OpenFunc, cfg *ConfigStore, logger *log.Logger) *Pipeline {
	return &Pipeline{
		open:       open,
		cfg:        cfg,
		logger:     logger,
		updates:    make(chan Update, 1),
		assembler:  dsp.NewAssembler(),
		analyzer:   dsp.NewAnalyzer(48000), // boundaries follow the first frame's actual rate
		normalizer: dsp.NewNormalizer(),
	}
}

// Updates returns the latest-value channel. Single consumer.
func (p *Pipeline) Updates() <-chan Update { return p.updates }

// Run loops until ctx is cancelled: open the source, capture and render,
// recover on device loss. It always publishes a final Stopped update.
func (p *Pipeline) Run(ctx context.Context) {
	defer p.publishState(StateStopped)

	p.publishState(StateStarting)

	failures := 0
	backoff := initialBackoff
	for {
		src, err := p.open()
		if err != nil {
			failures++
			state := StateRecovering
			if failures >= maxOpenFailures {
				state = StateUnavailable
			}
			p.logger.Warn("capture open failed", "err", err, "attempt", failures, "retry_in", backoff)
			if !p.decayFor(ctx, backoff, state) {
				return
			}
			backoff = min(backoff*2, maxBackoff)
			continue
		}

		failures = 0
		backoff = initialBackoff
		p.logger.Info("capturing", "sample_rate", src.SampleRate(), "channels", src.Channels())

		lost := p.capture(ctx, src)
		src.Close()
		if !lost {
			return
		}
		p.logger.Warn("capture device lost, reopening")
		if !p.decayFor(ctx, backoff, StateRecovering) {
			return
		}
	}
}

// capture runs the steady-state loop on one open source. Returns true when
// the device was lost and a reopen should be attempted, false on shutdown.
func (p *Pipeline) capture(ctx context.Context, src capture.Source) bool {
	for {
		block, err := src.ReadBlock(ctx)
		switch {
		case err == nil:
		case errors.Is(err, capture.ErrTimeout):
			// Not logged per-occurrence: a paused player times out 10x/s.
			block = capture.Silence(src, capture.DefaultBlockFrames)
		case errors.Is(err, capture.ErrDeviceLost):
			return true
		default:
			return false // context cancelled
		}

		p.assembler.Push(block.Samples, block.Channels, block.SampleRate)
		for {
			frame, ok := p.assembler.TryFrame()
			if !ok {
				break
			}
			p.step(frame, StateCapturing)
		}
	}
}

// step advances one frame through analyze → normalize → render → publish.
func (p *Pipeline) step(frame dsp.Frame, state State) {
	cfg := p.cfg.Load()
	energies := p.analyzer.Analyze(frame, cfg.Stat)
	levels := p.normalizer.Step(energies, cfg.Sensitivity)
	p.publish(Update{
		Levels: levels,
		Icon:   icon.Render(levels, cfg.Background),
		State:  state,
	})
}

// decayFor keeps rendering zero-energy frames for the given duration so the
// last levels drain to silence while no device is open. Returns false when
// ctx was cancelled.
func (p *Pipeline) decayFor(ctx context.Context, d time.Duration, state State) bool {
	deadline := time.Now().Add(d)
	ticker := time.NewTicker(decayTick)
	defer ticker.Stop()
	for {
		cfg := p.cfg.Load()
		levels := p.normalizer.Step(dsp.BandEnergies{}, cfg.Sensitivity)
		p.publish(Update{
			Levels: levels,
			Icon:   icon.Render(levels, cfg.Background),
			State:  state,
		})
		if time.Now().After(deadline) {
			return true
		}
		select {
		case <-ticker.C:
		case <-ctx.Done():
			return false
		}
	}
}

func (p *Pipeline) publishState(state State) {
	cfg := p.cfg.Load()
	levels := p.normalizer.Levels()
	p.publish(Update{
		Levels: levels,
		Icon:   icon.Render(levels, cfg.Background),
		State:  state,
	})
}

// publish replaces whatever update is pending; consumers only ever see the
// newest frame and never block the producer.
func (p *Pipeline) publish(u Update) {
	for {
		select {
		case p.updates <- u:
			return
		default:
		}
		select {
		case <-p.updates:
		default:
		}
	}
}
