// Package pipeline runs the capture → analyze → normalize → render loop and
// publishes the latest result for a presentation host to consume.
package pipeline

import (
	"sync/atomic"

	"github.com/1061700625/SpectraTray/internal/dsp"
	"github.com/1061700625/SpectraTray/internal/icon"
)

// Config is the whole user-adjustable presentation state. It is treated as
// an immutable value: menu actions build a new one and swap it in whole.
type Config struct {
	Background  icon.Background
	Sensitivity dsp.Sensitivity
	Stat        dsp.Stat
}

// DefaultConfig is the state every process start begins from. Nothing is
// persisted between runs.
func DefaultConfig() Config {
	return Config{
		Background:  icon.BackgroundTransparent,
		Sensitivity: dsp.SensitivityMedium,
		Stat:        dsp.StatRMS,
	}
}

// ConfigStore shares a Config between the pipeline goroutine and the menu
// dispatch without locking: single writer, any readers, full replace only.
type ConfigStore struct {
	v atomic.Pointer[Config]
}

// NewConfigStore seeds the store.
func NewConfigStore(cfg Config) *ConfigStore {
	s := &ConfigStore{}
	s.v.Store(&cfg)
	return s
}

// Load returns the current snapshot.
func (s *ConfigStore) Load() Config { return *s.v.Load() }

// Store replaces the snapshot atomically.
func (s *ConfigStore) Store(cfg Config) { s.v.Store(&cfg) }
