package ui

import (
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/1061700625/SpectraTray/internal/dsp"
	"github.com/1061700625/SpectraTray/internal/pipeline"
)

func newTestModel() Model {
	updates := make(chan pipeline.Update)
	return New(updates, pipeline.NewConfigStore(pipeline.DefaultConfig()))
}

func keyMsg(r rune) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{r}}
}

func TestUpdateAppliesPipelineUpdate(t *testing.T) {
	m := newTestModel()

	levels := dsp.VisualLevels{0.2, 0.4, 0.6, 0.8, 1, 0.1, 0.3, 0.5}
	next, cmd := m.Update(updateMsg{State: pipeline.StateCapturing, Levels: levels})

	got := next.(Model)
	if got.state != pipeline.StateCapturing {
		t.Fatalf("state = %v, want %v", got.state, pipeline.StateCapturing)
	}
	if got.levels != levels {
		t.Fatalf("levels = %v, want %v", got.levels, levels)
	}
	if cmd == nil {
		t.Fatal("expected re-armed wait command after an update")
	}
}

func TestUpdateQuitsOnStoppedState(t *testing.T) {
	m := newTestModel()

	next, cmd := m.Update(updateMsg{State: pipeline.StateStopped})
	got := next.(Model)
	if !got.quitting {
		t.Fatal("expected model to quit on stopped pipeline")
	}
	if cmd == nil {
		t.Fatal("expected quit command")
	}
	if got.View() != "" {
		t.Fatal("expected empty view while quitting")
	}
}

func TestQuitKeySetsQuitting(t *testing.T) {
	m := newTestModel()

	next, cmd := m.Update(keyMsg('q'))
	if !next.(Model).quitting {
		t.Fatal("expected q to quit")
	}
	if cmd == nil {
		t.Fatal("expected quit command")
	}
}

func TestSensitivityKeyCyclesConfig(t *testing.T) {
	m := newTestModel()

	if got := m.cfg.Load().Sensitivity; got != dsp.SensitivityMedium {
		t.Fatalf("initial sensitivity = %v, want %v", got, dsp.SensitivityMedium)
	}
	m.Update(keyMsg('s'))
	if got := m.cfg.Load().Sensitivity; got != dsp.SensitivityLow {
		t.Fatalf("sensitivity after s = %v, want %v", got, dsp.SensitivityLow)
	}
	m.Update(keyMsg('s'))
	if got := m.cfg.Load().Sensitivity; got != dsp.SensitivityHigh {
		t.Fatalf("sensitivity after ss = %v, want %v", got, dsp.SensitivityHigh)
	}
}

func TestStatKeyCyclesConfig(t *testing.T) {
	m := newTestModel()

	m.Update(keyMsg('t'))
	if got := m.cfg.Load().Stat; got != dsp.StatPeak {
		t.Fatalf("stat after t = %v, want %v", got, dsp.StatPeak)
	}
	m.Update(keyMsg('t'))
	if got := m.cfg.Load().Stat; got != dsp.StatP90 {
		t.Fatalf("stat after tt = %v, want %v", got, dsp.StatP90)
	}
}

func TestViewShowsCaptureStatus(t *testing.T) {
	m := newTestModel()
	m.state = pipeline.StateCapturing

	view := m.View()
	if !strings.Contains(view, "capturing") {
		t.Fatalf("view missing capture status:\n%s", view)
	}
	if !strings.Contains(view, "SpectraTray") {
		t.Fatalf("view missing title:\n%s", view)
	}
}
