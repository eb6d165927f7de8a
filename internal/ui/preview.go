// Package ui renders the pipeline's band levels in the terminal. It is an
// alternative front end to the tray icon, mainly for checking that capture
// works before trusting a 16-pixel icon.
package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/harmonica"

	"github.com/1061700625/SpectraTray/internal/dsp"
	"github.com/1061700625/SpectraTray/internal/pipeline"
	"github.com/1061700625/SpectraTray/internal/util"
)

var barChars = []rune(" ▁▂▃▄▅▆▇█")

const (
	previewFPS      = 30
	springFrequency = 7.0
	springDamping   = 0.8
	barWidth        = 4
	barGap          = 1
)

// Model is the Bubbletea model for the terminal preview.
type Model struct {
	updates <-chan pipeline.Update
	cfg     *pipeline.ConfigStore

	levels dsp.VisualLevels
	state  pipeline.State
	spin   spinner.Model

	// Display-only spring smoothing; the pipeline's own attack/decay stays
	// authoritative for what a level *is*.
	spring harmonica.Spring
	pos    [dsp.NumBands]float64
	vel    [dsp.NumBands]float64

	width    int
	height   int
	quitting bool
}

// New creates a preview consuming the pipeline's update channel.
func New(updates <-chan pipeline.Update, cfg *pipeline.ConfigStore) Model {
	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = statusStyle
	return Model{
		updates: updates,
		cfg:     cfg,
		state:   pipeline.StateStarting,
		spin:    sp,
		spring:  harmonica.NewSpring(harmonica.FPS(previewFPS), springFrequency, springDamping),
	}
}

type updateMsg pipeline.Update

// waitForUpdate re-arms after every message so the channel drains at the
// pipeline's pace.
func waitForUpdate(ch <-chan pipeline.Update) tea.Cmd {
	return func() tea.Msg {
		u, ok := <-ch
		if !ok {
			return updateMsg{State: pipeline.StateStopped}
		}
		return updateMsg(u)
	}
}

func (m Model) Init() tea.Cmd {
	return tea.Batch(waitForUpdate(m.updates), m.spin.Tick, tea.SetWindowTitle("SpectraTray"))
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c", "esc":
			m.quitting = true
			return m, tea.Sequence(tea.SetWindowTitle(""), tea.Quit)
		case "s":
			cfg := m.cfg.Load()
			cfg.Sensitivity = nextSensitivity(cfg.Sensitivity)
			m.cfg.Store(cfg)
		case "t":
			cfg := m.cfg.Load()
			cfg.Stat = nextStat(cfg.Stat)
			m.cfg.Store(cfg)
		}
		return m, nil

	case updateMsg:
		if msg.State == pipeline.StateStopped {
			m.quitting = true
			return m, tea.Quit
		}
		m.state = msg.State
		m.levels = msg.Levels
		for i := range m.pos {
			m.pos[i], m.vel[i] = m.spring.Update(m.pos[i], m.vel[i], m.levels[i])
		}
		return m, waitForUpdate(m.updates)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spin, cmd = m.spin.Update(msg)
		return m, cmd
	}
	return m, nil
}

func (m Model) View() string {
	if m.quitting {
		return ""
	}

	rows := m.height - 4
	if rows < 4 {
		rows = 4
	}

	var sb strings.Builder
	sb.WriteString(titleStyle.Render(" SpectraTray"))
	sb.WriteString(helpStyle.Render(fmt.Sprintf("  %s to %s, %d bands",
		util.FormatHz(dsp.BandLowHz), util.FormatHz(dsp.BandHighHz), dsp.NumBands)))
	sb.WriteString("\n")
	sb.WriteString(m.statusLine())
	sb.WriteString("\n")
	sb.WriteString(renderBars(m.pos, rows))
	sb.WriteString("\n")
	sb.WriteString(helpStyle.Render(" s sensitivity · t statistic · q quit"))
	return sb.String()
}

func (m Model) statusLine() string {
	cfg := m.cfg.Load()
	settings := fmt.Sprintf("sensitivity %s · stat %s", cfg.Sensitivity, cfg.Stat)
	switch m.state {
	case pipeline.StateCapturing:
		return statusStyle.Render(" capturing · " + settings)
	case pipeline.StateUnavailable:
		return statusStyle.Render(" no loopback device · " + settings)
	default:
		return statusStyle.Render(fmt.Sprintf(" %s waiting for audio device · %s", m.spin.View(), settings))
	}
}

// renderBars draws each band as a column of block characters, tallest cell
// fractional so the top of a bar moves smoothly.
func renderBars(levels [dsp.NumBands]float64, rows int) string {
	lines := make([]string, rows)
	for row := 0; row < rows; row++ {
		var line strings.Builder
		line.WriteByte(' ')
		fromBottom := float64(rows - 1 - row)
		for b := 0; b < dsp.NumBands; b++ {
			if b > 0 {
				line.WriteString(strings.Repeat(" ", barGap))
			}
			cell := cellChar(levels[b]*float64(rows), fromBottom)
			line.WriteString(bandStyles[b].Render(strings.Repeat(string(cell), barWidth)))
		}
		lines[row] = line.String()
	}
	return strings.Join(lines, "\n")
}

func cellChar(level, fromBottom float64) rune {
	switch {
	case level >= fromBottom+1:
		return barChars[len(barChars)-1]
	case level > fromBottom:
		frac := level - fromBottom
		return barChars[int(frac*float64(len(barChars)-1))]
	default:
		return barChars[0]
	}
}

func nextSensitivity(s dsp.Sensitivity) dsp.Sensitivity {
	switch s {
	case dsp.SensitivityHigh:
		return dsp.SensitivityMedium
	case dsp.SensitivityMedium:
		return dsp.SensitivityLow
	default:
		return dsp.SensitivityHigh
	}
}

func nextStat(s dsp.Stat) dsp.Stat {
	switch s {
	case dsp.StatRMS:
		return dsp.StatPeak
	case dsp.StatPeak:
		return dsp.StatP90
	default:
		return dsp.StatRMS
	}
}
