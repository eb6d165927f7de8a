// Package tray hosts the pipeline in the system notification area: icon
// registration, per-frame icon updates, and the context menu that mutates
// the shared render configuration.
package tray

import (
	"fmt"
	"image"
	"time"

	"fyne.io/systray"
	"github.com/charmbracelet/log"
	"github.com/pkg/browser"

	"github.com/1061700625/SpectraTray/internal/dsp"
	"github.com/1061700625/SpectraTray/internal/icon"
	"github.com/1061700625/SpectraTray/internal/pipeline"
	"github.com/1061700625/SpectraTray/internal/util"
)

const (
	appName    = "SpectraTray"
	websiteURL = "https://github.com/1061700625/SpectraTray"

	// iconInterval caps how often the tray icon is replaced. The pipeline
	// may publish faster; the latest-wins slot absorbs the difference.
	iconInterval = 40 * time.Millisecond
)

// Options configures the tray session.
type Options struct {
	Version  string
	Config   *pipeline.ConfigStore
	Updates  <-chan pipeline.Update
	Logger   *log.Logger
	Playing  string // now-playing title for file mode, empty for loopback
	OnClosed func() // invoked once the tray has torn down
}

// Run registers the tray icon and blocks until the user quits. Must be
// called from the main goroutine; the OS tray loop owns it.
func Run(opts Options) {
	systray.Run(func() { onReady(opts) }, opts.OnClosed)
}

func onReady(opts Options) {
	tooltip := fmt.Sprintf("%s v%s", appName, opts.Version)
	if opts.Playing != "" {
		tooltip += " | " + util.Truncate(opts.Playing, 48)
	}
	systray.SetTooltip(tooltip)
	setIcon(icon.Render(dsp.VisualLevels{}, opts.Config.Load().Background), opts.Logger)

	cfg := opts.Config.Load()

	website := systray.AddMenuItem("Open Website", websiteURL)

	bg := systray.AddMenuItem("Background", "Icon background")
	bgItems := radioGroup(bg, []string{"Transparent", "White", "Black"}, int(cfg.Background))

	sens := systray.AddMenuItem("Sensitivity", "Display sensitivity")
	sensItems := radioGroup(sens, []string{"High", "Medium", "Low"}, int(cfg.Sensitivity))

	stat := systray.AddMenuItem("Band Statistic", "How bins collapse into a bar")
	statItems := radioGroup(stat, []string{"RMS (steady)", "Peak (punchy)", "P90 (spike-proof)"}, int(cfg.Stat))

	systray.AddSeparator()
	version := systray.AddMenuItem("Version "+opts.Version, "")
	version.Disable()
	quit := systray.AddMenuItem("Quit", "Stop capturing and exit")

	go consumeUpdates(opts.Updates, func(img *image.RGBA) { setIcon(img, opts.Logger) }, systray.Quit)

	// One goroutine owns every menu event, so config writes are serialized.
	go func() {
		for {
			select {
			case <-website.ClickedCh:
				if err := browser.OpenURL(websiteURL); err != nil {
					opts.Logger.Warn("opening website failed", "err", err)
				}
			case <-bgItems[0].ClickedCh:
				selectBackground(opts.Config, bgItems, icon.BackgroundTransparent)
			case <-bgItems[1].ClickedCh:
				selectBackground(opts.Config, bgItems, icon.BackgroundWhite)
			case <-bgItems[2].ClickedCh:
				selectBackground(opts.Config, bgItems, icon.BackgroundBlack)
			case <-sensItems[0].ClickedCh:
				selectSensitivity(opts.Config, sensItems, dsp.SensitivityHigh)
			case <-sensItems[1].ClickedCh:
				selectSensitivity(opts.Config, sensItems, dsp.SensitivityMedium)
			case <-sensItems[2].ClickedCh:
				selectSensitivity(opts.Config, sensItems, dsp.SensitivityLow)
			case <-statItems[0].ClickedCh:
				selectStat(opts.Config, statItems, dsp.StatRMS)
			case <-statItems[1].ClickedCh:
				selectStat(opts.Config, statItems, dsp.StatPeak)
			case <-statItems[2].ClickedCh:
				selectStat(opts.Config, statItems, dsp.StatP90)
			case <-quit.ClickedCh:
				systray.Quit()
				return
			}
		}
	}()
}

// consumeUpdates moves fresh bitmaps into the tray at a bounded rate,
// independent of how fast the pipeline produces them. When the pipeline
// stops it tears the tray down, so a signal-driven shutdown exits instead
// of leaving a frozen icon behind.
func consumeUpdates(updates <-chan pipeline.Update, apply func(*image.RGBA), quit func()) {
	ticker := time.NewTicker(iconInterval)
	defer ticker.Stop()
	for range ticker.C {
		select {
		case u, ok := <-updates:
			if !ok || u.State == pipeline.StateStopped {
				quit()
				return
			}
			apply(u.Icon)
		default:
			// No new frame this tick; the icon is already current.
		}
	}
}

// setIcon encodes and swaps the tray bitmap. Encoding a fixed-shape RGBA
// cannot reasonably fail; if it does the renderer state is not trustworthy.
func setIcon(img *image.RGBA, logger *log.Logger) {
	data, err := icon.EncodeTray(img)
	if err != nil {
		logger.Fatal("icon encoding failed", "err", err)
	}
	systray.SetIcon(data)
}

func radioGroup(parent *systray.MenuItem, labels []string, checked int) []*systray.MenuItem {
	items := make([]*systray.MenuItem, len(labels))
	for i, label := range labels {
		items[i] = parent.AddSubMenuItemCheckbox(label, "", i == checked)
	}
	return items
}

func checkOnly(items []*systray.MenuItem, idx int) {
	for i, item := range items {
		if i == idx {
			item.Check()
		} else {
			item.Uncheck()
		}
	}
}

func selectBackground(store *pipeline.ConfigStore, items []*systray.MenuItem, bg icon.Background) {
	checkOnly(items, int(bg))
	cfg := store.Load()
	cfg.Background = bg
	store.Store(cfg)
}

func selectSensitivity(store *pipeline.ConfigStore, items []*systray.MenuItem, sens dsp.Sensitivity) {
	checkOnly(items, int(sens))
	cfg := store.Load()
	cfg.Sensitivity = sens
	store.Store(cfg)
}

func selectStat(store *pipeline.ConfigStore, items []*systray.MenuItem, stat dsp.Stat) {
	checkOnly(items, int(stat))
	cfg := store.Load()
	cfg.Stat = stat
	store.Store(cfg)
}
