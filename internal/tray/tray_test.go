package tray

import (
	"image"
	"testing"
	"time"

	"github.com/1061700625/SpectraTray/internal/dsp"
	"github.com/1061700625/SpectraTray/internal/icon"
	"github.com/1061700625/SpectraTray/internal/pipeline"
)

func TestConsumeUpdatesAppliesIconsThenQuitsOnStop(t *testing.T) {
	updates := make(chan pipeline.Update, 1)
	applied := make(chan *image.RGBA, 8)
	quit := make(chan struct{})

	go consumeUpdates(updates,
		func(img *image.RGBA) { applied <- img },
		func() { close(quit) })

	img := icon.Render(dsp.VisualLevels{0.5}, icon.BackgroundBlack)
	updates <- pipeline.Update{Icon: img, State: pipeline.StateCapturing}

	select {
	case got := <-applied:
		if got != img {
			t.Fatal("applied a different bitmap than was published")
		}
	case <-time.After(time.Second):
		t.Fatal("capturing update never applied")
	}

	updates <- pipeline.Update{State: pipeline.StateStopped}
	select {
	case <-quit:
	case <-time.After(time.Second):
		t.Fatal("stopped update did not tear the tray down")
	}

	select {
	case <-applied:
		t.Fatal("icon applied after the stop update")
	case <-time.After(3 * iconInterval):
	}
}

func TestConsumeUpdatesQuitsOnClosedChannel(t *testing.T) {
	updates := make(chan pipeline.Update)
	quit := make(chan struct{})

	go consumeUpdates(updates,
		func(*image.RGBA) { t.Error("unexpected icon apply") },
		func() { close(quit) })

	close(updates)
	select {
	case <-quit:
	case <-time.After(time.Second):
		t.Fatal("closed update channel did not tear the tray down")
	}
}
