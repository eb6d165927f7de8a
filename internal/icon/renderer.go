package icon

import (
	"image"
	"image/color"
	"math"

	"github.com/1061700625/SpectraTray/internal/dsp"
)

// Canvas geometry. The host scales the 64 px canvas down to tray size, so
// everything is drawn with a little breathing room from the edges.
const (
	Size = 64

	pad      = 2 // outer margin
	inset    = 2 // extra inset of the bars inside the background
	barGap   = 1 // horizontal gap between bars
	segGap   = 1 // vertical gap between lit segments
	segments = 10
	cornerR  = 4
)

// Render draws the levels as segmented vertical bars over the chosen
// background. Every call produces a valid bitmap; all-zero levels yield the
// background alone. Identical input yields identical pixels.
func Render(levels dsp.VisualLevels, bg Background) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, Size, Size))

	if fill, ok := bg.fill(); ok {
		fillRoundedRect(img, pad, pad, Size-pad-1, Size-pad-1, cornerR, fill)
	}

	innerL := pad + inset
	innerR := Size - pad - inset - 1
	innerT := pad + inset
	innerB := Size - pad - inset - 1

	barW := (innerR - innerL + 1 - barGap*(dsp.NumBands-1)) / dsp.NumBands
	if barW < 2 {
		barW = 2
	}
	totalH := innerB - innerT
	segH := (totalH - segGap*(segments-1)) / segments
	if segH < 1 {
		segH = 1
	}

	for b := 0; b < dsp.NumBands; b++ {
		lit := int(math.Round(clamp01(levels[b]) * segments))
		if lit == 0 {
			continue
		}
		x0 := innerL + b*(barW+barGap)
		x1 := x0 + barW - 1
		if x1 > innerR {
			x1 = innerR
		}
		col := bandPalette[b%len(bandPalette)]
		for s := 0; s < lit; s++ {
			y1 := innerB - s*(segH+segGap)
			y0 := y1 - segH + 1
			fillRect(img, x0, y0, x1, y1, col)
		}
	}

	return img
}

func fillRect(img *image.RGBA, x0, y0, x1, y1 int, c color.RGBA) {
	for y := y0; y <= y1; y++ {
		for x := x0; x <= x1; x++ {
			img.SetRGBA(x, y, c)
		}
	}
}

// fillRoundedRect fills [x0,y0]..[x1,y1] leaving the four corners outside a
// radius-r quarter circle untouched.
func fillRoundedRect(img *image.RGBA, x0, y0, x1, y1, r int, c color.RGBA) {
	for y := y0; y <= y1; y++ {
		for x := x0; x <= x1; x++ {
			dx, dy := 0, 0
			if x < x0+r {
				dx = x0 + r - x
			} else if x > x1-r {
				dx = x - (x1 - r)
			}
			if y < y0+r {
				dy = y0 + r - y
			} else if y > y1-r {
				dy = y - (y1 - r)
			}
			if dx > 0 && dy > 0 && dx*dx+dy*dy > r*r+r {
				continue
			}
			img.SetRGBA(x, y, c)
		}
	}
}

func clamp01(v float64) float64 {
	if v < 0 || math.IsNaN(v) {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
