// Package icon renders per-band visual levels into the small tray bitmap and
// encodes it for the presentation host.
package icon

import "image/color"

// Background selects what the bars are composited over.
type Background int

const (
	BackgroundTransparent Background = iota
	BackgroundWhite
	BackgroundBlack
)

func (b Background) String() string {
	switch b {
	case BackgroundWhite:
		return "white"
	case BackgroundBlack:
		return "black"
	default:
		return "transparent"
	}
}

// bandPalette maps band index (low to high frequency) to bar color. Warm
// lows, cool highs; pure green is avoided since it reads poorly at 16 px.
var bandPalette = [...]color.RGBA{
	{R: 255, G: 70, B: 70, A: 255},
	{R: 255, G: 150, B: 60, A: 255},
	{R: 255, G: 225, B: 80, A: 255},
	{R: 255, G: 90, B: 170, A: 255},
	{R: 205, G: 90, B: 255, A: 255},
	{R: 120, G: 120, B: 255, A: 255},
	{R: 80, G: 170, B: 255, A: 255},
	{R: 70, G: 235, B: 255, A: 255},
}

var (
	whiteFill = color.RGBA{R: 255, G: 255, B: 255, A: 255}
	blackFill = color.RGBA{R: 12, G: 12, B: 12, A: 255}
)

// fill returns the background fill color, or ok=false for transparent.
func (b Background) fill() (color.RGBA, bool) {
	switch b {
	case BackgroundWhite:
		return whiteFill, true
	case BackgroundBlack:
		return blackFill, true
	default:
		return color.RGBA{}, false
	}
}
