// Package util holds small formatting helpers shared by the tray and the
// terminal preview.
package util

import (
	"fmt"
	"strings"
)

// FormatHz renders a frequency with the customary unit switch at 1 kHz.
// Kilohertz values keep one decimal unless it is zero.
func FormatHz(hz float64) string {
	if hz < 1000 {
		return fmt.Sprintf("%.0f Hz", hz)
	}
	khz := hz / 1000
	s := fmt.Sprintf("%.1f", khz)
	s = strings.TrimSuffix(s, ".0")
	return s + " kHz"
}

// Truncate shortens s to at most max runes, replacing the tail with an
// ellipsis. Tooltips and window titles clip hard otherwise.
func Truncate(s string, max int) string {
	if max <= 0 {
		return ""
	}
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	if max == 1 {
		return "…"
	}
	return string(runes[:max-1]) + "…"
}
