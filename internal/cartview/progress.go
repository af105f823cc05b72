// Package cartview derives display values for a pooled cart from the
// stored current and minimum values.
package cartview

import "math"

const (
	LabelOpen  = "Open"
	LabelReady = "Ready to Order"
)

// Progress is the rendered state of a cart's funding bar.
type Progress struct {
	Percent float64 `json:"percent"`
	Label   string  `json:"label"`
}

// Percent returns current/min as a percentage clamped to [0, 100].
// A non-positive minimum has no meaningful ratio and yields 0.
func Percent(current, min float64) float64 {
	if min <= 0 || math.IsNaN(current) || math.IsNaN(min) {
		return 0
	}
	pct := current / min * 100
	switch {
	case pct < 0:
		return 0
	case pct > 100:
		return 100
	}
	return pct
}

// Label is "Open" while the cart status is open and "Ready to Order" for any
// other status.
func Label(status string) string {
	if status == "open" {
		return LabelOpen
	}
	return LabelReady
}

// For builds the progress bar for a cart.
func For(status string, current, min float64) Progress {
	return Progress{
		Percent: math.Round(Percent(current, min)*100) / 100,
		Label:   Label(status),
	}
}
