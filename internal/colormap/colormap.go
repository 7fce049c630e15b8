// Package colormap maps numeric values onto discrete color-stop gradients.
// It backs the anomaly heatmap and chart coloring: a scheme is an ordered
// list of (threshold, color) stops, and lookups interpolate linearly in RGB
// space between the two bracketing stops, clamping at the ends instead of
// extrapolating.
package colormap

import (
	"errors"
	"fmt"
	"math"
)

// ErrUnknownScheme reports a lookup of a scheme name that is not registered.
var ErrUnknownScheme = errors.New("unknown color scheme")

// ErrPivotPlacement reports a pivot-aware interpolation whose pivot cannot
// split the scheme into two non-empty halves. The pivot must be the
// threshold of an interior stop and must lie strictly inside the domain;
// anything else would need a zero-width half.
var ErrPivotPlacement = errors.New("invalid pivot placement")

// RGB is an 8-bit-per-channel color.
type RGB struct {
	R, G, B uint8
}

// ParseHex parses a "#RRGGBB" color.
func ParseHex(s string) (RGB, error) {
	var c RGB
	if len(s) != 7 || s[0] != '#' {
		return c, fmt.Errorf("invalid hex color %q: want #RRGGBB", s)
	}
	if _, err := fmt.Sscanf(s[1:], "%02x%02x%02x", &c.R, &c.G, &c.B); err != nil {
		return c, fmt.Errorf("invalid hex color %q: %w", s, err)
	}
	return c, nil
}

// Hex formats the color as "#RRGGBB" with uppercase digits.
func (c RGB) Hex() string {
	return fmt.Sprintf("#%02X%02X%02X", c.R, c.G, c.B)
}

// ColorStop anchors a color at a numeric threshold.
type ColorStop struct {
	Threshold float64
	Color     RGB
}

// Scheme is an ordered gradient of color stops. Thresholds are strictly
// ascending; schemes are registered at init and never mutated.
type Scheme struct {
	Name  string
	Stops []ColorStop
}

// lerp interpolates between a and b channel-wise. t is clamped to [0,1];
// t=0 returns a exactly and t=1 returns b exactly, so stop colors pass
// through without drift.
func lerp(a, b RGB, t float64) RGB {
	if t <= 0 {
		return a
	}
	if t >= 1 {
		return b
	}
	mix := func(x, y uint8) uint8 {
		return uint8(math.Round(float64(x) + t*(float64(y)-float64(x))))
	}
	return RGB{R: mix(a.R, b.R), G: mix(a.G, b.G), B: mix(a.B, b.B)}
}

// Interpolate places the scheme's stops evenly across [min, max] and
// returns the color for value: clamped to the first stop at or below min,
// to the last at or above max, linearly interpolated between the two
// bracketing stops otherwise.
func (s Scheme) Interpolate(value, min, max float64) (RGB, error) {
	if len(s.Stops) < 2 {
		return RGB{}, fmt.Errorf("scheme %s: needs at least two stops", s.Name)
	}
	if !(min < max) {
		return RGB{}, fmt.Errorf("scheme %s: domain [%g, %g] is empty", s.Name, min, max)
	}
	if value <= min {
		return s.Stops[0].Color, nil
	}
	if value >= max {
		return s.Stops[len(s.Stops)-1].Color, nil
	}

	segments := float64(len(s.Stops) - 1)
	pos := (value - min) / (max - min) * segments
	idx := int(pos)
	if idx >= len(s.Stops)-1 {
		idx = len(s.Stops) - 2
	}
	return lerp(s.Stops[idx].Color, s.Stops[idx+1].Color, pos-float64(idx)), nil
}

// InterpolatePivot maps value onto the scheme with the two halves scaled
// independently: [min, pivot] spreads across the stops up to the pivot stop
// and [pivot, max] across the stops after it. This keeps the pivot color
// anchored at the pivot value even when the domain is asymmetric, e.g.
// anomalies spanning [-3, +11] still turn white exactly at 0.
//
// The scheme must contain a stop whose threshold equals pivot, that stop
// must be interior (not first or last), and pivot must lie strictly between
// min and max; otherwise ErrPivotPlacement is returned.
func (s Scheme) InterpolatePivot(value, min, max, pivot float64) (RGB, error) {
	pivotIdx := -1
	for i, stop := range s.Stops {
		if stop.Threshold == pivot {
			pivotIdx = i
			break
		}
	}
	if pivotIdx == -1 {
		return RGB{}, fmt.Errorf("%w: scheme %s has no stop at %g", ErrPivotPlacement, s.Name, pivot)
	}
	if pivotIdx == 0 || pivotIdx == len(s.Stops)-1 {
		return RGB{}, fmt.Errorf("%w: pivot stop of scheme %s must be interior, got index %d", ErrPivotPlacement, s.Name, pivotIdx)
	}
	if !(min < pivot && pivot < max) {
		return RGB{}, fmt.Errorf("%w: pivot %g outside domain (%g, %g)", ErrPivotPlacement, pivot, min, max)
	}

	if value <= min {
		return s.Stops[0].Color, nil
	}
	if value >= max {
		return s.Stops[len(s.Stops)-1].Color, nil
	}

	var lo int
	var pos float64
	if value <= pivot {
		segments := float64(pivotIdx)
		pos = (value - min) / (pivot - min) * segments
		lo = 0
	} else {
		segments := float64(len(s.Stops) - 1 - pivotIdx)
		pos = (value - pivot) / (max - pivot) * segments
		lo = pivotIdx
	}
	idx := lo + int(pos)
	if idx >= len(s.Stops)-1 {
		idx = len(s.Stops) - 2
	}
	return lerp(s.Stops[idx].Color, s.Stops[idx+1].Color, pos-float64(idx-lo)), nil
}

// ValueColor uses the scheme's own thresholds as positions: value below the
// first threshold clamps to the first color, above the last to the last
// color, a value equal to a threshold returns that stop's literal color,
// and anything in between interpolates between the bracketing stops.
func (s Scheme) ValueColor(value float64) (RGB, error) {
	if len(s.Stops) < 2 {
		return RGB{}, fmt.Errorf("scheme %s: needs at least two stops", s.Name)
	}
	if value <= s.Stops[0].Threshold {
		return s.Stops[0].Color, nil
	}
	last := s.Stops[len(s.Stops)-1]
	if value >= last.Threshold {
		return last.Color, nil
	}
	for i := 0; i < len(s.Stops)-1; i++ {
		a, b := s.Stops[i], s.Stops[i+1]
		if value > b.Threshold {
			continue
		}
		t := (value - a.Threshold) / (b.Threshold - a.Threshold)
		return lerp(a.Color, b.Color, t), nil
	}
	return last.Color, nil
}

// AnomalyColor resolves a named scheme and returns the color for an anomaly
// value positioned by the scheme's thresholds.
func AnomalyColor(value float64, schemeName string) (RGB, error) {
	s, err := ByName(schemeName)
	if err != nil {
		return RGB{}, err
	}
	return s.ValueColor(value)
}
