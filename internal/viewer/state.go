// Package viewer holds per-user display state for a generated document and
// the short-lived handles under which its bytes are served.
package viewer

import "math"

const (
	MinScale  = 0.5
	MaxScale  = 3.0
	ScaleStep = 0.2
)

// State is the zoom and rotation applied to the displayed document.
// Rotation is always one of 0, 90, 180, 270.
type State struct {
	Scale    float64
	Rotation int
}

func NewState() State { return State{Scale: 1} }

func (s *State) ZoomIn()  { s.Scale = clampScale(s.Scale + ScaleStep) }
func (s *State) ZoomOut() { s.Scale = clampScale(s.Scale - ScaleStep) }

func (s *State) Rotate() { s.Rotation = normalizeRotation(s.Rotation + 90) }

func (s *State) Reset() { *s = NewState() }

// Percent is the scale shown in the toolbar.
func (s State) Percent() int { return int(math.Round(s.Scale * 100)) }

// Action applies a named toolbar action. It reports false for unknown names.
func (s *State) Action(name string) bool {
	switch name {
	case "zoom-in":
		s.ZoomIn()
	case "zoom-out":
		s.ZoomOut()
	case "rotate":
		s.Rotate()
	case "reset":
		s.Reset()
	default:
		return false
	}
	return true
}

// clampScale rounds to two decimals so repeated steps do not drift.
func clampScale(v float64) float64 {
	v = math.Round(v*100) / 100
	return math.Max(MinScale, math.Min(MaxScale, v))
}

func normalizeRotation(deg int) int {
	deg %= 360
	if deg < 0 {
		deg += 360
	}
	return deg - deg%90
}
