package proctor

// DevToolsHeuristic decides from viewport samples whether developer tools are open.
// Detection is best-effort: docked panels change the viewport, undocked ones do not.
type DevToolsHeuristic interface {
	// Sample reports true once when the heuristic trips.
	Sample(v Viewport) bool
	Reset()
}

// DimensionHeuristic trips when the outer/inner size gap exceeds Threshold
// for Sustain consecutive samples.
type DimensionHeuristic struct {
	Threshold int
	Sustain   int

	streak  int
	tripped bool
}

// NewDimensionHeuristic returns a heuristic with the given threshold in pixels.
func NewDimensionHeuristic(threshold, sustain int) *DimensionHeuristic {
	if sustain < 1 {
		sustain = 1
	}
	return &DimensionHeuristic{Threshold: threshold, Sustain: sustain}
}

func (h *DimensionHeuristic) Sample(v Viewport) bool {
	gap := max(v.OuterWidth-v.InnerWidth, v.OuterHeight-v.InnerHeight)
	if gap <= h.Threshold {
		h.streak = 0
		return false
	}
	h.streak++
	if h.streak >= h.Sustain && !h.tripped {
		h.tripped = true
		return true
	}
	return false
}

func (h *DimensionHeuristic) Reset() {
	h.streak = 0
	h.tripped = false
}
