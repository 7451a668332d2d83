package raster

import "math"

// Bounds are the output pixel limits.
type Bounds struct {
	MinWidth  int
	MaxWidth  int
	MaxHeight int
}

// TargetSize scales an intrinsic size into bounds, keeping the aspect ratio.
// Width is raised to MinWidth and capped at MaxWidth; if the matching height
// then exceeds MaxHeight, height becomes the binding constraint.
// All clamping happens in float64 so huge intrinsic sizes never overflow int.
func TargetSize(src Size, b Bounds) (width, height int) {
	wf := math.Min(math.Max(src.Width, float64(b.MinWidth)), float64(b.MaxWidth))
	wf = math.Max(math.Round(wf), 1)

	hf := math.Round(src.Height * wf / src.Width)
	if hf > float64(b.MaxHeight) {
		hf = float64(b.MaxHeight)
		wf = math.Round(src.Width * hf / src.Height)
	}
	return int(math.Max(wf, 1)), int(math.Max(hf, 1))
}
