package layout

import "math"

// CanvasSpec is the outcome of the dynamic crop: final half-canvas
// dimensions plus the trim-adjusted draw rectangles.
type CanvasSpec struct {
	Before    DrawParams `json:"before"`
	After     DrawParams `json:"after"`
	HalfWidth float64    `json:"halfWidth"`
	Height    float64    `json:"height"`
}

// FinalizeCanvas post-processes the two phase-3 draw rectangles. Forced
// overflow plus independent per-image scaling means the two cover-fit
// bottoms rarely coincide; the canvas is cropped to whichever image runs
// out first so neither half ever shows background fill, then the half width
// is recomputed from the requested aspect and both images shifted so the
// horizontal trim stays centered.
//
// halfAspect is the width/height ratio of one half-canvas (1.0 for 1:1,
// 0.8 for 4:5, 9/16 for 9:16).
func FinalizeCanvas(res Result, provisionalHalfWidth, provisionalHeight, halfAspect float64) CanvasSpec {
	visibleHeight := math.Min(res.Before.Bottom(), res.After.Bottom())
	visibleHeight = math.Min(visibleHeight, provisionalHeight)
	// Floor to whole pixels so the crop never dips past either image's
	// bottom edge.
	visibleHeight = math.Floor(visibleHeight)
	if visibleHeight < 1 {
		visibleHeight = 1
	}

	finalHalfWidth := math.Round(visibleHeight * halfAspect)
	if finalHalfWidth > provisionalHalfWidth {
		finalHalfWidth = provisionalHalfWidth
	}
	if finalHalfWidth < 1 {
		finalHalfWidth = 1
	}

	trimPerSide := (provisionalHalfWidth - finalHalfWidth) / 2

	before := res.Before
	after := res.After
	before.DrawX -= trimPerSide
	after.DrawX -= trimPerSide

	return CanvasSpec{
		Before:    before,
		After:     after,
		HalfWidth: finalHalfWidth,
		Height:    visibleHeight,
	}
}
