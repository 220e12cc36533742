// Package align computes the single scale + offset transform used by the
// interactive preview to line two pose landmark sets up around a chosen
// anatomical anchor. It is intentionally simpler than the export layout
// engine: one global transform, optimized for low-latency slider feedback.
package align

import (
	"github.com/menta2k/pose-composite/pkg/pose"
	"github.com/menta2k/pose-composite/pkg/types"
)

// Interactive scale clamp bounds
const (
	MinScale = 0.5
	MaxScale = 2.0
)

// Result is the transform applied to the "after" photo relative to the
// "before" photo. Values are normalized; Scale is clamped to
// [MinScale, MaxScale].
type Result struct {
	Scale   float64 `json:"scale"`
	OffsetX float64 `json:"offsetX"`
	OffsetY float64 `json:"offsetY"`
}

// Identity is the no-op transform returned whenever the inputs cannot
// drive an alignment.
func Identity() Result {
	return Result{Scale: 1, OffsetX: 0, OffsetY: 0}
}

// CalculateAlignment computes the transform that moves the "after" photo's
// anchor point onto the "before" photo's anchor position, scaling around the
// image's own center (0.5, 0.5). Invalid or unusable landmark input returns
// the identity transform rather than an error.
func CalculateAlignment(before, after []types.Landmark, anchor pose.Anchor) Result {
	if !pose.Usable(before) || !pose.Usable(after) {
		return Identity()
	}

	indices := anchor.Indices()
	anchorBefore, okBefore := pose.CenterOf(before, indices)
	anchorAfter, okAfter := pose.CenterOf(after, indices)
	if !okBefore || !okAfter {
		return Identity()
	}

	scale := 1.0
	refBefore, okBefore := pose.BodyHeightReference(before)
	refAfter, okAfter := pose.BodyHeightReference(after)
	if okBefore && okAfter && refAfter > 0 {
		scale = clamp(refBefore/refAfter, MinScale, MaxScale)
	}

	// Where the after anchor lands once the image is scaled about its center
	scaledX := 0.5 + (anchorAfter.X-0.5)*scale
	scaledY := 0.5 + (anchorAfter.Y-0.5)*scale

	return Result{
		Scale:   scale,
		OffsetX: anchorBefore.X - scaledX,
		OffsetY: anchorBefore.Y - scaledY,
	}
}

// CanCalculateAlignment reports whether a landmark set can drive alignment
// for the given anchor: the array must be full length and at least half of
// the anchor's points (rounded up) must be visible.
func CanCalculateAlignment(landmarks []types.Landmark, anchor pose.Anchor) bool {
	if !pose.Usable(landmarks) {
		return false
	}

	indices := anchor.Indices()
	visible := 0
	for _, idx := range indices {
		if idx < len(landmarks) && pose.Visible(landmarks[idx]) {
			visible++
		}
	}

	required := (len(indices) + 1) / 2
	return visible >= required
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
