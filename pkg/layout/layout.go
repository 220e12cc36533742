// Package layout implements the export-time aligned layout engine: given two
// photos and their pose landmark sets, it computes independent draw
// rectangles against a fixed half-canvas so that anatomical anchor points
// (head, or shoulders as fallback) line up at the same canvas position, then
// trims the canvas to the shared visible height so no background is exposed.
//
// The engine is pure arithmetic with no I/O and no shared state; it is safe
// to call concurrently from independent export requests.
package layout

import (
	"math"

	"github.com/menta2k/pose-composite/pkg/pose"
	"github.com/menta2k/pose-composite/pkg/types"
)

// Config holds the empirically tuned layout constants. The scale clamp
// bounds were recalibrated against real photo pairs; treat all of these as
// configuration rather than hardcoded truth.
type Config struct {
	// MinBodyScale and MaxBodyScale bound the relative body-size correction
	// between the two photos. An earlier narrower range (0.8, 1.25) was
	// found to over-constrain legitimate scale differences.
	MinBodyScale float64
	MaxBodyScale float64

	// MinOverflow is the minimum vertical overflow ratio past cover-fit,
	// leaving room for repositioning without exposing whitespace.
	MinOverflow float64

	// HeadroomMin and HeadroomMax bound where the head may sit, as a
	// fraction of target canvas height.
	HeadroomMin float64
	HeadroomMax float64

	// CroppedHeadY is the normalized Y below which a reported nose position
	// is treated as extrapolated above the visible frame.
	CroppedHeadY float64

	// MaxSideCrop limits the horizontal shift used to line anchor X
	// positions up, as a fraction of the scaled image width per side.
	MaxSideCrop float64
}

// DefaultConfig returns the calibrated layout constants
func DefaultConfig() Config {
	return Config{
		MinBodyScale: 0.65,
		MaxBodyScale: 1.60,
		MinOverflow:  1.15,
		HeadroomMin:  0.05,
		HeadroomMax:  0.20,
		CroppedHeadY: 0.02,
		MaxSideCrop:  0.22,
	}
}

// DrawParams describes where and at what size the entire source image is
// blitted onto the target half-canvas, in canvas pixel units. Cropping
// happens via the half's clip region, never by pre-cropping the source.
type DrawParams struct {
	DrawX      float64 `json:"drawX"`
	DrawY      float64 `json:"drawY"`
	DrawWidth  float64 `json:"drawWidth"`
	DrawHeight float64 `json:"drawHeight"`
}

// Bottom returns the canvas Y of the image's bottom edge
func (p DrawParams) Bottom() float64 {
	return p.DrawY + p.DrawHeight
}

// Result carries the draw rectangles for both photos plus alignment
// diagnostics.
type Result struct {
	Before DrawParams `json:"before"`
	After  DrawParams `json:"after"`

	// UseShoulderAlignment is set when a cropped or occluded head forced
	// both photos onto the shoulder-center anchor.
	UseShoulderAlignment bool `json:"useShoulderAlignment"`

	// CropTopOffset records how much vertical adjustment the shoulder
	// fallback required. Diagnostic only.
	CropTopOffset float64 `json:"cropTopOffset,omitempty"`
}

// Engine computes aligned draw parameters
type Engine struct {
	cfg Config
}

// New creates an Engine with the calibrated default configuration
func New() *Engine {
	return &Engine{cfg: DefaultConfig()}
}

// NewWithConfig creates an Engine with custom tuning constants
func NewWithConfig(cfg Config) *Engine {
	return &Engine{cfg: cfg}
}

// Config returns the engine's tuning constants
func (e *Engine) Config() Config {
	return e.cfg
}

// CalculateAlignedDrawParams runs the four-phase export layout:
//
//  1. body scale assessment from body-height references
//  2. cover-fit and overflow normalization (phase 1.5)
//  3. headroom constraint: both heads pinned to the least available
//     headroom, clamped into the configured band
//  4. positioning with visibility and no-whitespace clamps
//
// Missing or sub-length landmark arrays degrade to documented defaults;
// the result is always finite with positive sizes.
func (e *Engine) CalculateAlignedDrawParams(beforeWidth, beforeHeight, afterWidth, afterHeight int, beforeLandmarks, afterLandmarks []types.Landmark, targetWidth, targetHeight float64) Result {
	if targetWidth <= 0 {
		targetWidth = 1
	}
	if targetHeight <= 0 {
		targetHeight = 1
	}
	beforeW, beforeH := safeDimensions(beforeWidth, beforeHeight, targetWidth, targetHeight)
	afterW, afterH := safeDimensions(afterWidth, afterHeight, targetWidth, targetHeight)

	// A head reported above the visible frame or below the visibility
	// threshold is unusable; the whole pair then aligns on shoulder centers
	// so both photos use the same anchor type.
	useShoulder := e.headUnusable(beforeLandmarks) || e.headUnusable(afterLandmarks)

	// Phase 1: body scale assessment
	refBefore := e.bodyReference(beforeLandmarks, useShoulder)
	refAfter := e.bodyReference(afterLandmarks, useShoulder)
	bodyScale := 1.0
	if refAfter > 0 {
		bodyScale = clamp(refBefore/refAfter, e.cfg.MinBodyScale, e.cfg.MaxBodyScale)
	}

	// Phase 1.5: cover-fit and overflow normalization
	coverBeforeW, coverBeforeH := coverFit(beforeW, beforeH, targetWidth, targetHeight)
	coverAfterW, coverAfterH := coverFit(afterW, afterH, targetWidth, targetHeight)

	overflowBefore := coverBeforeH / targetHeight
	overflowAfter := coverAfterH / targetHeight
	targetOverflow := math.Max(math.Max(overflowBefore, overflowAfter), e.cfg.MinOverflow)

	factorBefore := targetOverflow / overflowBefore
	factorAfter := targetOverflow / overflowAfter

	// The relative body correction is applied to whichever photo keeps both
	// rectangles at or above cover-fit, preserving the after/before ratio.
	if bodyScale >= 1 {
		factorAfter *= bodyScale
	} else {
		factorBefore /= bodyScale
	}

	scaledBeforeW := coverBeforeW * factorBefore
	scaledBeforeH := coverBeforeH * factorBefore
	scaledAfterW := coverAfterW * factorAfter
	scaledAfterH := coverAfterH * factorAfter

	// Phase 2: headroom constraint
	anchorBefore := e.anchorPoint(beforeLandmarks, useShoulder)
	anchorAfter := e.anchorPoint(afterLandmarks, useShoulder)

	headAtTopBefore := anchorBefore.Y * scaledBeforeH
	headAtTopAfter := anchorAfter.Y * scaledAfterH

	// Align to whichever photo has the least available headroom; it cannot
	// be pushed further down without cropping.
	constraint := math.Min(headAtTopBefore, headAtTopAfter)
	targetAnchorY := clamp(constraint, e.cfg.HeadroomMin*targetHeight, e.cfg.HeadroomMax*targetHeight)

	cropTopOffset := 0.0
	if useShoulder {
		cropTopOffset = targetAnchorY - constraint
	}

	// Phase 3: positioning
	before := e.position(scaledBeforeW, scaledBeforeH, headAtTopBefore, anchorBefore.X, targetAnchorY, targetWidth, targetHeight)
	after := e.position(scaledAfterW, scaledAfterH, headAtTopAfter, anchorAfter.X, targetAnchorY, targetWidth, targetHeight)

	return Result{
		Before:               before,
		After:                after,
		UseShoulderAlignment: useShoulder,
		CropTopOffset:        cropTopOffset,
	}
}

// position derives a single image's draw rectangle from its scaled size and
// anchor, applying the head-visibility clamp and the no-top-whitespace rule.
func (e *Engine) position(scaledW, scaledH, headAtTop, anchorX, targetAnchorY, targetWidth, targetHeight float64) DrawParams {
	drawY := targetAnchorY - headAtTop
	if headAtTop+drawY < e.cfg.HeadroomMin*targetHeight {
		drawY = e.cfg.HeadroomMin*targetHeight - headAtTop
	}
	// Never introduce top whitespace; the overflow from phase 1.5 is what
	// gives this clamp room to work.
	if drawY > 0 {
		drawY = 0
	}

	// Center horizontally, then shift toward placing the anchor X at the
	// half-canvas center, bounded so off-center subjects cannot force
	// runaway cropping.
	centered := (targetWidth - scaledW) / 2
	shift := (0.5 - anchorX) * scaledW
	maxShift := e.cfg.MaxSideCrop * scaledW
	shift = clamp(shift, -maxShift, maxShift)

	drawX := clamp(centered+shift, targetWidth-scaledW, 0)

	return DrawParams{
		DrawX:      drawX,
		DrawY:      drawY,
		DrawWidth:  scaledW,
		DrawHeight: scaledH,
	}
}

// headUnusable reports whether the photo's nose landmark cannot anchor the
// layout: either extrapolated above the frame or below the visibility
// threshold. Absent landmark sets do not trigger the fallback; they degrade
// to defaults instead.
func (e *Engine) headUnusable(landmarks []types.Landmark) bool {
	if !pose.Usable(landmarks) {
		return false
	}
	nose := landmarks[pose.Nose]
	return nose.Y < e.cfg.CroppedHeadY || nose.Visibility < pose.VisibilityThreshold
}

// bodyReference resolves the body-height scalar for one photo. In shoulder
// mode the nose may have been the missing input, so the shoulder-to-hip
// distance takes over as the size reference.
func (e *Engine) bodyReference(landmarks []types.Landmark, useShoulder bool) float64 {
	if useShoulder {
		if ref, ok := pose.ShoulderToHip(landmarks); ok && ref > 0 {
			return ref
		}
		return pose.DefaultBodyHeight
	}
	if ref, ok := pose.BodyHeightReference(landmarks); ok && ref > 0 {
		return ref
	}
	return pose.DefaultBodyHeight
}

// anchorPoint resolves the normalized alignment anchor for one photo:
// the nose, or the shoulder center in fallback mode, with documented
// defaults when landmarks are absent.
func (e *Engine) anchorPoint(landmarks []types.Landmark, useShoulder bool) types.Point {
	fallback := types.Point{X: 0.5, Y: pose.DefaultHeadY}
	if !pose.Usable(landmarks) {
		return fallback
	}

	if useShoulder {
		if center, ok := pose.CenterOf(landmarks, pose.AnchorShoulders.Indices()); ok {
			return center
		}
		return fallback
	}

	nose := landmarks[pose.Nose]
	if pose.Visible(nose) && nose.Y >= e.cfg.CroppedHeadY {
		return types.Point{X: nose.X, Y: nose.Y}
	}
	return fallback
}

// coverFit scales an image so it fully covers the target box, cropping the
// longer axis (standard aspect-fill).
func coverFit(imgW, imgH, targetW, targetH float64) (float64, float64) {
	scale := math.Max(targetW/imgW, targetH/imgH)
	return imgW * scale, imgH * scale
}

func safeDimensions(width, height int, fallbackW, fallbackH float64) (float64, float64) {
	if width <= 0 || height <= 0 {
		return fallbackW, fallbackH
	}
	return float64(width), float64(height)
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
