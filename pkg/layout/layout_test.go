package layout

import (
	"math"
	"testing"

	"github.com/menta2k/pose-composite/pkg/pose"
	"github.com/menta2k/pose-composite/pkg/types"
)

// makePose builds a full landmark set with nose, shoulders and hips at the
// given vertical positions, horizontally centered and fully visible
func makePose(noseY, shoulderY, hipY float64) []types.Landmark {
	landmarks := make([]types.Landmark, pose.LandmarkCount)
	for i := range landmarks {
		landmarks[i] = types.Landmark{X: 0.5, Y: 0.5, Visibility: 1.0}
	}
	landmarks[pose.Nose] = types.Landmark{X: 0.5, Y: noseY, Visibility: 1.0}
	landmarks[pose.LeftShoulder] = types.Landmark{X: 0.45, Y: shoulderY, Visibility: 1.0}
	landmarks[pose.RightShoulder] = types.Landmark{X: 0.55, Y: shoulderY, Visibility: 1.0}
	landmarks[pose.LeftHip] = types.Landmark{X: 0.47, Y: hipY, Visibility: 1.0}
	landmarks[pose.RightHip] = types.Landmark{X: 0.53, Y: hipY, Visibility: 1.0}
	return landmarks
}

func assertFiniteParams(t *testing.T, name string, p DrawParams) {
	t.Helper()
	values := []float64{p.DrawX, p.DrawY, p.DrawWidth, p.DrawHeight}
	for _, v := range values {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			t.Fatalf("%s: non-finite draw params %+v", name, p)
		}
	}
	if p.DrawWidth <= 0 || p.DrawHeight <= 0 {
		t.Fatalf("%s: non-positive draw size %+v", name, p)
	}
}

// assertNoWhitespace checks the invariant that rendering never exposes the
// canvas background inside the photo region
func assertNoWhitespace(t *testing.T, name string, p DrawParams, targetW, targetH float64) {
	t.Helper()
	const eps = 1e-6
	if p.DrawY > eps {
		t.Errorf("%s: drawY %f would expose top whitespace", name, p.DrawY)
	}
	if p.DrawX > eps {
		t.Errorf("%s: drawX %f would expose left whitespace", name, p.DrawX)
	}
	if p.DrawX+p.DrawWidth < targetW-eps {
		t.Errorf("%s: right edge %f short of target width %f", name, p.DrawX+p.DrawWidth, targetW)
	}
	if p.DrawWidth < targetW-eps {
		t.Errorf("%s: drawWidth %f below cover-fit width %f", name, p.DrawWidth, targetW)
	}
	if p.DrawHeight < targetH-eps {
		t.Errorf("%s: drawHeight %f below cover-fit height %f", name, p.DrawHeight, targetH)
	}
}

func TestGracefulDegradationWithoutLandmarks(t *testing.T) {
	engine := New()

	result := engine.CalculateAlignedDrawParams(1000, 1500, 800, 1200, nil, nil, 1080, 1080)

	assertFiniteParams(t, "before", result.Before)
	assertFiniteParams(t, "after", result.After)
	assertNoWhitespace(t, "before", result.Before, 1080, 1080)
	assertNoWhitespace(t, "after", result.After, 1080, 1080)

	if result.UseShoulderAlignment {
		t.Error("absent landmarks must not trigger the shoulder fallback")
	}

	// Minimum overflow must still be honored
	if result.Before.DrawHeight < 1.15*1080-1e-6 {
		t.Errorf("before height %f below minimum overflow", result.Before.DrawHeight)
	}
	if result.After.DrawHeight < 1.15*1080-1e-6 {
		t.Errorf("after height %f below minimum overflow", result.After.DrawHeight)
	}
}

func TestGracefulDegradationShortArrays(t *testing.T) {
	engine := New()
	short := make([]types.Landmark, 2)

	result := engine.CalculateAlignedDrawParams(1000, 1500, 800, 1200, short, short, 1080, 1350)
	assertFiniteParams(t, "before", result.Before)
	assertFiniteParams(t, "after", result.After)
}

func TestGracefulDegradationZeroDimensions(t *testing.T) {
	engine := New()

	result := engine.CalculateAlignedDrawParams(0, 0, -5, 10, nil, nil, 1080, 1080)
	assertFiniteParams(t, "before", result.Before)
	assertFiniteParams(t, "after", result.After)
}

func TestHeadAlignmentConvergence(t *testing.T) {
	engine := New()
	before := makePose(0.15, 0.3, 0.55)
	after := makePose(0.30, 0.45, 0.75)

	result := engine.CalculateAlignedDrawParams(1000, 1500, 800, 1600, before, after, 1080, 1080)

	headBefore := 0.15*result.Before.DrawHeight + result.Before.DrawY
	headAfter := 0.30*result.After.DrawHeight + result.After.DrawY

	if delta := math.Abs(headBefore - headAfter); delta > 2 {
		t.Errorf("head positions diverge by %fpx (before %f, after %f)", delta, headBefore, headAfter)
	}

	if result.UseShoulderAlignment {
		t.Error("visible heads must not trigger the shoulder fallback")
	}
}

func TestHeadroomBand(t *testing.T) {
	engine := New()
	cfg := engine.Config()
	before := makePose(0.15, 0.3, 0.55)
	after := makePose(0.30, 0.45, 0.75)

	targetH := 1080.0
	result := engine.CalculateAlignedDrawParams(1000, 1500, 800, 1600, before, after, 1080, targetH)

	for name, p := range map[string]DrawParams{"before": result.Before, "after": result.After} {
		headY := map[string]float64{"before": 0.15, "after": 0.30}[name]*p.DrawHeight + p.DrawY
		if headY < cfg.HeadroomMin*targetH-1e-6 {
			t.Errorf("%s: head at %f sits above the headroom band", name, headY)
		}
		if headY > cfg.HeadroomMax*targetH+1e-6 {
			t.Errorf("%s: head at %f sits below the headroom band", name, headY)
		}
	}
}

func TestBodyScaleApplied(t *testing.T) {
	engine := New()
	// References 0.2914 and 0.1974 (ratio 1.4762) from a real photo pair;
	// must not be clamped.
	before := makePose(0.2, 0.3, 0.4914)
	after := makePose(0.2, 0.3, 0.3974)

	// Same source dimensions so cover-fit cancels out of the ratio
	result := engine.CalculateAlignedDrawParams(1000, 1500, 1000, 1500, before, after, 1080, 1080)

	ratio := result.After.DrawHeight / result.Before.DrawHeight
	if ratio <= 1.3 || ratio > 1.60 {
		t.Errorf("expected unclamped draw height ratio in (1.3, 1.60], got %f", ratio)
	}
	expected := 0.2914 / 0.1974
	if math.Abs(ratio-expected) > 1e-3 {
		t.Errorf("expected ratio %f, got %f", expected, ratio)
	}
}

func TestBodyScaleClampBoundedness(t *testing.T) {
	engine := New()
	cfg := engine.Config()

	pairs := [][2]float64{
		{0.8, 0.2},  // raw ratio 4, clamps high
		{0.1, 0.8},  // raw ratio 0.125, clamps low
		{0.5, 0.45}, // mild, unclamped
		{0.3, 0.3},  // identity
	}

	for _, refs := range pairs {
		before := makePose(0.1, 0.2, 0.1+refs[0])
		after := makePose(0.1, 0.2, 0.1+refs[1])
		result := engine.CalculateAlignedDrawParams(900, 1600, 900, 1600, before, after, 1080, 1920)

		ratio := result.After.DrawHeight / result.Before.DrawHeight
		if ratio < cfg.MinBodyScale-1e-9 || ratio > cfg.MaxBodyScale+1e-9 {
			t.Errorf("refs %v: effective scale %f escapes [%f, %f]",
				refs, ratio, cfg.MinBodyScale, cfg.MaxBodyScale)
		}
	}
}

func TestBodyScaleClampsToExactBoundary(t *testing.T) {
	engine := New()
	before := makePose(0.05, 0.15, 0.85) // reference 0.8
	after := makePose(0.4, 0.45, 0.6)    // reference 0.2, raw ratio 4

	result := engine.CalculateAlignedDrawParams(1000, 1500, 1000, 1500, before, after, 1080, 1080)

	ratio := result.After.DrawHeight / result.Before.DrawHeight
	if math.Abs(ratio-engine.Config().MaxBodyScale) > 1e-9 {
		t.Errorf("expected ratio exactly at clamp boundary %f, got %f",
			engine.Config().MaxBodyScale, ratio)
	}
}

func TestScaleMonotonicity(t *testing.T) {
	engine := New()
	smaller := makePose(0.2, 0.3, 0.5)  // reference 0.3
	larger := makePose(0.15, 0.25, 0.6) // reference 0.45

	result := engine.CalculateAlignedDrawParams(1000, 1500, 1000, 1500, smaller, larger, 1080, 1080)
	if ratio := result.After.DrawHeight / result.Before.DrawHeight; ratio >= 1 {
		t.Errorf("before body smaller than after must shrink the after photo, ratio %f", ratio)
	}

	result = engine.CalculateAlignedDrawParams(1000, 1500, 1000, 1500, larger, smaller, 1080, 1080)
	if ratio := result.After.DrawHeight / result.Before.DrawHeight; ratio <= 1 {
		t.Errorf("before body larger than after must grow the after photo, ratio %f", ratio)
	}
}

func TestShoulderFallbackForCroppedHead(t *testing.T) {
	engine := New()
	before := makePose(0.15, 0.3, 0.55)
	after := makePose(-0.05, 0.1, 0.45) // nose extrapolated above the frame

	result := engine.CalculateAlignedDrawParams(1000, 1500, 800, 1600, before, after, 1080, 1080)

	if !result.UseShoulderAlignment {
		t.Fatal("expected shoulder alignment for a head above the visible frame")
	}
	assertFiniteParams(t, "before", result.Before)
	assertFiniteParams(t, "after", result.After)

	// Shoulder centers must converge instead of heads
	shoulderBefore := 0.3*result.Before.DrawHeight + result.Before.DrawY
	shoulderAfter := 0.1*result.After.DrawHeight + result.After.DrawY
	if delta := math.Abs(shoulderBefore - shoulderAfter); delta > 2 {
		t.Errorf("shoulder positions diverge by %fpx", delta)
	}
}

func TestShoulderFallbackForOccludedHead(t *testing.T) {
	engine := New()
	before := makePose(0.15, 0.3, 0.55)
	before[pose.Nose].Visibility = 0.2
	after := makePose(0.2, 0.35, 0.6)

	result := engine.CalculateAlignedDrawParams(1000, 1500, 800, 1600, before, after, 1080, 1350)
	if !result.UseShoulderAlignment {
		t.Error("expected shoulder alignment for an occluded head")
	}
}

func TestNoWhitespaceAcrossScenarios(t *testing.T) {
	engine := New()

	scenarios := []struct {
		name                 string
		beforeLms, afterLms  []types.Landmark
		bw, bh, aw, ah       int
		targetW, targetH     float64
	}{
		{"landscape sources", makePose(0.2, 0.3, 0.6), makePose(0.25, 0.35, 0.65), 2000, 1200, 1800, 1000, 1080, 1350},
		{"portrait sources", makePose(0.1, 0.25, 0.5), makePose(0.3, 0.4, 0.8), 900, 1800, 1000, 2000, 1080, 1920},
		{"no landmarks", nil, nil, 640, 480, 480, 640, 1080, 1080},
		{"cropped head", makePose(-0.03, 0.1, 0.4), makePose(0.2, 0.35, 0.6), 1200, 1600, 1100, 1500, 1440, 1800},
	}

	for _, sc := range scenarios {
		result := engine.CalculateAlignedDrawParams(sc.bw, sc.bh, sc.aw, sc.ah, sc.beforeLms, sc.afterLms, sc.targetW, sc.targetH)
		assertNoWhitespace(t, sc.name+"/before", result.Before, sc.targetW, sc.targetH)
		assertNoWhitespace(t, sc.name+"/after", result.After, sc.targetW, sc.targetH)
	}
}

func TestOffCenterSubjectAlignsAnchorX(t *testing.T) {
	engine := New()
	before := makePose(0.2, 0.3, 0.6)
	after := makePose(0.2, 0.3, 0.6)
	// Shift the after subject slightly left of frame; landscape sources
	// leave enough horizontal slack to line the anchors up
	for _, idx := range []int{pose.Nose, pose.LeftShoulder, pose.RightShoulder, pose.LeftHip, pose.RightHip} {
		after[idx].X -= 0.05
	}

	result := engine.CalculateAlignedDrawParams(2000, 1200, 2000, 1200, before, after, 1080, 1080)

	anchorBeforeX := 0.5*result.Before.DrawWidth + result.Before.DrawX
	anchorAfterX := 0.45*result.After.DrawWidth + result.After.DrawX
	if delta := math.Abs(anchorBeforeX - anchorAfterX); delta > 2 {
		t.Errorf("anchor X positions diverge by %fpx", delta)
	}
}

func TestExtremeOffCenterBoundedByCropLimit(t *testing.T) {
	engine := New()
	cfg := engine.Config()
	before := makePose(0.2, 0.3, 0.6)
	after := makePose(0.2, 0.3, 0.6)
	// Subject hugging the frame edge
	for _, idx := range []int{pose.Nose, pose.LeftShoulder, pose.RightShoulder, pose.LeftHip, pose.RightHip} {
		after[idx].X = 0.02
	}

	result := engine.CalculateAlignedDrawParams(2000, 1200, 2000, 1200, before, after, 1080, 1080)
	assertNoWhitespace(t, "after", result.After, 1080, 1080)

	centered := (1080 - result.After.DrawWidth) / 2
	shift := result.After.DrawX - centered
	if math.Abs(shift) > cfg.MaxSideCrop*result.After.DrawWidth+1e-6 {
		t.Errorf("horizontal shift %f exceeds the per-side crop bound", shift)
	}
}

func BenchmarkCalculateAlignedDrawParams(b *testing.B) {
	engine := New()
	before := makePose(0.15, 0.3, 0.55)
	after := makePose(0.30, 0.45, 0.75)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		engine.CalculateAlignedDrawParams(1000, 1500, 800, 1600, before, after, 1080, 1080)
	}
}
