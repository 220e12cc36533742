package align

import (
	"math"
	"testing"

	"github.com/menta2k/pose-composite/pkg/pose"
	"github.com/menta2k/pose-composite/pkg/types"
)

const tolerance = 1e-2

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

func TestIdentityProperty(t *testing.T) {
	landmarks := makePose(0.2, 0.35, 0.6)
	anchors := []pose.Anchor{pose.AnchorHead, pose.AnchorShoulders, pose.AnchorHips, pose.AnchorFull}

	for _, anchor := range anchors {
		result := CalculateAlignment(landmarks, landmarks, anchor)
		if math.Abs(result.Scale-1) > tolerance {
			t.Errorf("%s: expected scale 1, got %f", anchor, result.Scale)
		}
		if math.Abs(result.OffsetX) > tolerance || math.Abs(result.OffsetY) > tolerance {
			t.Errorf("%s: expected zero offset, got (%f, %f)", anchor, result.OffsetX, result.OffsetY)
		}
	}
}

func TestScaleFromBodyHeightRatio(t *testing.T) {
	before := makePose(0.2, 0.3, 0.6) // body height 0.4
	after := makePose(0.2, 0.35, 0.8) // body height 0.6

	result := CalculateAlignment(before, after, pose.AnchorHead)
	expected := 0.4 / 0.6
	if math.Abs(result.Scale-expected) > tolerance {
		t.Errorf("expected scale %f, got %f", expected, result.Scale)
	}
}

func TestScaleMonotonicity(t *testing.T) {
	// before body taller than after: shrink (scale < 1) and vice versa
	tall := makePose(0.1, 0.25, 0.7)  // 0.6
	short := makePose(0.3, 0.4, 0.6)  // 0.3

	if r := CalculateAlignment(short, tall, pose.AnchorHead); r.Scale >= 1 {
		t.Errorf("smaller before body must shrink the after photo, got scale %f", r.Scale)
	}
	if r := CalculateAlignment(tall, short, pose.AnchorHead); r.Scale <= 1 {
		t.Errorf("larger before body must grow the after photo, got scale %f", r.Scale)
	}
}

func TestScaleClampUpper(t *testing.T) {
	before := makePose(0.05, 0.2, 0.85) // body height 0.8
	after := makePose(0.4, 0.45, 0.6)   // body height 0.2, raw ratio 4

	result := CalculateAlignment(before, after, pose.AnchorHead)
	if result.Scale != MaxScale {
		t.Errorf("expected scale clamped to exactly %f, got %f", MaxScale, result.Scale)
	}
}

func TestScaleClampLower(t *testing.T) {
	before := makePose(0.4, 0.45, 0.5)  // body height 0.1
	after := makePose(0.05, 0.2, 0.85)  // body height 0.8, raw ratio 0.125

	result := CalculateAlignment(before, after, pose.AnchorHead)
	if result.Scale != MinScale {
		t.Errorf("expected scale clamped to exactly %f, got %f", MinScale, result.Scale)
	}
}

func TestOffsetMovesScaledAnchorOntoBefore(t *testing.T) {
	before := makePose(0.25, 0.35, 0.65) // body 0.4
	after := makePose(0.15, 0.3, 0.65)   // body 0.5

	result := CalculateAlignment(before, after, pose.AnchorHead)

	// Re-derive where the after nose lands under the returned transform
	scaledY := 0.5 + (0.15-0.5)*result.Scale
	if math.Abs(scaledY+result.OffsetY-0.25) > 1e-9 {
		t.Errorf("after anchor does not land on before anchor: %f", scaledY+result.OffsetY)
	}
	scaledX := 0.5 + (0.5-0.5)*result.Scale
	if math.Abs(scaledX+result.OffsetX-0.5) > 1e-9 {
		t.Errorf("after anchor X does not land on before anchor X")
	}
}

func TestShortArrayReturnsIdentity(t *testing.T) {
	short := make([]types.Landmark, 2)
	full := makePose(0.2, 0.35, 0.6)

	result := CalculateAlignment(short, full, pose.AnchorHead)
	if result != Identity() {
		t.Errorf("expected identity for short landmark array, got %+v", result)
	}

	result = CalculateAlignment(full, nil, pose.AnchorHead)
	if result != Identity() {
		t.Errorf("expected identity for nil landmark array, got %+v", result)
	}
}

func TestNoVisibleAnchorReturnsIdentity(t *testing.T) {
	before := makePose(0.2, 0.35, 0.6)
	after := makePose(0.2, 0.35, 0.6)
	after[pose.Nose].Visibility = 0.1

	result := CalculateAlignment(before, after, pose.AnchorHead)
	if result != Identity() {
		t.Errorf("expected identity when anchor is occluded, got %+v", result)
	}
}

func TestCanCalculateAlignment(t *testing.T) {
	landmarks := makePose(0.2, 0.35, 0.6)

	if !CanCalculateAlignment(landmarks, pose.AnchorHead) {
		t.Error("head anchor should be computable with visible nose")
	}

	// Head anchor requires its single point
	landmarks[pose.Nose].Visibility = 0.2
	if CanCalculateAlignment(landmarks, pose.AnchorHead) {
		t.Error("head anchor requires the nose to be visible")
	}

	// Shoulders need at least one of two
	landmarks[pose.LeftShoulder].Visibility = 0.2
	if !CanCalculateAlignment(landmarks, pose.AnchorShoulders) {
		t.Error("one visible shoulder should suffice")
	}
	landmarks[pose.RightShoulder].Visibility = 0.2
	if CanCalculateAlignment(landmarks, pose.AnchorShoulders) {
		t.Error("no visible shoulders should fail")
	}

	// Full anchor has three points, needs two visible
	full := makePose(0.2, 0.35, 0.6)
	full[pose.Nose].Visibility = 0.1
	if !CanCalculateAlignment(full, pose.AnchorFull) {
		t.Error("two of three visible points should suffice for full anchor")
	}
	full[pose.LeftHip].Visibility = 0.1
	if CanCalculateAlignment(full, pose.AnchorFull) {
		t.Error("one of three visible points should fail for full anchor")
	}

	if CanCalculateAlignment(make([]types.Landmark, 10), pose.AnchorHead) {
		t.Error("short arrays are never alignable")
	}
}

func BenchmarkCalculateAlignment(b *testing.B) {
	before := makePose(0.2, 0.3, 0.6)
	after := makePose(0.25, 0.35, 0.7)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		CalculateAlignment(before, after, pose.AnchorHead)
	}
}
