// Package pose provides geometry utilities over normalized body-pose
// landmark sets: anchor center points and body-size references with
// visibility-based fallback strategies.
package pose

import (
	"math"

	"github.com/menta2k/pose-composite/pkg/types"
)

// VisibilityThreshold is the confidence cutoff below which a landmark is
// treated as not visible and excluded from geometric calculations.
const VisibilityThreshold = 0.5

// LandmarkCount is the fixed length of a usable pose. Shorter arrays are
// treated as entirely invalid, not partially valid.
const LandmarkCount = 33

// Fixed anatomical landmark indices (pose model convention)
const (
	Nose          = 0
	LeftShoulder  = 11
	RightShoulder = 12
	LeftHip       = 23
	RightHip      = 24
)

// Defaults substituted when a landmark set cannot supply a value
const (
	DefaultHeadY      = 0.1
	DefaultBodyHeight = 0.5
)

// Anchor selects the landmark subset used as the alignment reference
type Anchor int

const (
	AnchorHead Anchor = iota
	AnchorShoulders
	AnchorHips
	AnchorFull
)

// Indices returns the fixed landmark index subset for the anchor
func (a Anchor) Indices() []int {
	switch a {
	case AnchorHead:
		return []int{Nose}
	case AnchorShoulders:
		return []int{LeftShoulder, RightShoulder}
	case AnchorHips:
		return []int{LeftHip, RightHip}
	case AnchorFull:
		return []int{Nose, LeftHip, RightHip}
	default:
		return nil
	}
}

// String returns the anchor name as used in configuration and CLI flags
func (a Anchor) String() string {
	switch a {
	case AnchorHead:
		return "head"
	case AnchorShoulders:
		return "shoulders"
	case AnchorHips:
		return "hips"
	case AnchorFull:
		return "full"
	default:
		return "unknown"
	}
}

// ParseAnchor maps an anchor name to its Anchor value
func ParseAnchor(name string) (Anchor, bool) {
	switch name {
	case "head":
		return AnchorHead, true
	case "shoulders":
		return AnchorShoulders, true
	case "hips":
		return AnchorHips, true
	case "full":
		return AnchorFull, true
	}
	return AnchorHead, false
}

// Visible reports whether a landmark clears the visibility threshold
func Visible(lm types.Landmark) bool {
	return lm.Visibility >= VisibilityThreshold
}

// Usable reports whether a landmark set has the full fixed length
func Usable(landmarks []types.Landmark) bool {
	return len(landmarks) >= LandmarkCount
}

// CenterOf averages the positions of the landmarks at the given indices
// whose visibility clears the threshold. Qualifying points contribute
// equally; there is no partial-credit weighting by visibility. Returns
// false if no point qualifies.
func CenterOf(landmarks []types.Landmark, indices []int) (types.Point, bool) {
	var sumX, sumY float64
	count := 0

	for _, idx := range indices {
		if idx < 0 || idx >= len(landmarks) {
			continue
		}
		lm := landmarks[idx]
		if !Visible(lm) {
			continue
		}
		sumX += lm.X
		sumY += lm.Y
		count++
	}

	if count == 0 {
		return types.Point{}, false
	}
	return types.Point{X: sumX / float64(count), Y: sumY / float64(count)}, true
}

// bodyHeightStrategy attempts to derive a normalized body-size scalar from a
// landmark set. Strategies are tried in strict priority order; each returns
// false when the landmarks it needs are not visible.
type bodyHeightStrategy func(landmarks []types.Landmark) (float64, bool)

// Ordered fallback chain. Side-angle photos and tight crops frequently
// occlude one side of the body, so strict front-on assumptions would reject
// too many valid photos.
var bodyHeightStrategies = []bodyHeightStrategy{
	noseToHipCenter,
	noseToSingleHip,
	ShoulderToHip,
}

// BodyHeightReference returns a normalized scalar representing how tall the
// body appears in the image, used to compute cross-photo scale ratios.
// Returns false when no strategy succeeds; callers substitute
// DefaultBodyHeight.
func BodyHeightReference(landmarks []types.Landmark) (float64, bool) {
	if !Usable(landmarks) {
		return 0, false
	}
	for _, strategy := range bodyHeightStrategies {
		if ref, ok := strategy(landmarks); ok {
			return ref, true
		}
	}
	return 0, false
}

// noseToHipCenter requires the nose and both hips
func noseToHipCenter(landmarks []types.Landmark) (float64, bool) {
	nose := landmarks[Nose]
	left := landmarks[LeftHip]
	right := landmarks[RightHip]
	if !Visible(nose) || !Visible(left) || !Visible(right) {
		return 0, false
	}
	hipCenterY := (left.Y + right.Y) / 2
	return math.Abs(hipCenterY - nose.Y), true
}

// noseToSingleHip requires the nose and one hip, preferring the left
func noseToSingleHip(landmarks []types.Landmark) (float64, bool) {
	nose := landmarks[Nose]
	if !Visible(nose) {
		return 0, false
	}
	for _, idx := range []int{LeftHip, RightHip} {
		if hip := landmarks[idx]; Visible(hip) {
			return math.Abs(hip.Y - nose.Y), true
		}
	}
	return 0, false
}

// ShoulderToHip requires a shoulder and hip on the same side, preferring the
// left. It is the last body-height fallback and also serves as the primary
// size reference when the layout engine switches to shoulder alignment.
func ShoulderToHip(landmarks []types.Landmark) (float64, bool) {
	if !Usable(landmarks) {
		return 0, false
	}
	sides := [][2]int{{LeftShoulder, LeftHip}, {RightShoulder, RightHip}}
	for _, side := range sides {
		shoulder := landmarks[side[0]]
		hip := landmarks[side[1]]
		if Visible(shoulder) && Visible(hip) {
			return math.Abs(hip.Y - shoulder.Y), true
		}
	}
	return 0, false
}
