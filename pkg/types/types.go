package types

import "image"

// Landmark is a single detected body keypoint. X and Y are normalized to the
// source image's own coordinate space in [0,1]; Visibility is a confidence
// score in [0,1]. Extrapolated keypoints may carry coordinates outside [0,1].
type Landmark struct {
	X          float64 `json:"x"`
	Y          float64 `json:"y"`
	Z          float64 `json:"z"`
	Visibility float64 `json:"visibility"`
}

// Point is a normalized 2D position
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Photo is one side of a before/after pair. Landmarks stay nil until pose
// detection has run; the alignment engine only reads Width, Height and
// Landmarks and never mutates a Photo.
type Photo struct {
	Image     image.Image
	Width     int
	Height    int
	Landmarks []Landmark
}

// PoseResult contains the complete pose detection result from the vision model
type PoseResult struct {
	Landmarks   []Landmark `json:"landmarks"`
	Description string     `json:"description"`
}
