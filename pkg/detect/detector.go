package detect

import (
	"context"
	"fmt"
	"sync"

	"github.com/menta2k/pose-composite/pkg/client"
	"github.com/menta2k/pose-composite/pkg/pose"
	"github.com/menta2k/pose-composite/pkg/types"
)

// SimpleTestPrompt for testing if the model can see images
const SimpleTestPrompt = `What do you see in this image? Describe it briefly.`

// DefaultPrompt asks the vision model for the full 33-point landmark set
const DefaultPrompt = `You are a human pose landmark detector.

Return JSON only:
{
  "landmarks": [
    {"x": 0.0, "y": 0.0, "z": 0.0, "visibility": 0.0}
  ],
  "description": "short neutral sentence (<= 20 words)"
}

HARD RULES
- Return exactly 33 landmarks in standard pose order: 0 nose, 1-10 face,
  11 left shoulder, 12 right shoulder, 13-22 arms and hands,
  23 left hip, 24 right hip, 25-32 legs and feet.
- x and y are normalized to [0,1] relative to image width and height (NOT pixels).
- Landmarks outside the frame keep their extrapolated x/y and get visibility below 0.5.
- visibility is in [0,1]: 1.0 fully visible, 0.0 absent or fully occluded.
- z is relative depth; use 0.0 if unknown.
- If no person is visible, return {"landmarks": [], "description": "no person detected"}.
- JSON only. No markdown, no code fences, no comments, no trailing commas.`

// Detector resolves pose landmarks through a vision-model backend. A single
// initialization survives for the process lifetime; repeated Init calls are
// no-ops until Reset.
type Detector struct {
	client client.VisionClient

	mu          sync.Mutex
	model       string
	initialized bool
}

// NewDetector creates a new detector around a vision client
func NewDetector(client client.VisionClient) *Detector {
	return &Detector{client: client}
}

// Init verifies the backend once and records the model to use. Subsequent
// calls return immediately until Reset is called.
func (d *Detector) Init(ctx context.Context, model string) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.initialized {
		return nil
	}
	if model == "" {
		return fmt.Errorf("model name is required")
	}

	d.model = model
	d.initialized = true
	return nil
}

// IsReady reports whether Init has completed
func (d *Detector) IsReady() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.initialized
}

// Reset clears the initialized state so the next Init takes effect
func (d *Detector) Reset() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.model = ""
	d.initialized = false
}

// DetectPose runs landmark detection on a base64-encoded image
func (d *Detector) DetectPose(ctx context.Context, imageB64 string) (*types.PoseResult, error) {
	d.mu.Lock()
	model := d.model
	ready := d.initialized
	d.mu.Unlock()

	if !ready {
		return nil, fmt.Errorf("detector not initialized")
	}

	return d.DetectPoseWithPrompt(ctx, model, imageB64, DefaultPrompt)
}

// DetectPoseWithPrompt runs landmark detection with a custom prompt
func (d *Detector) DetectPoseWithPrompt(ctx context.Context, model, imageB64, prompt string) (*types.PoseResult, error) {
	result, err := d.client.DetectPose(ctx, model, prompt, imageB64)
	if err != nil {
		return nil, err
	}

	result.Landmarks = normalizeLandmarks(result.Landmarks)
	return result, nil
}

// TestVision tests if the model can actually see the image with a simple prompt
func (d *Detector) TestVision(ctx context.Context, model, imageB64 string) (string, error) {
	return d.client.SimpleQuery(ctx, model, SimpleTestPrompt, imageB64)
}

// normalizeLandmarks validates the detected set. Incomplete sets are dropped
// entirely so downstream geometry falls back to landmark-free layout instead
// of misreading shifted indices. X and Y stay unclamped: off-frame landmarks
// legitimately carry extrapolated coordinates outside [0,1].
func normalizeLandmarks(landmarks []types.Landmark) []types.Landmark {
	if len(landmarks) < pose.LandmarkCount {
		return nil
	}

	out := make([]types.Landmark, pose.LandmarkCount)
	for i := 0; i < pose.LandmarkCount; i++ {
		lm := landmarks[i]
		lm.Visibility = clamp(lm.Visibility, 0, 1)
		out[i] = lm
	}
	return out
}

// clamp ensures a value is within the given bounds
func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
