package detect

import (
	"context"
	"fmt"
	"testing"

	"github.com/menta2k/pose-composite/pkg/pose"
	"github.com/menta2k/pose-composite/pkg/types"
)

// mockVisionClient returns canned responses for testing the detector wrapper
type mockVisionClient struct {
	result *types.PoseResult
	err    error
	calls  int
}

func (m *mockVisionClient) SimpleQuery(ctx context.Context, model, prompt, imgB64 string) (string, error) {
	return "a person standing", nil
}

func (m *mockVisionClient) DetectPose(ctx context.Context, model, prompt, imgB64 string) (*types.PoseResult, error) {
	m.calls++
	if m.err != nil {
		return nil, m.err
	}
	return m.result, nil
}

func fullLandmarkSet() []types.Landmark {
	landmarks := make([]types.Landmark, pose.LandmarkCount)
	for i := range landmarks {
		landmarks[i] = types.Landmark{X: 0.5, Y: 0.5, Visibility: 1.0}
	}
	return landmarks
}

func TestInitIsIdempotent(t *testing.T) {
	detector := NewDetector(&mockVisionClient{})
	ctx := context.Background()

	if detector.IsReady() {
		t.Fatal("detector must not be ready before Init")
	}

	if err := detector.Init(ctx, "test-model"); err != nil {
		t.Fatalf("first Init failed: %v", err)
	}
	if !detector.IsReady() {
		t.Fatal("detector must be ready after Init")
	}

	// A second Init with a different model must be a no-op
	if err := detector.Init(ctx, "other-model"); err != nil {
		t.Fatalf("repeated Init failed: %v", err)
	}
	if detector.model != "test-model" {
		t.Errorf("repeated Init replaced the model: %q", detector.model)
	}
}

func TestInitRequiresModel(t *testing.T) {
	detector := NewDetector(&mockVisionClient{})
	if err := detector.Init(context.Background(), ""); err == nil {
		t.Error("expected error for empty model name")
	}
}

func TestResetAllowsReinit(t *testing.T) {
	detector := NewDetector(&mockVisionClient{})
	ctx := context.Background()

	if err := detector.Init(ctx, "first"); err != nil {
		t.Fatalf("Init failed: %v", err)
	}
	detector.Reset()
	if detector.IsReady() {
		t.Fatal("detector must not be ready after Reset")
	}

	if err := detector.Init(ctx, "second"); err != nil {
		t.Fatalf("re-Init failed: %v", err)
	}
	if detector.model != "second" {
		t.Errorf("Reset+Init did not take the new model: %q", detector.model)
	}
}

func TestDetectPoseRequiresInit(t *testing.T) {
	detector := NewDetector(&mockVisionClient{result: &types.PoseResult{}})
	if _, err := detector.DetectPose(context.Background(), "aW1n"); err == nil {
		t.Error("expected error before Init")
	}
}

func TestDetectPosePassesThroughFullSet(t *testing.T) {
	mock := &mockVisionClient{result: &types.PoseResult{Landmarks: fullLandmarkSet()}}
	detector := NewDetector(mock)
	ctx := context.Background()

	if err := detector.Init(ctx, "test-model"); err != nil {
		t.Fatalf("Init failed: %v", err)
	}

	result, err := detector.DetectPose(ctx, "aW1n")
	if err != nil {
		t.Fatalf("DetectPose failed: %v", err)
	}
	if len(result.Landmarks) != pose.LandmarkCount {
		t.Errorf("expected %d landmarks, got %d", pose.LandmarkCount, len(result.Landmarks))
	}
	if mock.calls != 1 {
		t.Errorf("expected one backend call, got %d", mock.calls)
	}
}

func TestDetectPoseDropsIncompleteSets(t *testing.T) {
	short := fullLandmarkSet()[:20]
	mock := &mockVisionClient{result: &types.PoseResult{Landmarks: short}}
	detector := NewDetector(mock)
	ctx := context.Background()

	if err := detector.Init(ctx, "test-model"); err != nil {
		t.Fatalf("Init failed: %v", err)
	}

	result, err := detector.DetectPose(ctx, "aW1n")
	if err != nil {
		t.Fatalf("DetectPose failed: %v", err)
	}
	if result.Landmarks != nil {
		t.Errorf("incomplete sets must be dropped, got %d landmarks", len(result.Landmarks))
	}
}

func TestDetectPoseClampsVisibilityOnly(t *testing.T) {
	landmarks := fullLandmarkSet()
	landmarks[pose.Nose] = types.Landmark{X: -0.2, Y: 1.4, Visibility: 1.7}
	landmarks[pose.LeftHip] = types.Landmark{X: 0.5, Y: 0.6, Visibility: -0.3}

	mock := &mockVisionClient{result: &types.PoseResult{Landmarks: landmarks}}
	detector := NewDetector(mock)
	ctx := context.Background()

	if err := detector.Init(ctx, "test-model"); err != nil {
		t.Fatalf("Init failed: %v", err)
	}

	result, err := detector.DetectPose(ctx, "aW1n")
	if err != nil {
		t.Fatalf("DetectPose failed: %v", err)
	}

	nose := result.Landmarks[pose.Nose]
	if nose.Visibility != 1.0 {
		t.Errorf("visibility must clamp to 1.0, got %f", nose.Visibility)
	}
	// Off-frame coordinates stay extrapolated
	if nose.X != -0.2 || nose.Y != 1.4 {
		t.Errorf("coordinates must not be clamped: %+v", nose)
	}
	if result.Landmarks[pose.LeftHip].Visibility != 0 {
		t.Errorf("negative visibility must clamp to 0, got %f", result.Landmarks[pose.LeftHip].Visibility)
	}
}

func TestDetectPosePropagatesBackendErrors(t *testing.T) {
	mock := &mockVisionClient{err: fmt.Errorf("connection refused")}
	detector := NewDetector(mock)
	ctx := context.Background()

	if err := detector.Init(ctx, "test-model"); err != nil {
		t.Fatalf("Init failed: %v", err)
	}
	if _, err := detector.DetectPose(ctx, "aW1n"); err == nil {
		t.Error("expected backend error to propagate")
	}
}
