package client

import (
	"context"

	"github.com/menta2k/pose-composite/pkg/types"
)

// VisionClient abstracts the vision-model backend used for pose detection.
// Implementations send one image per call and return either structured
// landmarks or free-form text.
type VisionClient interface {
	SimpleQuery(ctx context.Context, model, prompt, imgB64 string) (string, error)
	DetectPose(ctx context.Context, model, prompt, imgB64 string) (*types.PoseResult, error)
}
