// Package posecomposite aligns before/after body transformation photos by
// their pose landmarks and renders them side by side into a single export.
//
// The alignment engine scales and positions both photos so the subject's
// head (or shoulders, when the head is cropped or occluded) lands at the
// same height in both halves, with the body sized consistently between them.
// The canvas is then cropped so neither half shows empty space below the
// shorter photo.
//
// Basic usage:
//
//	package main
//
//	import (
//		"log"
//		"os"
//
//		posecomposite "github.com/menta2k/pose-composite"
//		"github.com/menta2k/pose-composite/pkg/compose"
//	)
//
//	func main() {
//		exporter := posecomposite.New()
//
//		before, err := exporter.LoadPhoto("before.jpg")
//		if err != nil {
//			log.Fatal(err)
//		}
//		after, err := exporter.LoadPhoto("after.jpg")
//		if err != nil {
//			log.Fatal(err)
//		}
//
//		// Landmarks come from a pose detector; exports degrade to a
//		// plain side-by-side when they are missing.
//		result, err := exporter.Export(before, after, compose.Format1x1, compose.Options{
//			IncludeLabels: true,
//		})
//		if err != nil {
//			log.Fatal(err)
//		}
//
//		if err := os.WriteFile(result.Filename, result.ImageBytes, 0o644); err != nil {
//			log.Fatal(err)
//		}
//	}
//
// The package consists of the following components:
//
// 1. Pose (pkg/pose): Landmark geometry, visibility rules and body height reference
// 2. Align (pkg/align): Interactive alignment suggestions for manual adjustment
// 3. Layout (pkg/layout): Export layout engine and dynamic canvas cropping
// 4. Compose (pkg/compose): Side-by-side rendering, labels, watermark and encoding
// 5. Detect (pkg/detect): Vision-model landmark detection over Ollama or llama.cpp
package posecomposite

import (
	"fmt"
	"image"

	"github.com/menta2k/pose-composite/pkg/align"
	"github.com/menta2k/pose-composite/pkg/compose"
	"github.com/menta2k/pose-composite/pkg/layout"
	"github.com/menta2k/pose-composite/pkg/pose"
	"github.com/menta2k/pose-composite/pkg/processing"
	"github.com/menta2k/pose-composite/pkg/types"
)

// Version of the pose composite library
const Version = "1.0.0"

// Exporter provides a high-level interface for loading, aligning and
// compositing before/after photo pairs
type Exporter struct {
	processor  *processing.Processor
	compositor *compose.Compositor
}

// New creates a new Exporter with default layout tuning
func New() *Exporter {
	return &Exporter{
		processor:  processing.NewProcessor(),
		compositor: compose.New(),
	}
}

// NewWithConfig creates a new Exporter with custom layout tuning
func NewWithConfig(layoutConfig layout.Config) *Exporter {
	return &Exporter{
		processor:  processing.NewProcessor(),
		compositor: compose.NewWithEngine(layout.NewWithConfig(layoutConfig)),
	}
}

// LoadPhoto loads a photo from a file path or URL
func (e *Exporter) LoadPhoto(source string) (types.Photo, error) {
	return e.processor.LoadPhoto(source)
}

// NewPhoto wraps an already-decoded image
func (e *Exporter) NewPhoto(img image.Image, landmarks []types.Landmark) types.Photo {
	bounds := img.Bounds()
	return types.Photo{
		Image:     img,
		Width:     bounds.Dx(),
		Height:    bounds.Dy(),
		Landmarks: landmarks,
	}
}

// PreviewAlignment suggests scale and offset for interactive side-by-side
// comparison, anchored on the given body region
func (e *Exporter) PreviewAlignment(before, after types.Photo, anchor pose.Anchor) align.Result {
	return align.CalculateAlignment(before.Landmarks, after.Landmarks, anchor)
}

// CanPreviewAlignment reports whether both photos carry enough visible
// landmarks for the given anchor
func (e *Exporter) CanPreviewAlignment(before, after types.Photo, anchor pose.Anchor) bool {
	return align.CanCalculateAlignment(before.Landmarks, anchor) &&
		align.CanCalculateAlignment(after.Landmarks, anchor)
}

// Export renders the aligned composite and encodes it
func (e *Exporter) Export(before, after types.Photo, format compose.Format, opts compose.Options) (*compose.ExportResult, error) {
	result, err := e.compositor.Export(before, after, format, opts)
	if err != nil {
		return nil, fmt.Errorf("export failed: %w", err)
	}
	return result, nil
}

// GetVersion returns the library version
func GetVersion() string {
	return Version
}
