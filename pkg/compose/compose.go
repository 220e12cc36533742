// Package compose renders two aligned photos side by side into a single
// canvas and encodes the result. The left and right halves are independent
// clip regions; each full source image is blitted at its layout-computed
// draw rectangle and cropped by the clip, never by pre-cropping the source.
package compose

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/jpeg"
	"image/png"
	"math"
	"strings"

	"github.com/chai2010/webp"
	"github.com/disintegration/imaging"

	"github.com/menta2k/pose-composite/internal/utils"
	"github.com/menta2k/pose-composite/pkg/layout"
	"github.com/menta2k/pose-composite/pkg/types"
)

// Format is a target aspect ratio for the exported composite
type Format string

// Supported export formats
const (
	Format1x1  Format = "1:1"
	Format4x5  Format = "4:5"
	Format9x16 Format = "9:16"
)

// ParseFormat validates a format string
func ParseFormat(s string) (Format, error) {
	switch Format(s) {
	case Format1x1, Format4x5, Format9x16:
		return Format(s), nil
	}
	return "", fmt.Errorf("unsupported format: %q (use 1:1, 4:5 or 9:16)", s)
}

// HalfAspect returns the width/height ratio of one half-canvas
func (f Format) HalfAspect() float64 {
	switch f {
	case Format4x5:
		return 0.8
	case Format9x16:
		return 9.0 / 16.0
	default:
		return 1.0
	}
}

// HalfSize returns the provisional half-canvas dimensions at a base
// resolution. The actual output may be smaller after the dynamic crop.
func (f Format) HalfSize(resolution int) (int, int) {
	switch f {
	case Format4x5:
		return resolution, int(math.Round(float64(resolution) * 1.25))
	case Format9x16:
		return resolution, int(math.Round(float64(resolution) * 16.0 / 9.0))
	default:
		return resolution, resolution
	}
}

// Export option defaults and bounds
const (
	DefaultResolution = 1080
	DefaultQuality    = 0.92
	MinQuality        = 0.8
	MaxQuality        = 1.0
	DefaultEncoding   = "jpg"
)

// WatermarkOptions gates the watermark overlay. The compositor does not know
// why a watermark applies; it only receives the resolved flags.
type WatermarkOptions struct {
	IsPro bool
	Logo  image.Image
}

// Options configures a single export
type Options struct {
	Resolution    int     // 1080, 1440 or 2160; default 1080
	Quality       float64 // [0.8, 1.0]; default 0.92
	IncludeLabels bool
	Watermark     WatermarkOptions
	Encoding      string // jpg, png or webp; default jpg
}

// ExportResult is the encoded composite
type ExportResult struct {
	ImageBytes []byte
	Filename   string
	Width      int
	Height     int
}

// Compositor renders aligned before/after composites
type Compositor struct {
	engine *layout.Engine
}

// New creates a Compositor with the default layout engine
func New() *Compositor {
	return &Compositor{engine: layout.New()}
}

// NewWithEngine creates a Compositor around a custom-tuned layout engine
func NewWithEngine(engine *layout.Engine) *Compositor {
	return &Compositor{engine: engine}
}

// validateOptions applies defaults and rejects usage errors before any
// canvas work begins
func validateOptions(opts *Options) error {
	if opts.Resolution == 0 {
		opts.Resolution = DefaultResolution
	}
	switch opts.Resolution {
	case 1080, 1440, 2160:
	default:
		return fmt.Errorf("unsupported resolution: %d (use 1080, 1440 or 2160)", opts.Resolution)
	}

	if opts.Quality == 0 {
		opts.Quality = DefaultQuality
	}
	if opts.Quality < MinQuality || opts.Quality > MaxQuality {
		return fmt.Errorf("quality %.2f out of range [%.1f, %.1f]", opts.Quality, MinQuality, MaxQuality)
	}

	if opts.Encoding == "" {
		opts.Encoding = DefaultEncoding
	}
	switch strings.ToLower(opts.Encoding) {
	case "jpg", "jpeg", "png", "webp":
		opts.Encoding = strings.ToLower(opts.Encoding)
	default:
		return fmt.Errorf("unsupported encoding: %q (use jpg, png or webp)", opts.Encoding)
	}

	return nil
}

// Export runs the full pipeline for one composite: layout, dynamic crop,
// rendering and encoding. Geometry degrades gracefully on missing landmark
// data; option and image errors are raised before any allocation.
func (c *Compositor) Export(before, after types.Photo, format Format, opts Options) (*ExportResult, error) {
	if _, err := ParseFormat(string(format)); err != nil {
		return nil, err
	}
	if err := validateOptions(&opts); err != nil {
		return nil, err
	}
	if before.Image == nil || after.Image == nil {
		return nil, fmt.Errorf("both photos must carry decoded image data")
	}

	beforeW, beforeH := photoDimensions(before)
	afterW, afterH := photoDimensions(after)

	halfW, halfH := format.HalfSize(opts.Resolution)
	result := c.engine.CalculateAlignedDrawParams(beforeW, beforeH, afterW, afterH,
		before.Landmarks, after.Landmarks, float64(halfW), float64(halfH))
	spec := layout.FinalizeCanvas(result, float64(halfW), float64(halfH), format.HalfAspect())

	finalHalfW := int(math.Round(spec.HalfWidth))
	finalH := int(math.Round(spec.Height))
	finalW := finalHalfW * 2

	// Both halves are guaranteed fully covered; the background color is
	// never actually visible.
	canvas := imaging.New(finalW, finalH, color.White)

	leftClip := image.Rect(0, 0, finalHalfW, finalH)
	rightClip := image.Rect(finalHalfW, 0, finalW, finalH)
	drawClipped(canvas, before.Image, spec.Before, leftClip)
	drawClipped(canvas, after.Image, spec.After, rightClip)

	if opts.IncludeLabels {
		if err := drawLabels(canvas, finalHalfW, finalH); err != nil {
			return nil, fmt.Errorf("label rendering failed: %w", err)
		}
	}

	canvas, err := applyWatermark(canvas, opts.Watermark)
	if err != nil {
		return nil, fmt.Errorf("watermark rendering failed: %w", err)
	}

	imageBytes, err := encode(canvas, opts.Encoding, opts.Quality)
	if err != nil {
		return nil, fmt.Errorf("encoding failed: %w", err)
	}

	return &ExportResult{
		ImageBytes: imageBytes,
		Filename:   exportFilename(format, opts),
		Width:      finalW,
		Height:     finalH,
	}, nil
}

// drawClipped blits the full source image at its draw rectangle, restricted
// to the half's clip region
func drawClipped(canvas *image.NRGBA, src image.Image, p layout.DrawParams, clip image.Rectangle) {
	w := int(math.Round(p.DrawWidth))
	h := int(math.Round(p.DrawHeight))
	if w <= 0 || h <= 0 {
		return
	}

	scaled := imaging.Resize(src, w, h, imaging.Lanczos)

	originX := clip.Min.X + int(math.Round(p.DrawX))
	originY := int(math.Round(p.DrawY))
	target := image.Rect(originX, originY, originX+w, originY+h).Intersect(clip)
	if target.Empty() {
		return
	}

	srcOffset := image.Pt(target.Min.X-originX, target.Min.Y-originY)
	draw.Draw(canvas, target, scaled, srcOffset, draw.Src)
}

func photoDimensions(photo types.Photo) (int, int) {
	if photo.Width > 0 && photo.Height > 0 {
		return photo.Width, photo.Height
	}
	bounds := photo.Image.Bounds()
	return bounds.Dx(), bounds.Dy()
}

func exportFilename(format Format, opts Options) string {
	name := fmt.Sprintf("before-after_%s_%d", format, opts.Resolution)
	ext := opts.Encoding
	if ext == "jpeg" {
		ext = "jpg"
	}
	return utils.SanitizeFilename(name) + "." + ext
}

// encode serializes the canvas. Quality maps the contract's [0.8, 1.0] range
// onto the encoder's 1-100 scale; PNG ignores it.
func encode(img image.Image, encoding string, quality float64) ([]byte, error) {
	var buf bytes.Buffer
	q := int(math.Round(quality * 100))

	switch encoding {
	case "png":
		if err := png.Encode(&buf, img); err != nil {
			return nil, err
		}
	case "webp":
		if err := webp.Encode(&buf, img, &webp.Options{Quality: float32(q)}); err != nil {
			return nil, err
		}
	default: // jpg/jpeg
		if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: q}); err != nil {
			return nil, err
		}
	}

	return buf.Bytes(), nil
}
