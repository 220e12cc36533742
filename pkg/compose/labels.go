package compose

import (
	"image"
	"image/color"
	"math"

	"github.com/disintegration/imaging"
	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/goregular"
	"golang.org/x/image/font/opentype"
	"golang.org/x/image/math/fixed"
)

// Label text drawn over each half when enabled
const (
	labelBefore = "Before"
	labelAfter  = "After"
)

// defaultWatermarkText is drawn bottom-right for non-pro exports
const defaultWatermarkText = "pose-composite"

// labelFace builds a scalable face for the given pixel size
func labelFace(size float64) (font.Face, error) {
	parsed, err := opentype.Parse(goregular.TTF)
	if err != nil {
		return nil, err
	}
	return opentype.NewFace(parsed, &opentype.FaceOptions{
		Size:    size,
		DPI:     72,
		Hinting: font.HintingFull,
	})
}

// drawLabels renders "Before" and "After" top-center of their halves with a
// drop shadow for legibility over arbitrary image content
func drawLabels(canvas *image.NRGBA, halfWidth, height int) error {
	size := float64(height) * 0.035
	if size < 12 {
		size = 12
	}
	face, err := labelFace(size)
	if err != nil {
		return err
	}
	defer face.Close()

	baseline := int(math.Round(float64(height) * 0.06))
	drawTextCentered(canvas, face, labelBefore, halfWidth/2, baseline)
	drawTextCentered(canvas, face, labelAfter, halfWidth+halfWidth/2, baseline)
	return nil
}

// drawTextCentered draws shadowed text centered horizontally on centerX
func drawTextCentered(dst *image.NRGBA, face font.Face, text string, centerX, baselineY int) {
	bounds, _ := font.BoundString(face, text)
	textWidth := (bounds.Max.X - bounds.Min.X).Ceil()
	x := centerX - textWidth/2

	shadow := &font.Drawer{
		Dst:  dst,
		Src:  image.NewUniform(color.NRGBA{0, 0, 0, 180}),
		Face: face,
		Dot:  fixed.P(x+2, baselineY+2),
	}
	shadow.DrawString(text)

	d := &font.Drawer{
		Dst:  dst,
		Src:  image.NewUniform(color.NRGBA{255, 255, 255, 255}),
		Face: face,
		Dot:  fixed.P(x, baselineY),
	}
	d.DrawString(text)
}

// applyWatermark overlays the bottom-right watermark. Pro exports either
// carry the caller's custom logo or nothing at all; everyone else gets the
// default text mark.
func applyWatermark(canvas *image.NRGBA, opts WatermarkOptions) (*image.NRGBA, error) {
	width := canvas.Bounds().Dx()
	height := canvas.Bounds().Dy()
	margin := int(math.Round(float64(height) * 0.015))
	if margin < 8 {
		margin = 8
	}

	if opts.IsPro {
		if opts.Logo == nil {
			return canvas, nil
		}
		logoWidth := int(math.Round(float64(width) * 0.12))
		if logoWidth < 1 {
			logoWidth = 1
		}
		logo := imaging.Resize(opts.Logo, logoWidth, 0, imaging.Lanczos)
		pos := image.Pt(width-logo.Bounds().Dx()-margin, height-logo.Bounds().Dy()-margin)
		return imaging.Overlay(canvas, logo, pos, 0.9), nil
	}

	size := float64(height) * 0.022
	if size < 10 {
		size = 10
	}
	face, err := labelFace(size)
	if err != nil {
		return nil, err
	}
	defer face.Close()

	bounds, _ := font.BoundString(face, defaultWatermarkText)
	textWidth := (bounds.Max.X - bounds.Min.X).Ceil()

	d := &font.Drawer{
		Dst:  canvas,
		Src:  image.NewUniform(color.NRGBA{255, 255, 255, 200}),
		Face: face,
		Dot:  fixed.P(width-textWidth-margin, height-margin),
	}
	d.DrawString(defaultWatermarkText)

	return canvas, nil
}
