package cover

import (
	"image"
	"image/color"
)

// GrayscaleAnalyzer classifies decoded bitmaps as effectively grayscale.
// Decoding is the caller's problem; this type only samples pixels.
//
// The thresholds are deliberately asymmetric: a low saturation bound
// decides whether one pixel is gray, while a high coverage bound decides
// whether the whole image is. That tolerates a small colored accent (a
// publisher stripe, a price sticker) on an otherwise black-and-white scan
// while still catching true grayscale photographs.
type GrayscaleAnalyzer struct {
	saturationMax float64
	coverageMin   float64
	stride        int
}

// NewGrayscaleAnalyzer creates an analyzer from the shared cover config.
func NewGrayscaleAnalyzer(cfg Config) *GrayscaleAnalyzer {
	cfg = cfg.normalized()
	return &GrayscaleAnalyzer{
		saturationMax: cfg.GraySaturationMax,
		coverageMin:   cfg.GrayCoverageMin,
		stride:        cfg.SampleStride,
	}
}

// IsEffectivelyGrayscale samples every Nth pixel in both dimensions and
// reports whether the gray fraction meets the coverage threshold. A nil
// or zero-size image is never grayscale. Images whose color model is
// already single-channel gray return true without sampling.
func (a *GrayscaleAnalyzer) IsEffectivelyGrayscale(img image.Image) bool {
	if img == nil {
		return false
	}

	model := img.ColorModel()
	if model == color.GrayModel || model == color.Gray16Model {
		return true
	}

	bounds := img.Bounds()
	if bounds.Dx() <= 0 || bounds.Dy() <= 0 {
		return false
	}

	var sampled, gray int
	for y := bounds.Min.Y; y < bounds.Max.Y; y += a.stride {
		for x := bounds.Min.X; x < bounds.Max.X; x += a.stride {
			sampled++
			if saturation(img.At(x, y)) <= a.saturationMax {
				gray++
			}
		}
	}

	if sampled == 0 {
		return false
	}
	return float64(gray)/float64(sampled) >= a.coverageMin
}

// saturation returns the HSB saturation of a color in [0, 1].
func saturation(c color.Color) float64 {
	r, g, b, _ := c.RGBA()

	max := r
	if g > max {
		max = g
	}
	if b > max {
		max = b
	}
	min := r
	if g < min {
		min = g
	}
	if b < min {
		min = b
	}

	if max == 0 {
		return 0
	}
	return float64(max-min) / float64(max)
}
