package media

import (
	"image"
	"image/color"

	"github.com/anthonynsimon/bild/effect"
	"github.com/disintegration/imaging"
)

const (
	threshold      = 180
	contrastFactor = 2.0
	scaleFactor    = 2
	medianRadius   = 1 // 3x3 window
)

// Preprocess prepares a scanned or photographed page for OCR:
// grayscale, binarize at 180, 3x3 median denoise, contrast x2, upscale x2.
// The output is black and white at twice the input dimensions.
func Preprocess(img image.Image) *image.NRGBA {
	gray := imaging.Grayscale(img)
	bin := binarize(gray, threshold)
	denoised := medianFilter(bin)
	contrasted := enhanceContrast(denoised, contrastFactor)

	b := contrasted.Bounds()
	return imaging.Resize(contrasted, b.Dx()*scaleFactor, b.Dy()*scaleFactor, imaging.NearestNeighbor)
}

func binarize(img *image.NRGBA, level uint8) *image.NRGBA {
	return imaging.AdjustFunc(img, func(c color.NRGBA) color.NRGBA {
		// grayscale input, so R is the luminance
		if c.R > level {
			return color.NRGBA{R: 255, G: 255, B: 255, A: 255}
		}
		return color.NRGBA{A: 255}
	})
}

// enhanceContrast scales each pixel's distance from the mean luminance by
// factor, clamping to [0, 255].
func enhanceContrast(img *image.NRGBA, factor float64) *image.NRGBA {
	mean := meanLuminance(img)
	return imaging.AdjustFunc(img, func(c color.NRGBA) color.NRGBA {
		v := clamp(mean + factor*(float64(c.R)-mean))
		return color.NRGBA{R: v, G: v, B: v, A: c.A}
	})
}

func meanLuminance(img *image.NRGBA) float64 {
	b := img.Bounds()
	n := b.Dx() * b.Dy()
	if n == 0 {
		return 0
	}
	var sum float64
	for y := b.Min.Y; y < b.Max.Y; y++ {
		row := img.Pix[img.PixOffset(b.Min.X, y):]
		for x := 0; x < b.Dx(); x++ {
			sum += float64(row[x*4])
		}
	}
	return sum / float64(n)
}

// medianFilter replaces each pixel with the median of its 3x3
// neighbourhood. Edges replicate the nearest pixel.
func medianFilter(img *image.NRGBA) *image.NRGBA {
	return imaging.Clone(effect.Median(img, medianRadius))
}

func clamp(v float64) uint8 {
	switch {
	case v < 0:
		return 0
	case v > 255:
		return 255
	default:
		return uint8(v + 0.5)
	}
}
