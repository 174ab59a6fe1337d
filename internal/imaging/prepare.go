package imaging

import (
	"image"
	"image/draw"
	"math"

	"github.com/anthonynsimon/bild/effect"
	"github.com/anthonynsimon/bild/segment"
	"github.com/disintegration/imaging"
)

// NoiseSigma is the Gaussian blur applied before binarization.
var NoiseSigma = math.Sqrt2

// Prepare converts a scan into a black-and-white image ready for polygon
// detection and sampling: grayscale, a light Gaussian blur to remove
// high-frequency noise, then a global Otsu threshold. Dark pixels are 0 and
// background pixels 255. The source image is not modified.
func Prepare(img image.Image) *image.Gray {
	gray := imaging.Grayscale(img)
	blurred := imaging.Blur(gray, NoiseSigma)
	level := OtsuLevel(histogram(blurred))
	return segment.Threshold(blurred, level)
}

// Dilate grows the light areas of a prepared scan by one pixel, thinning
// dark strokes. Solid marks survive; printed letters and bubble outlines
// lose much of their weight, so they contribute less to fill ratios.
func Dilate(img *image.Gray) *image.Gray {
	return toGray(effect.Dilate(img, 1))
}

// histogram counts the red channel of a grayscale NRGBA image.
func histogram(img *image.NRGBA) []uint {
	hist := make([]uint, 256)
	b := img.Bounds()
	for y := 0; y < b.Dy(); y++ {
		row := img.Pix[y*img.Stride : y*img.Stride+b.Dx()*4]
		for x := 0; x < len(row); x += 4 {
			hist[row[x]]++
		}
	}
	return hist
}

// OtsuLevel returns the gray level that maximizes the between-class
// variance of hist. Pixels below the level form the dark class. A histogram
// with a single populated level returns 0.
func OtsuLevel(hist []uint) uint8 {
	var total, sum uint
	for i, n := range hist {
		total += n
		sum += uint(i) * n
	}

	var weightB, sumB uint
	best, bestVar := 0, 0.0
	for i := 1; i < len(hist) && i < 256; i++ {
		weightB += hist[i-1]
		sumB += uint(i-1) * hist[i-1]
		if weightB == 0 || weightB >= total {
			continue
		}

		weightF := total - weightB
		meanB := float64(sumB) / float64(weightB)
		meanF := float64(sum-sumB) / float64(weightF)
		v := float64(weightB) * float64(weightF) * (meanB - meanF) * (meanB - meanF)
		if v >= bestVar {
			best, bestVar = i, v
		}
	}
	return uint8(best)
}

func toGray(img image.Image) *image.Gray {
	if g, ok := img.(*image.Gray); ok {
		return g
	}
	b := img.Bounds()
	gray := image.NewGray(b)
	draw.Draw(gray, b, img, b.Min, draw.Src)
	return gray
}
