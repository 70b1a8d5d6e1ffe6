// Package imaging holds the pixel-level primitives used by the slide
// pipeline: grayscale conversion, histogram correlation, Laplacian variance
// and the OCR preprocessing chain. Everything operates on *image.Gray so the
// expensive conversions happen once per frame.
package imaging

import (
	"fmt"
	"image"
	"image/color"
	"image/png"
	"math"
	"os"

	_ "image/jpeg"
)

// LoadGray decodes an image file and converts it to 8-bit grayscale.
func LoadGray(path string) (*image.Gray, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open image: %w", err)
	}
	defer f.Close()

	img, _, err := image.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("failed to decode image %s: %w", path, err)
	}
	return ToGray(img), nil
}

// LoadImage decodes an image file without conversion.
func LoadImage(path string) (image.Image, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open image: %w", err)
	}
	defer f.Close()

	img, _, err := image.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("failed to decode image %s: %w", path, err)
	}
	return img, nil
}

// SavePNG writes an image as PNG.
func SavePNG(path string, img image.Image) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	defer f.Close()

	if err := png.Encode(f, img); err != nil {
		return fmt.Errorf("failed to encode %s: %w", path, err)
	}
	return nil
}

// ToGray converts any image to 8-bit grayscale using the standard luminance model.
func ToGray(img image.Image) *image.Gray {
	if g, ok := img.(*image.Gray); ok {
		return g
	}
	b := img.Bounds()
	gray := image.NewGray(b)
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			gray.Set(x, y, color.GrayModel.Convert(img.At(x, y)))
		}
	}
	return gray
}

// Histogram computes a 256-bin normalized grayscale histogram. The bins sum
// to 1 for any non-empty image.
func Histogram(img *image.Gray) [256]float64 {
	var hist [256]float64
	b := img.Bounds()
	total := float64(b.Dx() * b.Dy())
	if total == 0 {
		return hist
	}
	for y := b.Min.Y; y < b.Max.Y; y++ {
		row := img.Pix[(y-b.Min.Y)*img.Stride : (y-b.Min.Y)*img.Stride+b.Dx()]
		for _, v := range row {
			hist[v]++
		}
	}
	for i := range hist {
		hist[i] /= total
	}
	return hist
}

// HistogramCorrelation returns the Pearson correlation coefficient between
// two histograms. Identical histograms yield 1; a degenerate (zero variance)
// histogram yields 0 correlation against anything.
func HistogramCorrelation(a, b [256]float64) float64 {
	var meanA, meanB float64
	for i := 0; i < 256; i++ {
		meanA += a[i]
		meanB += b[i]
	}
	meanA /= 256
	meanB /= 256

	var cov, varA, varB float64
	for i := 0; i < 256; i++ {
		da := a[i] - meanA
		db := b[i] - meanB
		cov += da * db
		varA += da * da
		varB += db * db
	}
	if varA == 0 || varB == 0 {
		return 0
	}
	return cov / math.Sqrt(varA*varB)
}

// LaplacianVariance measures image sharpness as the variance of the 4-neighbor
// Laplacian response. Blurry images score low.
func LaplacianVariance(img *image.Gray) float64 {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	if w < 3 || h < 3 {
		return 0
	}

	responses := make([]float64, 0, (w-2)*(h-2))
	var sum float64
	for y := 1; y < h-1; y++ {
		for x := 1; x < w-1; x++ {
			c := float64(img.GrayAt(b.Min.X+x, b.Min.Y+y).Y)
			up := float64(img.GrayAt(b.Min.X+x, b.Min.Y+y-1).Y)
			down := float64(img.GrayAt(b.Min.X+x, b.Min.Y+y+1).Y)
			left := float64(img.GrayAt(b.Min.X+x-1, b.Min.Y+y).Y)
			right := float64(img.GrayAt(b.Min.X+x+1, b.Min.Y+y).Y)
			lap := up + down + left + right - 4*c
			responses = append(responses, lap)
			sum += lap
		}
	}

	mean := sum / float64(len(responses))
	var variance float64
	for _, r := range responses {
		d := r - mean
		variance += d * d
	}
	return variance / float64(len(responses))
}

// DarkFraction returns the fraction of pixels whose luminance is below cutoff.
func DarkFraction(img *image.Gray, cutoff uint8) float64 {
	b := img.Bounds()
	total := b.Dx() * b.Dy()
	if total == 0 {
		return 0
	}
	dark := 0
	for y := b.Min.Y; y < b.Max.Y; y++ {
		row := img.Pix[(y-b.Min.Y)*img.Stride : (y-b.Min.Y)*img.Stride+b.Dx()]
		for _, v := range row {
			if v < cutoff {
				dark++
			}
		}
	}
	return float64(dark) / float64(total)
}

// BottomStripMean returns the mean luminance of the bottom fraction of the
// image, used to detect a burned-in credit bar.
func BottomStripMean(img *image.Gray, fraction float64) float64 {
	b := img.Bounds()
	h := b.Dy()
	strip := int(float64(h) * fraction)
	if strip < 1 {
		strip = 1
	}
	if strip > h {
		strip = h
	}

	var sum float64
	count := 0
	for y := b.Max.Y - strip; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			sum += float64(img.GrayAt(x, y).Y)
			count++
		}
	}
	if count == 0 {
		return 0
	}
	return sum / float64(count)
}

// EnhanceForOCR prepares a slide image for OCR: grayscale, contrast stretch
// around the midpoint and a 3x3 sharpen pass.
func EnhanceForOCR(img image.Image) *image.Gray {
	gray := ToGray(img)
	contrasted := AdjustContrast(gray, 1.5)
	return Sharpen(contrasted)
}

// AdjustContrast scales pixel values away from mid-gray by the given factor.
func AdjustContrast(img *image.Gray, factor float64) *image.Gray {
	b := img.Bounds()
	out := image.NewGray(b)
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			v := float64(img.GrayAt(x, y).Y)
			adjusted := (v-128)*factor + 128
			out.SetGray(x, y, color.Gray{Y: clampByte(adjusted)})
		}
	}
	return out
}

// Sharpen applies the standard 3x3 sharpening kernel. Border pixels are copied.
func Sharpen(img *image.Gray) *image.Gray {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	out := image.NewGray(b)
	copy(out.Pix, img.Pix)
	if w < 3 || h < 3 {
		return out
	}

	for y := 1; y < h-1; y++ {
		for x := 1; x < w-1; x++ {
			c := float64(img.GrayAt(b.Min.X+x, b.Min.Y+y).Y)
			up := float64(img.GrayAt(b.Min.X+x, b.Min.Y+y-1).Y)
			down := float64(img.GrayAt(b.Min.X+x, b.Min.Y+y+1).Y)
			left := float64(img.GrayAt(b.Min.X+x-1, b.Min.Y+y).Y)
			right := float64(img.GrayAt(b.Min.X+x+1, b.Min.Y+y).Y)
			sharpened := 5*c - up - down - left - right
			out.SetGray(b.Min.X+x, b.Min.Y+y, color.Gray{Y: clampByte(sharpened)})
		}
	}
	return out
}

func clampByte(v float64) uint8 {
	if v < 0 {
		return 0
	}
	if v > 255 {
		return 255
	}
	return uint8(v)
}
