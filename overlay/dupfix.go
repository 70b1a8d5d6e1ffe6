package overlay

import (
	"fmt"
	"image"
	"log"
	"path/filepath"

	"slidekb/config"
	"slidekb/imaging"
	"slidekb/slides"
)

// standardBarHeight is what a doubled-up image is cropped back down to.
const standardBarHeight = 60

// dupDarkThreshold is looser than bar detection because stacked
// semi-transparent bars lighten each other.
const dupDarkThreshold = 80.0

// DupFixResult summarizes a duplicate-credit repair pass over one video.
type DupFixResult struct {
	VideoID string
	Fixed   int
	Checked int
	Errors  int
}

// RemoveDuplicateBar detects stacked credit bars at the bottom of an image
// and returns a cropped copy keeping a single bar. The second return is
// false when the image needs no repair.
func RemoveDuplicateBar(img image.Image) (image.Image, bool) {
	gray := imaging.ToGray(img)
	b := gray.Bounds()
	width, height := b.Dx(), b.Dy()
	if width == 0 || height == 0 {
		return img, false
	}

	check := height / 3
	if check > 150 {
		check = 150
	}

	// Collect dark rows from the bottom up, then group them into
	// contiguous bands. Two bands, or one band taller than any single
	// bar can be, means credits were applied twice.
	var darkRows []int
	for y := height - 1; y >= height-check; y-- {
		if rowMean(gray, y) < dupDarkThreshold {
			darkRows = append(darkRows, y)
		}
	}
	if len(darkRows) == 0 {
		return img, false
	}

	var bands [][]int
	current := []int{darkRows[0]}
	for i := 1; i < len(darkRows); i++ {
		if darkRows[i] == darkRows[i-1]-1 {
			current = append(current, darkRows[i])
		} else {
			bands = append(bands, current)
			current = []int{darkRows[i]}
		}
	}
	bands = append(bands, current)

	if len(bands) >= 2 {
		// darkRows runs bottom-up, so bands[len-1] is the topmost
		// band. Keep the image through that band's top edge plus one
		// standard bar.
		topBand := bands[len(bands)-1]
		topEdge := topBand[len(topBand)-1]
		newHeight := topEdge + standardBarHeight
		if newHeight < height {
			return crop(img, width, newHeight), true
		}
		return img, false
	}

	if len(darkRows) > 80 {
		newHeight := height - (len(darkRows) - standardBarHeight)
		if newHeight < height && float64(newHeight) > float64(height)*0.8 {
			return crop(img, width, newHeight), true
		}
	}
	return img, false
}

func crop(img image.Image, width, height int) image.Image {
	b := img.Bounds()
	out := image.NewRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			out.Set(x, y, img.At(b.Min.X+x, b.Min.Y+y))
		}
	}
	return out
}

// FixDuplicateCredits repairs every slide of a video that ended up with
// stacked credit bars from repeated overlay runs.
func FixDuplicateCredits(cfg config.SlideConfig, videoID string, dryRun bool) (*DupFixResult, error) {
	videoDir := cfg.VideoDir(videoID)
	files, err := slides.SlideFilesOnDisk(videoDir)
	if err != nil {
		return nil, fmt.Errorf("failed to list slides for %s: %w", videoID, err)
	}

	result := &DupFixResult{VideoID: videoID}
	for _, name := range files {
		path := filepath.Join(videoDir, name)
		img, err := imaging.LoadImage(path)
		if err != nil {
			log.Printf("Warning: cannot read %s: %v", name, err)
			result.Errors++
			continue
		}
		result.Checked++

		fixed, changed := RemoveDuplicateBar(img)
		if !changed {
			continue
		}
		if dryRun {
			log.Printf("[dry-run] would fix duplicate credit bar on %s", name)
			result.Fixed++
			continue
		}
		if err := imaging.SavePNG(path, fixed); err != nil {
			log.Printf("Warning: cannot write %s: %v", name, err)
			result.Errors++
			continue
		}
		result.Fixed++
	}
	return result, nil
}
