// Package overlay stamps an attribution bar onto slide images after review.
package overlay

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/font/opentype"
	"golang.org/x/image/math/fixed"

	"slidekb/config"
	"slidekb/imaging"
	"slidekb/progress"
	"slidekb/slides"
	"slidekb/types"
)

// Candidate system fonts, tried in order before the bitmap fallback.
var fontPaths = []string{
	"/usr/share/fonts/truetype/dejavu/DejaVuSans.ttf",
	"/usr/share/fonts/TTF/DejaVuSans.ttf",
	"/System/Library/Fonts/Helvetica.ttc",
	"/Library/Fonts/Arial.ttf",
}

// GenerateCreditText builds the attribution line. An explicit custom text
// wins; otherwise author and series are joined, falling back to a generic
// source note when both are empty.
func GenerateCreditText(custom, author, series string) string {
	if custom != "" {
		return custom
	}
	var parts []string
	if author != "" {
		parts = append(parts, author)
	}
	if series != "" {
		parts = append(parts, series)
	}
	if len(parts) == 0 {
		return "Source: YouTube Video"
	}
	return strings.Join(parts, " • ")
}

// BarHeight returns the credit bar height for an image of the given height,
// 5% of the image clamped to a readable band.
func BarHeight(imageHeight int) int {
	h := int(float64(imageHeight) * config.CreditBarFraction)
	if h < config.CreditBarMinHeight {
		h = config.CreditBarMinHeight
	}
	if h > config.CreditBarMaxHeight {
		h = config.CreditBarMaxHeight
	}
	return h
}

// HasCreditBar reports whether the image already carries a dark bar at the
// bottom, making overlay application idempotent.
func HasCreditBar(img image.Image) bool {
	return DetectCreditBarHeight(img, 100) > 0
}

// DetectCreditBarHeight scans the bottom of the image upward and returns the
// height of a contiguous dark band, or 0 when none is present. Rows whose
// mean grayscale value is below the threshold count as part of the bar.
func DetectCreditBarHeight(img image.Image, threshold float64) int {
	gray := imaging.ToGray(img)
	b := gray.Bounds()
	width, height := b.Dx(), b.Dy()
	if width == 0 || height == 0 {
		return 0
	}

	check := height / 4
	if check > 100 {
		check = 100
	}

	bar := 0
	for y := height - 1; y >= height-check; y-- {
		if rowMean(gray, y) < threshold {
			bar = height - y
		} else if bar > 0 {
			break
		}
	}
	return bar
}

func rowMean(gray *image.Gray, y int) float64 {
	b := gray.Bounds()
	row := gray.Pix[(y-b.Min.Y)*gray.Stride : (y-b.Min.Y)*gray.Stride+b.Dx()]
	sum := 0
	for _, v := range row {
		sum += int(v)
	}
	return float64(sum) / float64(len(row))
}

// Apply extends the image downward by one credit bar and draws the text
// centered in it. The source image is left untouched above the bar.
func Apply(img image.Image, creditText string) image.Image {
	b := img.Bounds()
	width, height := b.Dx(), b.Dy()
	barHeight := BarHeight(height)

	out := image.NewRGBA(image.Rect(0, 0, width, height+barHeight))
	draw.Draw(out, out.Bounds(), image.White, image.Point{}, draw.Src)
	draw.Draw(out, image.Rect(0, 0, width, height), img, b.Min, draw.Src)

	bar := image.Rect(0, height, width, height+barHeight)
	draw.Draw(out, bar, image.NewUniform(color.RGBA{0, 0, 0, 200}), image.Point{}, draw.Over)

	face := loadFace(barHeight)
	d := &font.Drawer{
		Dst:  out,
		Src:  image.White,
		Face: face,
	}
	textWidth := d.MeasureString(creditText).Ceil()
	metrics := face.Metrics()
	textHeight := (metrics.Ascent + metrics.Descent).Ceil()
	x := (width - textWidth) / 2
	if x < 0 {
		x = 0
	}
	y := height + (barHeight-textHeight)/2 + metrics.Ascent.Ceil()
	d.Dot = fixed.P(x, y)
	d.DrawString(creditText)

	return out
}

// loadFace tries a real system font sized to the bar, falling back to the
// built-in bitmap face when none is available.
func loadFace(barHeight int) font.Face {
	size := float64(barHeight) * 0.4
	if size < 12 {
		size = 12
	}
	if size > 16 {
		size = 16
	}
	for _, path := range fontPaths {
		data, err := os.ReadFile(path)
		if err != nil {
			continue
		}
		ft, err := opentype.Parse(data)
		if err != nil {
			continue
		}
		face, err := opentype.NewFace(ft, &opentype.FaceOptions{
			Size: size,
			DPI:  72,
		})
		if err != nil {
			continue
		}
		return face
	}
	return basicfont.Face7x13
}

// Result summarizes an overlay run for one video.
type Result struct {
	VideoID    string
	Processed  int
	Skipped    int
	Errors     int
	CreditText string
}

// ProcessVideo adds the credit bar to every slide image of a video. Slides
// that already have a bar are skipped, so re-running is safe. On success the
// metadata records the overlay and the progress store is updated.
func ProcessVideo(cfg config.SlideConfig, videoID, creditText string, store *progress.Store, dryRun bool) (*Result, error) {
	videoDir := cfg.VideoDir(videoID)
	files, err := slides.SlideFilesOnDisk(videoDir)
	if err != nil {
		return nil, fmt.Errorf("failed to list slides for %s: %w", videoID, err)
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("no slide images found for %s", videoID)
	}

	result := &Result{VideoID: videoID, CreditText: creditText}
	if dryRun {
		log.Printf("[dry-run] would add credit %q to %d slides of %s", creditText, len(files), videoID)
		result.Processed = len(files)
		return result, nil
	}

	for _, name := range files {
		path := filepath.Join(videoDir, name)
		img, err := imaging.LoadImage(path)
		if err != nil {
			log.Printf("Warning: cannot read %s: %v", name, err)
			result.Errors++
			continue
		}
		if HasCreditBar(img) {
			result.Skipped++
			continue
		}
		if err := imaging.SavePNG(path, Apply(img, creditText)); err != nil {
			log.Printf("Warning: cannot write %s: %v", name, err)
			result.Errors++
			continue
		}
		result.Processed++
	}

	meta, err := slides.LoadMetadata(cfg.MetadataPath(videoID))
	if err != nil {
		log.Printf("Warning: could not update metadata for %s: %v", videoID, err)
	} else {
		meta.CreditOverlay = &types.CreditOverlay{
			Added:   true,
			Text:    creditText,
			AddedAt: time.Now(),
		}
		if err := slides.SaveMetadata(cfg.MetadataPath(videoID), meta); err != nil {
			log.Printf("Warning: could not save metadata for %s: %v", videoID, err)
		}
	}

	if store != nil {
		if err := store.MarkCreditsAdded(videoID, creditText); err != nil {
			log.Printf("Warning: failed to record credit progress: %v", err)
		}
	}
	return result, nil
}
