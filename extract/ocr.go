package extract

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"slidekb/imaging"
)

// TextExtractor runs OCR over slide images via the tesseract binary, with a
// preprocessing pass tuned for slide layouts.
type TextExtractor struct {
	// Binary is the tesseract executable name or path. Defaults to "tesseract".
	Binary string

	// run is swapped out in tests.
	run func(ctx context.Context, name string, args ...string) ([]byte, error)
}

// NewTextExtractor returns an extractor using the system tesseract binary.
func NewTextExtractor() *TextExtractor {
	return &TextExtractor{
		Binary: "tesseract",
		run: func(ctx context.Context, name string, args ...string) ([]byte, error) {
			return exec.CommandContext(ctx, name, args...).Output()
		},
	}
}

// Extract OCRs one image and returns cleaned multi-line text. A per-image
// failure yields empty text and an error the caller may log and ignore.
func (t *TextExtractor) Extract(ctx context.Context, imagePath string) (string, error) {
	img, err := imaging.LoadImage(imagePath)
	if err != nil {
		return "", fmt.Errorf("failed to load image for OCR: %w", err)
	}
	prepared := imaging.EnhanceForOCR(img)

	tmp, err := os.CreateTemp("", "ocr_*.png")
	if err != nil {
		return "", fmt.Errorf("failed to create OCR temp file: %w", err)
	}
	tmpPath := tmp.Name()
	tmp.Close()
	defer os.Remove(tmpPath)

	if err := imaging.SavePNG(tmpPath, prepared); err != nil {
		return "", err
	}

	// psm 6 treats the image as a uniform block of text, which keeps slide
	// columns readable; preserve_interword_spaces keeps table alignment.
	out, err := t.run(ctx, t.binary(),
		tmpPath, "stdout",
		"--psm", "6",
		"-c", "preserve_interword_spaces=1",
	)
	if err != nil {
		return "", fmt.Errorf("tesseract failed for %s: %w", filepath.Base(imagePath), err)
	}
	return CleanOCRText(string(out)), nil
}

func (t *TextExtractor) binary() string {
	if t.Binary != "" {
		return t.Binary
	}
	return "tesseract"
}

// CleanOCRText trims each line and drops blank ones.
func CleanOCRText(raw string) string {
	lines := strings.Split(raw, "\n")
	cleaned := make([]string, 0, len(lines))
	for _, line := range lines {
		line = strings.TrimSpace(line)
		if line != "" {
			cleaned = append(cleaned, line)
		}
	}
	return strings.Join(cleaned, "\n")
}
