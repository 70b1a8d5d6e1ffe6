package extract

import (
	"image"
	"image/color"
	"strings"
	"testing"
)

func checkerboard(w, h int, a, b uint8) *image.Gray {
	img := image.NewGray(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			v := a
			if (x+y)%2 == 0 {
				v = b
			}
			img.SetGray(x, y, color.Gray{Y: v})
		}
	}
	return img
}

func allChecksFilter() *QualityFilter {
	return &QualityFilter{
		BlurThreshold: 100,
		MinOCRWords:   10,
		CheckBlur:     true,
		CheckBlack:    true,
		CheckLowText:  true,
		CheckFiller:   true,
	}
}

const goodOCRText = "quarterly revenue growth segmented by region with year over year comparison " +
	"showing strong performance across all product lines and markets"

func TestQualityCheckBlurryFirst(t *testing.T) {
	dir := t.TempDir()
	// Flat and dark: fails blur and black, blur must name the reason.
	path := writeFrame(t, dir, "flat.png", solidGray(64, 64, 5))

	if got := allChecksFilter().Check(path, ""); got != ReasonBlurry {
		t.Fatalf("expected %q, got %q", ReasonBlurry, got)
	}
}

func TestQualityCheckMostlyBlack(t *testing.T) {
	dir := t.TempDir()
	// Sharp but dark: high Laplacian variance, every pixel under the cutoff.
	path := writeFrame(t, dir, "dark.png", checkerboard(64, 64, 0, 25))

	if got := allChecksFilter().Check(path, goodOCRText); got != ReasonMostlyBlack {
		t.Fatalf("expected %q, got %q", ReasonMostlyBlack, got)
	}
}

func TestQualityCheckLowText(t *testing.T) {
	dir := t.TempDir()
	path := writeFrame(t, dir, "sharp.png", checkerboard(64, 64, 0, 255))

	if got := allChecksFilter().Check(path, "agenda"); got != ReasonLowText {
		t.Fatalf("expected %q, got %q", ReasonLowText, got)
	}
}

func TestQualityCheckFillerText(t *testing.T) {
	dir := t.TempDir()
	path := writeFrame(t, dir, "sharp.png", checkerboard(64, 64, 0, 255))

	text := "thanks for watching please like and subscribe to the channel for more content"
	if got := allChecksFilter().Check(path, text); got != ReasonFillerText {
		t.Fatalf("expected %q, got %q", ReasonFillerText, got)
	}
}

func TestQualityCheckPasses(t *testing.T) {
	dir := t.TempDir()
	path := writeFrame(t, dir, "sharp.png", checkerboard(64, 64, 0, 255))

	if got := allChecksFilter().Check(path, goodOCRText); got != "" {
		t.Fatalf("expected pass, got %q", got)
	}
}

func TestQualityCheckDisabledChecksSkip(t *testing.T) {
	dir := t.TempDir()
	path := writeFrame(t, dir, "flat.png", solidGray(64, 64, 5))

	q := &QualityFilter{BlurThreshold: 100, MinOCRWords: 10}
	if got := q.Check(path, ""); got != "" {
		t.Fatalf("all checks disabled should pass everything, got %q", got)
	}
}

func TestQualityCheckUnreadableImageFallsThrough(t *testing.T) {
	// Image checks are skipped for unreadable files; text checks still run.
	if got := allChecksFilter().Check("/nonexistent/slide.png", goodOCRText); got != "" {
		t.Fatalf("expected pass on text checks alone, got %q", got)
	}
	if got := allChecksFilter().Check("/nonexistent/slide.png", "agenda"); got != ReasonLowText {
		t.Fatalf("expected %q, got %q", ReasonLowText, got)
	}
}

func TestIsFillerText(t *testing.T) {
	cases := []struct {
		text string
		want bool
	}{
		{"", true},
		{"thank you", true},
		{"please subscribe to our channel and click here for more", true},
		{goodOCRText, false},
		{strings.Repeat("word ", 30) + "subscribe", false},
	}
	for _, c := range cases {
		if got := IsFillerText(c.text); got != c.want {
			t.Errorf("IsFillerText(%.40q) = %v, want %v", c.text, got, c.want)
		}
	}
}
