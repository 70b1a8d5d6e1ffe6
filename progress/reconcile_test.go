package progress

import (
	"image"
	"image/color"
	"os"
	"path/filepath"
	"testing"

	"slidekb/imaging"
	"slidekb/slides"
	"slidekb/types"
)

func writeVideoDir(t *testing.T, meta *types.VideoSlideSet, darkBottomBar bool) string {
	t.Helper()
	videoDir := filepath.Join(t.TempDir(), "vid1")
	if err := os.MkdirAll(videoDir, 0o755); err != nil {
		t.Fatal(err)
	}

	if meta != nil {
		if err := slides.SaveMetadata(slides.MetadataPathFor(videoDir), meta); err != nil {
			t.Fatal(err)
		}
	}

	// One light slide image, optionally with a dark strip at the bottom.
	img := image.NewGray(image.Rect(0, 0, 100, 100))
	for i := range img.Pix {
		img.Pix[i] = 220
	}
	if darkBottomBar {
		for y := 90; y < 100; y++ {
			for x := 0; x < 100; x++ {
				img.SetGray(x, y, color.Gray{Y: 5})
			}
		}
	}
	if err := imaging.SavePNG(filepath.Join(videoDir, "slide_0m10s_aaaa.png"), img); err != nil {
		t.Fatal(err)
	}
	return videoDir
}

func TestDetectStateFromMetadata(t *testing.T) {
	videoDir := writeVideoDir(t, &types.VideoSlideSet{
		VideoID:       "vid1",
		Slides:        []types.Slide{{Filename: "slide_0m10s_aaaa.png"}},
		HumanReviewed: true,
		ReviewStats:   &types.ReviewStats{TotalReviewed: 10, ApprovedRemoval: 4},
		CreditOverlay: &types.CreditOverlay{Added: true},
	}, false)

	state := DetectState(videoDir)
	if !state.HasMetadata || !state.HasBeenReviewed || !state.HasCreditsInMeta {
		t.Fatalf("unexpected state: %+v", state)
	}
	if state.SlidesKept != 6 || state.SlidesRemoved != 4 {
		t.Fatalf("review stats not derived: %+v", state)
	}
	// Reviewed plus credited implies synced.
	if !state.MetadataSynced {
		t.Fatal("expected synced inference")
	}
}

func TestDetectStateCreditBarInImage(t *testing.T) {
	videoDir := writeVideoDir(t, nil, true)

	state := DetectState(videoDir)
	if state.HasMetadata {
		t.Fatal("no metadata was written")
	}
	if !state.HasCreditsInImages {
		t.Fatal("dark bottom strip should read as a credit bar")
	}
}

func TestDetectStateCleanImage(t *testing.T) {
	videoDir := writeVideoDir(t, nil, false)
	if state := DetectState(videoDir); state.HasCreditsInImages {
		t.Fatal("light image misread as credited")
	}
}

func TestReconcilePromotesFlags(t *testing.T) {
	videoDir := writeVideoDir(t, &types.VideoSlideSet{
		VideoID:       "vid1",
		Slides:        []types.Slide{{Filename: "slide_0m10s_aaaa.png"}},
		HumanReviewed: true,
		CreditOverlay: &types.CreditOverlay{Added: true},
	}, false)

	s := openTestStore(t)
	result, err := s.Reconcile("vid1", videoDir)
	if err != nil {
		t.Fatal(err)
	}
	if len(result.Applied) == 0 {
		t.Fatal("expected promoted flags")
	}

	p := s.Get("vid1")
	if !p.Reviewed || !p.CreditsAdded || !p.MetadataSynced {
		t.Fatalf("flags not promoted: %+v", p)
	}
	if p.SlidesKept != 1 {
		t.Fatalf("slide count not backfilled: %+v", p)
	}
}

func TestReconcileNeverRegresses(t *testing.T) {
	// Empty directory: no evidence of anything.
	videoDir := filepath.Join(t.TempDir(), "vid1")
	if err := os.MkdirAll(videoDir, 0o755); err != nil {
		t.Fatal(err)
	}

	s := openTestStore(t)
	s.MarkReviewed("vid1", 8, 2)
	s.MarkCreditsAdded("vid1", "Source: Demo")

	result, err := s.Reconcile("vid1", videoDir)
	if err != nil {
		t.Fatal(err)
	}
	if len(result.Applied) != 0 {
		t.Fatalf("absence of evidence applied changes: %v", result.Applied)
	}

	p := s.Get("vid1")
	if !p.Reviewed || !p.CreditsAdded {
		t.Fatalf("flags regressed: %+v", p)
	}
}

func TestReconcileIdempotent(t *testing.T) {
	videoDir := writeVideoDir(t, &types.VideoSlideSet{
		VideoID:       "vid1",
		Slides:        []types.Slide{{Filename: "slide_0m10s_aaaa.png"}},
		HumanReviewed: true,
	}, false)

	s := openTestStore(t)
	if _, err := s.Reconcile("vid1", videoDir); err != nil {
		t.Fatal(err)
	}
	second, err := s.Reconcile("vid1", videoDir)
	if err != nil {
		t.Fatal(err)
	}
	if len(second.Applied) != 0 {
		t.Fatalf("second pass should be a no-op, applied %v", second.Applied)
	}
}
