package review

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"

	"slidekb/config"
	"slidekb/extract"
	"slidekb/slides"
	"slidekb/types"
)

const denseText = "architecture overview with service boundaries data flow and deployment topology " +
	"for the entire platform including edge caching layers"

func reviewConfig(t *testing.T) config.SlideConfig {
	t.Helper()
	cfg := config.LoadEnv()
	cfg.DataRoot = t.TempDir()
	// Image checks need real files with decodable content; the queue tests
	// exercise the text checks.
	cfg.CheckBlur = false
	cfg.CheckBlack = false
	return cfg
}

func writeSlidePNGStub(t *testing.T, videoDir, name string) {
	t.Helper()
	if err := os.MkdirAll(videoDir, 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(videoDir, name), []byte("png"), 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestBuildQueueFlagsLowText(t *testing.T) {
	cfg := reviewConfig(t)
	videoDir := cfg.VideoDir("vid1")
	writeSlidePNGStub(t, videoDir, "slide_0m10s_aaaa.png")
	writeSlidePNGStub(t, videoDir, "slide_0m20s_bbbb.png")

	meta := &types.VideoSlideSet{Slides: []types.Slide{
		{Filename: "slide_0m10s_aaaa.png", OCRText: "agenda"},
		{Filename: "slide_0m20s_bbbb.png", OCRText: denseText},
	}}

	queue := BuildQueue(cfg, videoDir, meta, false)
	if len(queue) != 1 {
		t.Fatalf("expected 1 flagged slide, got %d", len(queue))
	}
	if queue[0].Slide.Filename != "slide_0m10s_aaaa.png" || queue[0].Reason != extract.ReasonLowText {
		t.Fatalf("unexpected flag: %+v", queue[0])
	}
}

func TestBuildQueueDuplicateLabel(t *testing.T) {
	cfg := reviewConfig(t)
	videoDir := cfg.VideoDir("vid1")
	writeSlidePNGStub(t, videoDir, "slide_0m20s_bbbb.png")

	meta := &types.VideoSlideSet{Slides: []types.Slide{
		{Filename: "slide_0m20s_bbbb.png", OCRText: denseText, IsDuplicateOf: "slide_0m10s_aaaa.png"},
	}}

	queue := BuildQueue(cfg, videoDir, meta, false)
	if len(queue) != 1 || queue[0].Reason != extract.ReasonDuplicate {
		t.Fatalf("duplicate should be flagged as such, got %+v", queue)
	}
}

func TestBuildQueueQualityReasonBeatsDuplicate(t *testing.T) {
	cfg := reviewConfig(t)
	videoDir := cfg.VideoDir("vid1")
	writeSlidePNGStub(t, videoDir, "slide_0m20s_bbbb.png")

	meta := &types.VideoSlideSet{Slides: []types.Slide{
		{Filename: "slide_0m20s_bbbb.png", OCRText: "agenda", IsDuplicateOf: "slide_0m10s_aaaa.png"},
	}}

	queue := BuildQueue(cfg, videoDir, meta, false)
	if len(queue) != 1 || queue[0].Reason != extract.ReasonLowText {
		t.Fatalf("specific reason should win over duplicate, got %+v", queue)
	}
}

func TestBuildQueueSkipsMissingFiles(t *testing.T) {
	cfg := reviewConfig(t)
	videoDir := cfg.VideoDir("vid1")
	if err := os.MkdirAll(videoDir, 0o755); err != nil {
		t.Fatal(err)
	}

	meta := &types.VideoSlideSet{Slides: []types.Slide{
		{Filename: "slide_0m10s_gone.png", OCRText: ""},
	}}

	if queue := BuildQueue(cfg, videoDir, meta, false); len(queue) != 0 {
		t.Fatalf("missing file should not be queued, got %+v", queue)
	}
}

func TestBuildQueueReviewAll(t *testing.T) {
	cfg := reviewConfig(t)
	videoDir := cfg.VideoDir("vid1")
	writeSlidePNGStub(t, videoDir, "slide_0m10s_aaaa.png")
	writeSlidePNGStub(t, videoDir, "slide_0m20s_bbbb.png")

	meta := &types.VideoSlideSet{Slides: []types.Slide{
		{Filename: "slide_0m10s_aaaa.png", OCRText: denseText},
		{Filename: "slide_0m20s_bbbb.png", OCRText: denseText},
	}}

	queue := BuildQueue(cfg, videoDir, meta, true)
	if len(queue) != 2 {
		t.Fatalf("review-all should queue everything, got %d", len(queue))
	}
	if queue[0].Reason != "" {
		t.Fatalf("clean slides carry no reason, got %q", queue[0].Reason)
	}
}

func TestAutoApprove(t *testing.T) {
	queue := []Flagged{
		{Slide: types.Slide{Filename: "a.png"}, Reason: extract.ReasonBlurry},
		{Slide: types.Slide{Filename: "b.png"}, Reason: ""},
		{Slide: types.Slide{Filename: "c.png"}, Reason: extract.ReasonDuplicate},
	}

	decisions := AutoApprove(queue)
	if len(decisions) != 2 {
		t.Fatalf("clean slides must not be auto-removed, got %d decisions", len(decisions))
	}
	for _, d := range decisions {
		if !d.Remove {
			t.Fatalf("auto-approve should remove, got %+v", d)
		}
	}
}

func TestApplyRemovesAndRewrites(t *testing.T) {
	cfg := reviewConfig(t)
	videoDir := cfg.VideoDir("vid1")
	writeSlidePNGStub(t, videoDir, "slide_0m10s_aaaa.png")
	writeSlidePNGStub(t, videoDir, "slide_0m20s_bbbb.png")

	meta := &types.VideoSlideSet{
		VideoID: "vid1",
		Slides: []types.Slide{
			{Filename: "slide_0m10s_aaaa.png"},
			{Filename: "slide_0m20s_bbbb.png"},
		},
	}
	if err := slides.SaveMetadata(cfg.MetadataPath("vid1"), meta); err != nil {
		t.Fatal(err)
	}

	decisions := []Decision{
		{Filename: "slide_0m10s_aaaa.png", Remove: true, Reason: extract.ReasonBlurry},
		{Filename: "slide_0m20s_bbbb.png", Remove: false},
	}

	stats, err := Apply(cfg, "vid1", meta, decisions, nil, false)
	if err != nil {
		t.Fatal(err)
	}
	if stats.TotalReviewed != 2 || stats.ApprovedRemoval != 1 || stats.KeptAfterReview != 1 {
		t.Fatalf("unexpected stats: %+v", stats)
	}

	if _, err := os.Stat(filepath.Join(videoDir, "slide_0m10s_aaaa.png")); !os.IsNotExist(err) {
		t.Fatal("removed slide still on disk")
	}

	saved, err := slides.LoadMetadata(cfg.MetadataPath("vid1"))
	if err != nil {
		t.Fatal(err)
	}
	if len(saved.Slides) != 1 || saved.Slides[0].Filename != "slide_0m20s_bbbb.png" {
		t.Fatalf("metadata not rewritten: %+v", saved.Slides)
	}
	if !saved.HumanReviewed || saved.ReviewStats == nil {
		t.Fatal("review flags not recorded")
	}
	if !saved.MetadataSynced {
		t.Fatal("post-review sync should mark metadata synced")
	}
}

func TestApplyDryRun(t *testing.T) {
	cfg := reviewConfig(t)
	videoDir := cfg.VideoDir("vid1")
	writeSlidePNGStub(t, videoDir, "slide_0m10s_aaaa.png")

	meta := &types.VideoSlideSet{
		VideoID: "vid1",
		Slides:  []types.Slide{{Filename: "slide_0m10s_aaaa.png"}},
	}
	if err := slides.SaveMetadata(cfg.MetadataPath("vid1"), meta); err != nil {
		t.Fatal(err)
	}

	decisions := []Decision{{Filename: "slide_0m10s_aaaa.png", Remove: true, Reason: extract.ReasonBlurry}}
	stats, err := Apply(cfg, "vid1", meta, decisions, nil, true)
	if err != nil {
		t.Fatal(err)
	}
	if stats.ApprovedRemoval != 1 {
		t.Fatalf("dry run should still count removals: %+v", stats)
	}
	if _, err := os.Stat(filepath.Join(videoDir, "slide_0m10s_aaaa.png")); err != nil {
		t.Fatal("dry run deleted a file")
	}
}

func keyMsg(s string) tea.KeyMsg {
	switch s {
	case "enter":
		return tea.KeyMsg{Type: tea.KeyEnter}
	case "ctrl+c":
		return tea.KeyMsg{Type: tea.KeyCtrlC}
	default:
		return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
	}
}

func TestModelKeepAndRemoveFlow(t *testing.T) {
	queue := []Flagged{
		{Slide: types.Slide{Filename: "a.png"}, Reason: extract.ReasonBlurry},
		{Slide: types.Slide{Filename: "b.png"}, Reason: extract.ReasonLowText},
	}
	var m tea.Model = NewModel("vid1", queue)

	m, _ = m.Update(keyMsg("r"))
	m, _ = m.Update(keyMsg("k"))

	final := m.(Model)
	if final.State != StateDone {
		t.Fatalf("expected done, got %s", final.State)
	}
	if len(final.Decisions) != 2 {
		t.Fatalf("expected 2 decisions, got %d", len(final.Decisions))
	}
	if !final.Decisions[0].Remove || final.Decisions[1].Remove {
		t.Fatalf("unexpected decisions: %+v", final.Decisions)
	}
	if final.Decisions[0].Reason != extract.ReasonBlurry {
		t.Fatalf("decision should carry the flag reason, got %q", final.Decisions[0].Reason)
	}
}

func TestModelAbortDiscardsSession(t *testing.T) {
	queue := []Flagged{
		{Slide: types.Slide{Filename: "a.png"}, Reason: extract.ReasonBlurry},
		{Slide: types.Slide{Filename: "b.png"}, Reason: extract.ReasonBlurry},
	}
	var m tea.Model = NewModel("vid1", queue)

	m, _ = m.Update(keyMsg("r"))
	m, cmd := m.Update(keyMsg("q"))

	final := m.(Model)
	if final.State != StateAborted {
		t.Fatalf("expected aborted, got %s", final.State)
	}
	if cmd == nil {
		t.Fatal("abort should quit the program")
	}
}

func TestModelViewShowsProgress(t *testing.T) {
	queue := []Flagged{
		{Slide: types.Slide{Filename: "a.png", TimestampFormatted: "0:10"}, Reason: extract.ReasonBlurry},
	}
	m := NewModel("vid1", queue)

	view := m.View()
	if !strings.Contains(view, "Slide 1 of 1") {
		t.Errorf("view missing progress line:\n%s", view)
	}
	if !strings.Contains(view, "a.png") || !strings.Contains(view, extract.ReasonBlurry) {
		t.Errorf("view missing slide details:\n%s", view)
	}
}

func TestOCRExcerpt(t *testing.T) {
	if got := ocrExcerpt("  a \n b \t c ", 240); got != "a b c" {
		t.Errorf("whitespace not collapsed: %q", got)
	}
	long := strings.Repeat("x", 300)
	if got := ocrExcerpt(long, 240); len(got) != 243 || !strings.HasSuffix(got, "...") {
		t.Errorf("long text not truncated: %d chars", len(got))
	}
	if got := ocrExcerpt("   ", 240); got != "" {
		t.Errorf("blank text should be empty, got %q", got)
	}
}
