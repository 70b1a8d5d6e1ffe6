package extract

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"time"

	"slidekb/config"
	"slidekb/slides"
	"slidekb/types"
)

// Extractor runs the full slide pipeline for one video: sample, detect scene
// changes, classify, OCR, quality-filter, deduplicate, align, persist.
type Extractor struct {
	Config config.SlideConfig
	Video  types.VideoMeta

	Scorer VisionScorer
	OCR    *TextExtractor
	Bloom  *HashBloom
}

// Result is what one extraction run produced.
type Result struct {
	VideoID string
	Stats   types.ExtractionStats
	Slides  []types.Slide
	DryRun  bool
}

// candidate carries a slide through the pipeline together with its source
// frame, which still lives in the scratch directory until commit.
type candidate struct {
	framePath string
	slide     types.Slide
}

// Run executes the pipeline against a downloaded video file. In dry-run mode
// every stage executes but no slide files or metadata are written; the frame
// scratch directory is removed either way.
func (e *Extractor) Run(ctx context.Context, videoPath string, dryRun bool) (*Result, error) {
	videoID := e.Video.VideoID
	framesDir := e.Config.FramesDir(videoID)
	defer func() {
		if err := os.RemoveAll(framesDir); err != nil {
			log.Printf("Warning: failed to remove frames directory: %v", err)
		}
	}()

	sampler := &FrameSampler{Interval: e.Config.FrameInterval}
	frames, err := sampler.Sample(videoPath, framesDir)
	if err != nil {
		return nil, fmt.Errorf("sampling %s: %w", videoID, err)
	}
	log.Printf("[%s] sampled %d frames", videoID, len(frames))

	detector := &SceneChangeDetector{Threshold: e.Config.SceneThreshold}
	candidates := detector.Detect(frames)
	log.Printf("[%s] %d scene changes", videoID, len(candidates))

	stats := types.ExtractionStats{
		FramesAnalyzed:  len(frames),
		SceneChanges:    len(candidates),
		RejectedByCheck: make(map[string]int),
	}

	classified, err := e.classify(ctx, candidates)
	if err != nil {
		return nil, err
	}
	log.Printf("[%s] %d slides identified", videoID, len(classified))

	e.runOCR(ctx, classified)
	classified = e.filterQuality(classified, stats.RejectedByCheck)
	classified = e.hashAndName(classified)

	dedup := &Deduplicator{
		Threshold: e.Config.HashThreshold,
		Remove:    e.Config.RemoveDuplicates,
		Bloom:     e.Bloom,
	}
	kept := e.applyDedup(dedup, classified)

	aligner := &TranscriptAligner{Segments: e.loadTranscript()}
	finalSlides := aligner.Align(extractSlides(kept))

	stats.SlidesDetected = len(finalSlides)
	unique := 0
	for _, s := range finalSlides {
		if s.IsDuplicateOf == "" {
			unique++
		}
	}
	stats.UniqueSlides = unique
	stats.Duplicates = len(finalSlides) - unique

	result := &Result{VideoID: videoID, Stats: stats, Slides: finalSlides, DryRun: dryRun}
	if dryRun {
		return result, nil
	}

	if err := e.commit(kept, finalSlides, stats); err != nil {
		return nil, err
	}
	return result, nil
}

func (e *Extractor) classify(ctx context.Context, frames []Frame) ([]candidate, error) {
	classifier := &SlideClassifier{
		Threshold:      e.Config.ClassifierThreshold,
		TextDensityMin: e.Config.TextDensityMin,
		TextDensityMax: e.Config.TextDensityMax,
		OCR: func(ctx context.Context, path string) (string, error) {
			return e.OCR.Extract(ctx, path)
		},
	}
	if e.Config.UseClassifier {
		classifier.Scorer = e.Scorer
	}

	var out []candidate
	for _, frame := range frames {
		verdict, err := classifier.Classify(ctx, frame.Path)
		if err != nil {
			log.Printf("Warning: classification failed for %s: %v", frame.Path, err)
			continue
		}
		if !verdict.IsSlide {
			continue
		}
		out = append(out, candidate{
			framePath: frame.Path,
			slide: types.Slide{
				TimestampSeconds:   frame.Timestamp,
				TimestampFormatted: types.FormatTimestamp(frame.Timestamp),
				ClassifierScore:    verdict.Score,
			},
		})
	}
	return out, nil
}

func (e *Extractor) runOCR(ctx context.Context, cands []candidate) {
	for i := range cands {
		if cands[i].slide.OCRText != "" {
			continue
		}
		text, err := e.OCR.Extract(ctx, cands[i].framePath)
		if err != nil {
			log.Printf("Warning: OCR failed for %s: %v", cands[i].framePath, err)
			continue
		}
		cands[i].slide.OCRText = text
	}
}

func (e *Extractor) filterQuality(cands []candidate, rejected map[string]int) []candidate {
	filter := &QualityFilter{
		BlurThreshold: e.Config.BlurThreshold,
		MinOCRWords:   e.Config.MinOCRWords,
		CheckBlur:     e.Config.CheckBlur,
		CheckBlack:    e.Config.CheckBlack,
		CheckLowText:  e.Config.CheckLowText,
		CheckFiller:   e.Config.CheckFiller,
	}

	kept := cands[:0:0]
	for _, c := range cands {
		if reason := filter.Check(c.framePath, c.slide.OCRText); reason != "" {
			rejected[reason]++
			continue
		}
		kept = append(kept, c)
	}
	return kept
}

// hashAndName computes each survivor's perceptual hash and assigns its final
// filename so deduplication back-references point at real slide files.
func (e *Extractor) hashAndName(cands []candidate) []candidate {
	out := cands[:0:0]
	for _, c := range cands {
		hash, err := ComputeHash(c.framePath)
		if err != nil {
			log.Printf("Warning: hashing failed for %s, keeping unhashed: %v", c.framePath, err)
			c.slide.Filename = fmt.Sprintf("slide_%s_unknown.png", c.slide.TimestampFormatted)
			out = append(out, c)
			continue
		}
		c.slide.PerceptualHash = HashHex(hash)
		c.slide.Filename = fmt.Sprintf("slide_%s_%s.png",
			c.slide.TimestampFormatted, c.slide.PerceptualHash[:8])
		c.slide.TimestampURL = types.TimestampURL(e.videoURL(), c.slide.TimestampSeconds)
		out = append(out, c)
	}
	return out
}

func (e *Extractor) applyDedup(d *Deduplicator, cands []candidate) []candidate {
	byName := make(map[string]string, len(cands))
	slideList := make([]types.Slide, len(cands))
	for i, c := range cands {
		slideList[i] = c.slide
		byName[c.slide.Filename] = c.framePath
	}

	deduped := d.Apply(slideList)

	out := make([]candidate, 0, len(deduped))
	for _, s := range deduped {
		out = append(out, candidate{framePath: byName[s.Filename], slide: s})
	}
	return out
}

func (e *Extractor) loadTranscript() []types.TranscriptSegment {
	path := e.Config.TranscriptPath(e.Video.VideoID)
	data, err := os.ReadFile(path)
	if err != nil {
		return nil
	}
	var transcript types.Transcript
	if err := json.Unmarshal(data, &transcript); err != nil {
		log.Printf("Warning: unreadable transcript %s: %v", path, err)
		return nil
	}
	return transcript.Segments
}

// commit finalizes the run: copy kept frames to their slide filenames, then
// write metadata once. A crash before the metadata write leaves orphaned
// images that sync will report but never adopt.
func (e *Extractor) commit(kept []candidate, finalSlides []types.Slide, stats types.ExtractionStats) error {
	videoDir := e.Config.VideoDir(e.Video.VideoID)
	if err := os.MkdirAll(videoDir, 0o755); err != nil {
		return fmt.Errorf("failed to create %s: %w", videoDir, err)
	}

	for _, c := range kept {
		dst := filepath.Join(videoDir, c.slide.Filename)
		if err := copyFile(c.framePath, dst); err != nil {
			return fmt.Errorf("failed to save slide %s: %w", c.slide.Filename, err)
		}
	}

	meta := &types.VideoSlideSet{
		SchemaVersion:    types.SchemaVersion,
		VideoID:          e.Video.VideoID,
		Title:            e.Video.Title,
		URL:              e.videoURL(),
		ExtractedAt:      time.Now(),
		ExtractionConfig: e.Config.Snapshot(),
		Stats:            stats,
		Slides:           finalSlides,
		DeduplicationMap: BuildDeduplicationMap(finalSlides),
	}
	return slides.SaveMetadata(e.Config.MetadataPath(e.Video.VideoID), meta)
}

func (e *Extractor) videoURL() string {
	if e.Video.URL != "" {
		return e.Video.URL
	}
	return fmt.Sprintf("https://www.youtube.com/watch?v=%s", e.Video.VideoID)
}

func extractSlides(cands []candidate) []types.Slide {
	out := make([]types.Slide, len(cands))
	for i, c := range cands {
		out[i] = c.slide
	}
	return out
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	defer out.Close()

	if _, err := io.Copy(out, in); err != nil {
		return err
	}
	return out.Close()
}
