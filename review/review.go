// Package review implements the human pass over automatically flagged
// slides. Nothing flagged is deleted until a person (or explicit
// auto-approve) confirms it.
package review

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	"slidekb/config"
	"slidekb/extract"
	"slidekb/progress"
	"slidekb/slides"
	"slidekb/types"
)

// Flagged is one slide queued for a keep/remove decision.
type Flagged struct {
	Slide  types.Slide
	Reason string // empty in review-all mode when no check fired
}

// Decision is the reviewer's verdict on one slide.
type Decision struct {
	Filename string
	Remove   bool
	Reason   string
}

// BuildQueue re-runs the quality checks over a video's saved slides and
// returns the ones that would be removed, each with a single reason. Quality
// reasons are more specific than the generic duplicate label, so they win
// when both apply. With reviewAll set, every slide is queued.
func BuildQueue(cfg config.SlideConfig, videoDir string, meta *types.VideoSlideSet, reviewAll bool) []Flagged {
	filter := &extract.QualityFilter{
		BlurThreshold: cfg.BlurThreshold,
		MinOCRWords:   cfg.MinOCRWords,
		CheckBlur:     cfg.CheckBlur,
		CheckBlack:    cfg.CheckBlack,
		CheckLowText:  cfg.CheckLowText,
		CheckFiller:   cfg.CheckFiller,
	}

	var queue []Flagged
	for _, slide := range meta.Slides {
		path := filepath.Join(videoDir, slide.Filename)
		if _, err := os.Stat(path); err != nil {
			continue
		}

		reason := filter.Check(path, slide.OCRText)
		if reason == "" && slide.IsDuplicateOf != "" {
			reason = extract.ReasonDuplicate
		}

		if reason != "" || reviewAll {
			queue = append(queue, Flagged{Slide: slide, Reason: reason})
		}
	}
	return queue
}

// AutoApprove converts every flagged slide into a removal decision, for batch
// runs where the user opted out of interactive review.
func AutoApprove(queue []Flagged) []Decision {
	decisions := make([]Decision, 0, len(queue))
	for _, f := range queue {
		if f.Reason == "" {
			continue
		}
		decisions = append(decisions, Decision{Filename: f.Slide.Filename, Remove: true, Reason: f.Reason})
	}
	return decisions
}

// Apply commits the review: deletes removed files, rewrites the metadata to
// exactly the kept set, records review stats, then immediately re-syncs with
// disk so metadata cannot drift even if a later step fails. Progress is
// updated last.
func Apply(cfg config.SlideConfig, videoID string, meta *types.VideoSlideSet, decisions []Decision, store *progress.Store, dryRun bool) (*types.ReviewStats, error) {
	videoDir := cfg.VideoDir(videoID)

	removed := make(map[string]string, len(decisions))
	for _, d := range decisions {
		if d.Remove {
			removed[d.Filename] = d.Reason
		}
	}

	stats := &types.ReviewStats{
		TotalReviewed:   len(decisions),
		ApprovedRemoval: len(removed),
		KeptAfterReview: len(meta.Slides) - len(removed),
		ReviewedAt:      time.Now(),
	}

	if dryRun {
		for name, reason := range removed {
			log.Printf("[dry-run] would remove %s (%s)", name, reason)
		}
		return stats, nil
	}

	for name := range removed {
		path := filepath.Join(videoDir, name)
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			return nil, fmt.Errorf("failed to remove %s: %w", name, err)
		}
	}

	kept := meta.Slides[:0:0]
	for _, slide := range meta.Slides {
		if _, gone := removed[slide.Filename]; !gone {
			kept = append(kept, slide)
		}
	}
	meta.Slides = kept
	meta.HumanReviewed = true
	meta.ReviewStats = stats

	if err := slides.SaveMetadata(cfg.MetadataPath(videoID), meta); err != nil {
		return nil, err
	}

	if _, err := slides.Sync(videoDir, false); err != nil {
		return nil, fmt.Errorf("post-review sync failed: %w", err)
	}

	if store != nil {
		if err := store.MarkReviewed(videoID, stats.KeptAfterReview, stats.ApprovedRemoval); err != nil {
			log.Printf("Warning: failed to record review progress: %v", err)
		}
		if err := store.MarkMetadataSynced(videoID); err != nil {
			log.Printf("Warning: failed to record sync progress: %v", err)
		}
	}
	return stats, nil
}
