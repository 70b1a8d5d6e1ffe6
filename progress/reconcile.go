package progress

import (
	"path/filepath"

	"slidekb/config"
	"slidekb/imaging"
	"slidekb/slides"
	"slidekb/types"
)

// DetectedState is what direct inspection of a video's files says about its
// curation progress, independent of the tracking store.
type DetectedState struct {
	HasMetadata        bool `json:"has_metadata"`
	HasCreditsInMeta   bool `json:"has_credits_in_metadata"`
	HasCreditsInImages bool `json:"has_credits_in_images"`
	HasBeenReviewed    bool `json:"has_been_reviewed"`
	MetadataSynced     bool `json:"metadata_synced"`
	SlideCount         int  `json:"slide_count"`
	SlidesKept         int  `json:"slides_kept,omitempty"`
	SlidesRemoved      int  `json:"slides_removed,omitempty"`
}

// DetectState inspects a video directory for ground-truth evidence of past
// pipeline stages: metadata flags, review stats, and a dark bottom strip on
// a sampled slide image (a burned-in credit bar).
func DetectState(videoDir string) DetectedState {
	var state DetectedState

	meta, err := slides.LoadMetadata(slides.MetadataPathFor(videoDir))
	if err == nil {
		state.HasMetadata = true
		state.SlideCount = len(meta.Slides)

		if meta.CreditOverlay != nil && meta.CreditOverlay.Added {
			state.HasCreditsInMeta = true
		}
		if meta.HumanReviewed || meta.ReviewStats != nil {
			state.HasBeenReviewed = true
			if rs := meta.ReviewStats; rs != nil {
				state.SlidesKept = rs.KeptAfterReview
				if state.SlidesKept == 0 {
					state.SlidesKept = rs.TotalReviewed - rs.ApprovedRemoval
				}
				state.SlidesRemoved = rs.ApprovedRemoval
			}
		}
		if meta.MetadataSynced {
			state.MetadataSynced = true
		} else if meta.HumanReviewed && state.HasCreditsInMeta {
			// Reviewed and credited implies the metadata was rewritten
			// recently enough to be in sync.
			state.MetadataSynced = true
		}
	}

	// Sample the first slide image for visual evidence of a credit bar.
	onDisk, err := slides.SlideFilesOnDisk(videoDir)
	if err == nil && len(onDisk) > 0 {
		gray, err := imaging.LoadGray(filepath.Join(videoDir, onDisk[0]))
		if err == nil {
			if imaging.BottomStripMean(gray, config.CreditBarFraction) < config.DarkStripCutoff {
				state.HasCreditsInImages = true
			}
		}
	}
	return state
}

// ReconcileResult reports what a detect-and-heal pass found and changed.
type ReconcileResult struct {
	VideoID  string         `json:"video_id"`
	Detected DetectedState  `json:"detected_state"`
	Applied  map[string]any `json:"updates_applied,omitempty"`
}

// Reconcile heals a stale or missing progress record from the detected file
// state. Flags are only ever promoted to true; evidence of absence never
// regresses a flag an earlier run already set.
func (s *Store) Reconcile(videoID, videoDir string) (*ReconcileResult, error) {
	detected := DetectState(videoDir)
	result := &ReconcileResult{VideoID: videoID, Detected: detected}

	current := s.Get(videoID)
	applied := make(map[string]any)

	if detected.HasBeenReviewed && !current.Reviewed {
		applied["reviewed"] = true
	}
	if (detected.HasCreditsInMeta || detected.HasCreditsInImages) && !current.CreditsAdded {
		applied["credits_added"] = true
	}
	if detected.MetadataSynced && !current.MetadataSynced {
		applied["metadata_synced"] = true
	}
	if detected.SlideCount > 0 && current.SlidesKept == 0 {
		applied["slides_kept"] = detected.SlideCount
	}

	if len(applied) == 0 {
		return result, nil
	}

	err := s.Update(videoID, "synced_from_state", applied, func(p *types.VideoProgress) {
		if v, ok := applied["reviewed"]; ok && v.(bool) {
			p.Reviewed = true
		}
		if v, ok := applied["credits_added"]; ok && v.(bool) {
			p.CreditsAdded = true
		}
		if v, ok := applied["metadata_synced"]; ok && v.(bool) {
			p.MetadataSynced = true
		}
		if v, ok := applied["slides_kept"]; ok {
			p.SlidesKept = v.(int)
		}
	})
	if err != nil {
		return nil, err
	}
	result.Applied = applied
	return result, nil
}
