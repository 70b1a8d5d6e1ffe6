package slides

import (
	"log"
	"path/filepath"
	"sort"
)

// SyncResult reports one video's reconciliation outcome.
type SyncResult struct {
	VideoID  string   `json:"video_id"`
	Synced   bool     `json:"synced"`
	Removed  []string `json:"removed,omitempty"`
	Orphaned []string `json:"orphaned,omitempty"`
}

// Sync reconciles a video's metadata with the slide files actually on disk.
// Entries whose file is gone are dropped; files with no entry are reported as
// orphans but never auto-registered. In dry-run mode all detection happens
// but nothing is written.
func Sync(videoDir string, dryRun bool) (*SyncResult, error) {
	metaPath := MetadataPathFor(videoDir)
	meta, err := LoadMetadata(metaPath)
	if err != nil {
		return nil, err
	}

	onDisk, err := SlideFilesOnDisk(videoDir)
	if err != nil {
		return nil, err
	}
	diskSet := make(map[string]bool, len(onDisk))
	for _, name := range onDisk {
		diskSet[name] = true
	}

	inMeta := make(map[string]bool, len(meta.Slides))
	var removed []string
	kept := meta.Slides[:0:0]
	for _, slide := range meta.Slides {
		inMeta[slide.Filename] = true
		if diskSet[slide.Filename] {
			kept = append(kept, slide)
		} else {
			removed = append(removed, slide.Filename)
		}
	}

	var orphaned []string
	for _, name := range onDisk {
		if !inMeta[name] {
			orphaned = append(orphaned, name)
		}
	}
	sort.Strings(removed)
	sort.Strings(orphaned)

	result := &SyncResult{
		VideoID:  meta.VideoID,
		Removed:  removed,
		Orphaned: orphaned,
	}
	if result.VideoID == "" {
		result.VideoID = filepath.Base(videoDir)
	}

	if len(orphaned) > 0 {
		log.Printf("Warning: %s has %d orphaned slide files not in metadata (re-run extraction to register them)",
			result.VideoID, len(orphaned))
	}

	if dryRun {
		return result, nil
	}

	meta.Slides = kept
	meta.Stats.SlidesDetected = len(onDisk)
	meta.Stats.UniqueSlides = len(onDisk)
	meta.Stats.Duplicates = 0
	meta.MetadataSynced = true

	if err := SaveMetadata(metaPath, meta); err != nil {
		return nil, err
	}
	result.Synced = true
	return result, nil
}
