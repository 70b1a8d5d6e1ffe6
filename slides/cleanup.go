package slides

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"slidekb/config"
	"slidekb/imaging"
)

// CleanupResult reports a transition or black-frame cleanup pass.
type CleanupResult struct {
	VideoID string   `json:"video_id"`
	Checked int      `json:"checked"`
	Removed []string `json:"removed,omitempty"`
	DryRun  bool     `json:"dry_run,omitempty"`
}

// ParseFilenameTimestamp extracts the seconds offset from a slide filename
// like "slide_18m52s_f580eaca.png". Returns false for malformed names.
func ParseFilenameTimestamp(filename string) (float64, bool) {
	parts := strings.Split(filename, "_")
	if len(parts) < 2 {
		return 0, false
	}

	ts := parts[1] // e.g. "18m52s"
	mIdx := strings.Index(ts, "m")
	if mIdx < 0 || !strings.HasSuffix(ts, "s") {
		return 0, false
	}

	mins, err := strconv.Atoi(ts[:mIdx])
	if err != nil {
		return 0, false
	}
	secs, err := strconv.Atoi(strings.TrimSuffix(ts[mIdx+1:], "s"))
	if err != nil {
		return 0, false
	}
	return float64(mins*60 + secs), true
}

// FindTransitionDuplicates returns the earlier slide of each adjacent pair
// closer together than threshold seconds. These are usually the mid-animation
// frame of a slide transition.
func FindTransitionDuplicates(videoDir string, threshold float64) ([]string, error) {
	onDisk, err := SlideFilesOnDisk(videoDir)
	if err != nil {
		return nil, err
	}

	type timed struct {
		name string
		at   float64
	}
	slides := make([]timed, 0, len(onDisk))
	for _, name := range onDisk {
		if at, ok := ParseFilenameTimestamp(name); ok {
			slides = append(slides, timed{name: name, at: at})
		}
	}
	sort.Slice(slides, func(i, j int) bool { return slides[i].at < slides[j].at })

	var earlier []string
	for i := 0; i+1 < len(slides); i++ {
		diff := slides[i+1].at - slides[i].at
		if diff > 0 && diff < threshold {
			earlier = append(earlier, slides[i].name)
		}
	}
	return earlier, nil
}

// FixTransitionDuplicates removes the earlier slide of each close pair and
// rewrites the metadata. Dry-run reports the pairs without deleting.
func FixTransitionDuplicates(videoDir string, threshold float64, dryRun bool) (*CleanupResult, error) {
	duplicates, err := FindTransitionDuplicates(videoDir, threshold)
	if err != nil {
		return nil, err
	}

	result := &CleanupResult{
		VideoID: filepath.Base(videoDir),
		Checked: len(duplicates),
		Removed: duplicates,
		DryRun:  dryRun,
	}
	if dryRun || len(duplicates) == 0 {
		return result, nil
	}

	if err := removeSlides(videoDir, duplicates); err != nil {
		return nil, err
	}
	return result, nil
}

// CleanupBlackFrames removes mostly-black slides captured at 0m00s, before
// the video content begins.
func CleanupBlackFrames(videoDir string, dryRun bool) (*CleanupResult, error) {
	onDisk, err := SlideFilesOnDisk(videoDir)
	if err != nil {
		return nil, err
	}

	result := &CleanupResult{
		VideoID: filepath.Base(videoDir),
		DryRun:  dryRun,
	}

	var toRemove []string
	for _, name := range onDisk {
		if !strings.HasPrefix(name, "slide_0m00s_") {
			continue
		}
		result.Checked++

		gray, err := imaging.LoadGray(filepath.Join(videoDir, name))
		if err != nil {
			// Unreadable files count as black, same as a failed decode.
			toRemove = append(toRemove, name)
			continue
		}
		if imaging.DarkFraction(gray, config.BlackLuminanceCutoff) > config.BlackFractionCutoff {
			toRemove = append(toRemove, name)
		}
	}
	result.Removed = toRemove

	if dryRun || len(toRemove) == 0 {
		return result, nil
	}
	if err := removeSlides(videoDir, toRemove); err != nil {
		return nil, err
	}
	return result, nil
}

// removeSlides deletes the named slide files and drops their metadata
// entries, updating the detection stats.
func removeSlides(videoDir string, names []string) error {
	removed := make(map[string]bool, len(names))
	for _, name := range names {
		path := filepath.Join(videoDir, name)
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("failed to remove %s: %w", name, err)
		}
		removed[name] = true
	}

	metaPath := MetadataPathFor(videoDir)
	meta, err := LoadMetadata(metaPath)
	if err != nil {
		// Files are gone either way; a later sync will converge.
		log.Printf("Warning: could not update metadata for %s: %v", videoDir, err)
		return nil
	}

	kept := meta.Slides[:0:0]
	for _, slide := range meta.Slides {
		if !removed[slide.Filename] {
			kept = append(kept, slide)
		}
	}
	meta.Slides = kept
	meta.Stats.SlidesDetected = len(kept)
	meta.Stats.UniqueSlides = len(kept)

	return SaveMetadata(metaPath, meta)
}
