// Package slides owns the per-video metadata.json and keeps it consistent
// with the image files actually on disk.
package slides

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"slidekb/config"
	"slidekb/types"
)

// ErrNoMetadata marks a video directory without a metadata.json.
var ErrNoMetadata = errors.New("no slide metadata")

// LoadMetadata reads a video's metadata.json.
func LoadMetadata(path string) (*types.VideoSlideSet, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrNoMetadata
		}
		return nil, fmt.Errorf("failed to read metadata: %w", err)
	}

	var meta types.VideoSlideSet
	if err := json.Unmarshal(data, &meta); err != nil {
		return nil, fmt.Errorf("failed to parse metadata %s: %w", path, err)
	}
	return &meta, nil
}

// SaveMetadata rewrites a video's metadata.json in full. Last full write wins.
func SaveMetadata(path string, meta *types.VideoSlideSet) error {
	if meta.SchemaVersion == 0 {
		meta.SchemaVersion = types.SchemaVersion
	}

	data, err := json.MarshalIndent(meta, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode metadata: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create video directory: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write metadata: %w", err)
	}
	return nil
}

// ListVideoDirs returns the video IDs that have a slide directory, sorted.
func ListVideoDirs(slidesRoot string) ([]string, error) {
	entries, err := os.ReadDir(slidesRoot)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to list %s: %w", slidesRoot, err)
	}

	var ids []string
	for _, e := range entries {
		if e.IsDir() && !strings.HasPrefix(e.Name(), ".") {
			ids = append(ids, e.Name())
		}
	}
	sort.Strings(ids)
	return ids, nil
}

// SlideFilesOnDisk returns the slide_*.png filenames present in a video
// directory, sorted.
func SlideFilesOnDisk(videoDir string) ([]string, error) {
	matches, err := filepath.Glob(filepath.Join(videoDir, "slide_*.png"))
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(matches))
	for _, m := range matches {
		names = append(names, filepath.Base(m))
	}
	sort.Strings(names)
	return names, nil
}

// MetadataPathFor is a convenience over config paths for callers holding
// only a video directory.
func MetadataPathFor(videoDir string) string {
	return filepath.Join(videoDir, config.MetadataFile)
}
