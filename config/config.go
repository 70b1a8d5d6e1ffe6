package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/joho/godotenv"
)

// SlideConfig holds every tunable of the extraction pipeline. Zero values are
// replaced with the package defaults by ApplyDefaults.
type SlideConfig struct {
	FrameInterval       float64 `json:"frame_interval"`
	SceneThreshold      float64 `json:"scene_threshold"`
	ClassifierThreshold float64 `json:"classifier_threshold"`
	TextDensityMin      int     `json:"text_density_min"`
	TextDensityMax      int     `json:"text_density_max"`
	HashThreshold       int     `json:"hash_threshold"`
	BlurThreshold       float64 `json:"blur_threshold"`
	MinOCRWords         int     `json:"min_ocr_words"`

	// UseClassifier selects vision-language scoring; when false (or after a
	// load failure downgrades it) the text-density fallback is used instead.
	UseClassifier bool `json:"use_classifier"`

	// RemoveDuplicates selects physical removal over duplicate_of marking.
	RemoveDuplicates bool `json:"remove_duplicates"`

	// Toggles for the individual quality checks.
	CheckBlur    bool `json:"check_blur"`
	CheckBlack   bool `json:"check_black"`
	CheckLowText bool `json:"check_low_text"`
	CheckFiller  bool `json:"check_filler"`

	// DataRoot anchors all relative data paths. Defaults to the working directory.
	DataRoot string `json:"-"`
}

// DefaultSlideConfig returns a fully populated configuration.
func DefaultSlideConfig() SlideConfig {
	return SlideConfig{
		FrameInterval:       DefaultFrameInterval,
		SceneThreshold:      DefaultSceneThreshold,
		ClassifierThreshold: DefaultClassifierThreshold,
		TextDensityMin:      DefaultTextDensityMin,
		TextDensityMax:      DefaultTextDensityMax,
		HashThreshold:       DefaultHashThreshold,
		BlurThreshold:       DefaultBlurThreshold,
		MinOCRWords:         DefaultMinOCRWords,
		UseClassifier:       true,
		CheckBlur:           true,
		CheckBlack:          true,
		CheckLowText:        true,
		CheckFiller:         true,
	}
}

// ApplyDefaults fills zero-valued numeric fields with the package defaults.
func ApplyDefaults(cfg SlideConfig) SlideConfig {
	if cfg.FrameInterval == 0 {
		cfg.FrameInterval = DefaultFrameInterval
	}
	if cfg.SceneThreshold == 0 {
		cfg.SceneThreshold = DefaultSceneThreshold
	}
	if cfg.ClassifierThreshold == 0 {
		cfg.ClassifierThreshold = DefaultClassifierThreshold
	}
	if cfg.TextDensityMin == 0 {
		cfg.TextDensityMin = DefaultTextDensityMin
	}
	if cfg.TextDensityMax == 0 {
		cfg.TextDensityMax = DefaultTextDensityMax
	}
	if cfg.HashThreshold == 0 {
		cfg.HashThreshold = DefaultHashThreshold
	}
	if cfg.BlurThreshold == 0 {
		cfg.BlurThreshold = DefaultBlurThreshold
	}
	if cfg.MinOCRWords == 0 {
		cfg.MinOCRWords = DefaultMinOCRWords
	}
	return cfg
}

// Snapshot renders the config as the extraction_config map stored in metadata.
func (c SlideConfig) Snapshot() map[string]any {
	return map[string]any{
		"frame_interval":       c.FrameInterval,
		"scene_threshold":      c.SceneThreshold,
		"classifier_threshold": c.ClassifierThreshold,
		"text_density_min":     c.TextDensityMin,
		"text_density_max":     c.TextDensityMax,
		"hash_threshold":       c.HashThreshold,
		"blur_threshold":       c.BlurThreshold,
		"min_ocr_words":        c.MinOCRWords,
		"use_classifier":       c.UseClassifier,
		"remove_duplicates":    c.RemoveDuplicates,
	}
}

// SlidesRoot returns the root directory holding per-video slide directories.
func (c SlideConfig) SlidesRoot() string { return filepath.Join(c.DataRoot, SlidesDir) }

// VideoDir returns the slide directory for one video.
func (c SlideConfig) VideoDir(videoID string) string {
	return filepath.Join(c.SlidesRoot(), videoID)
}

// MetadataPath returns the metadata.json path for one video.
func (c SlideConfig) MetadataPath(videoID string) string {
	return filepath.Join(c.VideoDir(videoID), MetadataFile)
}

// FramesDir returns the per-video frame scratch directory.
func (c SlideConfig) FramesDir(videoID string) string {
	return filepath.Join(c.VideoDir(videoID), FramesScratchDir)
}

// TranscriptPath returns the raw transcript path for one video.
func (c SlideConfig) TranscriptPath(videoID string) string {
	return filepath.Join(c.DataRoot, RawDir, videoID+".json")
}

// CurationPath returns the curated summary path for one video.
func (c SlideConfig) CurationPath(videoID string) string {
	return filepath.Join(c.DataRoot, CleanDir, videoID+".json")
}

// CatalogPath returns the cross-video catalog path.
func (c SlideConfig) CatalogPath() string {
	return filepath.Join(c.DataRoot, KBDir, CatalogFile)
}

// ProgressPath returns the curation progress store path.
func (c SlideConfig) ProgressPath() string {
	return filepath.Join(c.SlidesRoot(), ProgressFile)
}

// IndexPath returns the semantic search index path.
func (c SlideConfig) IndexPath() string {
	return filepath.Join(c.DataRoot, KBDir, IndexFile)
}

// LoadEnv reads .env if present and returns a config with any SLIDEKB_*
// overrides applied on top of the defaults. A missing .env is not an error.
func LoadEnv() SlideConfig {
	_ = godotenv.Load()

	cfg := DefaultSlideConfig()
	cfg.DataRoot = os.Getenv("SLIDEKB_DATA_ROOT")

	if v := os.Getenv("SLIDEKB_FRAME_INTERVAL"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil && f > 0 {
			cfg.FrameInterval = f
		}
	}
	if v := os.Getenv("SLIDEKB_SCENE_THRESHOLD"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil && f > 0 {
			cfg.SceneThreshold = f
		}
	}
	if v := os.Getenv("SLIDEKB_HASH_THRESHOLD"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.HashThreshold = n
		}
	}
	if v := os.Getenv("SLIDEKB_BLUR_THRESHOLD"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil && f > 0 {
			cfg.BlurThreshold = f
		}
	}
	if v := os.Getenv("SLIDEKB_USE_CLASSIFIER"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			cfg.UseClassifier = b
		}
	}
	if v := os.Getenv("SLIDEKB_REMOVE_DUPLICATES"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			cfg.RemoveDuplicates = b
		}
	}
	return cfg
}

// Validate rejects configurations that cannot drive a run.
func (c SlideConfig) Validate() error {
	if c.FrameInterval <= 0 {
		return fmt.Errorf("frame interval must be positive, got %v", c.FrameInterval)
	}
	if c.SceneThreshold <= 0 || c.SceneThreshold >= 1 {
		return fmt.Errorf("scene threshold must be in (0,1), got %v", c.SceneThreshold)
	}
	if c.TextDensityMin >= c.TextDensityMax {
		return fmt.Errorf("text density bounds inverted: %d >= %d", c.TextDensityMin, c.TextDensityMax)
	}
	if c.HashThreshold < 0 || c.HashThreshold > 64 {
		return fmt.Errorf("hash threshold must be in [0,64], got %d", c.HashThreshold)
	}
	return nil
}
