package config

import "time"

// Extraction Defaults
const (
	// DefaultFrameInterval is the sampling interval between decoded frames in seconds
	DefaultFrameInterval = 2.0

	// DefaultSceneThreshold is the histogram-difference cutoff for a scene change
	DefaultSceneThreshold = 0.15

	// DefaultClassifierThreshold is the minimum normalized slide probability
	DefaultClassifierThreshold = 0.55

	// DefaultTextDensityMin is the minimum OCR word count for the text-density fallback
	DefaultTextDensityMin = 15

	// DefaultTextDensityMax is the maximum OCR word count for the text-density fallback
	DefaultTextDensityMax = 300

	// DefaultHashThreshold is the maximum Hamming distance between duplicate hashes
	DefaultHashThreshold = 10

	// DefaultBlurThreshold is the minimum Laplacian variance for a sharp image
	DefaultBlurThreshold = 100.0

	// DefaultMinOCRWords is the minimum word count for a slide to carry real text
	DefaultMinOCRWords = 10

	// BlackLuminanceCutoff is the per-pixel luminance below which a pixel counts as black
	BlackLuminanceCutoff = 30

	// BlackFractionCutoff is the fraction of black pixels above which a frame is rejected
	BlackFractionCutoff = 0.85
)

// Transcript Alignment Constants
const (
	// TranscriptWindow is how far before/after a slide timestamp segments are collected
	TranscriptWindow = 15 * time.Second

	// TranscriptContextSegments caps the before/after segment counts
	TranscriptContextSegments = 4
)

// Download Retry Constants
const (
	// DownloadRetryBase is the first backoff delay after a rate-limit response
	DownloadRetryBase = 30 * time.Second

	// DownloadMaxAttempts bounds download retries
	DownloadMaxAttempts = 3
)

// Progress Store Constants
const (
	// AuditLogCap is the maximum retained audit entries (oldest dropped first)
	AuditLogCap = 1000
)

// Credit Overlay Constants
const (
	// CreditBarFraction is the bar height as a fraction of the image height
	CreditBarFraction = 0.05

	// CreditBarMinHeight and CreditBarMaxHeight clamp the rendered bar height in pixels
	CreditBarMinHeight = 30
	CreditBarMaxHeight = 60

	// DarkStripCutoff is the mean bottom-strip luminance below which a burned-in
	// credit bar is assumed present
	DarkStripCutoff = 50.0
)

// Cleanup Constants
const (
	// TransitionWindow is the gap under which two adjacent slides are treated as
	// one transition artifact (the earlier one removed)
	TransitionWindow = 5.0
)

// Directory Constants
const (
	// SlidesDir holds one subdirectory per video
	SlidesDir = "data/slides"

	// RawDir holds fetched transcripts as JSON
	RawDir = "data/raw"

	// CleanDir holds curated per-video summaries
	CleanDir = "data/clean"

	// KBDir holds the catalog, search index and exported bundles
	KBDir = "kb"

	// FramesScratchDir is the per-video scratch directory, deleted at end of run
	FramesScratchDir = "frames"
)

// File Constants
const (
	// MetadataFile is the per-video slide metadata filename
	MetadataFile = "metadata.json"

	// CatalogFile is the cross-video catalog under KBDir
	CatalogFile = "metadata.json"

	// ProgressFile is the curation progress store under SlidesDir
	ProgressFile = ".curation_progress.json"

	// IndexFile is the semantic search index under KBDir
	IndexFile = "vector_index.json"
)
