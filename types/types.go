package types

import (
	"fmt"
	"time"
)

// SchemaVersion is the current version of the persisted metadata format.
// Unknown fields in older files are ignored; new fields are additive only.
const SchemaVersion = 1

// VideoMeta is one playlist entry as recorded in the catalog.
type VideoMeta struct {
	VideoID     string `json:"video_id"`
	Title       string `json:"title"`
	Description string `json:"description,omitempty"`
	Channel     string `json:"channel,omitempty"`
	PublishedAt string `json:"published_at,omitempty"`
	Duration    string `json:"duration,omitempty"`
	URL         string `json:"url"`
	Position    int    `json:"position"`
}

// Catalog is the cross-video metadata file written by ingest.
type Catalog struct {
	PlaylistID string      `json:"playlist_id"`
	Title      string      `json:"title,omitempty"`
	FetchedAt  time.Time   `json:"fetched_at"`
	VideoCount int         `json:"video_count"`
	Videos     []VideoMeta `json:"videos"`
}

// TranscriptSegment is one time-coded caption line.
type TranscriptSegment struct {
	Start    float64 `json:"start"`
	Duration float64 `json:"duration"`
	Text     string  `json:"text"`
}

// End returns the segment's end time in seconds.
func (s TranscriptSegment) End() float64 { return s.Start + s.Duration }

// Transcript is a full video transcript as stored under data/raw/.
type Transcript struct {
	VideoID   string              `json:"video_id"`
	Title     string              `json:"title,omitempty"`
	FetchedAt time.Time           `json:"fetched_at"`
	Segments  []TranscriptSegment `json:"segments"`
}

// FullText joins all segment text with spaces.
func (t *Transcript) FullText() string {
	out := ""
	for i, seg := range t.Segments {
		if i > 0 {
			out += " "
		}
		out += seg.Text
	}
	return out
}

// TranscriptContext holds the speech surrounding a slide's timestamp.
type TranscriptContext struct {
	Before string `json:"before"`
	During string `json:"during"`
	After  string `json:"after"`
}

// Slide is one extracted slide image plus everything the pipeline learned about it.
type Slide struct {
	Filename           string             `json:"filename"`
	TimestampSeconds   float64            `json:"timestamp_seconds"`
	TimestampFormatted string             `json:"timestamp_formatted"`
	TimestampURL       string             `json:"timestamp_url,omitempty"`
	PerceptualHash     string             `json:"perceptual_hash"`
	IsDuplicateOf      string             `json:"duplicate_of,omitempty"`
	OCRText            string             `json:"ocr_text"`
	ClassifierScore    *float64           `json:"classifier_score,omitempty"`
	TranscriptContext  *TranscriptContext `json:"transcript_context,omitempty"`
}

// ExtractionStats records pipeline counts for one video.
type ExtractionStats struct {
	FramesAnalyzed  int            `json:"frames_analyzed"`
	SceneChanges    int            `json:"scene_changes"`
	SlidesDetected  int            `json:"slides_detected"`
	UniqueSlides    int            `json:"unique_slides"`
	Duplicates      int            `json:"duplicates"`
	RejectedByCheck map[string]int `json:"rejected_by_check,omitempty"`
}

// ReviewStats summarizes one human review pass.
type ReviewStats struct {
	TotalReviewed   int       `json:"total_reviewed"`
	ApprovedRemoval int       `json:"approved_removal"`
	KeptAfterReview int       `json:"kept_after_review"`
	ReviewedAt      time.Time `json:"reviewed_at"`
}

// CreditOverlay records that an attribution bar has been rendered onto the slides.
type CreditOverlay struct {
	Added   bool      `json:"added"`
	Text    string    `json:"text,omitempty"`
	AddedAt time.Time `json:"added_at,omitempty"`
}

// VideoSlideSet is the per-video metadata.json: the single source of truth
// for which slides exist and how they were produced.
type VideoSlideSet struct {
	SchemaVersion    int               `json:"schema_version"`
	VideoID          string            `json:"video_id"`
	Title            string            `json:"title"`
	URL              string            `json:"url"`
	ExtractedAt      time.Time         `json:"extracted_at"`
	ExtractionConfig map[string]any    `json:"extraction_config,omitempty"`
	Stats            ExtractionStats   `json:"stats"`
	Slides           []Slide           `json:"slides"`
	DeduplicationMap map[string][]string `json:"deduplication_map,omitempty"`
	HumanReviewed    bool              `json:"human_reviewed,omitempty"`
	ReviewStats      *ReviewStats      `json:"review_stats,omitempty"`
	CreditOverlay    *CreditOverlay    `json:"credit_overlay,omitempty"`
	MetadataSynced   bool              `json:"metadata_synced,omitempty"`
	CleanupApplied   bool              `json:"cleanup_applied,omitempty"`
}

// SlideByFilename returns the slide with the given filename, or nil.
func (v *VideoSlideSet) SlideByFilename(name string) *Slide {
	for i := range v.Slides {
		if v.Slides[i].Filename == name {
			return &v.Slides[i]
		}
	}
	return nil
}

// Curation status values. Status is always derived from the flags via
// VideoProgress.DeriveStatus, never stored independently.
const (
	StatusPending      = "pending"
	StatusReviewed     = "reviewed"
	StatusCreditsAdded = "credits_added"
	StatusCompleted    = "completed"
)

// VideoProgress is one video's curation workflow state.
type VideoProgress struct {
	VideoID         string    `json:"video_id"`
	Status          string    `json:"status"`
	Reviewed        bool      `json:"reviewed"`
	CreditsAdded    bool      `json:"credits_added"`
	DuplicatesFixed bool      `json:"duplicates_fixed"`
	MetadataSynced  bool      `json:"metadata_synced"`
	SlidesKept      int       `json:"slides_kept,omitempty"`
	SlidesRemoved   int       `json:"slides_removed,omitempty"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// DeriveStatus computes the workflow status from the boolean flags.
// completed requires reviewed, credits_added and metadata_synced all true;
// otherwise credits_added wins over reviewed, and pending is the floor.
func (p *VideoProgress) DeriveStatus() string {
	switch {
	case p.Reviewed && p.CreditsAdded && p.MetadataSynced:
		return StatusCompleted
	case p.CreditsAdded:
		return StatusCreditsAdded
	case p.Reviewed:
		return StatusReviewed
	default:
		return StatusPending
	}
}

// AuditEntry is one append-only record of a progress mutation.
type AuditEntry struct {
	Timestamp time.Time      `json:"timestamp"`
	VideoID   string         `json:"video_id"`
	Action    string         `json:"action"`
	Updates   map[string]any `json:"updates,omitempty"`
}

// ProgressFile is the persisted shape of the curation progress store.
type ProgressFile struct {
	SchemaVersion int                       `json:"schema_version"`
	UpdatedAt     time.Time                 `json:"updated_at"`
	Videos        map[string]*VideoProgress `json:"videos"`
	AuditLog      []AuditEntry              `json:"audit_log"`
}

// Takeaway is one actionable point extracted by curation.
type Takeaway struct {
	Type string `json:"type"` // "do" or "dont"
	Text string `json:"text"`
}

/// Highlight is a notable moment with a MM:SS timestamp.
type Highlight struct {
	Timestamp   string `json:"timestamp"`
	Description string `json:"description"`
}

// Curation is the LLM-produced summary record stored under data/clean/.
type Curation struct {
	VideoID         string      `json:"video_id"`
	Title           string      `json:"title"`
	URL             string      `json:"url,omitempty"`
	Summary         []string    `json:"summary"`
	KeyTakeaways    []Takeaway  `json:"key_takeaways"`
	Topics          []string    `json:"topics"`
	Module          string      `json:"module"`
	ModuleRationale string      `json:"module_rationale,omitempty"`
	Highlights      []Highlight `json:"highlights,omitempty"`
	OneLiner        string      `json:"one_liner,omitempty"`
	CuratedAt       time.Time   `json:"curated_at"`
}

// FormatTimestamp renders seconds as the compact "MmSSs" form used in
// slide filenames, e.g. 83.4 -> "1m23s".
func FormatTimestamp(seconds float64) string {
	total := int(seconds)
	return fmt.Sprintf("%dm%02ds", total/60, total%60)
}

// TimestampURL builds a video URL that seeks to the given second.
func TimestampURL(videoURL string, seconds float64) string {
	return fmt.Sprintf("%s&t=%ds", videoURL, int(seconds))
}
