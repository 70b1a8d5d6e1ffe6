package ingest

import (
	"context"
	"encoding/json"
	"encoding/xml"
	"fmt"
	"html"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"slidekb/config"
	"slidekb/types"
)

// ErrNoTranscript is returned when a video has no captions in any
// requested language.
var ErrNoTranscript = fmt.Errorf("no transcript available")

// TranscriptFetcher pulls caption tracks from the public timedtext endpoint.
type TranscriptFetcher struct {
	// Languages tried in order. Defaults to English variants.
	Languages []string
	client    *http.Client
	baseURL   string
}

// NewTranscriptFetcher creates a fetcher with sane defaults.
func NewTranscriptFetcher() *TranscriptFetcher {
	return &TranscriptFetcher{
		Languages: []string{"en", "en-US", "en-GB"},
		client:    &http.Client{Timeout: 30 * time.Second},
		baseURL:   "https://video.google.com/timedtext",
	}
}

type timedText struct {
	XMLName xml.Name        `xml:"transcript"`
	Texts   []timedTextLine `xml:"text"`
}

type timedTextLine struct {
	Start float64 `xml:"start,attr"`
	Dur   float64 `xml:"dur,attr"`
	Body  string  `xml:",chardata"`
}

// Fetch retrieves the transcript for one video, trying each configured
// language until one has captions.
func (f *TranscriptFetcher) Fetch(ctx context.Context, videoID string) (*types.Transcript, error) {
	for _, lang := range f.Languages {
		segments, err := f.fetchLang(ctx, videoID, lang)
		if err != nil {
			return nil, err
		}
		if len(segments) > 0 {
			return &types.Transcript{
				VideoID:   videoID,
				FetchedAt: time.Now(),
				Segments:  segments,
			}, nil
		}
	}
	return nil, fmt.Errorf("%w for %s", ErrNoTranscript, videoID)
}

func (f *TranscriptFetcher) fetchLang(ctx context.Context, videoID, lang string) ([]types.TranscriptSegment, error) {
	q := url.Values{}
	q.Set("v", videoID)
	q.Set("lang", lang)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, f.baseURL+"?"+q.Encode(), nil)
	if err != nil {
		return nil, err
	}
	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("timedtext request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("timedtext returned status %d", resp.StatusCode)
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	// An empty body means no captions for this language.
	if len(strings.TrimSpace(string(body))) == 0 {
		return nil, nil
	}

	var doc timedText
	if err := xml.Unmarshal(body, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse timedtext XML: %w", err)
	}

	segments := make([]types.TranscriptSegment, 0, len(doc.Texts))
	for _, line := range doc.Texts {
		text := strings.TrimSpace(html.UnescapeString(line.Body))
		if text == "" {
			continue
		}
		segments = append(segments, types.TranscriptSegment{
			Start:    line.Start,
			Duration: line.Dur,
			Text:     text,
		})
	}
	return segments, nil
}

// SaveTranscript writes the transcript to data/raw/{video_id}.json.
func SaveTranscript(cfg config.SlideConfig, meta types.VideoMeta, t *types.Transcript) error {
	t.Title = meta.Title
	data, err := json.MarshalIndent(t, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode transcript: %w", err)
	}
	path := cfg.TranscriptPath(meta.VideoID)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}
