package curation

import (
	"context"
	"crypto/tls"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	cohere "github.com/cohere-ai/cohere-go/v2"
	cohereclient "github.com/cohere-ai/cohere-go/v2/client"

	"slidekb/types"
)

// maxTranscriptChars keeps the prompt under the model's context limit.
const maxTranscriptChars = 100000

const promptTemplate = `You are an expert AI researcher and educator. Analyze this video transcript about AI agents and agentic workflows.

VIDEO METADATA:
Title: %s
Channel: %s
Duration: %s
URL: %s

TRANSCRIPT:
%s

Please provide a structured analysis in the following JSON format:

{
    "summary": [
        "Bullet point 1 (key insight or topic covered)",
        "Bullet point 2",
        "... (5-10 total bullet points)"
    ],
    "key_takeaways": [
        {
            "type": "do",
            "text": "Actionable recommendation from the video"
        },
        {
            "type": "dont",
            "text": "Anti-pattern or thing to avoid mentioned in the video"
        }
    ],
    "topics": ["topic1", "topic2", "topic3"],
    "module": "One of: foundations, workflows, tooling, case_studies",
    "module_rationale": "Brief explanation of why this module was chosen",
    "highlights": [
        {
            "timestamp": "MM:SS",
            "description": "Brief description of what's discussed at this timestamp"
        }
    ],
    "one_liner": "A single sentence (max 20 words) capturing the core message of this video"
}

Guidelines:
- For summary: Focus on the main ideas, not every detail. 5-10 bullet points.
- For key_takeaways: Extract practical do/don't guidance. 3-6 items total.
- For topics: 3-7 relevant topics/keywords for this video.
- For module: Choose the BEST fit from the 4 options based on primary content.
- For highlights: 3-5 key moments with timestamps (format: MM:SS)

Respond with valid JSON only. No markdown formatting.`

// ChatProvider abstracts the LLM call so tests can fake it.
type ChatProvider interface {
	Chat(ctx context.Context, prompt string) (string, error)
}

// CohereChat is the production ChatProvider backed by the Cohere Chat API.
type CohereChat struct {
	client *cohereclient.Client
	model  string
}

// NewCohereChatFromEnv builds a client from COHERE_API_KEY, or returns an
// error when the key is missing.
func NewCohereChatFromEnv() (*CohereChat, error) {
	key := os.Getenv("COHERE_API_KEY")
	if key == "" {
		return nil, errors.New("COHERE_API_KEY not set")
	}
	model := os.Getenv("COHERE_CHAT_MODEL")
	if model == "" {
		model = "command-r-plus-08-2024"
	}
	// Force HTTP/1.1; the Cohere endpoint intermittently resets HTTP/2 streams.
	httpClient := &http.Client{
		Timeout: 120 * time.Second,
		Transport: &http.Transport{
			TLSNextProto:      make(map[string]func(authority string, c *tls.Conn) http.RoundTripper),
			ForceAttemptHTTP2: false,
		},
	}
	client := cohereclient.NewClient(
		cohereclient.WithToken(key),
		cohereclient.WithHTTPClient(httpClient),
	)
	return &CohereChat{client: client, model: model}, nil
}

func (c *CohereChat) Chat(ctx context.Context, prompt string) (string, error) {
	resp, err := c.client.Chat(ctx, &cohere.ChatRequest{
		Message: prompt,
		Model:   &c.model,
	})
	if err != nil {
		return "", fmt.Errorf("cohere chat error: %w", err)
	}
	if resp == nil {
		return "", errors.New("cohere chat returned empty response")
	}
	return resp.Text, nil
}

// Curator runs curation over raw transcripts.
type Curator struct {
	Provider ChatProvider
}

// FormatTranscript renders segments into readable text with a timestamp
// marker roughly every minute and paragraph breaks on sentence endings.
func FormatTranscript(t *types.Transcript) string {
	var lines []string
	var paragraph []string
	lastStamp := 0.0

	for _, seg := range t.Segments {
		text := strings.TrimSpace(seg.Text)
		if seg.Start-lastStamp >= 60 {
			if len(paragraph) > 0 {
				lines = append(lines, strings.Join(paragraph, " "))
				paragraph = nil
			}
			total := int(seg.Start)
			lines = append(lines, fmt.Sprintf("[%02d:%02d]", total/60, total%60))
			lastStamp = seg.Start
		}
		paragraph = append(paragraph, text)
		if strings.HasSuffix(text, ".") || strings.HasSuffix(text, "?") || strings.HasSuffix(text, "!") {
			lines = append(lines, strings.Join(paragraph, " "))
			paragraph = nil
		}
	}
	if len(paragraph) > 0 {
		lines = append(lines, strings.Join(paragraph, " "))
	}
	return strings.Join(lines, "\n")
}

// BuildPrompt assembles the full curation prompt for one video.
func BuildPrompt(meta types.VideoMeta, transcript *types.Transcript) string {
	text := FormatTranscript(transcript)
	if len(text) > maxTranscriptChars {
		text = text[:maxTranscriptChars] + "\n\n[TRANSCRIPT TRUNCATED]"
	}
	duration := meta.Duration
	if duration == "" {
		duration = "Unknown"
	}
	return fmt.Sprintf(promptTemplate, meta.Title, meta.Channel, duration, meta.URL, text)
}

// StripCodeFence removes a surrounding markdown code fence if the model
// wrapped its JSON despite instructions.
func StripCodeFence(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	if idx := strings.IndexByte(s, '\n'); idx >= 0 {
		s = s[idx+1:]
	}
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}

// ParseResponse decodes the model output into a Curation record, tolerating
// code fences. The module assignment is validated against the taxonomy.
func ParseResponse(raw string) (*types.Curation, error) {
	cleaned := StripCodeFence(raw)
	var cur types.Curation
	if err := json.Unmarshal([]byte(cleaned), &cur); err != nil {
		return nil, fmt.Errorf("model response is not valid JSON: %w", err)
	}
	if len(cur.Summary) == 0 {
		return nil, errors.New("model response has no summary")
	}
	if !ValidModule(cur.Module) {
		return nil, fmt.Errorf("unknown module %q in model response", cur.Module)
	}
	return &cur, nil
}

// CurateVideo produces the structured curation record for one video.
func (c *Curator) CurateVideo(ctx context.Context, meta types.VideoMeta, transcript *types.Transcript) (*types.Curation, error) {
	if transcript == nil || len(transcript.Segments) == 0 {
		return nil, fmt.Errorf("no transcript available for %s", meta.VideoID)
	}
	raw, err := c.Provider.Chat(ctx, BuildPrompt(meta, transcript))
	if err != nil {
		return nil, err
	}
	cur, err := ParseResponse(raw)
	if err != nil {
		return nil, err
	}
	cur.VideoID = meta.VideoID
	cur.Title = meta.Title
	cur.URL = meta.URL
	cur.CuratedAt = time.Now()
	return cur, nil
}

// SaveCuration writes the record under data/clean/.
func SaveCuration(path string, cur *types.Curation) error {
	data, err := json.MarshalIndent(cur, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode curation: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

// LoadCuration reads a record back, nil with no error when absent.
func LoadCuration(path string) (*types.Curation, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var cur types.Curation
	if err := json.Unmarshal(data, &cur); err != nil {
		return nil, fmt.Errorf("corrupt curation file %s: %w", path, err)
	}
	return &cur, nil
}
