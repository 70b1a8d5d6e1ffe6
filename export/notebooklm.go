// Package export renders the curated knowledge base into NotebookLM-ready
// text artifacts and stages them for upload.
package export

import (
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"

	"slidekb/config"
	"slidekb/curation"
	"slidekb/slides"
	"slidekb/types"
)

// Export layout under the project root.
const (
	NotebooksDir  = "notebooks"
	ReadyDir      = "notebooklm-ready"
	VideosSubdir  = "videos"
	ModulesSubdir = "modules"
	URLsFile      = "youtube-urls.txt"
)

// learningObjectives extends the module taxonomy for study-guide bundles.
var learningObjectives = map[string][]string{
	"foundations": {
		"Understand the core architecture of AI agents",
		"Learn fundamental decision-making patterns",
		"Grasp the key concepts in agentic AI systems",
	},
	"workflows": {
		"Design effective multi-agent orchestration patterns",
		"Implement agentic workflows for enterprise use cases",
		"Understand coordination and communication between agents",
	},
	"tooling": {
		"Evaluate and select AI agent frameworks",
		"Implement best practices for AI development",
		"Understand the modern AI development lifecycle",
	},
	"case_studies": {
		"Learn from real-world AI agent deployments",
		"Identify common pitfalls and anti-patterns",
		"Apply lessons learned to your own projects",
	},
}

var unsafeChars = regexp.MustCompile(`[<>:"/\\|?*]`)
var whitespace = regexp.MustCompile(`\s+`)

// SanitizeFilename converts a video title into a safe file name.
func SanitizeFilename(title string) string {
	safe := unsafeChars.ReplaceAllString(title, "")
	safe = whitespace.ReplaceAllString(safe, "_")
	if len(safe) > 100 {
		safe = safe[:100]
	}
	return safe
}

// TimestampLink turns an MM:SS or HH:MM:SS stamp into a seeking URL.
func TimestampLink(videoURL, timestamp string) string {
	parts := strings.Split(timestamp, ":")
	var seconds int
	switch len(parts) {
	case 2:
		m, err1 := strconv.Atoi(parts[0])
		s, err2 := strconv.Atoi(parts[1])
		if err1 != nil || err2 != nil {
			return videoURL
		}
		seconds = m*60 + s
	case 3:
		h, err1 := strconv.Atoi(parts[0])
		m, err2 := strconv.Atoi(parts[1])
		s, err3 := strconv.Atoi(parts[2])
		if err1 != nil || err2 != nil || err3 != nil {
			return videoURL
		}
		seconds = h*3600 + m*60 + s
	default:
		return videoURL
	}
	return fmt.Sprintf("%s&t=%ds", videoURL, seconds)
}

// Exporter writes NotebookLM artifacts from curated and extracted data.
type Exporter struct {
	Config config.SlideConfig
}

func (e *Exporter) videosDir() string {
	return filepath.Join(e.Config.DataRoot, NotebooksDir, ReadyDir, VideosSubdir)
}

func (e *Exporter) modulesDir() string {
	return filepath.Join(e.Config.DataRoot, NotebooksDir, ReadyDir, ModulesSubdir)
}

// uniqueSlides returns a video's slides excluding marked duplicates.
func (e *Exporter) uniqueSlides(videoID string) []types.Slide {
	meta, err := slides.LoadMetadata(e.Config.MetadataPath(videoID))
	if err != nil {
		return nil
	}
	var out []types.Slide
	for _, s := range meta.Slides {
		if s.IsDuplicateOf == "" {
			out = append(out, s)
		}
	}
	return out
}

// ExportVideo writes one curated video as a standalone NotebookLM document
// and returns the output path.
func (e *Exporter) ExportVideo(cur *types.Curation, transcript *types.Transcript) (string, error) {
	if err := os.MkdirAll(e.videosDir(), 0o755); err != nil {
		return "", err
	}
	outPath := filepath.Join(e.videosDir(), SanitizeFilename(cur.Title)+".txt")

	var b strings.Builder
	fmt.Fprintf(&b, "# %s\n\n", cur.Title)
	fmt.Fprintf(&b, "**Video ID:** %s\n", cur.VideoID)
	fmt.Fprintf(&b, "**URL:** %s\n\n", cur.URL)

	if m := curation.ModuleByID(cur.Module); m != nil {
		fmt.Fprintf(&b, "**Module:** %s\n", m.Name)
	}
	if cur.ModuleRationale != "" {
		fmt.Fprintf(&b, "**Module Rationale:** %s\n", cur.ModuleRationale)
	}
	b.WriteString("\n## Summary\n")
	for _, bullet := range cur.Summary {
		fmt.Fprintf(&b, "- %s\n", bullet)
	}

	b.WriteString("\n## Key Takeaways\n")
	for _, t := range cur.KeyTakeaways {
		fmt.Fprintf(&b, "- **%s:** %s\n", takeawayPrefix(t), t.Text)
	}

	b.WriteString("\n## Topics\n")
	if len(cur.Topics) > 0 {
		b.WriteString(strings.Join(cur.Topics, ", "))
	} else {
		b.WriteString("No topics extracted")
	}
	b.WriteString("\n")

	if len(cur.Highlights) > 0 {
		b.WriteString("\n## Key Moments\n")
		for _, h := range cur.Highlights {
			fmt.Fprintf(&b, "- [%s](%s): %s\n", h.Timestamp, TimestampLink(cur.URL, h.Timestamp), h.Description)
		}
	}

	if unique := e.uniqueSlides(cur.VideoID); len(unique) > 0 {
		b.WriteString("\n## Presentation Slides\n")
		fmt.Fprintf(&b, "*%d unique slides extracted from this video*\n\n", len(unique))
		for _, s := range unique {
			ocr := strings.TrimSpace(s.OCRText)
			if ocr == "" {
				continue
			}
			fmt.Fprintf(&b, "### Slide at [%s](%s)\n\n%s\n\n", s.TimestampFormatted, s.TimestampURL, ocr)
		}
	}

	if cur.OneLiner != "" {
		fmt.Fprintf(&b, "\n## TL;DR\n%s\n", cur.OneLiner)
	}

	b.WriteString("\n## Full Transcript\n\n")
	if transcript != nil && len(transcript.Segments) > 0 {
		b.WriteString(curation.FormatTranscript(transcript))
	} else {
		b.WriteString("Transcript not available")
	}
	b.WriteString("\n\n---\n\n")
	fmt.Fprintf(&b, "*Content extracted from YouTube video. Video URL: %s*\n", cur.URL)

	if err := os.WriteFile(outPath, []byte(b.String()), 0o644); err != nil {
		return "", err
	}
	return outPath, nil
}

// ExportModule writes a study-guide bundle for one module and its videos.
func (e *Exporter) ExportModule(moduleID string, videos []*types.Curation) (string, error) {
	info := curation.ModuleByID(moduleID)
	if info == nil {
		return "", fmt.Errorf("unknown module %q", moduleID)
	}
	if err := os.MkdirAll(e.modulesDir(), 0o755); err != nil {
		return "", err
	}
	outPath := filepath.Join(e.modulesDir(), SanitizeFilename(info.Name)+".md")

	var b strings.Builder
	fmt.Fprintf(&b, "# %s\n\n%s\n\n", info.Name, info.Description)

	b.WriteString("## Learning Objectives\n")
	for _, obj := range learningObjectives[moduleID] {
		fmt.Fprintf(&b, "- %s\n", obj)
	}

	b.WriteString("\n## Videos in This Module\n\n")
	for i, v := range videos {
		fmt.Fprintf(&b, "### %d. %s\n", i+1, v.Title)
		fmt.Fprintf(&b, "**URL:** %s\n\n", v.URL)

		if len(v.Summary) > 0 {
			b.WriteString("**Summary:**\n")
			for _, bullet := range firstN(v.Summary, 3) {
				fmt.Fprintf(&b, "- %s\n", bullet)
			}
			b.WriteString("\n")
		}
		if len(v.KeyTakeaways) > 0 {
			b.WriteString("**Key Takeaways:**\n")
			for _, t := range v.KeyTakeaways[:min(2, len(v.KeyTakeaways))] {
				fmt.Fprintf(&b, "- **%s:** %s\n", takeawayPrefix(t), t.Text)
			}
			b.WriteString("\n")
		}
		b.WriteString("---\n\n")
	}

	if err := os.WriteFile(outPath, []byte(b.String()), 0o644); err != nil {
		return "", err
	}
	return outPath, nil
}

// ExportURLs writes the plain URL list for direct NotebookLM import.
func (e *Exporter) ExportURLs(catalog *types.Catalog) (string, error) {
	dir := filepath.Join(e.Config.DataRoot, NotebooksDir)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", err
	}
	var urls []string
	for _, v := range catalog.Videos {
		if v.URL != "" {
			urls = append(urls, v.URL)
		}
	}
	outPath := filepath.Join(dir, URLsFile)
	if err := os.WriteFile(outPath, []byte(strings.Join(urls, "\n")+"\n"), 0o644); err != nil {
		return "", err
	}
	return outPath, nil
}

// ExportAll renders every curated video plus one bundle per module.
func (e *Exporter) ExportAll() (int, error) {
	cleanDir := filepath.Join(e.Config.DataRoot, config.CleanDir)
	entries, err := os.ReadDir(cleanDir)
	if err != nil {
		if os.IsNotExist(err) {
			return 0, fmt.Errorf("no curated videos found, run curation first")
		}
		return 0, err
	}

	byModule := make(map[string][]*types.Curation)
	exported := 0
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".json") {
			continue
		}
		videoID := strings.TrimSuffix(entry.Name(), ".json")
		cur, err := curation.LoadCuration(filepath.Join(cleanDir, entry.Name()))
		if err != nil || cur == nil {
			log.Printf("Warning: skipping %s: %v", entry.Name(), err)
			continue
		}
		transcript := loadTranscript(e.Config.TranscriptPath(videoID))
		if _, err := e.ExportVideo(cur, transcript); err != nil {
			log.Printf("Warning: failed to export %s: %v", videoID, err)
			continue
		}
		byModule[cur.Module] = append(byModule[cur.Module], cur)
		exported++
	}

	for moduleID, videos := range byModule {
		if _, err := e.ExportModule(moduleID, videos); err != nil {
			log.Printf("Warning: failed to export module %s: %v", moduleID, err)
		}
	}
	return exported, nil
}

func takeawayPrefix(t types.Takeaway) string {
	if t.Type == "do" {
		return "DO"
	}
	return "DON'T"
}

func firstN(s []string, n int) []string {
	if len(s) > n {
		return s[:n]
	}
	return s
}

func min(a, b int) int {
	if a < b {
		return a
	}
	return b
}

func loadTranscript(path string) *types.Transcript {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil
	}
	var t types.Transcript
	if err := json.Unmarshal(data, &t); err != nil {
		return nil
	}
	return &t
}
