package export

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"slidekb/config"
	"slidekb/curation"
	"slidekb/types"
)

// MasterKBFile is the single-document rollup of the whole knowledge base.
const MasterKBFile = "Master_Knowledge_Base.md"

// GenerateMasterKB writes one markdown document covering every curated
// video, grouped by module, with a topic index and aggregated takeaways.
func (e *Exporter) GenerateMasterKB() (string, error) {
	videos, err := e.loadAllCurated()
	if err != nil {
		return "", err
	}
	if len(videos) == 0 {
		return "", fmt.Errorf("no curated videos found, run curation first")
	}

	byModule := make(map[string][]*types.Curation)
	for _, v := range videos {
		module := v.Module
		if !curation.ValidModule(module) {
			module = "case_studies"
		}
		byModule[module] = append(byModule[module], v)
	}
	for _, vs := range byModule {
		sort.Slice(vs, func(i, j int) bool { return vs[i].Title < vs[j].Title })
	}

	var b strings.Builder
	b.WriteString("# AI Agents Knowledge Base\n\n")
	fmt.Fprintf(&b, "*Generated: %s*\n\n", time.Now().Format("2006-01-02 15:04"))
	b.WriteString("A curated knowledge base covering agentic AI, workflows, architectures, and real-world lessons.\n\n")
	fmt.Fprintf(&b, "**%d videos** | **%d learning tracks**\n\n", len(videos), len(byModule))

	b.WriteString("---\n\n## Table of Contents\n\n")
	for _, m := range curation.Modules {
		anchor := strings.ReplaceAll(strings.ToLower(m.Name), " ", "-")
		anchor = strings.ReplaceAll(anchor, "&", "")
		fmt.Fprintf(&b, "- [%s](#%s) (%d videos)\n", m.Name, anchor, len(byModule[m.ID]))
	}
	b.WriteString("- [Quick Reference](#quick-reference)\n")
	b.WriteString("- [Key Takeaways](#key-takeaways)\n\n---\n\n")

	for _, m := range curation.Modules {
		fmt.Fprintf(&b, "## %s\n\n*%s*\n\n", m.Name, m.Description)
		for i, v := range byModule[m.ID] {
			fmt.Fprintf(&b, "### %d. [%s](%s)\n\n", i+1, v.Title, v.URL)
			if v.OneLiner != "" {
				fmt.Fprintf(&b, "> %s\n\n", v.OneLiner)
			}
			b.WriteString("**Summary:**\n")
			for _, bullet := range firstN(v.Summary, 5) {
				fmt.Fprintf(&b, "- %s\n", bullet)
			}
			b.WriteString("\n")
			if len(v.KeyTakeaways) > 0 {
				b.WriteString("**Key Actions:**\n")
				for _, t := range v.KeyTakeaways[:min(3, len(v.KeyTakeaways))] {
					fmt.Fprintf(&b, "- %s %s\n", takeawayMark(t), t.Text)
				}
				b.WriteString("\n")
			}
			if len(v.Topics) > 0 {
				fmt.Fprintf(&b, "**Topics:** %s\n\n", strings.Join(v.Topics, ", "))
			}
			e.writeSlideSection(&b, v.VideoID)
			b.WriteString("---\n\n")
		}
	}

	b.WriteString("## Quick Reference\n\n### All Topics\n\n")
	topicCounts := make(map[string]int)
	for _, v := range videos {
		for _, topic := range v.Topics {
			topicCounts[strings.ToLower(topic)]++
		}
	}
	topics := make([]string, 0, len(topicCounts))
	for t := range topicCounts {
		topics = append(topics, t)
	}
	sort.Strings(topics)
	for _, t := range topics {
		fmt.Fprintf(&b, "- **%s**: %d video(s)\n", t, topicCounts[t])
	}

	b.WriteString("\n## Key Takeaways\n\n### Do's\n\n")
	var dos, donts []string
	for _, v := range videos {
		for _, t := range v.KeyTakeaways {
			if t.Type == "do" {
				dos = append(dos, t.Text)
			} else {
				donts = append(donts, t.Text)
			}
		}
	}
	for _, d := range firstN(dos, 15) {
		fmt.Fprintf(&b, "- ✅ %s\n", d)
	}
	b.WriteString("\n### Don'ts\n\n")
	for _, d := range firstN(donts, 15) {
		fmt.Fprintf(&b, "- ❌ %s\n", d)
	}
	b.WriteString("\n---\n\n")
	b.WriteString("*This knowledge base was auto-generated from video transcripts. Import into [NotebookLM](https://notebooklm.google.com) for interactive Q&A.*\n")

	dir := filepath.Join(e.Config.DataRoot, NotebooksDir)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", err
	}
	outPath := filepath.Join(dir, MasterKBFile)
	if err := os.WriteFile(outPath, []byte(b.String()), 0o644); err != nil {
		return "", err
	}
	return outPath, nil
}

// writeSlideSection appends a preview of a video's unique slides.
func (e *Exporter) writeSlideSection(b *strings.Builder, videoID string) {
	unique := e.uniqueSlides(videoID)
	if len(unique) == 0 {
		return
	}
	fmt.Fprintf(b, "**Slides (%d):**\n", len(unique))
	for _, s := range unique[:min(5, len(unique))] {
		preview := strings.ReplaceAll(s.OCRText, "\n", " ")
		if len(preview) > 150 {
			preview = preview[:150] + "..."
		}
		fmt.Fprintf(b, "- [%s](%s): %s\n", s.TimestampFormatted, s.TimestampURL, preview)
	}
	if len(unique) > 5 {
		fmt.Fprintf(b, "- *...and %d more slides*\n", len(unique)-5)
	}
	b.WriteString("\n")
}

func (e *Exporter) loadAllCurated() ([]*types.Curation, error) {
	cleanDir := filepath.Join(e.Config.DataRoot, config.CleanDir)
	entries, err := os.ReadDir(cleanDir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	var out []*types.Curation
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".json") {
			continue
		}
		cur, err := curation.LoadCuration(filepath.Join(cleanDir, entry.Name()))
		if err != nil || cur == nil {
			continue
		}
		out = append(out, cur)
	}
	return out, nil
}

func takeawayMark(t types.Takeaway) string {
	if t.Type == "do" {
		return "✅"
	}
	return "❌"
}
