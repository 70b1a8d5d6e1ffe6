package export

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"slidekb/config"
	"slidekb/curation"
	"slidekb/slides"
	"slidekb/types"
)

func TestSanitizeFilename(t *testing.T) {
	cases := []struct{ in, want string }{
		{"Building AI Agents: A Guide", "Building_AI_Agents_A_Guide"},
		{`What/Is\This|Video?`, "WhatIsThisVideo"},
		{"plain title", "plain_title"},
	}
	for _, c := range cases {
		if got := SanitizeFilename(c.in); got != c.want {
			t.Errorf("SanitizeFilename(%q) = %q, want %q", c.in, got, c.want)
		}
	}

	long := strings.Repeat("a", 150)
	if got := SanitizeFilename(long); len(got) != 100 {
		t.Errorf("long title should cap at 100 chars, got %d", len(got))
	}
}

func TestTimestampLink(t *testing.T) {
	url := "https://www.youtube.com/watch?v=abc"
	cases := []struct{ ts, want string }{
		{"02:15", url + "&t=135s"},
		{"1:02:15", url + "&t=3735s"},
		{"00:00", url + "&t=0s"},
		{"bogus", url},
		{"1:2:3:4", url},
	}
	for _, c := range cases {
		if got := TimestampLink(url, c.ts); got != c.want {
			t.Errorf("TimestampLink(%q) = %q, want %q", c.ts, got, c.want)
		}
	}
}

func TestFirstN(t *testing.T) {
	s := []string{"a", "b", "c"}
	if got := firstN(s, 2); len(got) != 2 {
		t.Errorf("firstN cap: %v", got)
	}
	if got := firstN(s, 10); len(got) != 3 {
		t.Errorf("firstN under cap: %v", got)
	}
}

func exportFixture(t *testing.T) (*Exporter, *types.Curation) {
	t.Helper()
	cfg := config.DefaultSlideConfig()
	cfg.DataRoot = t.TempDir()

	cur := &types.Curation{
		VideoID: "vid1",
		Title:   "Building AI Agents",
		URL:     "https://www.youtube.com/watch?v=vid1",
		Summary: []string{"Agents need guardrails", "Keep pipelines short"},
		KeyTakeaways: []types.Takeaway{
			{Type: "do", Text: "Start simple"},
			{Type: "dont", Text: "Skip evaluation"},
		},
		Topics:     []string{"agents", "orchestration"},
		Module:     "workflows",
		Highlights: []types.Highlight{{Timestamp: "02:15", Description: "Framework overview"}},
		OneLiner:   "Short pipelines beat clever ones.",
	}
	if err := curation.SaveCuration(cfg.CurationPath("vid1"), cur); err != nil {
		t.Fatal(err)
	}

	meta := &types.VideoSlideSet{
		VideoID: "vid1",
		Title:   cur.Title,
		URL:     cur.URL,
		Slides: []types.Slide{
			{
				Filename:           "slide_2m15s_aaaa.png",
				TimestampFormatted: "2m15s",
				TimestampURL:       cur.URL + "&t=135s",
				OCRText:            "Architecture overview with service boundaries",
			},
			{
				Filename:           "slide_2m17s_bbbb.png",
				TimestampFormatted: "2m17s",
				IsDuplicateOf:      "slide_2m15s_aaaa.png",
				OCRText:            "Architecture overview with service boundaries",
			},
		},
	}
	if err := slides.SaveMetadata(cfg.MetadataPath("vid1"), meta); err != nil {
		t.Fatal(err)
	}

	return &Exporter{Config: cfg}, cur
}

func TestExportVideoSections(t *testing.T) {
	e, cur := exportFixture(t)
	transcript := &types.Transcript{Segments: []types.TranscriptSegment{
		{Start: 0, Duration: 5, Text: "Welcome to the session."},
	}}

	path, err := e.ExportVideo(cur, transcript)
	if err != nil {
		t.Fatal(err)
	}
	if filepath.Base(path) != "Building_AI_Agents.txt" {
		t.Errorf("unexpected filename: %s", path)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	doc := string(data)

	for _, want := range []string{
		"# Building AI Agents",
		"## Summary",
		"- Agents need guardrails",
		"**DO:** Start simple",
		"**DON'T:** Skip evaluation",
		"## Key Moments",
		"&t=135s",
		"## Presentation Slides",
		"*1 unique slides extracted from this video*",
		"## TL;DR",
		"## Full Transcript",
		"Welcome to the session.",
		"*Content extracted from YouTube video.",
	} {
		if !strings.Contains(doc, want) {
			t.Errorf("document missing %q", want)
		}
	}

	// The marked duplicate must not appear.
	if strings.Count(doc, "Architecture overview") != 1 {
		t.Error("duplicate slide leaked into the export")
	}
}

func TestExportVideoWithoutTranscript(t *testing.T) {
	e, cur := exportFixture(t)
	path, err := e.ExportVideo(cur, nil)
	if err != nil {
		t.Fatal(err)
	}
	data, _ := os.ReadFile(path)
	if !strings.Contains(string(data), "Transcript not available") {
		t.Error("missing transcript placeholder")
	}
}

func TestExportModule(t *testing.T) {
	e, cur := exportFixture(t)
	path, err := e.ExportModule("workflows", []*types.Curation{cur})
	if err != nil {
		t.Fatal(err)
	}

	data, _ := os.ReadFile(path)
	doc := string(data)
	for _, want := range []string{
		"## Learning Objectives",
		"## Videos in This Module",
		"### 1. Building AI Agents",
	} {
		if !strings.Contains(doc, want) {
			t.Errorf("module doc missing %q", want)
		}
	}

	if _, err := e.ExportModule("bogus", nil); err == nil {
		t.Fatal("unknown module should fail")
	}
}

func TestExportURLs(t *testing.T) {
	e, _ := exportFixture(t)
	catalog := &types.Catalog{Videos: []types.VideoMeta{
		{VideoID: "a", URL: "https://www.youtube.com/watch?v=a"},
		{VideoID: "b"},
		{VideoID: "c", URL: "https://www.youtube.com/watch?v=c"},
	}}

	path, err := e.ExportURLs(catalog)
	if err != nil {
		t.Fatal(err)
	}
	data, _ := os.ReadFile(path)
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	if len(lines) != 2 {
		t.Fatalf("videos without URLs should be skipped, got %v", lines)
	}
}

func TestExportAll(t *testing.T) {
	e, _ := exportFixture(t)
	exported, err := e.ExportAll()
	if err != nil {
		t.Fatal(err)
	}
	if exported != 1 {
		t.Fatalf("expected 1 exported video, got %d", exported)
	}

	if _, err := os.Stat(filepath.Join(e.videosDir(), "Building_AI_Agents.txt")); err != nil {
		t.Error("video export missing")
	}
	entries, err := os.ReadDir(e.modulesDir())
	if err != nil || len(entries) != 1 {
		t.Errorf("expected one module bundle, got %v, %v", entries, err)
	}
}

func TestGenerateMasterKB(t *testing.T) {
	e, _ := exportFixture(t)
	path, err := e.GenerateMasterKB()
	if err != nil {
		t.Fatal(err)
	}

	data, _ := os.ReadFile(path)
	doc := string(data)
	for _, want := range []string{
		"# AI Agents Knowledge Base",
		"## Table of Contents",
		"**1 videos** | **1 learning tracks**",
		"[Building AI Agents](https://www.youtube.com/watch?v=vid1)",
		"> Short pipelines beat clever ones.",
		"## Quick Reference",
		"- **agents**: 1 video(s)",
		"### Do's",
		"✅ Start simple",
		"### Don'ts",
		"❌ Skip evaluation",
		"NotebookLM",
	} {
		if !strings.Contains(doc, want) {
			t.Errorf("master KB missing %q", want)
		}
	}
}

func TestGenerateMasterKBEmpty(t *testing.T) {
	cfg := config.DefaultSlideConfig()
	cfg.DataRoot = t.TempDir()
	e := &Exporter{Config: cfg}
	if _, err := e.GenerateMasterKB(); err == nil {
		t.Fatal("empty knowledge base should fail")
	}
}
