package ingest

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	"slidekb/config"
	"slidekb/types"
)

const timedtextXML = `<?xml version="1.0" encoding="utf-8"?>
<transcript>
  <text start="0.0" dur="4.5">Welcome to the talk</text>
  <text start="4.5" dur="3.0">Let&#39;s look at agents &amp; workflows</text>
  <text start="7.5" dur="2.0">   </text>
</transcript>`

func testFetcher(url string, langs ...string) *TranscriptFetcher {
	f := NewTranscriptFetcher()
	f.baseURL = url
	if len(langs) > 0 {
		f.Languages = langs
	}
	return f
}

func TestFetchParsesTimedtext(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("v") != "vid1" {
			t.Errorf("unexpected video param: %s", r.URL.RawQuery)
		}
		w.Write([]byte(timedtextXML))
	}))
	defer srv.Close()

	tr, err := testFetcher(srv.URL).Fetch(context.Background(), "vid1")
	if err != nil {
		t.Fatal(err)
	}
	if tr.VideoID != "vid1" {
		t.Errorf("VideoID = %q", tr.VideoID)
	}
	if len(tr.Segments) != 2 {
		t.Fatalf("blank lines should be dropped, got %d segments", len(tr.Segments))
	}
	if tr.Segments[0].Start != 0 || tr.Segments[0].Duration != 4.5 {
		t.Errorf("segment timing: %+v", tr.Segments[0])
	}
	if tr.Segments[1].Text != "Let's look at agents & workflows" {
		t.Errorf("entities should be unescaped: %q", tr.Segments[1].Text)
	}
}

func TestFetchLanguageFallback(t *testing.T) {
	var langs []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		lang := r.URL.Query().Get("lang")
		langs = append(langs, lang)
		if lang == "en-GB" {
			w.Write([]byte(timedtextXML))
		}
		// other languages return an empty body
	}))
	defer srv.Close()

	tr, err := testFetcher(srv.URL, "en", "en-US", "en-GB").Fetch(context.Background(), "vid1")
	if err != nil {
		t.Fatal(err)
	}
	if len(tr.Segments) == 0 {
		t.Fatal("expected segments from the fallback language")
	}
	if len(langs) != 3 || langs[2] != "en-GB" {
		t.Errorf("language order = %v", langs)
	}
}

func TestFetchNoCaptions(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	defer srv.Close()

	_, err := testFetcher(srv.URL, "en").Fetch(context.Background(), "vid1")
	if err == nil || !strings.Contains(err.Error(), "no transcript") {
		t.Fatalf("expected no-transcript error, got %v", err)
	}
}

func TestFetchServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	if _, err := testFetcher(srv.URL, "en").Fetch(context.Background(), "vid1"); err == nil {
		t.Fatal("expected error on HTTP 500")
	}
}

func TestSaveTranscript(t *testing.T) {
	cfg := config.DefaultSlideConfig()
	cfg.DataRoot = t.TempDir()

	tr := &types.Transcript{
		VideoID:   "vid1",
		FetchedAt: time.Now(),
		Segments:  []types.TranscriptSegment{{Start: 0, Duration: 2, Text: "hello"}},
	}
	meta := types.VideoMeta{VideoID: "vid1", Title: "Agents 101"}
	if err := SaveTranscript(cfg, meta, tr); err != nil {
		t.Fatal(err)
	}
	if tr.Title != "Agents 101" {
		t.Errorf("title should be filled from metadata, got %q", tr.Title)
	}
	data, err := os.ReadFile(cfg.TranscriptPath("vid1"))
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), "Agents 101") {
		t.Error("saved transcript missing title")
	}
}
