package ingest

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"slidekb/config"
)

func downloadConfig(t *testing.T) config.SlideConfig {
	t.Helper()
	cfg := config.DefaultSlideConfig()
	cfg.DataRoot = t.TempDir()
	return cfg
}

func TestDownloadBuildsArgs(t *testing.T) {
	cfg := downloadConfig(t)
	d := NewDownloader(480)

	var gotName string
	var gotArgs []string
	d.run = func(ctx context.Context, name string, args ...string) error {
		gotName = name
		gotArgs = args
		return nil
	}

	path, err := d.Download(context.Background(), cfg, "vid1")
	if err != nil {
		t.Fatal(err)
	}
	if filepath.Base(path) != "video.mp4" {
		t.Errorf("output path = %s", path)
	}
	if gotName != "yt-dlp" {
		t.Errorf("binary = %q", gotName)
	}

	joined := ""
	for _, a := range gotArgs {
		joined += a + " "
	}
	for _, want := range []string{
		"best[height<=480][ext=mp4]/best[height<=480]",
		"--quiet",
		"https://www.youtube.com/watch?v=vid1",
	} {
		if !containsArg(gotArgs, want) {
			t.Errorf("args missing %q in %q", want, joined)
		}
	}
}

func containsArg(args []string, want string) bool {
	for _, a := range args {
		if a == want {
			return true
		}
	}
	return false
}

func TestDownloadReusesExistingFile(t *testing.T) {
	cfg := downloadConfig(t)
	d := NewDownloader(0)

	videoPath := filepath.Join(cfg.VideoDir("vid1"), "video.mp4")
	if err := os.MkdirAll(filepath.Dir(videoPath), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(videoPath, []byte("mp4"), 0o644); err != nil {
		t.Fatal(err)
	}

	d.run = func(ctx context.Context, name string, args ...string) error {
		t.Fatal("run should not be called for an existing file")
		return nil
	}
	path, err := d.Download(context.Background(), cfg, "vid1")
	if err != nil {
		t.Fatal(err)
	}
	if path != videoPath {
		t.Errorf("path = %s, want %s", path, videoPath)
	}
}

func TestDownloadRetriesOnRateLimit(t *testing.T) {
	cfg := downloadConfig(t)
	d := NewDownloader(0)

	calls := 0
	d.run = func(ctx context.Context, name string, args ...string) error {
		calls++
		if calls < 3 {
			return errors.New("HTTP Error 429: Too Many Requests")
		}
		return nil
	}
	var delays []time.Duration
	d.sleep = func(dur time.Duration) { delays = append(delays, dur) }

	if _, err := d.Download(context.Background(), cfg, "vid1"); err != nil {
		t.Fatal(err)
	}
	if calls != 3 {
		t.Errorf("run calls = %d, want 3", calls)
	}
	want := []time.Duration{config.DownloadRetryBase, config.DownloadRetryBase * 2}
	if len(delays) != 2 || delays[0] != want[0] || delays[1] != want[1] {
		t.Errorf("backoff delays = %v, want %v", delays, want)
	}
}

func TestDownloadOtherErrorsDoNotRetry(t *testing.T) {
	cfg := downloadConfig(t)
	d := NewDownloader(0)

	calls := 0
	d.run = func(ctx context.Context, name string, args ...string) error {
		calls++
		return errors.New("video unavailable")
	}
	d.sleep = func(time.Duration) { t.Fatal("should not sleep on non rate-limit errors") }

	if _, err := d.Download(context.Background(), cfg, "vid1"); err == nil {
		t.Fatal("expected error")
	}
	if calls != 1 {
		t.Errorf("run calls = %d, want 1", calls)
	}
}

func TestDownloadGivesUpAfterMaxAttempts(t *testing.T) {
	cfg := downloadConfig(t)
	d := NewDownloader(0)

	calls := 0
	d.run = func(ctx context.Context, name string, args ...string) error {
		calls++
		return errors.New("HTTP Error 429")
	}
	d.sleep = func(time.Duration) {}

	if _, err := d.Download(context.Background(), cfg, "vid1"); err == nil {
		t.Fatal("expected error after exhausting retries")
	}
	if calls != config.DownloadMaxAttempts {
		t.Errorf("run calls = %d, want %d", calls, config.DownloadMaxAttempts)
	}
}
