package ingest

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"slidekb/config"
)

// Downloader fetches video files with yt-dlp, retrying with exponential
// backoff when YouTube rate-limits.
type Downloader struct {
	// Quality caps the video height, e.g. 720.
	Quality int
	// Binary is the yt-dlp executable name.
	Binary string

	// seams for tests
	run   func(ctx context.Context, name string, args ...string) error
	sleep func(d time.Duration)
}

// NewDownloader returns a downloader with the default yt-dlp binary.
func NewDownloader(quality int) *Downloader {
	if quality <= 0 {
		quality = 720
	}
	return &Downloader{
		Quality: quality,
		Binary:  "yt-dlp",
		run: func(ctx context.Context, name string, args ...string) error {
			cmd := exec.CommandContext(ctx, name, args...)
			out, err := cmd.CombinedOutput()
			if err != nil {
				return fmt.Errorf("%w: %s", err, strings.TrimSpace(string(out)))
			}
			return nil
		},
		sleep: time.Sleep,
	}
}

// Download fetches one video into its frames scratch parent directory and
// returns the local path. An existing file is reused.
func (d *Downloader) Download(ctx context.Context, cfg config.SlideConfig, videoID string) (string, error) {
	outDir := cfg.VideoDir(videoID)
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return "", err
	}
	videoPath := filepath.Join(outDir, "video.mp4")
	if _, err := os.Stat(videoPath); err == nil {
		log.Printf("video already downloaded: %s", videoPath)
		return videoPath, nil
	}

	url := "https://www.youtube.com/watch?v=" + videoID
	format := fmt.Sprintf("best[height<=%d][ext=mp4]/best[height<=%d]", d.Quality, d.Quality)
	args := []string{
		"--format", format,
		"--output", videoPath,
		"--quiet",
		"--no-warnings",
		"--retries", "3",
		"--fragment-retries", "3",
		url,
	}

	var lastErr error
	for attempt := 0; attempt < config.DownloadMaxAttempts; attempt++ {
		lastErr = d.run(ctx, d.Binary, args...)
		if lastErr == nil {
			return videoPath, nil
		}
		if !strings.Contains(lastErr.Error(), "429") || attempt == config.DownloadMaxAttempts-1 {
			break
		}
		delay := config.DownloadRetryBase * (1 << attempt)
		log.Printf("Warning: rate limited downloading %s, waiting %s", videoID, delay)
		d.sleep(delay)
	}
	return "", fmt.Errorf("download failed after %d attempts: %w", config.DownloadMaxAttempts, lastErr)
}
