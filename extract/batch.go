package extract

import (
	"fmt"
	"log"
	"os"
	"os/exec"
	"runtime"
	"sync"

	"slidekb/config"
	"slidekb/slides"
	"slidekb/types"
)

// BatchRunner processes every pending catalog video, each in its own OS
// process. Extraction holds a model and large decode buffers, so workers get
// process-level isolation instead of sharing one address space.
type BatchRunner struct {
	Config  config.SlideConfig
	Workers int

	// execCommand is swapped out in tests.
	execCommand func(name string, args ...string) *exec.Cmd
}

// NewBatchRunner creates a runner with the given worker cap.
func NewBatchRunner(cfg config.SlideConfig, workers int) *BatchRunner {
	return &BatchRunner{
		Config:      cfg,
		Workers:     workers,
		execCommand: exec.Command,
	}
}

// Pending returns catalog videos without a metadata.json, in catalog order.
func (b *BatchRunner) Pending(catalog *types.Catalog) []types.VideoMeta {
	var pending []types.VideoMeta
	for _, v := range catalog.Videos {
		if _, err := os.Stat(b.Config.MetadataPath(v.VideoID)); os.IsNotExist(err) {
			pending = append(pending, v)
		}
	}
	return pending
}

// PoolSize computes the effective worker count for a pending set.
func (b *BatchRunner) PoolSize(pending int) int {
	size := b.Workers
	if size <= 0 {
		size = runtime.NumCPU()
	}
	if pending < size {
		size = pending
	}
	if cpus := runtime.NumCPU(); cpus < size {
		size = cpus
	}
	if size < 1 {
		size = 1
	}
	return size
}

// RunAll re-executes this binary with "extract --video <id>" for each pending
// video under a fixed-size pool. Per-video failures are logged and counted;
// they never abort the batch.
func (b *BatchRunner) RunAll(catalog *types.Catalog, dryRun bool) (done, failed int) {
	pending := b.Pending(catalog)
	if len(pending) == 0 {
		log.Println("No pending videos to extract")
		return 0, 0
	}

	self, err := os.Executable()
	if err != nil {
		log.Printf("Warning: cannot locate own executable: %v", err)
		return 0, len(pending)
	}

	poolSize := b.PoolSize(len(pending))
	log.Printf("Extracting %d videos with %d workers", len(pending), poolSize)

	var wg sync.WaitGroup
	var mu sync.Mutex
	semaphore := make(chan struct{}, poolSize)

	for _, video := range pending {
		wg.Add(1)
		go func(v types.VideoMeta) {
			defer wg.Done()

			semaphore <- struct{}{}
			defer func() { <-semaphore }()

			args := []string{"extract", "--video", v.VideoID}
			if dryRun {
				args = append(args, "--dry-run")
			}
			cmd := b.execCommand(self, args...)
			cmd.Stdout = os.Stdout
			cmd.Stderr = os.Stderr

			err := cmd.Run()

			mu.Lock()
			if err != nil {
				failed++
			} else {
				done++
			}
			mu.Unlock()

			if err != nil {
				log.Printf("Failed to extract %s: %v", v.VideoID, err)
			}
		}(video)
	}

	wg.Wait()
	log.Printf("Batch complete: %d extracted, %d failed", done, failed)
	return done, failed
}

// StatusRow summarizes one video's extraction state for the status table.
type StatusRow struct {
	VideoID  string
	Title    string
	Slides   int
	Unique   int
	Reviewed bool
	Synced   bool
}

// Status builds one row per catalog video, reading metadata where present.
func Status(cfg config.SlideConfig, catalog *types.Catalog) []StatusRow {
	rows := make([]StatusRow, 0, len(catalog.Videos))
	for _, v := range catalog.Videos {
		row := StatusRow{VideoID: v.VideoID, Title: v.Title}
		meta, err := slides.LoadMetadata(cfg.MetadataPath(v.VideoID))
		if err == nil {
			row.Slides = meta.Stats.SlidesDetected
			row.Unique = meta.Stats.UniqueSlides
			row.Reviewed = meta.HumanReviewed
			row.Synced = meta.MetadataSynced
		}
		rows = append(rows, row)
	}
	return rows
}

// PrintStatus renders the status table to stdout.
func PrintStatus(rows []StatusRow) {
	fmt.Printf("%-14s %-42s %7s %7s %9s %7s\n", "VIDEO", "TITLE", "SLIDES", "UNIQUE", "REVIEWED", "SYNCED")
	for _, r := range rows {
		title := r.Title
		if len(title) > 40 {
			title = title[:37] + "..."
		}
		fmt.Printf("%-14s %-42s %7d %7d %9v %7v\n",
			r.VideoID, title, r.Slides, r.Unique, r.Reviewed, r.Synced)
	}
}
