package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"slidekb/api"
	"slidekb/config"
	"slidekb/curation"
	"slidekb/export"
	"slidekb/extract"
	"slidekb/ingest"
	"slidekb/overlay"
	"slidekb/progress"
	"slidekb/review"
	"slidekb/search"
	"slidekb/slides"
	"slidekb/types"
)

func main() {
	log.SetFlags(0)

	if len(os.Args) < 2 {
		usage()
		os.Exit(2)
	}

	cfg := config.LoadEnv()
	if err := cfg.Validate(); err != nil {
		log.Fatalf("invalid configuration: %v", err)
	}

	cmd, args := os.Args[1], os.Args[2:]
	var err error
	switch cmd {
	case "ingest":
		err = cmdIngest(cfg, args)
	case "extract":
		err = cmdExtract(cfg, args)
	case "curate":
		err = cmdCurate(cfg, args)
	case "review":
		err = cmdReview(cfg, args)
	case "sync":
		err = cmdSync(cfg, args)
	case "credits":
		err = cmdCredits(cfg, args)
	case "fix-credits":
		err = cmdFixCredits(cfg, args)
	case "transitions":
		err = cmdTransitions(cfg, args)
	case "blackframes":
		err = cmdBlackFrames(cfg, args)
	case "progress":
		err = cmdProgress(cfg, args)
	case "export":
		err = cmdExport(cfg, args)
	case "index":
		err = cmdIndex(cfg, args)
	case "query":
		err = cmdQuery(cfg, args)
	case "serve":
		err = cmdServe(cfg, args)
	default:
		usage()
		os.Exit(2)
	}
	if err != nil {
		log.Fatalf("%s: %v", cmd, err)
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, `usage: slidekb <command> [flags]

commands:
  ingest       discover playlist videos and fetch transcripts
  extract      extract slides from downloaded videos
  curate       summarize transcripts into the knowledge base
  review       interactively review flagged slides
  sync         reconcile slide metadata with files on disk
  credits      add attribution overlays to slides
  fix-credits  repair doubled credit bars
  transitions  remove mid-transition duplicate slides
  blackframes  remove black frames captured at 0m00s
  progress     show or reconcile curation progress
  export       render NotebookLM artifacts and master KB
  index        build the semantic search index
  query        search the knowledge base
  serve        run the HTTP API`)
}

// selectVideos resolves the --video/--all flag pair against the catalog.
func selectVideos(cfg config.SlideConfig, videoID string, all bool) ([]types.VideoMeta, error) {
	if videoID != "" {
		catalog, err := ingest.LoadCatalog(cfg)
		if err == nil {
			for _, v := range catalog.Videos {
				if v.VideoID == videoID {
					return []types.VideoMeta{v}, nil
				}
			}
		}
		// Not in the catalog; operate on it anyway with a minimal record.
		return []types.VideoMeta{{
			VideoID: videoID,
			URL:     "https://www.youtube.com/watch?v=" + videoID,
		}}, nil
	}
	if !all {
		return nil, errors.New("specify --video ID or --all")
	}
	catalog, err := ingest.LoadCatalog(cfg)
	if err != nil {
		return nil, err
	}
	return catalog.Videos, nil
}

// selectVideoDirs resolves --video/--all against the slide directories on
// disk rather than the catalog.
func selectVideoDirs(cfg config.SlideConfig, videoID string, all bool) ([]string, error) {
	if videoID != "" {
		return []string{videoID}, nil
	}
	if !all {
		return nil, errors.New("specify --video ID or --all")
	}
	ids, err := slides.ListVideoDirs(cfg.SlidesRoot())
	if err != nil {
		return nil, err
	}
	if len(ids) == 0 {
		return nil, errors.New("no videos with slides found")
	}
	return ids, nil
}

func cmdIngest(cfg config.SlideConfig, args []string) error {
	fs := flag.NewFlagSet("ingest", flag.ExitOnError)
	playlist := fs.String("playlist", os.Getenv("PLAYLIST_ID"), "playlist ID to ingest")
	videoID := fs.String("video", "", "fetch transcript for a single video")
	listOnly := fs.Bool("list", false, "list catalog videos and exit")
	fs.Parse(args)

	ctx := context.Background()

	if *listOnly {
		catalog, err := ingest.LoadCatalog(cfg)
		if err != nil {
			return err
		}
		for _, v := range catalog.Videos {
			hasTranscript := " "
			if _, err := os.Stat(cfg.TranscriptPath(v.VideoID)); err == nil {
				hasTranscript = "T"
			}
			fmt.Printf("%s [%s] %s\n", v.VideoID, hasTranscript, v.Title)
		}
		return nil
	}

	fetcher := ingest.NewTranscriptFetcher()

	if *videoID != "" {
		videos, err := selectVideos(cfg, *videoID, false)
		if err != nil {
			return err
		}
		return fetchTranscript(ctx, cfg, fetcher, videos[0])
	}

	if *playlist == "" {
		return errors.New("specify --playlist ID or set PLAYLIST_ID")
	}

	client, err := ingest.NewPlaylistClient(ctx)
	if err != nil {
		return err
	}
	videos, err := client.ListVideos(ctx, *playlist)
	if err != nil {
		return err
	}
	if err := ingest.SaveCatalog(cfg, *playlist, videos); err != nil {
		return err
	}
	log.Printf("cataloged %d videos from playlist %s", len(videos), *playlist)

	for _, v := range videos {
		if _, err := os.Stat(cfg.TranscriptPath(v.VideoID)); err == nil {
			continue
		}
		if err := fetchTranscript(ctx, cfg, fetcher, v); err != nil {
			log.Printf("Warning: %v", err)
		}
	}
	return nil
}

func fetchTranscript(ctx context.Context, cfg config.SlideConfig, f *ingest.TranscriptFetcher, v types.VideoMeta) error {
	t, err := f.Fetch(ctx, v.VideoID)
	if err != nil {
		return fmt.Errorf("transcript for %s: %w", v.VideoID, err)
	}
	if err := ingest.SaveTranscript(cfg, v, t); err != nil {
		return err
	}
	log.Printf("saved transcript for %s (%d segments)", v.VideoID, len(t.Segments))
	return nil
}

// newScorer picks the vision backend from the environment. Returns nil when
// classification should fall back to text density.
func newScorer() extract.VisionScorer {
	switch os.Getenv("SLIDEKB_SCORER") {
	case "clip":
		url := os.Getenv("CLIP_SCORER_URL")
		if url == "" {
			url = "http://localhost:8765"
		}
		return extract.NewClipScorer(url)
	case "ollama":
		model := os.Getenv("OLLAMA_VISION_MODEL")
		if model == "" {
			model = "llava"
		}
		return extract.NewOllamaScorer(model, slog.Default())
	}
	return nil
}

func cmdExtract(cfg config.SlideConfig, args []string) error {
	fs := flag.NewFlagSet("extract", flag.ExitOnError)
	videoID := fs.String("video", "", "single video ID")
	all := fs.Bool("all", false, "process every pending catalog video")
	dryRun := fs.Bool("dry-run", false, "run the pipeline without writing slides")
	status := fs.Bool("status", false, "print extraction status and exit")
	workers := fs.Int("workers", 0, "concurrent workers for --all (default NumCPU)")
	fs.Parse(args)

	if *status {
		catalog, err := ingest.LoadCatalog(cfg)
		if err != nil {
			return err
		}
		extract.PrintStatus(extract.Status(cfg, catalog))
		return nil
	}

	if *all {
		catalog, err := ingest.LoadCatalog(cfg)
		if err != nil {
			return err
		}
		runner := extract.NewBatchRunner(cfg, *workers)
		done, failed := runner.RunAll(catalog, *dryRun)
		log.Printf("batch extraction finished: %d done, %d failed", done, failed)
		if failed > 0 {
			return fmt.Errorf("%d videos failed", failed)
		}
		return nil
	}

	videos, err := selectVideos(cfg, *videoID, false)
	if err != nil {
		return err
	}
	video := videos[0]

	ctx := context.Background()
	downloader := ingest.NewDownloader(0)
	videoPath, err := downloader.Download(ctx, cfg, video.VideoID)
	if err != nil {
		return err
	}

	bloom, err := extract.NewHashBloomFromEnv()
	if err != nil {
		log.Printf("Warning: bloom filter unavailable: %v", err)
	}
	if bloom != nil {
		defer bloom.Close()
	}

	ex := &extract.Extractor{
		Config: cfg,
		Video:  video,
		Scorer: newScorer(),
		OCR:    extract.NewTextExtractor(),
		Bloom:  bloom,
	}
	result, err := ex.Run(ctx, videoPath, *dryRun)
	if err != nil {
		return err
	}
	log.Printf("extracted %d slides from %s (%d frames analyzed, %d duplicates)",
		result.Stats.UniqueSlides, video.VideoID, result.Stats.FramesAnalyzed, result.Stats.Duplicates)
	return nil
}

func cmdCurate(cfg config.SlideConfig, args []string) error {
	fs := flag.NewFlagSet("curate", flag.ExitOnError)
	videoID := fs.String("video", "", "single video ID")
	all := fs.Bool("all", false, "curate every video with a transcript")
	force := fs.Bool("force", false, "re-curate even when output exists")
	fs.Parse(args)

	videos, err := selectVideos(cfg, *videoID, *all)
	if err != nil {
		return err
	}

	chat, err := curation.NewCohereChatFromEnv()
	if err != nil {
		return err
	}
	curator := &curation.Curator{Provider: chat}
	ctx := context.Background()

	curated := 0
	for _, v := range videos {
		outPath := cfg.CurationPath(v.VideoID)
		if !*force {
			if _, err := os.Stat(outPath); err == nil {
				continue
			}
		}
		transcript := readTranscript(cfg.TranscriptPath(v.VideoID))
		if transcript == nil {
			log.Printf("Warning: no transcript for %s, skipping", v.VideoID)
			continue
		}
		cur, err := curator.CurateVideo(ctx, v, transcript)
		if err != nil {
			log.Printf("Warning: curation failed for %s: %v", v.VideoID, err)
			continue
		}
		if err := curation.SaveCuration(outPath, cur); err != nil {
			return err
		}
		log.Printf("curated %s -> module %s", v.VideoID, cur.Module)
		curated++
	}
	log.Printf("curated %d of %d videos", curated, len(videos))
	return nil
}

func cmdReview(cfg config.SlideConfig, args []string) error {
	fs := flag.NewFlagSet("review", flag.ExitOnError)
	videoID := fs.String("video", "", "video ID to review")
	reviewAll := fs.Bool("review-all", false, "queue every slide, not just flagged ones")
	autoApprove := fs.Bool("auto-approve", false, "remove all flagged slides without prompting")
	dryRun := fs.Bool("dry-run", false, "show decisions without applying them")
	fs.Parse(args)

	if *videoID == "" {
		return errors.New("specify --video ID")
	}

	meta, err := slides.LoadMetadata(cfg.MetadataPath(*videoID))
	if err != nil {
		return err
	}

	queue := review.BuildQueue(cfg, cfg.VideoDir(*videoID), meta, *reviewAll)
	if len(queue) == 0 {
		log.Printf("no slides flagged for %s", *videoID)
		return nil
	}
	log.Printf("%d slides queued for review", len(queue))

	var decisions []review.Decision
	if *autoApprove {
		decisions = review.AutoApprove(queue)
	} else {
		var ok bool
		decisions, ok, err = review.RunInteractive(*videoID, queue)
		if err != nil {
			return err
		}
		if !ok {
			log.Printf("review aborted, no changes made")
			return nil
		}
	}

	store, err := progress.Open(cfg.ProgressPath())
	if err != nil {
		return err
	}
	stats, err := review.Apply(cfg, *videoID, meta, decisions, store, *dryRun)
	if err != nil {
		return err
	}
	log.Printf("review complete: %d reviewed, %d removed, %d kept",
		stats.TotalReviewed, stats.ApprovedRemoval, stats.KeptAfterReview)
	return nil
}

func cmdSync(cfg config.SlideConfig, args []string) error {
	fs := flag.NewFlagSet("sync", flag.ExitOnError)
	videoID := fs.String("video", "", "single video ID")
	all := fs.Bool("all", false, "sync every video with slides")
	dryRun := fs.Bool("dry-run", false, "report differences without writing")
	fs.Parse(args)

	ids, err := selectVideoDirs(cfg, *videoID, *all)
	if err != nil {
		return err
	}

	store, err := progress.Open(cfg.ProgressPath())
	if err != nil {
		return err
	}

	for _, id := range ids {
		result, err := slides.Sync(cfg.VideoDir(id), *dryRun)
		if err != nil {
			if errors.Is(err, slides.ErrNoMetadata) {
				log.Printf("Warning: no metadata for %s, skipping", id)
				continue
			}
			return err
		}
		log.Printf("%s: removed %d stale entries, %d orphaned files",
			id, len(result.Removed), len(result.Orphaned))
		if !*dryRun && result.Synced {
			if err := store.MarkMetadataSynced(id); err != nil {
				log.Printf("Warning: failed to record sync progress: %v", err)
			}
		}
	}
	return nil
}

func cmdCredits(cfg config.SlideConfig, args []string) error {
	fs := flag.NewFlagSet("credits", flag.ExitOnError)
	videoID := fs.String("video", "", "single video ID")
	all := fs.Bool("all", false, "process every video with slides")
	text := fs.String("text", "", "credit text to render")
	author := fs.String("author", "", "author name when --text is not given")
	series := fs.String("series", "", "series name when --text is not given")
	dryRun := fs.Bool("dry-run", false, "preview without modifying images")
	fs.Parse(args)

	creditText := overlay.GenerateCreditText(*text, *author, *series)

	ids, err := selectVideoDirs(cfg, *videoID, *all)
	if err != nil {
		return err
	}
	store, err := progress.Open(cfg.ProgressPath())
	if err != nil {
		return err
	}

	for _, id := range ids {
		result, err := overlay.ProcessVideo(cfg, id, creditText, store, *dryRun)
		if err != nil {
			log.Printf("Warning: %v", err)
			continue
		}
		log.Printf("%s: %d stamped, %d already had credits, %d errors",
			id, result.Processed, result.Skipped, result.Errors)
	}
	return nil
}

func cmdFixCredits(cfg config.SlideConfig, args []string) error {
	fs := flag.NewFlagSet("fix-credits", flag.ExitOnError)
	videoID := fs.String("video", "", "single video ID")
	all := fs.Bool("all", false, "process every video with slides")
	dryRun := fs.Bool("dry-run", false, "preview without modifying images")
	fs.Parse(args)

	ids, err := selectVideoDirs(cfg, *videoID, *all)
	if err != nil {
		return err
	}
	for _, id := range ids {
		result, err := overlay.FixDuplicateCredits(cfg, id, *dryRun)
		if err != nil {
			return err
		}
		log.Printf("%s: %d of %d slides repaired", id, result.Fixed, result.Checked)
	}
	return nil
}

func cmdTransitions(cfg config.SlideConfig, args []string) error {
	fs := flag.NewFlagSet("transitions", flag.ExitOnError)
	videoID := fs.String("video", "", "single video ID")
	all := fs.Bool("all", false, "process every video with slides")
	dryRun := fs.Bool("dry-run", false, "report without removing")
	fs.Parse(args)

	ids, err := selectVideoDirs(cfg, *videoID, *all)
	if err != nil {
		return err
	}
	store, err := progress.Open(cfg.ProgressPath())
	if err != nil {
		return err
	}
	for _, id := range ids {
		result, err := slides.FixTransitionDuplicates(cfg.VideoDir(id), config.TransitionWindow, *dryRun)
		if err != nil {
			return err
		}
		log.Printf("%s: removed %d transition duplicates of %d slides", id, len(result.Removed), result.Checked)
		if !*dryRun && len(result.Removed) > 0 {
			if err := store.MarkDuplicatesFixed(id, len(result.Removed)); err != nil {
				log.Printf("Warning: failed to record progress: %v", err)
			}
		}
	}
	return nil
}

func cmdBlackFrames(cfg config.SlideConfig, args []string) error {
	fs := flag.NewFlagSet("blackframes", flag.ExitOnError)
	videoID := fs.String("video", "", "single video ID")
	all := fs.Bool("all", false, "process every video with slides")
	dryRun := fs.Bool("dry-run", false, "report without removing")
	fs.Parse(args)

	ids, err := selectVideoDirs(cfg, *videoID, *all)
	if err != nil {
		return err
	}
	for _, id := range ids {
		result, err := slides.CleanupBlackFrames(cfg.VideoDir(id), *dryRun)
		if err != nil {
			return err
		}
		log.Printf("%s: removed %d black frames of %d checked", id, len(result.Removed), result.Checked)
	}
	return nil
}

func cmdProgress(cfg config.SlideConfig, args []string) error {
	fs := flag.NewFlagSet("progress", flag.ExitOnError)
	reconcile := fs.Bool("reconcile", false, "heal progress records from on-disk state")
	fs.Parse(args)

	store, err := progress.Open(cfg.ProgressPath())
	if err != nil {
		return err
	}

	if *reconcile {
		ids, err := slides.ListVideoDirs(cfg.SlidesRoot())
		if err != nil {
			return err
		}
		for _, id := range ids {
			result, err := store.Reconcile(id, cfg.VideoDir(id))
			if err != nil {
				log.Printf("Warning: reconcile failed for %s: %v", id, err)
				continue
			}
			if len(result.Applied) > 0 {
				log.Printf("%s: healed %v", id, result.Applied)
			}
		}
	}

	summary := store.Summarize()
	fmt.Printf("videos tracked: %d\n", summary.Total)
	printBucket("completed", summary.Completed)
	printBucket("credits_added", summary.CreditsAdded)
	printBucket("reviewed", summary.Reviewed)
	printBucket("pending", summary.Pending)
	return nil
}

func printBucket(name string, ids []string) {
	fmt.Printf("  %-13s %d\n", name, len(ids))
	for _, id := range ids {
		fmt.Printf("    %s\n", id)
	}
}

func cmdExport(cfg config.SlideConfig, args []string) error {
	fs := flag.NewFlagSet("export", flag.ExitOnError)
	upload := fs.Bool("upload", false, "stage exports to S3 after rendering")
	fs.Parse(args)

	exporter := &export.Exporter{Config: cfg}
	exported, err := exporter.ExportAll()
	if err != nil {
		return err
	}
	log.Printf("exported %d videos", exported)

	if catalog, err := ingest.LoadCatalog(cfg); err == nil {
		if _, err := exporter.ExportURLs(catalog); err != nil {
			log.Printf("Warning: URL export failed: %v", err)
		}
	}

	kbPath, err := exporter.GenerateMasterKB()
	if err != nil {
		return err
	}
	log.Printf("generated %s", kbPath)

	if *upload {
		stagingCfg, ok := export.StagingConfigFromEnv()
		if !ok {
			return errors.New("set EXPORT_S3_BUCKET to enable uploads")
		}
		ctx := context.Background()
		stager, err := export.NewStager(ctx, stagingCfg)
		if err != nil {
			return err
		}
		notebooksDir := filepath.Join(cfg.DataRoot, export.NotebooksDir)
		if _, err := stager.UploadExports(ctx, notebooksDir); err != nil {
			return err
		}
	}
	return nil
}

func cmdIndex(cfg config.SlideConfig, args []string) error {
	embedder, err := search.NewCohereEmbedderFromEnv()
	if err != nil {
		return err
	}
	builder := &search.Builder{Config: cfg, Embedder: embedder}
	idx, err := builder.Build(context.Background())
	if err != nil {
		return err
	}
	log.Printf("indexed %d chunks to %s", len(idx.Chunks), cfg.IndexPath())
	return nil
}

func cmdQuery(cfg config.SlideConfig, args []string) error {
	fs := flag.NewFlagSet("query", flag.ExitOnError)
	k := fs.Int("k", 5, "number of results")
	fs.Parse(args)
	if fs.NArg() == 0 {
		return errors.New("specify a question")
	}
	question := strings.Join(fs.Args(), " ")

	idx, err := search.LoadIndex(cfg.IndexPath())
	if err != nil {
		return err
	}
	embedder, err := search.NewCohereEmbedderFromEnv()
	if err != nil {
		return err
	}
	results, err := search.Query(context.Background(), idx, embedder, question, *k)
	if err != nil {
		return err
	}
	for i, r := range results {
		fmt.Printf("%d. [%.3f] %s (%s)\n", i+1, r.Score, r.Chunk.Title, r.Chunk.Timestamp)
		fmt.Printf("   %s\n", r.Chunk.TimestampURL)
		text := r.Chunk.Text
		if len(text) > 200 {
			text = text[:200] + "..."
		}
		fmt.Printf("   %s\n\n", text)
	}
	return nil
}

func cmdServe(cfg config.SlideConfig, args []string) error {
	fs := flag.NewFlagSet("serve", flag.ExitOnError)
	port := fs.String("port", "", "listen port (default 8080 or $PORT)")
	fs.Parse(args)

	addr := ":8080"
	if v := os.Getenv("PORT"); v != "" {
		addr = ":" + v
	}
	if *port != "" {
		addr = ":" + *port
	}

	store, err := progress.Open(cfg.ProgressPath())
	if err != nil {
		return err
	}
	var embedder search.Embedder
	if e, err := search.NewCohereEmbedderFromEnv(); err == nil {
		embedder = e
	}

	server := api.NewServer(cfg, store, embedder)
	r := api.NewRouter(server)
	log.Printf("Starting API server on %s", addr)
	log.Println("API endpoints available:")
	log.Println("  GET  /api/health")
	log.Println("  GET  /api/progress")
	log.Println("  GET  /api/progress/:video_id")
	log.Println("  GET  /api/videos")
	log.Println("  GET  /api/videos/:video_id/slides")
	log.Println("  POST /api/search")
	return http.ListenAndServe(addr, r)
}

func readTranscript(path string) *types.Transcript {
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
