package search

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"slidekb/config"
	"slidekb/slides"
	"slidekb/types"
)

// Chunking parameters over transcript words.
const (
	ChunkSize    = 500
	ChunkOverlap = 100
	// minOCRChars skips slide chunks whose OCR text is too short to search.
	minOCRChars = 20
)

// Chunk is one searchable unit of the index.
type Chunk struct {
	ID           string `json:"id"`
	Text         string `json:"text"`
	VideoID      string `json:"video_id"`
	Title        string `json:"title"`
	URL          string `json:"url"`
	Timestamp    string `json:"timestamp"`
	TimestampURL string `json:"timestamp_url"`
	Module       string `json:"module"`
	Topics       string `json:"topics"`
}

// Index is the persisted vector index under kb/.
type Index struct {
	Model   string      `json:"model"`
	BuiltAt time.Time   `json:"built_at"`
	Chunks  []Chunk     `json:"chunks"`
	Vectors [][]float32 `json:"vectors"`
}

// ChunkTranscript splits a transcript into overlapping word windows, tagging
// each with an approximate timestamp interpolated from segment starts.
func ChunkTranscript(cur *types.Curation, transcript *types.Transcript) []Chunk {
	if transcript == nil || len(transcript.Segments) == 0 {
		return nil
	}

	var words []string
	var starts []float64
	for _, seg := range transcript.Segments {
		text := strings.TrimSpace(seg.Text)
		if text == "" {
			continue
		}
		words = append(words, strings.Fields(text)...)
		starts = append(starts, seg.Start)
	}
	if len(words) == 0 {
		return nil
	}

	var chunks []Chunk
	chunkID := 0
	for i := 0; i < len(words); i += ChunkSize - ChunkOverlap {
		end := i + ChunkSize
		if end > len(words) {
			end = len(words)
		}
		text := strings.Join(words[i:end], " ")

		ratio := float64(i) / float64(len(words))
		approx := starts[int(ratio*float64(len(starts)))]
		total := int(approx)

		chunks = append(chunks, Chunk{
			ID:           fmt.Sprintf("%s_%d", cur.VideoID, chunkID),
			Text:         text,
			VideoID:      cur.VideoID,
			Title:        cur.Title,
			URL:          cur.URL,
			Timestamp:    fmt.Sprintf("%02d:%02d", total/60, total%60),
			TimestampURL: types.TimestampURL(cur.URL, approx),
			Module:       cur.Module,
			Topics:       strings.Join(cur.Topics, ", "),
		})
		chunkID++
		if end == len(words) {
			break
		}
	}
	return chunks
}

// summaryChunk makes the curated summary itself searchable.
func summaryChunk(cur *types.Curation) *Chunk {
	if len(cur.Summary) == 0 {
		return nil
	}
	return &Chunk{
		ID:           cur.VideoID + "_summary",
		Text:         fmt.Sprintf("Summary of %s: %s", cur.Title, strings.Join(cur.Summary, " ")),
		VideoID:      cur.VideoID,
		Title:        cur.Title,
		URL:          cur.URL,
		Timestamp:    "00:00",
		TimestampURL: cur.URL,
		Module:       cur.Module,
		Topics:       strings.Join(cur.Topics, ", "),
	}
}

// slideChunks turns a video's slide OCR text into searchable chunks.
func slideChunks(meta *types.VideoSlideSet) []Chunk {
	var chunks []Chunk
	for _, slide := range meta.Slides {
		text := strings.TrimSpace(slide.OCRText)
		if len(text) < minOCRChars {
			continue
		}
		chunks = append(chunks, Chunk{
			ID:           fmt.Sprintf("%s_slide_%s", meta.VideoID, slide.TimestampFormatted),
			Text:         fmt.Sprintf("Slide at %s: %s", slide.TimestampFormatted, text),
			VideoID:      meta.VideoID,
			Title:        meta.Title,
			URL:          meta.URL,
			Timestamp:    slide.TimestampFormatted,
			TimestampURL: slide.TimestampURL,
			Topics:       "slide",
		})
	}
	return chunks
}

// Builder assembles the index from curated videos and slide metadata.
type Builder struct {
	Config   config.SlideConfig
	Embedder Embedder
}

// CollectChunks gathers every searchable chunk without embedding anything,
// so the expensive API step runs once over the full set.
func (b *Builder) CollectChunks() ([]Chunk, error) {
	var all []Chunk

	cleanDir := filepath.Join(b.Config.DataRoot, config.CleanDir)
	entries, err := os.ReadDir(cleanDir)
	if err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("failed to read %s: %w", cleanDir, err)
	}
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".json") {
			continue
		}
		videoID := strings.TrimSuffix(entry.Name(), ".json")
		cur, err := loadCuration(filepath.Join(cleanDir, entry.Name()))
		if err != nil {
			log.Printf("Warning: skipping %s: %v", entry.Name(), err)
			continue
		}

		transcript := loadTranscript(b.Config.TranscriptPath(videoID))
		all = append(all, ChunkTranscript(cur, transcript)...)
		if sc := summaryChunk(cur); sc != nil {
			all = append(all, *sc)
		}
	}

	videoIDs, err := slides.ListVideoDirs(b.Config.SlidesRoot())
	if err == nil {
		slideTotal := 0
		for _, id := range videoIDs {
			meta, err := slides.LoadMetadata(b.Config.MetadataPath(id))
			if err != nil {
				continue
			}
			sc := slideChunks(meta)
			slideTotal += len(sc)
			all = append(all, sc...)
		}
		if slideTotal > 0 {
			log.Printf("added %d slide OCR chunks", slideTotal)
		}
	}

	return all, nil
}

// Build embeds all chunks and writes the index file.
func (b *Builder) Build(ctx context.Context) (*Index, error) {
	chunks, err := b.CollectChunks()
	if err != nil {
		return nil, err
	}
	if len(chunks) == 0 {
		return nil, fmt.Errorf("nothing to index, run curation first")
	}

	log.Printf("embedding %d chunks with %s", len(chunks), b.Embedder.ModelName())
	texts := make([]string, len(chunks))
	for i, c := range chunks {
		texts[i] = c.Text
	}

	vectors, err := embedBatched(ctx, b.Embedder, texts)
	if err != nil {
		return nil, err
	}

	idx := &Index{
		Model:   b.Embedder.ModelName(),
		BuiltAt: time.Now(),
		Chunks:  chunks,
		Vectors: vectors,
	}
	if err := SaveIndex(b.Config.IndexPath(), idx); err != nil {
		return nil, err
	}
	return idx, nil
}

// embedBatched keeps each API request under the provider's batch limit.
func embedBatched(ctx context.Context, e Embedder, texts []string) ([][]float32, error) {
	const batch = 96
	out := make([][]float32, 0, len(texts))
	for i := 0; i < len(texts); i += batch {
		end := i + batch
		if end > len(texts) {
			end = len(texts)
		}
		vecs, err := e.EmbedDocuments(ctx, texts[i:end])
		if err != nil {
			return nil, err
		}
		out = append(out, vecs...)
	}
	return out, nil
}

// SaveIndex writes the index as JSON under kb/.
func SaveIndex(path string, idx *Index) error {
	data, err := json.Marshal(idx)
	if err != nil {
		return fmt.Errorf("failed to encode index: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

// LoadIndex reads the index back from disk.
func LoadIndex(path string) (*Index, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil, fmt.Errorf("index not found at %s, build it first", path)
	}
	if err != nil {
		return nil, err
	}
	var idx Index
	if err := json.Unmarshal(data, &idx); err != nil {
		return nil, fmt.Errorf("corrupt index file %s: %w", path, err)
	}
	if len(idx.Chunks) != len(idx.Vectors) {
		return nil, fmt.Errorf("index is inconsistent: %d chunks, %d vectors", len(idx.Chunks), len(idx.Vectors))
	}
	return &idx, nil
}

func loadCuration(path string) (*types.Curation, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var cur types.Curation
	if err := json.Unmarshal(data, &cur); err != nil {
		return nil, err
	}
	return &cur, nil
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
