package extract

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	ffmpeg "github.com/u2takey/ffmpeg-go"
)

// ErrUnreadableVideo marks a stream that reports no usable frame rate. It is
// fatal for that video's run.
var ErrUnreadableVideo = errors.New("video stream unreadable")

// Frame is one sampled frame on disk, ordered by sequence number.
type Frame struct {
	Path      string
	Timestamp float64
	Seq       int
}

// FrameSampler decodes a video in a single forward pass and dumps frames at a
// fixed interval into a scratch directory.
type FrameSampler struct {
	Interval float64
}

// probeFPS reads the average frame rate of the first video stream.
func probeFPS(videoPath string) (float64, error) {
	out, err := ffmpeg.Probe(videoPath)
	if err != nil {
		return 0, fmt.Errorf("ffprobe failed: %w", err)
	}

	var probe struct {
		Streams []struct {
			CodecType  string `json:"codec_type"`
			RFrameRate string `json:"r_frame_rate"`
		} `json:"streams"`
	}
	if err := json.Unmarshal([]byte(out), &probe); err != nil {
		return 0, fmt.Errorf("failed to parse probe output: %w", err)
	}

	for _, s := range probe.Streams {
		if s.CodecType != "video" {
			continue
		}
		fps := parseRate(s.RFrameRate)
		if fps > 0 {
			return fps, nil
		}
	}
	return 0, ErrUnreadableVideo
}

// parseRate converts an ffprobe rational like "30000/1001" to a float.
func parseRate(rate string) float64 {
	parts := strings.SplitN(rate, "/", 2)
	num, err := strconv.ParseFloat(parts[0], 64)
	if err != nil {
		return 0
	}
	if len(parts) == 1 {
		return num
	}
	den, err := strconv.ParseFloat(parts[1], 64)
	if err != nil || den == 0 {
		return 0
	}
	return num / den
}

// Sample decodes videoPath and writes one PNG per kept frame into framesDir.
// Frame n is kept iff n mod floor(fps*interval) == 0; its timestamp is n/fps.
// Returns the frames in decode order.
func (s *FrameSampler) Sample(videoPath, framesDir string) ([]Frame, error) {
	fps, err := probeFPS(videoPath)
	if err != nil {
		return nil, err
	}

	step := int(fps * s.Interval)
	if step < 1 {
		step = 1
	}

	if err := os.MkdirAll(framesDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create frames directory: %w", err)
	}

	pattern := filepath.Join(framesDir, "frame_%06d.png")
	err = ffmpeg.Input(videoPath).
		Filter("select", ffmpeg.Args{fmt.Sprintf("not(mod(n\\,%d))", step)}).
		Output(pattern, ffmpeg.KwArgs{"vsync": "vfr", "vframes": 100000}).
		Silent(true).
		OverWriteOutput().
		Run()
	if err != nil {
		return nil, fmt.Errorf("frame extraction failed: %w", err)
	}

	entries, err := os.ReadDir(framesDir)
	if err != nil {
		return nil, fmt.Errorf("failed to list frames: %w", err)
	}

	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if !e.IsDir() && strings.HasPrefix(e.Name(), "frame_") {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)

	frames := make([]Frame, 0, len(names))
	for i, name := range names {
		frames = append(frames, Frame{
			Path:      filepath.Join(framesDir, name),
			Timestamp: float64(i*step) / fps,
			Seq:       i,
		})
	}
	return frames, nil
}
