package extract

import (
	"log"

	"slidekb/imaging"
)

// SceneChangeDetector reduces a frame sequence to the frames where the
// grayscale histogram changes enough to suggest new on-screen content.
type SceneChangeDetector struct {
	Threshold float64
}

// Detect returns the subsequence of frames that open a new scene. The first
// frame is always kept. Frames that cannot be read are skipped.
func (d *SceneChangeDetector) Detect(frames []Frame) []Frame {
	var candidates []Frame
	var prevHist [256]float64
	havePrev := false

	for _, frame := range frames {
		gray, err := imaging.LoadGray(frame.Path)
		if err != nil {
			log.Printf("Warning: skipping unreadable frame %s: %v", frame.Path, err)
			continue
		}
		hist := imaging.Histogram(gray)

		if !havePrev {
			candidates = append(candidates, frame)
			prevHist = hist
			havePrev = true
			continue
		}

		diff := 1 - imaging.HistogramCorrelation(prevHist, hist)
		if diff > d.Threshold {
			candidates = append(candidates, frame)
		}
		prevHist = hist
	}
	return candidates
}
