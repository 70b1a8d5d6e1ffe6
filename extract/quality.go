package extract

import (
	"log"
	"strings"

	"slidekb/config"
	"slidekb/imaging"
)

// Rejection reason codes. Every rejected slide carries exactly one.
const (
	ReasonBlurry      = "blurry"
	ReasonMostlyBlack = "mostly_black"
	ReasonLowText     = "low_text"
	ReasonFillerText  = "filler_text"
	ReasonDuplicate   = "duplicate"
)

// FillerPhrases is boilerplate that shows up on branding, outro and
// navigation frames. Matched case-insensitively as substrings.
var FillerPhrases = []string{
	"subscribe",
	"like and subscribe",
	"thanks for watching",
	"follow us",
	"all rights reserved",
	"copyright",
	"confidential",
	"www.",
	"http",
	"click here",
	"next video",
	"see you next time",
	"q&a",
	"questions?",
	"thank you",
}

// QualityFilter rejects slides that carry no useful content. Checks run in a
// fixed order (image checks before text checks) and the first failing check
// names the rejection reason.
type QualityFilter struct {
	BlurThreshold float64
	MinOCRWords   int

	CheckBlur    bool
	CheckBlack   bool
	CheckLowText bool
	CheckFiller  bool
}

// Check evaluates one slide image plus its OCR text. It returns an empty
// reason when the slide passes.
func (q *QualityFilter) Check(imagePath, ocrText string) (reason string) {
	if q.CheckBlur || q.CheckBlack {
		gray, err := imaging.LoadGray(imagePath)
		if err != nil {
			log.Printf("Warning: quality check could not read %s: %v", imagePath, err)
		} else {
			if q.CheckBlur && imaging.LaplacianVariance(gray) < q.BlurThreshold {
				return ReasonBlurry
			}
			if q.CheckBlack && imaging.DarkFraction(gray, config.BlackLuminanceCutoff) > config.BlackFractionCutoff {
				return ReasonMostlyBlack
			}
		}
	}

	if q.CheckLowText {
		if len(strings.Fields(ocrText)) < q.MinOCRWords {
			return ReasonLowText
		}
	}

	if q.CheckFiller && IsFillerText(ocrText) {
		return ReasonFillerText
	}
	return ""
}

// IsFillerText applies the boilerplate heuristic: very short text is always
// filler; otherwise it takes matched phrases under a rising word budget.
func IsFillerText(text string) bool {
	words := len(strings.Fields(text))
	if words < 5 {
		return true
	}

	lower := strings.ToLower(text)
	matches := 0
	for _, phrase := range FillerPhrases {
		if strings.Contains(lower, phrase) {
			matches++
		}
	}

	if matches >= 1 && words < 25 {
		return true
	}
	if matches >= 2 && words < 30 {
		return true
	}
	return false
}
