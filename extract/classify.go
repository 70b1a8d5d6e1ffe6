package extract

import (
	"context"
	"log"
	"strings"
)

// Prompt sets scored against each candidate frame. Both sets are scored in a
// single call so implementations can normalize across all prompts at once.
var (
	SlidePrompts = []string{
		"a presentation slide with text and graphics",
		"a data chart or diagram",
		"a screen showing text content",
		"infographic or data visualization",
	}
	NonSlidePrompts = []string{
		"a person speaking on camera",
		"a talking head video interview",
		"people in a video conference",
	}
)

// VisionScorer scores an image against a set of text prompts. Implementations
// wrap an external vision-language model.
type VisionScorer interface {
	// Load prepares the underlying model. Called once before first use;
	// a failure permanently downgrades the classifier to the text fallback.
	Load(ctx context.Context) error

	// ScorePrompts returns one non-negative score per prompt, normalized
	// across the whole prompt set.
	ScorePrompts(ctx context.Context, imagePath string, prompts []string) ([]float64, error)
}

// OCRFunc extracts text from an image, used by the text-density fallback.
type OCRFunc func(ctx context.Context, imagePath string) (string, error)

// SlideClassifier decides whether a candidate frame is presentation content.
type SlideClassifier struct {
	Scorer         VisionScorer
	OCR            OCRFunc
	Threshold      float64
	TextDensityMin int
	TextDensityMax int

	loaded     bool
	downgraded bool
}

// Verdict carries the classification outcome for one candidate.
type Verdict struct {
	IsSlide bool
	// Score is the normalized slide probability; nil when the text-density
	// fallback decided.
	Score *float64
}

// Classify scores one candidate frame. The vision path is used when a scorer
// is configured and loadable; otherwise OCR word count decides.
func (c *SlideClassifier) Classify(ctx context.Context, imagePath string) (Verdict, error) {
	if c.Scorer != nil && !c.downgraded {
		if !c.loaded {
			if err := c.Scorer.Load(ctx); err != nil {
				log.Printf("Warning: vision scorer unavailable, falling back to text density: %v", err)
				c.downgraded = true
				return c.classifyByTextDensity(ctx, imagePath)
			}
			c.loaded = true
		}
		return c.classifyByScore(ctx, imagePath)
	}
	return c.classifyByTextDensity(ctx, imagePath)
}

// Downgraded reports whether the vision path failed and the run switched to
// the text-density fallback.
func (c *SlideClassifier) Downgraded() bool { return c.downgraded }

func (c *SlideClassifier) classifyByScore(ctx context.Context, imagePath string) (Verdict, error) {
	prompts := append(append([]string{}, SlidePrompts...), NonSlidePrompts...)
	scores, err := c.Scorer.ScorePrompts(ctx, imagePath, prompts)
	if err != nil {
		return Verdict{}, err
	}

	var slide, nonSlide float64
	for i, s := range scores {
		if i < len(SlidePrompts) {
			slide += s
		} else {
			nonSlide += s
		}
	}
	if slide+nonSlide == 0 {
		return Verdict{IsSlide: false}, nil
	}

	prob := slide / (slide + nonSlide)
	return Verdict{IsSlide: prob > c.Threshold, Score: &prob}, nil
}

func (c *SlideClassifier) classifyByTextDensity(ctx context.Context, imagePath string) (Verdict, error) {
	text, err := c.OCR(ctx, imagePath)
	if err != nil {
		// OCR failure means no evidence of text; not a slide, not fatal.
		log.Printf("Warning: OCR failed for %s: %v", imagePath, err)
		return Verdict{IsSlide: false}, nil
	}

	words := len(strings.Fields(text))
	keep := words > c.TextDensityMin && words < c.TextDensityMax
	return Verdict{IsSlide: keep}, nil
}
