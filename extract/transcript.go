package extract

import (
	"strings"

	"slidekb/config"
	"slidekb/types"
)

// TranscriptAligner attaches the speech surrounding each slide's timestamp.
// Segments are assumed sorted by start time, as delivered by the platform.
type TranscriptAligner struct {
	Segments []types.TranscriptSegment
}

// Align populates TranscriptContext on every slide. With no segments the
// slides are returned unchanged with empty contexts.
func (a *TranscriptAligner) Align(slides []types.Slide) []types.Slide {
	if len(a.Segments) == 0 {
		return slides
	}
	for i := range slides {
		ctx := a.contextAt(slides[i].TimestampSeconds)
		slides[i].TranscriptContext = &ctx
	}
	return slides
}

// contextAt classifies segments within the window around the timestamp as
// before, during or after. before keeps only the last few segments, after
// only the first few; during keeps everything straddling the timestamp.
func (a *TranscriptAligner) contextAt(timestamp float64) types.TranscriptContext {
	window := config.TranscriptWindow.Seconds()
	keep := config.TranscriptContextSegments

	var before, during, after []string
	for _, seg := range a.Segments {
		text := strings.ReplaceAll(strings.TrimSpace(seg.Text), "\n", " ")

		switch {
		case seg.End() < timestamp-window:
			continue
		case seg.Start > timestamp+window:
			// Segments are sorted; nothing later can qualify.
			return buildContext(before, during, after, keep)
		case seg.End() <= timestamp:
			before = append(before, text)
		case seg.Start >= timestamp:
			after = append(after, text)
		default:
			during = append(during, text)
		}
	}
	return buildContext(before, during, after, keep)
}

func buildContext(before, during, after []string, keep int) types.TranscriptContext {
	if len(before) > keep {
		before = before[len(before)-keep:]
	}
	if len(after) > keep {
		after = after[:keep]
	}
	return types.TranscriptContext{
		Before: strings.Join(before, " "),
		During: strings.Join(during, " "),
		After:  strings.Join(after, " "),
	}
}
