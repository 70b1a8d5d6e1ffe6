package extract

import (
	"fmt"
	"log"
	"math/bits"
	"strconv"

	"github.com/corona10/goimagehash"

	"slidekb/imaging"
	"slidekb/types"
)

// ComputeHash returns the 64-bit DCT perceptual hash of an image file.
func ComputeHash(imagePath string) (uint64, error) {
	img, err := imaging.LoadImage(imagePath)
	if err != nil {
		return 0, err
	}
	h, err := goimagehash.PerceptionHash(img)
	if err != nil {
		return 0, fmt.Errorf("failed to hash %s: %w", imagePath, err)
	}
	return h.GetHash(), nil
}

// HashHex renders a hash the way it is stored in metadata.
func HashHex(hash uint64) string {
	return fmt.Sprintf("%016x", hash)
}

// ParseHashHex reverses HashHex. Returns an error for malformed strings.
func ParseHashHex(s string) (uint64, error) {
	return strconv.ParseUint(s, 16, 64)
}

// HammingDistance counts differing bits between two hashes.
func HammingDistance(a, b uint64) int {
	return bits.OnesCount64(a ^ b)
}

// Deduplicator collapses near-identical slides by perceptual-hash distance.
// Slides are processed in order and compared against every previously kept
// slide; the first kept slide within Threshold wins, regardless of whether a
// later one is closer. That keeps results stable across re-runs.
type Deduplicator struct {
	Threshold int

	// Remove drops duplicates from the output entirely instead of keeping
	// them with a duplicate_of back-reference. The two modes must not be
	// mixed within one slide set.
	Remove bool

	// Bloom, when set, reports slides whose exact hash was already seen in
	// another video. Advisory only; it never changes the output.
	Bloom *HashBloom
}

// hashed pairs a slide index with its parsed hash.
type hashed struct {
	slide *types.Slide
	hash  uint64
}

// Apply deduplicates the slide list in place and returns the surviving
// slides. Slides without a parseable hash are kept but never matched.
func (d *Deduplicator) Apply(slides []types.Slide) []types.Slide {
	result := make([]types.Slide, 0, len(slides))
	var kept []hashed

	for _, slide := range slides {
		hash, err := ParseHashHex(slide.PerceptualHash)
		if err != nil {
			log.Printf("Warning: slide %s has no usable hash, keeping as-is: %v", slide.Filename, err)
			slide.IsDuplicateOf = ""
			result = append(result, slide)
			continue
		}

		match := ""
		for _, k := range kept {
			if HammingDistance(hash, k.hash) <= d.Threshold {
				match = k.slide.Filename
				break
			}
		}

		if match == "" {
			slide.IsDuplicateOf = ""
			result = append(result, slide)
			kept = append(kept, hashed{slide: &result[len(result)-1], hash: hash})
			d.reportCrossVideo(slide.Filename, slide.PerceptualHash)
			continue
		}

		if d.Remove {
			continue
		}
		slide.IsDuplicateOf = match
		result = append(result, slide)
	}
	return result
}

// reportCrossVideo logs when a kept slide's exact hash has been seen in an
// earlier video's run. Failures are logged and ignored.
func (d *Deduplicator) reportCrossVideo(filename, hashHex string) {
	if d.Bloom == nil {
		return
	}
	seen, err := d.Bloom.Exists(hashHex)
	if err != nil {
		log.Printf("Warning: bloom check failed: %v", err)
		return
	}
	if seen {
		log.Printf("Slide %s also appears in a previously processed video (hash %s)", filename, hashHex)
	}
	if err := d.Bloom.Add(hashHex); err != nil {
		log.Printf("Warning: failed to record hash in bloom filter: %v", err)
	}
}

// BuildDeduplicationMap groups slide filenames by exact hash, keeping only
// hashes shared by more than one slide.
func BuildDeduplicationMap(slides []types.Slide) map[string][]string {
	groups := make(map[string][]string)
	for _, s := range slides {
		if s.PerceptualHash == "" {
			continue
		}
		groups[s.PerceptualHash] = append(groups[s.PerceptualHash], s.Filename)
	}
	for k, v := range groups {
		if len(v) < 2 {
			delete(groups, k)
		}
	}
	return groups
}
