package search

import (
	"context"
	"math"
	"sort"
)

// Result is one matched chunk with its similarity score.
type Result struct {
	Chunk Chunk   `json:"chunk"`
	Score float64 `json:"score"`
}

// CosineSimilarity computes the cosine of the angle between two vectors.
// Mismatched lengths or zero vectors score 0.
func CosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, na, nb float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}

// TopK ranks every chunk against the query vector and returns the k best.
func (idx *Index) TopK(queryVec []float32, k int) []Result {
	results := make([]Result, 0, len(idx.Chunks))
	for i, vec := range idx.Vectors {
		results = append(results, Result{
			Chunk: idx.Chunks[i],
			Score: CosineSimilarity(queryVec, vec),
		})
	}
	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Score > results[j].Score
	})
	if k < len(results) {
		results = results[:k]
	}
	return results
}

// Query embeds the question and returns the k most similar chunks.
func Query(ctx context.Context, idx *Index, e Embedder, question string, k int) ([]Result, error) {
	queryVec, err := e.EmbedQuery(ctx, question)
	if err != nil {
		return nil, err
	}
	return idx.TopK(queryVec, k), nil
}
