package search

import (
	"context"
	"math"
	"testing"
)

func TestCosineSimilarity(t *testing.T) {
	a := []float32{1, 0}
	if got := CosineSimilarity(a, []float32{1, 0}); math.Abs(got-1) > 1e-9 {
		t.Errorf("parallel: %v", got)
	}
	if got := CosineSimilarity(a, []float32{0, 1}); math.Abs(got) > 1e-9 {
		t.Errorf("orthogonal: %v", got)
	}
	if got := CosineSimilarity(a, []float32{-1, 0}); math.Abs(got+1) > 1e-9 {
		t.Errorf("opposite: %v", got)
	}
	if got := CosineSimilarity(a, []float32{1, 2, 3}); got != 0 {
		t.Errorf("length mismatch should score 0, got %v", got)
	}
	if got := CosineSimilarity(a, []float32{0, 0}); got != 0 {
		t.Errorf("zero vector should score 0, got %v", got)
	}
}

func TestTopKOrdering(t *testing.T) {
	idx := &Index{
		Chunks: []Chunk{{ID: "far"}, {ID: "close"}, {ID: "mid"}},
		Vectors: [][]float32{
			{0, 1},   // orthogonal to the query
			{1, 0},   // parallel
			{1, 1},   // in between
		},
	}

	results := idx.TopK([]float32{1, 0}, 2)
	if len(results) != 2 {
		t.Fatalf("expected 2 results, got %d", len(results))
	}
	if results[0].Chunk.ID != "close" || results[1].Chunk.ID != "mid" {
		t.Fatalf("unexpected order: %s, %s", results[0].Chunk.ID, results[1].Chunk.ID)
	}
	if results[0].Score < results[1].Score {
		t.Fatal("scores not descending")
	}
}

func TestTopKLargerThanIndex(t *testing.T) {
	idx := &Index{
		Chunks:  []Chunk{{ID: "only"}},
		Vectors: [][]float32{{1, 0}},
	}
	if got := idx.TopK([]float32{1, 0}, 10); len(got) != 1 {
		t.Fatalf("k beyond index size should return everything, got %d", len(got))
	}
}

func TestQueryUsesEmbedder(t *testing.T) {
	idx := &Index{
		Chunks:  []Chunk{{ID: "a"}, {ID: "b"}},
		Vectors: [][]float32{{5, 1}, {100, 1}},
	}

	// fakeEmbedder embeds the query by its length; "hello" gives (5, 1),
	// matching chunk a exactly.
	results, err := Query(context.Background(), idx, &fakeEmbedder{}, "hello", 1)
	if err != nil {
		t.Fatal(err)
	}
	if len(results) != 1 || results[0].Chunk.ID != "a" {
		t.Fatalf("unexpected result: %+v", results)
	}
}
