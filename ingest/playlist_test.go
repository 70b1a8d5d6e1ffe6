package ingest

import (
	"testing"

	"slidekb/config"
	"slidekb/types"
)

func TestCatalogRoundTrip(t *testing.T) {
	cfg := config.DefaultSlideConfig()
	cfg.DataRoot = t.TempDir()

	videos := []types.VideoMeta{
		{VideoID: "a", Title: "First", URL: "https://www.youtube.com/watch?v=a", Position: 0},
		{VideoID: "b", Title: "Second", URL: "https://www.youtube.com/watch?v=b", Position: 1},
	}
	if err := SaveCatalog(cfg, "PLtest", videos); err != nil {
		t.Fatal(err)
	}

	catalog, err := LoadCatalog(cfg)
	if err != nil {
		t.Fatal(err)
	}
	if catalog.PlaylistID != "PLtest" {
		t.Errorf("PlaylistID = %q", catalog.PlaylistID)
	}
	if catalog.VideoCount != 2 || len(catalog.Videos) != 2 {
		t.Errorf("count = %d, videos = %d", catalog.VideoCount, len(catalog.Videos))
	}
	if catalog.Videos[1].Title != "Second" {
		t.Errorf("order not preserved: %+v", catalog.Videos)
	}
}

func TestLoadCatalogMissing(t *testing.T) {
	cfg := config.DefaultSlideConfig()
	cfg.DataRoot = t.TempDir()
	if _, err := LoadCatalog(cfg); err == nil {
		t.Fatal("missing catalog should error")
	}
}
