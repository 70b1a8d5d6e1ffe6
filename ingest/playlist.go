// Package ingest discovers playlist videos, fetches transcripts, and
// downloads video files for extraction.
package ingest

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/mmcdole/gofeed"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/option"
	"google.golang.org/api/youtube/v3"

	"slidekb/config"
	"slidekb/types"
)

// PlaylistClient lists the videos of a YouTube playlist. The Data API is
// preferred; the public RSS feed serves as a keyless fallback capped at the
// most recent entries.
type PlaylistClient struct {
	service *youtube.Service
	feed    *gofeed.Parser
}

// NewPlaylistClient builds a client from the environment. YOUTUBE_API_KEY
// enables the Data API; YOUTUBE_SERVICE_ACCOUNT_FILE enables service-account
// auth instead. With neither set, only the RSS fallback is available.
func NewPlaylistClient(ctx context.Context) (*PlaylistClient, error) {
	c := &PlaylistClient{feed: gofeed.NewParser()}

	if saFile := os.Getenv("YOUTUBE_SERVICE_ACCOUNT_FILE"); saFile != "" {
		data, err := os.ReadFile(saFile)
		if err != nil {
			return nil, fmt.Errorf("unable to read service account file: %w", err)
		}
		jwtCfg, err := google.JWTConfigFromJSON(data, youtube.YoutubeReadonlyScope)
		if err != nil {
			return nil, fmt.Errorf("unable to parse service account: %w", err)
		}
		svc, err := youtube.NewService(ctx, option.WithHTTPClient(jwtCfg.Client(ctx)))
		if err != nil {
			return nil, fmt.Errorf("unable to create YouTube service: %w", err)
		}
		c.service = svc
		return c, nil
	}

	if key := os.Getenv("YOUTUBE_API_KEY"); key != "" {
		svc, err := youtube.NewService(ctx, option.WithAPIKey(key))
		if err != nil {
			return nil, fmt.Errorf("unable to create YouTube service: %w", err)
		}
		c.service = svc
	}
	return c, nil
}

// ListVideos returns the playlist's videos in playlist order.
func (c *PlaylistClient) ListVideos(ctx context.Context, playlistID string) ([]types.VideoMeta, error) {
	if c.service != nil {
		videos, err := c.listViaAPI(ctx, playlistID)
		if err == nil {
			return videos, nil
		}
		log.Printf("Warning: Data API listing failed, falling back to RSS: %v", err)
	}
	return c.listViaRSS(ctx, playlistID)
}

func (c *PlaylistClient) listViaAPI(ctx context.Context, playlistID string) ([]types.VideoMeta, error) {
	var videos []types.VideoMeta
	pageToken := ""
	for {
		call := c.service.PlaylistItems.List([]string{"snippet", "contentDetails"}).
			PlaylistId(playlistID).
			MaxResults(50).
			Context(ctx)
		if pageToken != "" {
			call = call.PageToken(pageToken)
		}
		resp, err := call.Do()
		if err != nil {
			return nil, fmt.Errorf("playlistItems.list failed: %w", err)
		}
		for _, item := range resp.Items {
			videoID := item.ContentDetails.VideoId
			videos = append(videos, types.VideoMeta{
				VideoID:     videoID,
				Title:       item.Snippet.Title,
				Description: item.Snippet.Description,
				Channel:     item.Snippet.VideoOwnerChannelTitle,
				PublishedAt: item.Snippet.PublishedAt,
				URL:         "https://www.youtube.com/watch?v=" + videoID,
				Position:    int(item.Snippet.Position),
			})
		}
		pageToken = resp.NextPageToken
		if pageToken == "" {
			break
		}
	}
	return videos, nil
}

// listViaRSS parses the public playlist feed. YouTube caps it at the 15
// newest entries, enough for active playlists but not full backfills.
func (c *PlaylistClient) listViaRSS(ctx context.Context, playlistID string) ([]types.VideoMeta, error) {
	feedURL := "https://www.youtube.com/feeds/videos.xml?playlist_id=" + playlistID
	feed, err := c.feed.ParseURLWithContext(feedURL, ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch playlist feed: %w", err)
	}

	videos := make([]types.VideoMeta, 0, len(feed.Items))
	for i, item := range feed.Items {
		videoID := ""
		if ext, ok := item.Extensions["yt"]; ok {
			if ids, ok := ext["videoId"]; ok && len(ids) > 0 {
				videoID = ids[0].Value
			}
		}
		if videoID == "" {
			continue
		}
		published := ""
		if item.PublishedParsed != nil {
			published = item.PublishedParsed.Format(time.RFC3339)
		}
		channel := ""
		if item.Author != nil {
			channel = item.Author.Name
		}
		videos = append(videos, types.VideoMeta{
			VideoID:     videoID,
			Title:       item.Title,
			Channel:     channel,
			PublishedAt: published,
			URL:         "https://www.youtube.com/watch?v=" + videoID,
			Position:    i,
		})
	}
	return videos, nil
}

// SaveCatalog writes the playlist catalog to kb/metadata.json.
func SaveCatalog(cfg config.SlideConfig, playlistID string, videos []types.VideoMeta) error {
	catalog := types.Catalog{
		PlaylistID: playlistID,
		FetchedAt:  time.Now(),
		VideoCount: len(videos),
		Videos:     videos,
	}
	data, err := json.MarshalIndent(catalog, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode catalog: %w", err)
	}
	path := cfg.CatalogPath()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

// LoadCatalog reads the catalog back.
func LoadCatalog(cfg config.SlideConfig) (*types.Catalog, error) {
	data, err := os.ReadFile(cfg.CatalogPath())
	if os.IsNotExist(err) {
		return nil, fmt.Errorf("no catalog found, run ingest first")
	}
	if err != nil {
		return nil, err
	}
	var catalog types.Catalog
	if err := json.Unmarshal(data, &catalog); err != nil {
		return nil, fmt.Errorf("corrupt catalog: %w", err)
	}
	return &catalog, nil
}
