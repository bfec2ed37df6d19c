package analysis

import (
	"context"
	"fmt"

	"github.com/xelth-com/shopvidgo/internal/models"
	"google.golang.org/api/option"
	"google.golang.org/api/youtube/v3"
)

// MetadataFetcher looks up display metadata of a YouTube video
type MetadataFetcher interface {
	VideoMetadata(ctx context.Context, youtubeVideoID string) (*models.VideoMetadata, error)
}

// YouTubeFetcher reads video snippets from the YouTube Data API
type YouTubeFetcher struct {
	svc *youtube.Service
}

// NewYouTubeFetcher creates a fetcher authenticated with an API key
func NewYouTubeFetcher(ctx context.Context, apiKey string, opts ...option.ClientOption) (*YouTubeFetcher, error) {
	opts = append([]option.ClientOption{option.WithAPIKey(apiKey)}, opts...)
	svc, err := youtube.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create youtube client: %w", err)
	}
	return &YouTubeFetcher{svc: svc}, nil
}

func (f *YouTubeFetcher) VideoMetadata(ctx context.Context, youtubeVideoID string) (*models.VideoMetadata, error) {
	resp, err := f.svc.Videos.List([]string{"snippet"}).Id(youtubeVideoID).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("youtube videos.list failed: %w", err)
	}
	if len(resp.Items) == 0 || resp.Items[0].Snippet == nil {
		return nil, fmt.Errorf("youtube video %s not found", youtubeVideoID)
	}

	snippet := resp.Items[0].Snippet
	return &models.VideoMetadata{
		Title:       snippet.Title,
		Description: snippet.Description,
	}, nil
}
