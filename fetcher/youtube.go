package fetcher

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"curator/model"

	"google.golang.org/api/youtube/v3"
)

const maxResultsPerPage = 50

type Youtube struct {
	client        *youtube.Service
	maxPerChannel int64
	logger        *slog.Logger
}

func NewYoutube(client *youtube.Service, maxPerChannel int64, logger *slog.Logger) *Youtube {
	return &Youtube{
		client:        client,
		maxPerChannel: maxPerChannel,
		logger:        logger,
	}
}

// FetchNew walks all subscribed channels and returns their recent uploads,
// skipping everything at or before the per-channel cutoff. A single failing
// channel is logged and skipped, it does not fail the whole fetch.
func (y *Youtube) FetchNew(ctx context.Context, latest map[string]time.Time) ([]*model.Video, error) {
	channelIDs, err := y.subscriptions(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch subscriptions: %w", err)
	}

	videos := []*model.Video{}
	for _, channelID := range channelIDs {
		uploads, err := y.channelUploads(ctx, channelID, latest)
		if err != nil {
			y.logger.Error("failed to fetch channel uploads", slog.String("channelid", channelID), slog.String("error", err.Error()))
			continue
		}
		videos = append(videos, uploads...)
	}

	sort.Slice(videos, func(i, j int) bool {
		return videos[i].PublishedAt.After(videos[j].PublishedAt)
	})
	y.logger.Info("fetched subscription feed", slog.Int("channels", len(channelIDs)), slog.Int("count", len(videos)))

	return videos, nil
}

func (y *Youtube) subscriptions(ctx context.Context) ([]string, error) {
	channelIDs := []string{}
	pageToken := ""
	for {
		resp, err := y.client.Subscriptions.List([]string{"snippet"}).
			Mine(true).
			MaxResults(maxResultsPerPage).
			PageToken(pageToken).
			Context(ctx).
			Do()
		if err != nil {
			return nil, err
		}
		for _, item := range resp.Items {
			channelIDs = append(channelIDs, item.Snippet.ResourceId.ChannelId)
		}
		pageToken = resp.NextPageToken
		if pageToken == "" {
			break
		}
	}

	return channelIDs, nil
}

func (y *Youtube) channelUploads(ctx context.Context, channelID string, latest map[string]time.Time) ([]*model.Video, error) {
	chResp, err := y.client.Channels.List([]string{"contentDetails"}).
		Id(channelID).
		Context(ctx).
		Do()
	if err != nil {
		return nil, err
	}
	if len(chResp.Items) == 0 {
		return []*model.Video{}, nil
	}
	uploadsID := chResp.Items[0].ContentDetails.RelatedPlaylists.Uploads

	plResp, err := y.client.PlaylistItems.List([]string{"snippet"}).
		PlaylistId(uploadsID).
		MaxResults(y.maxPerChannel).
		Context(ctx).
		Do()
	if err != nil {
		return nil, err
	}

	ids := make([]string, 0, len(plResp.Items))
	for _, item := range plResp.Items {
		ids = append(ids, item.Snippet.ResourceId.VideoId)
	}
	durations, err := y.durations(ctx, ids)
	if err != nil {
		return nil, err
	}

	videos := []*model.Video{}
	for _, item := range plResp.Items {
		publishedAt, err := time.Parse(time.RFC3339, item.Snippet.PublishedAt)
		if err != nil {
			y.logger.Error("could not parse published date", slog.String("value", item.Snippet.PublishedAt))
			continue
		}
		channel := item.Snippet.ChannelTitle
		if cutoff, ok := latest[channel]; ok && !publishedAt.After(cutoff) {
			continue
		}
		videos = append(videos, &model.Video{
			ID:          item.Snippet.ResourceId.VideoId,
			Channel:     channel,
			Duration:    durations[item.Snippet.ResourceId.VideoId],
			Title:       item.Snippet.Title,
			PublishedAt: publishedAt,
		})
	}

	return videos, nil
}

func (y *Youtube) durations(ctx context.Context, ids []string) (map[string]string, error) {
	if len(ids) == 0 {
		return map[string]string{}, nil
	}
	resp, err := y.client.Videos.List([]string{"contentDetails"}).
		Id(strings.Join(ids, ",")).
		Context(ctx).
		Do()
	if err != nil {
		return nil, err
	}

	durations := make(map[string]string, len(resp.Items))
	for _, item := range resp.Items {
		durations[item.Id] = FormatDuration(item.ContentDetails.Duration)
	}

	return durations, nil
}

// AddToPlaylist appends the video to the named playlist, creating the
// playlist (private) when it does not exist yet.
func (y *Youtube) AddToPlaylist(ctx context.Context, name, videoID string) error {
	playlistID, err := y.findOrCreatePlaylist(ctx, name)
	if err != nil {
		return fmt.Errorf("failed to find or create playlist: %w", err)
	}

	if _, err := y.client.PlaylistItems.Insert([]string{"snippet"}, &youtube.PlaylistItem{
		Snippet: &youtube.PlaylistItemSnippet{
			PlaylistId: playlistID,
			ResourceId: &youtube.ResourceId{
				Kind:    "youtube#video",
				VideoId: videoID,
			},
		},
	}).Context(ctx).Do(); err != nil {
		return fmt.Errorf("failed to add video to playlist: %w", err)
	}

	return nil
}

func (y *Youtube) findOrCreatePlaylist(ctx context.Context, name string) (string, error) {
	resp, err := y.client.Playlists.List([]string{"snippet"}).
		Mine(true).
		MaxResults(maxResultsPerPage).
		Context(ctx).
		Do()
	if err != nil {
		return "", err
	}
	for _, item := range resp.Items {
		if item.Snippet.Title == name {
			return item.Id, nil
		}
	}

	created, err := y.client.Playlists.Insert([]string{"snippet", "status"}, &youtube.Playlist{
		Snippet: &youtube.PlaylistSnippet{
			Title:       name,
			Description: "videos queued for later",
		},
		Status: &youtube.PlaylistStatus{
			PrivacyStatus: "private",
		},
	}).Context(ctx).Do()
	if err != nil {
		return "", err
	}

	return created.Id, nil
}
