package fetcher

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"time"

	"curator/model"

	"miniflux.app/client"
)

type MinifluxInfo struct {
	Endpoint string
	ApiKey   string
}

// Miniflux is an alternate feed source for setups that track channel RSS
// feeds in a miniflux instance instead of using the platform API. The unread
// flag is the cutoff here, so entries are only marked read once the store
// confirms the video: FetchNew leaves them unread and Acknowledge advances
// the cutoff for the ids that were persisted. Anything not acknowledged is
// redelivered on the next fetch. Entries carry no duration.
type Miniflux struct {
	client *client.Client
	logger *slog.Logger

	mu      sync.Mutex
	pending map[string]int64
}

func NewMiniflux(mflInfo MinifluxInfo, logger *slog.Logger) *Miniflux {
	return &Miniflux{
		client:  client.New(mflInfo.Endpoint, mflInfo.ApiKey),
		logger:  logger,
		pending: map[string]int64{},
	}
}

func (m *Miniflux) FetchNew(ctx context.Context, latest map[string]time.Time) ([]*model.Video, error) {
	result, err := m.client.Entries(&client.Filter{Status: "unread"})
	if err != nil {
		return nil, fmt.Errorf("failed to fetch unread entries: %w", err)
	}

	videos := []*model.Video{}
	pending := map[string]int64{}
	for _, entry := range result.Entries {
		id := youtubeID(entry.URL)
		if id == "" {
			m.logger.Info("skipping entry without video id", slog.String("url", entry.URL))
			continue
		}
		channel := entry.Title
		if entry.Feed != nil {
			channel = entry.Feed.Title
		}
		videos = append(videos, &model.Video{
			ID:          id,
			Channel:     channel,
			Title:       entry.Title,
			PublishedAt: entry.Date,
		})
		pending[id] = entry.ID
	}

	m.mu.Lock()
	m.pending = pending
	m.mu.Unlock()

	sort.Slice(videos, func(i, j int) bool {
		return videos[i].PublishedAt.After(videos[j].PublishedAt)
	})

	return videos, nil
}

// Acknowledge marks the entries behind the given video ids as read. Call it
// with the ids the store reported as persisted; a failed mark leaves the
// entry unread so the video is fetched again.
func (m *Miniflux) Acknowledge(_ context.Context, videoIDs []string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, id := range videoIDs {
		entryID, ok := m.pending[id]
		if !ok {
			continue
		}
		if err := m.client.UpdateEntries([]int64{entryID}, "read"); err != nil {
			m.logger.Error("failed to mark entry as read", slog.Int64("entry", entryID), slog.String("error", err.Error()))
			continue
		}
		delete(m.pending, id)
	}
}

func youtubeID(url string) string {
	id := strings.TrimPrefix(url, "https://www.youtube.com/watch?v=")
	if id == url {
		return ""
	}
	if i := strings.IndexAny(id, "&#"); i >= 0 {
		id = id[:i]
	}
	return id
}
