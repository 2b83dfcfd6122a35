package fetcher

import (
	"context"
	"time"

	"curator/model"
)

// FeedSource delivers new videos across all subscribed channels, newest
// first. latest holds the newest known publication time per channel; only
// videos published after that cutoff are returned.
type FeedSource interface {
	FetchNew(ctx context.Context, latest map[string]time.Time) ([]*model.Video, error)
}

// Acknowledger is implemented by feed sources whose incremental cutoff must
// not advance before the fetched videos are safely in the store. Acknowledge
// receives the ids the store persisted; everything else is redelivered on
// the next fetch.
type Acknowledger interface {
	Acknowledge(ctx context.Context, videoIDs []string)
}
