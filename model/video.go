package model

import "time"

type VideoStatus string

const (
	StatusActive   VideoStatus = "active"
	StatusWatched  VideoStatus = "watched"
	StatusDisliked VideoStatus = "disliked"
)

// Video is one entry in the subscription feed. ID is the platform-assigned
// video id and the sole key; everything else can change on re-ingestion
// except the enrichment and triage fields, which only the pipeline and the
// session write.
type Video struct {
	ID          string
	Channel     string
	Duration    string
	Title       string
	Transcript  string
	Summary     string
	Watched     bool
	Disliked    bool
	PublishedAt time.Time
}

// Status collapses the triage flags into a single state. A video that is
// somehow both watched and disliked counts as disliked.
func (v Video) Status() VideoStatus {
	switch {
	case v.Disliked:
		return StatusDisliked
	case v.Watched:
		return StatusWatched
	default:
		return StatusActive
	}
}

func (v Video) HasTranscript() bool {
	return v.Transcript != ""
}

func (v Video) HasSummary() bool {
	return v.Summary != ""
}

// WatchURL is the platform's standard watch page for this video.
func (v Video) WatchURL() string {
	return "https://www.youtube.com/watch?v=" + v.ID
}
