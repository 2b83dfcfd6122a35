package process

import (
	"context"
	"errors"
)

type SummaryMode string

const (
	SummaryShort    SummaryMode = "short"
	SummaryExtended SummaryMode = "extended"
)

// ErrQuotaExhausted reports that the summarization API hit its rate or usage
// limits, as opposed to a generic failure. The pipeline retries the video on
// a later cycle either way.
var ErrQuotaExhausted = errors.New("summarizer quota exhausted")

// ErrNoTranscript reports that the platform has no captions for a video.
var ErrNoTranscript = errors.New("no transcript available")

// Summarizer turns transcript text into a generated summary. Empty input
// must yield an empty summary, not an error.
type Summarizer interface {
	Summarize(ctx context.Context, text string, mode SummaryMode) (string, error)
}

type TranscriptFetcher interface {
	Transcript(ctx context.Context, videoID string) (string, error)
}
