package process

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"curator/model"
	"curator/storage"
)

// ErrEnrichInProgress reports that another task is already enriching the
// video. The caller should re-read the store instead of duplicating the
// external calls.
var ErrEnrichInProgress = errors.New("video is already being enriched")

// Pipeline is the background enricher: a perpetual cycle over the unwatched
// list that fills in missing transcripts and summaries, persisting every
// increment immediately so partial progress survives a restart. It shares
// the store with the interactive session and never blocks it; conflicts
// resolve as last writer wins per field.
type Pipeline struct {
	videoRepo   storage.VideoRepository
	transcripts TranscriptFetcher
	summarizer  Summarizer
	itemDelay   time.Duration
	cycleDelay  time.Duration
	notify      func()
	logger      *slog.Logger

	mu       sync.Mutex
	inflight map[string]bool
}

func NewPipeline(videoRepo storage.VideoRepository, transcripts TranscriptFetcher, summarizer Summarizer, itemDelay, cycleDelay time.Duration, logger *slog.Logger) *Pipeline {
	return &Pipeline{
		videoRepo:   videoRepo,
		transcripts: transcripts,
		summarizer:  summarizer,
		itemDelay:   itemDelay,
		cycleDelay:  cycleDelay,
		notify:      func() {},
		logger:      logger,
		inflight:    map[string]bool{},
	}
}

// OnUpdate registers the listing refresh signal. Set it before Run.
func (p *Pipeline) OnUpdate(notify func()) {
	p.notify = notify
}

// Run loops until process exit. A failed or panicked cycle is logged and
// retried after the standard delay; the pipeline never terminates itself.
func (p *Pipeline) Run() {
	p.logger.Info("started enrichment pipeline")
	for {
		p.Cycle(context.Background())
		time.Sleep(p.cycleDelay)
	}
}

// Cycle runs one pass over the unwatched videos that lack a summary. Each
// video is enriched and persisted individually, the UI is signalled after
// every unit of work, and the inter-item delay rate-limits the external
// calls.
func (p *Pipeline) Cycle(ctx context.Context) {
	defer func() {
		if r := recover(); r != nil {
			p.logger.Error("enrichment cycle panicked", slog.Any("error", r))
		}
	}()

	videos := p.videoRepo.Unwatched(storage.ListLimit)
	for _, video := range videos {
		if video.HasSummary() {
			continue
		}
		if _, err := p.Enrich(ctx, video.ID, SummaryShort); err != nil && !errors.Is(err, ErrEnrichInProgress) {
			p.logger.Error("enrichment failed", slog.String("id", video.ID), slog.String("error", err.Error()))
		}
		p.notify()
		time.Sleep(p.itemDelay)
	}
}

// Enrich fetches whatever the video is missing and persists each increment
// immediately. It re-reads the store first so work done by a concurrent task
// is not redone; the in-flight marker keeps the background cycle and the
// on-demand path from enriching the same video twice.
//
// In short mode existing fields are kept. In extended mode the transcript is
// re-fetched and persisted, and the returned video carries a freshly
// generated extended summary that is shown but not persisted: the stored
// short summaries are what the triage list is built from.
func (p *Pipeline) Enrich(ctx context.Context, id string, mode SummaryMode) (*model.Video, error) {
	if !p.acquire(id) {
		return nil, fmt.Errorf("%w: %s", ErrEnrichInProgress, id)
	}
	defer p.release(id)

	video, ok := p.videoRepo.Find(id)
	if !ok {
		return nil, fmt.Errorf("video %s is not in the store", id)
	}
	if mode == SummaryShort && video.HasTranscript() && video.HasSummary() {
		return video, nil
	}

	if !video.HasTranscript() || mode == SummaryExtended {
		transcript, err := p.transcripts.Transcript(ctx, video.ID)
		switch {
		case err != nil:
			// summarization still runs on whatever transcript is in hand
			p.logger.Error("failed to fetch transcript", slog.String("id", video.ID), slog.String("error", err.Error()))
		case transcript != "":
			// persistence is best-effort, summarization runs on the text in
			// hand either way; an unconfirmed write is retried next cycle
			p.videoRepo.Update(video.ID, map[string]any{"transcript": transcript})
			video.Transcript = transcript
		}
	}

	if mode == SummaryShort && video.HasSummary() {
		return video, nil
	}
	summary, err := p.summarizer.Summarize(ctx, video.Transcript, mode)
	if err != nil {
		return video, fmt.Errorf("failed to summarize video %s: %w", video.ID, err)
	}
	if summary == "" {
		return video, nil
	}
	if mode == SummaryShort {
		p.videoRepo.Update(video.ID, map[string]any{"summary": summary})
	}
	video.Summary = summary
	p.logger.Info("enriched video", slog.String("id", video.ID), slog.String("mode", string(mode)))

	return video, nil
}

func (p *Pipeline) acquire(id string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.inflight[id] {
		return false
	}
	p.inflight[id] = true
	return true
}

func (p *Pipeline) release(id string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.inflight, id)
}
