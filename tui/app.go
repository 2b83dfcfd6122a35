package tui

import (
	"context"
	"log/slog"

	"curator/fetcher"
	"curator/model"
	"curator/process"
	"curator/storage"

	"github.com/gdamore/tcell/v2"
	"github.com/pkg/browser"
	"github.com/rivo/tview"
)

// PlaylistAdder appends a video to the named playlist, creating it if needed.
type PlaylistAdder interface {
	AddToPlaylist(ctx context.Context, name, videoID string) error
}

// App is the interactive triage session. It renders the unwatched listing as
// a table, runs the enrichment pipeline in the background against the same
// store, and recomputes the listing from the store after every mutation
// rather than patching it in place.
type App struct {
	app          *tview.Application
	pages        *tview.Pages
	table        *tview.Table
	videoRepo    storage.VideoRepository
	pipeline     *process.Pipeline
	feed         fetcher.FeedSource
	playlist     PlaylistAdder
	playlistName string
	videos       []*model.Video
	logger       *slog.Logger
}

// New assembles the session. feed and playlist may be nil when no
// authenticated platform session is available; the corresponding commands
// then fail and log while the rest of the session keeps working.
func New(videoRepo storage.VideoRepository, pipeline *process.Pipeline, feed fetcher.FeedSource, playlist PlaylistAdder, playlistName string, logger *slog.Logger) *App {
	a := &App{
		app:          tview.NewApplication(),
		videoRepo:    videoRepo,
		pipeline:     pipeline,
		feed:         feed,
		playlist:     playlist,
		playlistName: playlistName,
		logger:       logger,
	}

	a.table = tview.NewTable().SetSelectable(true, false)
	a.table.SetBorder(true)
	a.table.SetTitle(" videos — s: details  S: extended  w: watch  d: ditch  a: playlist  r: refresh  q: quit ")
	a.table.SetInputCapture(a.handleKey)
	a.pages = tview.NewPages().AddPage("list", a.table, true, true)

	return a
}

// Run blocks until the session quits. The pipeline is abandoned on exit, not
// drained.
func (a *App) Run() error {
	a.reload(0)
	a.pipeline.OnUpdate(func() {
		a.app.QueueUpdateDraw(func() {
			row, _ := a.table.GetSelection()
			a.reload(row)
		})
	})
	go a.pipeline.Run()

	return a.app.SetRoot(a.pages, true).Run()
}

// reload recomputes the listing from the store and re-renders the table,
// clamping the previous cursor row to the new bounds.
func (a *App) reload(row int) {
	a.videos = a.videoRepo.Unwatched(storage.ListLimit)
	a.table.Clear()
	for i, video := range a.videos {
		a.table.SetCell(i, 0, tview.NewTableCell(marker(video.HasTranscript())))
		a.table.SetCell(i, 1, tview.NewTableCell(marker(video.HasSummary())))
		a.table.SetCell(i, 2, tview.NewTableCell(video.Channel))
		a.table.SetCell(i, 3, tview.NewTableCell(video.Duration))
		a.table.SetCell(i, 4, tview.NewTableCell(video.Title).SetExpansion(1))
	}
	if len(a.videos) > 0 {
		a.table.Select(clampCursor(row, len(a.videos)), 0)
	}
}

func marker(ok bool) string {
	if ok {
		return "y"
	}
	return "n"
}

// clampCursor keeps the cursor inside the listing after it shrinks.
func clampCursor(row, length int) int {
	if length == 0 {
		return 0
	}
	if row >= length {
		return length - 1
	}
	if row < 0 {
		return 0
	}
	return row
}

func (a *App) handleKey(event *tcell.EventKey) *tcell.EventKey {
	switch event.Rune() {
	case 's':
		a.showDetails(process.SummaryShort)
	case 'S':
		a.showDetails(process.SummaryExtended)
	case 'w':
		a.watch(true)
	case 'd':
		a.ditch()
	case 'a':
		a.addToPlaylist()
	case 'r':
		a.refresh()
	case 'q':
		a.app.Stop()
	default:
		return event
	}
	return nil
}

// selected resolves the cursor to a video. Actions on an empty listing are
// no-ops.
func (a *App) selected() (*model.Video, int, bool) {
	row, _ := a.table.GetSelection()
	if row < 0 || row >= len(a.videos) {
		return nil, 0, false
	}
	return a.videos[row], row, true
}

// showDetails opens the modal detail view, enriching on demand first: in
// short mode only when the summary is still missing, in extended mode
// always. No popup opens when no summary text came out of it.
func (a *App) showDetails(mode process.SummaryMode) {
	video, row, ok := a.selected()
	if !ok {
		return
	}

	summary := video.Summary
	if mode == process.SummaryExtended || summary == "" {
		enriched, err := a.pipeline.Enrich(context.Background(), video.ID, mode)
		if err != nil {
			a.logger.Error("on demand enrichment failed", slog.String("id", video.ID), slog.String("error", err.Error()))
			return
		}
		summary = enriched.Summary
	}
	if summary == "" {
		a.logger.Error("no summary to show", slog.String("id", video.ID))
		return
	}

	a.reload(row)
	a.showPopup(sanitizeTitle(video.Title), summary)
}

func (a *App) watch(navigate bool) {
	video, row, ok := a.selected()
	if !ok {
		return
	}
	if navigate {
		if err := browser.OpenURL(video.WatchURL()); err != nil {
			a.logger.Error("failed to open viewer", slog.String("id", video.ID), slog.String("error", err.Error()))
		}
	}
	a.videoRepo.Update(video.ID, map[string]any{"watched": true})
	a.reload(row)
}

func (a *App) ditch() {
	video, row, ok := a.selected()
	if !ok {
		return
	}
	a.videoRepo.Update(video.ID, map[string]any{"disliked": true})
	a.reload(row)
}

// addToPlaylist queues the video externally and marks it watched so it
// leaves the triage list, without opening the viewer.
func (a *App) addToPlaylist() {
	video, _, ok := a.selected()
	if !ok {
		return
	}
	if a.playlist == nil {
		a.logger.Error("playlist service not available")
		return
	}
	if err := a.playlist.AddToPlaylist(context.Background(), a.playlistName, video.ID); err != nil {
		a.logger.Error("failed to add video to playlist", slog.String("id", video.ID), slog.String("error", err.Error()))
		return
	}
	a.watch(false)
}

// refresh runs the feed fetch and merge as an independent task so the
// session stays responsive to keystrokes while it runs.
func (a *App) refresh() {
	if a.feed == nil {
		a.logger.Error("feed source not available")
		return
	}
	go func() {
		a.logger.Info("refreshing feed")
		videos, err := a.feed.FetchNew(context.Background(), a.videoRepo.LatestPublished())
		if err != nil {
			a.logger.Error("failed to refresh feed", slog.String("error", err.Error()))
			return
		}
		added := a.videoRepo.AddBatch(videos)
		// the cutoff only moves for videos the store confirmed
		if ack, ok := a.feed.(fetcher.Acknowledger); ok {
			ack.Acknowledge(context.Background(), added)
		}
		a.logger.Info("refreshed feed", slog.Int("count", len(added)))
		a.app.QueueUpdateDraw(func() {
			row, _ := a.table.GetSelection()
			a.reload(row)
		})
	}()
}
