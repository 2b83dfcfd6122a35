package storage

import (
	"time"

	"curator/model"
)

// ListLimit caps the unwatched listing so the session stays responsive.
const ListLimit = 200

// VideoRepository is the single shared mutable resource of the application.
// The pipeline and the session both mutate it concurrently; each call is one
// atomic statement and last writer wins per field.
//
// Implementations never raise storage failures to the caller. A failed call
// is logged at the store boundary and reported as absence/false/empty, which
// callers must read as "could not confirm success", not as proof that
// nothing happened.
type VideoRepository interface {
	// Find returns the video with the given id, or false if there is none.
	Find(id string) (*model.Video, bool)
	// Add inserts the video or, when the id exists, overwrites its identity
	// fields (channel, duration, title, published at). Transcript, summary
	// and the triage flags are never touched by Add.
	Add(video *model.Video) bool
	// AddBatch applies Add per record and returns the ids that were
	// persisted. Each upsert is its own atomic unit; a failure partway
	// through leaves earlier records committed.
	AddBatch(videos []*model.Video) []string
	// Update applies a partial update restricted to the allow-listed fields
	// channel, title, transcript, summary, watched and disliked. It reports
	// false when no allow-listed field is present or no row matched.
	Update(id string, fields map[string]any) bool
	// Unwatched lists videos that are neither watched nor disliked, newest
	// published first, at most limit entries.
	Unwatched(limit int) []*model.Video
	// LatestPublished returns the newest known publication time per channel,
	// the cutoff for incremental feed fetches.
	LatestPublished() map[string]time.Time
}
