package storage

import (
	"database/sql"
	"database/sql/driver"
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"curator/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testStore(t *testing.T) *SQLite {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	s, err := NewSQLite(":memory:", logger)
	require.NoError(t, err)

	return s
}

func testVideo(id string, published time.Time) *model.Video {
	return &model.Video{
		ID:          id,
		Channel:     "channel of " + id,
		Duration:    "12:34",
		Title:       "title of " + id,
		PublishedAt: published,
	}
}

func TestAddPreservesEnrichmentAndTriage(t *testing.T) {
	s := testStore(t)
	published := time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC)

	require.True(t, s.Add(testVideo("vid-1", published)))
	require.True(t, s.Update("vid-1", map[string]any{
		"transcript": "some transcript",
		"summary":    "some summary",
		"watched":    true,
	}))

	// re-ingesting the same id overwrites identity fields only
	again := testVideo("vid-1", published.Add(time.Hour))
	again.Title = "updated title"
	require.True(t, s.Add(again))

	video, ok := s.Find("vid-1")
	require.True(t, ok)
	assert.Equal(t, "updated title", video.Title)
	assert.Equal(t, "some transcript", video.Transcript)
	assert.Equal(t, "some summary", video.Summary)
	assert.True(t, video.Watched)
	assert.False(t, video.Disliked)
}

func TestAddBatchMergesDuplicates(t *testing.T) {
	s := testStore(t)
	published := time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC)

	require.True(t, s.Add(testVideo("vid-1", published)))
	require.True(t, s.Update("vid-1", map[string]any{"summary": "kept"}))

	added := s.AddBatch([]*model.Video{
		testVideo("vid-1", published),
		testVideo("vid-2", published.Add(time.Minute)),
	})

	assert.ElementsMatch(t, []string{"vid-1", "vid-2"}, added)
	video, ok := s.Find("vid-1")
	require.True(t, ok)
	assert.Equal(t, "kept", video.Summary)
	_, ok = s.Find("vid-2")
	assert.True(t, ok)
}

func TestUpdate(t *testing.T) {
	s := testStore(t)
	published := time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC)
	require.True(t, s.Add(testVideo("vid-1", published)))
	before, ok := s.Find("vid-1")
	require.True(t, ok)

	require.True(t, s.Update("vid-1", map[string]any{"summary": "X"}))

	after, ok := s.Find("vid-1")
	require.True(t, ok)
	assert.Equal(t, "X", after.Summary)
	assert.Equal(t, before.Title, after.Title)
	assert.Equal(t, before.Channel, after.Channel)
	assert.Equal(t, before.Transcript, after.Transcript)
	assert.Equal(t, before.Watched, after.Watched)
	assert.Equal(t, before.Disliked, after.Disliked)
	assert.Equal(t, before.PublishedAt, after.PublishedAt)
}

func TestUpdateRejectsEmptyFieldSet(t *testing.T) {
	s := testStore(t)
	published := time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC)
	require.True(t, s.Add(testVideo("vid-1", published)))

	assert.False(t, s.Update("vid-1", map[string]any{}))
	// fields outside the allow-list do not count either
	assert.False(t, s.Update("vid-1", map[string]any{"id": "other", "published_at": "2020-01-01"}))

	video, ok := s.Find("vid-1")
	require.True(t, ok)
	assert.Equal(t, "vid-1", video.ID)
	assert.Equal(t, "title of vid-1", video.Title)
}

func TestUpdateUnknownID(t *testing.T) {
	s := testStore(t)

	assert.False(t, s.Update("nope", map[string]any{"summary": "X"}))
}

func TestUnwatched(t *testing.T) {
	s := testStore(t)
	published := time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC)

	for i, id := range []string{"vid-1", "vid-2", "vid-3", "vid-4"} {
		require.True(t, s.Add(testVideo(id, published.Add(time.Duration(i)*time.Hour))))
	}
	require.True(t, s.Update("vid-2", map[string]any{"watched": true}))
	require.True(t, s.Update("vid-3", map[string]any{"disliked": true}))

	videos := s.Unwatched(ListLimit)

	require.Len(t, videos, 2)
	// newest published first
	assert.Equal(t, "vid-4", videos[0].ID)
	assert.Equal(t, "vid-1", videos[1].ID)
	for _, video := range videos {
		assert.Equal(t, model.StatusActive, video.Status())
	}
}

func TestUnwatchedLimit(t *testing.T) {
	s := testStore(t)
	published := time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC)

	for _, id := range []string{"vid-1", "vid-2", "vid-3"} {
		require.True(t, s.Add(testVideo(id, published)))
		published = published.Add(time.Minute)
	}

	assert.Len(t, s.Unwatched(2), 2)
}

func TestWatchingRemovesFromListing(t *testing.T) {
	s := testStore(t)
	published := time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC)
	require.True(t, s.Add(testVideo("vid-1", published)))
	require.Len(t, s.Unwatched(ListLimit), 1)

	require.True(t, s.Update("vid-1", map[string]any{"watched": true}))

	assert.Empty(t, s.Unwatched(ListLimit))
}

func TestLatestPublished(t *testing.T) {
	s := testStore(t)
	published := time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC)

	one := testVideo("vid-1", published)
	one.Channel = "channel a"
	two := testVideo("vid-2", published.Add(time.Hour))
	two.Channel = "channel a"
	three := testVideo("vid-3", published.Add(2*time.Hour))
	three.Channel = "channel b"
	s.AddBatch([]*model.Video{one, two, three})

	latest := s.LatestPublished()

	require.Len(t, latest, 2)
	assert.Equal(t, published.Add(time.Hour), latest["channel a"])
	assert.Equal(t, published.Add(2*time.Hour), latest["channel b"])
}

// lossyDriver serves a single valid row and then loses the cursor,
// so iteration ends with a non-nil rows error.
type lossyDriver struct{}

func (lossyDriver) Open(string) (driver.Conn, error) { return lossyConn{}, nil }

type lossyConn struct{}

func (lossyConn) Prepare(query string) (driver.Stmt, error) {
	return &lossyStmt{query: query}, nil
}
func (lossyConn) Close() error              { return nil }
func (lossyConn) Begin() (driver.Tx, error) { return nil, errors.New("not supported") }

type lossyStmt struct {
	query string
}

func (s *lossyStmt) Close() error  { return nil }
func (s *lossyStmt) NumInput() int { return -1 }
func (s *lossyStmt) Exec([]driver.Value) (driver.Result, error) {
	return nil, errors.New("not supported")
}

func (s *lossyStmt) Query([]driver.Value) (driver.Rows, error) {
	if strings.Contains(s.query, "GROUP BY") {
		return &lossyRows{
			columns: []string{"channel", "max"},
			row:     []driver.Value{"channel a", "2026-03-14T12:00:00Z"},
		}, nil
	}

	return &lossyRows{
		columns: []string{"id", "channel", "duration", "title", "transcript", "summary", "watched", "disliked", "published_at"},
		row:     []driver.Value{"vid-1", "channel a", "12:34", "title of vid-1", "", "", int64(0), int64(0), "2026-03-14T12:00:00Z"},
	}, nil
}

type lossyRows struct {
	columns []string
	row     []driver.Value
	served  bool
}

func (r *lossyRows) Columns() []string { return r.columns }
func (r *lossyRows) Close() error      { return nil }
func (r *lossyRows) Next(dest []driver.Value) error {
	if r.served {
		return errors.New("cursor lost")
	}
	r.served = true
	copy(dest, r.row)

	return nil
}

func TestListingsEmptyOnCursorFailure(t *testing.T) {
	sql.Register("lossy", lossyDriver{})
	db, err := sql.Open("lossy", "")
	require.NoError(t, err)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	s := &SQLite{db: db, logger: logger}

	assert.Empty(t, s.Unwatched(ListLimit))
	assert.Empty(t, s.LatestPublished())
}
