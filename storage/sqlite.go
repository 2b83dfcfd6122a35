package storage

import (
	"database/sql"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"curator/model"

	_ "modernc.org/sqlite"
)

var sqliteMigration = []string{
	`CREATE TABLE videos (
id TEXT PRIMARY KEY,
channel TEXT NOT NULL,
duration TEXT NOT NULL DEFAULT '',
title TEXT NOT NULL,
transcript TEXT NOT NULL DEFAULT '',
summary TEXT NOT NULL DEFAULT '',
watched INTEGER NOT NULL DEFAULT 0,
disliked INTEGER NOT NULL DEFAULT 0,
published_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
)`,
}

// updatable is the allow-list for partial updates. Booleans are normalized
// to 0/1 before hitting the database.
var updatable = map[string]bool{
	"channel":    true,
	"title":      true,
	"transcript": true,
	"summary":    true,
	"watched":    true,
	"disliked":   true,
}

type SQLite struct {
	db     *sql.DB
	logger *slog.Logger
}

func NewSQLite(path string, logger *slog.Logger) (*SQLite, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("unable to open database: %w", err)
	}
	db.SetMaxOpenConns(1) // sqlite: single writer

	s := &SQLite{
		db:     db,
		logger: logger,
	}
	if err := s.migrate(sqliteMigration); err != nil {
		return nil, err
	}

	return s, nil
}

func (s *SQLite) Find(id string) (*model.Video, bool) {
	row := s.db.QueryRow(`SELECT id, channel, duration, title, transcript, summary, watched, disliked, published_at
FROM videos
WHERE id = ?`, id)

	video, err := scanVideo(row)
	if err != nil {
		if err != sql.ErrNoRows {
			s.logger.Error("could not find video", slog.String("id", id), slog.String("error", err.Error()))
		}
		return nil, false
	}

	return video, true
}

func (s *SQLite) Add(video *model.Video) bool {
	_, err := s.db.Exec(`INSERT INTO videos (id, channel, duration, title, published_at)
VALUES (?, ?, ?, ?, ?)
ON CONFLICT (id) DO UPDATE SET
channel = excluded.channel,
duration = excluded.duration,
title = excluded.title,
published_at = excluded.published_at`,
		video.ID, video.Channel, video.Duration, video.Title, formatTime(video.PublishedAt))
	if err != nil {
		s.logger.Error("could not add video", slog.String("id", video.ID), slog.String("error", err.Error()))
		return false
	}

	return true
}

func (s *SQLite) AddBatch(videos []*model.Video) []string {
	added := make([]string, 0, len(videos))
	for _, video := range videos {
		if s.Add(video) {
			added = append(added, video.ID)
		}
	}
	s.logger.Info("added videos", slog.Int("count", len(added)), slog.Int("total", len(videos)))

	return added
}

func (s *SQLite) Update(id string, fields map[string]any) bool {
	sets := make([]string, 0, len(fields))
	args := make([]any, 0, len(fields)+1)
	for field, value := range fields {
		if !updatable[field] {
			continue
		}
		if b, ok := value.(bool); ok {
			value = 0
			if b {
				value = 1
			}
		}
		sets = append(sets, field+" = ?")
		args = append(args, value)
	}
	if len(sets) == 0 {
		return false
	}
	args = append(args, id)

	res, err := s.db.Exec(`UPDATE videos SET `+strings.Join(sets, ", ")+` WHERE id = ?`, args...)
	if err != nil {
		s.logger.Error("could not update video", slog.String("id", id), slog.String("error", err.Error()))
		return false
	}
	count, err := res.RowsAffected()
	if err != nil {
		s.logger.Error("could not count updated rows", slog.String("id", id), slog.String("error", err.Error()))
		return false
	}

	return count > 0
}

func (s *SQLite) Unwatched(limit int) []*model.Video {
	rows, err := s.db.Query(`SELECT id, channel, duration, title, transcript, summary, watched, disliked, published_at
FROM videos
WHERE watched = 0 AND disliked = 0
ORDER BY published_at DESC
LIMIT ?`, limit)
	if err != nil {
		s.logger.Error("could not list unwatched videos", slog.String("error", err.Error()))
		return []*model.Video{}
	}
	defer rows.Close()

	videos := []*model.Video{}
	for rows.Next() {
		video, err := scanVideo(rows)
		if err != nil {
			s.logger.Error("could not scan video", slog.String("error", err.Error()))
			return []*model.Video{}
		}
		videos = append(videos, video)
	}
	if err := rows.Err(); err != nil {
		s.logger.Error("could not list unwatched videos", slog.String("error", err.Error()))
		return []*model.Video{}
	}

	return videos
}

func (s *SQLite) LatestPublished() map[string]time.Time {
	rows, err := s.db.Query(`SELECT channel, MAX(published_at)
FROM videos
GROUP BY channel`)
	if err != nil {
		s.logger.Error("could not find latest published dates", slog.String("error", err.Error()))
		return map[string]time.Time{}
	}
	defer rows.Close()

	latest := map[string]time.Time{}
	for rows.Next() {
		var channel, published string
		if err := rows.Scan(&channel, &published); err != nil {
			s.logger.Error("could not scan latest published date", slog.String("error", err.Error()))
			return map[string]time.Time{}
		}
		latest[channel] = parseTime(published)
	}
	if err := rows.Err(); err != nil {
		s.logger.Error("could not find latest published dates", slog.String("error", err.Error()))
		return map[string]time.Time{}
	}

	return latest
}

func (s *SQLite) migrate(wanted []string) error {
	query := `CREATE TABLE IF NOT EXISTS migration
("id" INTEGER PRIMARY KEY AUTOINCREMENT, "query" TEXT)`
	_, err := s.db.Exec(query)
	if err != nil {
		return err
	}

	// find existing
	rows, err := s.db.Query(`SELECT query FROM migration ORDER BY id`)
	if err != nil {
		return err
	}

	existing := []string{}
	for rows.Next() {
		var query string
		if err := rows.Scan(&query); err != nil {
			return err
		}
		existing = append(existing, query)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return err
	}

	// compare
	missing, err := compareMigrations(wanted, existing)
	if err != nil {
		return err
	}

	// execute missing
	for _, query := range missing {
		if _, err := s.db.Exec(query); err != nil {
			return err
		}

		// register
		if _, err := s.db.Exec(`
INSERT INTO migration
(query) VALUES (?)
`, query); err != nil {
			return err
		}
	}

	return nil
}

func compareMigrations(wanted, existing []string) ([]string, error) {
	needed := []string{}
	if len(wanted) < len(existing) {
		return []string{}, fmt.Errorf("not enough migrations")
	}

	for i, want := range wanted {
		switch {
		case i >= len(existing):
			needed = append(needed, want)
		case want == existing[i]:
			// do nothing
		case want != existing[i]:
			return []string{}, fmt.Errorf("incompatible migration: %v", want)
		}
	}

	return needed, nil
}

type scannable interface {
	Scan(dest ...any) error
}

func scanVideo(row scannable) (*model.Video, error) {
	var video model.Video
	var watched, disliked int
	var published string
	if err := row.Scan(&video.ID, &video.Channel, &video.Duration, &video.Title,
		&video.Transcript, &video.Summary, &watched, &disliked, &published); err != nil {
		return nil, err
	}
	video.Watched = watched != 0
	video.Disliked = disliked != 0
	video.PublishedAt = parseTime(published)

	return &video, nil
}

// Timestamps are stored as RFC 3339 in UTC so lexical order matches
// chronological order in the ORDER BY and MAX queries.
func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}

func parseTime(s string) time.Time {
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		// CURRENT_TIMESTAMP default comes back without the T and zone
		t, err = time.Parse(time.DateTime, s)
		if err != nil {
			return time.Time{}
		}
	}
	return t
}
