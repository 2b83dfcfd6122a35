package process

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"
)

// Transcripts come from the Innertube player endpoint: it lists the caption
// tracks for a video, and each track's base URL serves the captions as
// timedtext JSON when asked for fmt=json3. The ANDROID client context avoids
// the LOGIN_REQUIRED answer the WEB client gets from some networks.

const (
	innertubePlayerURL   = "https://www.youtube.com/youtubei/v1/player?prettyPrint=false"
	androidClientVersion = "19.09.37"
	androidUserAgent     = "com.google.android.youtube/" + androidClientVersion + " (Linux; U; Android 11) gzip"
)

type Innertube struct {
	client *http.Client
	langs  []string
	logger *slog.Logger
}

// NewInnertube creates a transcript fetcher. langs is the caption language
// preference order; when none matches, the first available track is used.
func NewInnertube(langs []string, logger *slog.Logger) *Innertube {
	return &Innertube{
		client: &http.Client{Timeout: 30 * time.Second},
		langs:  langs,
		logger: logger,
	}
}

type captionTrack struct {
	BaseURL      string `json:"baseUrl"`
	LanguageCode string `json:"languageCode"`
	Kind         string `json:"kind"`
}

type playerResponse struct {
	Captions struct {
		PlayerCaptionsTracklistRenderer struct {
			CaptionTracks []captionTrack `json:"captionTracks"`
		} `json:"playerCaptionsTracklistRenderer"`
	} `json:"captions"`
}

type timedtextResponse struct {
	Events []struct {
		Segs []struct {
			UTF8 string `json:"utf8"`
		} `json:"segs"`
	} `json:"events"`
}

func (i *Innertube) Transcript(ctx context.Context, videoID string) (string, error) {
	tracks, err := i.captionTracks(ctx, videoID)
	if err != nil {
		return "", fmt.Errorf("failed to list caption tracks: %w", err)
	}
	track := pickTrack(tracks, i.langs)
	if track == nil {
		return "", ErrNoTranscript
	}

	text, err := i.fetchTrack(ctx, track.BaseURL)
	if err != nil {
		return "", fmt.Errorf("failed to fetch caption track: %w", err)
	}
	i.logger.Info("fetched transcript", slog.String("id", videoID), slog.String("lang", track.LanguageCode), slog.Int("length", len(text)))

	return text, nil
}

func (i *Innertube) captionTracks(ctx context.Context, videoID string) ([]captionTrack, error) {
	body, err := json.Marshal(map[string]any{
		"videoId": videoID,
		"context": map[string]any{
			"client": map[string]any{
				"clientName":        "ANDROID",
				"clientVersion":     androidClientVersion,
				"androidSdkVersion": 30,
				"hl":                "en",
				"gl":                "US",
			},
		},
	})
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, innertubePlayerURL, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", androidUserAgent)

	resp, err := i.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("player endpoint returned status %d", resp.StatusCode)
	}

	var player playerResponse
	if err := json.NewDecoder(resp.Body).Decode(&player); err != nil {
		return nil, err
	}

	return player.Captions.PlayerCaptionsTracklistRenderer.CaptionTracks, nil
}

func (i *Innertube) fetchTrack(ctx context.Context, baseURL string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, baseURL+"&fmt=json3", nil)
	if err != nil {
		return "", err
	}
	req.Header.Set("User-Agent", androidUserAgent)

	resp, err := i.client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("timedtext endpoint returned status %d", resp.StatusCode)
	}
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", err
	}

	var timedtext timedtextResponse
	if err := json.Unmarshal(data, &timedtext); err != nil {
		return "", err
	}

	var sb strings.Builder
	for _, event := range timedtext.Events {
		for _, seg := range event.Segs {
			text := strings.TrimSpace(seg.UTF8)
			if text == "" {
				continue
			}
			if sb.Len() > 0 {
				sb.WriteByte(' ')
			}
			sb.WriteString(text)
		}
	}
	if sb.Len() == 0 {
		return "", ErrNoTranscript
	}

	return sb.String(), nil
}

// pickTrack prefers manually created tracks in the requested languages, then
// any track in those languages, then the first track.
func pickTrack(tracks []captionTrack, langs []string) *captionTrack {
	if len(tracks) == 0 {
		return nil
	}
	for _, lang := range langs {
		for _, track := range tracks {
			if track.LanguageCode == lang && track.Kind != "asr" {
				return &track
			}
		}
	}
	for _, lang := range langs {
		for _, track := range tracks {
			if track.LanguageCode == lang {
				return &track
			}
		}
	}
	return &tracks[0]
}
