package process

import (
	"context"
	"io"
	"net/http"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type transportFunc func(*http.Request) (*http.Response, error)

func (f transportFunc) RoundTrip(req *http.Request) (*http.Response, error) {
	return f(req)
}

func jsonResponse(body string) *http.Response {
	return &http.Response{
		StatusCode: http.StatusOK,
		Body:       io.NopCloser(strings.NewReader(body)),
		Header:     make(http.Header),
	}
}

const playerBody = `{
	"captions": {
		"playerCaptionsTracklistRenderer": {
			"captionTracks": [
				{"baseUrl": "https://www.youtube.com/api/timedtext?v=vid-1&lang=en", "languageCode": "en"}
			]
		}
	}
}`

const timedtextBody = `{
	"events": [
		{"segs": [{"utf8": "hello"}, {"utf8": " world\n"}]},
		{"segs": []},
		{"segs": [{"utf8": "again"}]}
	]
}`

func testInnertube(transport transportFunc) *Innertube {
	i := NewInnertube([]string{"en"}, testLogger())
	i.client = &http.Client{Transport: transport}
	return i
}

func TestTranscript(t *testing.T) {
	i := testInnertube(func(req *http.Request) (*http.Response, error) {
		switch {
		case strings.Contains(req.URL.Path, "youtubei/v1/player"):
			return jsonResponse(playerBody), nil
		case strings.Contains(req.URL.Path, "api/timedtext"):
			assert.Equal(t, "json3", req.URL.Query().Get("fmt"))
			return jsonResponse(timedtextBody), nil
		default:
			t.Fatalf("unexpected request to %s", req.URL)
			return nil, nil
		}
	})

	text, err := i.Transcript(context.Background(), "vid-1")

	require.NoError(t, err)
	assert.Equal(t, "hello world again", text)
}

func TestTranscriptNoTracks(t *testing.T) {
	i := testInnertube(func(req *http.Request) (*http.Response, error) {
		return jsonResponse(`{"captions": {}}`), nil
	})

	_, err := i.Transcript(context.Background(), "vid-1")

	assert.ErrorIs(t, err, ErrNoTranscript)
}

func TestTranscriptPlayerFailure(t *testing.T) {
	i := testInnertube(func(req *http.Request) (*http.Response, error) {
		resp := jsonResponse("")
		resp.StatusCode = http.StatusForbidden
		return resp, nil
	})

	_, err := i.Transcript(context.Background(), "vid-1")

	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrNoTranscript)
}

func TestPickTrack(t *testing.T) {
	manual := captionTrack{BaseURL: "manual-en", LanguageCode: "en"}
	auto := captionTrack{BaseURL: "auto-en", LanguageCode: "en", Kind: "asr"}
	other := captionTrack{BaseURL: "manual-it", LanguageCode: "it"}

	for _, tc := range []struct {
		name   string
		tracks []captionTrack
		langs  []string
		want   string
	}{
		{name: "prefers manual track", tracks: []captionTrack{auto, manual}, langs: []string{"en"}, want: "manual-en"},
		{name: "falls back to generated track", tracks: []captionTrack{other, auto}, langs: []string{"en"}, want: "auto-en"},
		{name: "language preference order", tracks: []captionTrack{manual, other}, langs: []string{"it", "en"}, want: "manual-it"},
		{name: "falls back to first track", tracks: []captionTrack{other, manual}, langs: []string{"nl"}, want: "manual-it"},
	} {
		t.Run(tc.name, func(t *testing.T) {
			track := pickTrack(tc.tracks, tc.langs)
			require.NotNil(t, track)
			assert.Equal(t, tc.want, track.BaseURL)
		})
	}

	assert.Nil(t, pickTrack(nil, []string{"en"}))
}
