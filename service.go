package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"curator/fetcher"
	"curator/process"
	"curator/storage"
	"curator/tui"

	"github.com/sashabaranov/go-openai"
)

func main() {
	runTUI := flag.Bool("tui", false, "run the interactive session")
	summarizeID := flag.String("summarize", "", "summarize one video id and print the result")
	flag.Parse()

	logPath := getParam("LOG_FILE", "curator.log")
	logFile, err := os.OpenFile(logPath, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
	if err != nil {
		fmt.Fprintf(os.Stderr, "unable to open log file %s: %v\n", logPath, err)
		os.Exit(1)
	}
	defer logFile.Close()
	// the session owns the terminal, logs go to a file
	logger := slog.New(slog.NewTextHandler(logFile, nil))

	switch {
	case *runTUI:
		runSession(logger)
	case *summarizeID != "":
		summarize(*summarizeID, logger)
	default:
		flag.Usage()
	}
}

func runSession(logger *slog.Logger) {
	ctx := context.Background()

	videoRepo, err := storage.NewSQLite(getParam("DB_PATH", "curator.db"), logger)
	if err != nil {
		logger.Error("unable to open store", slog.String("error", err.Error()))
		fmt.Fprintf(os.Stderr, "unable to open store: %v\n", err)
		os.Exit(1)
	}

	pipeline := process.NewPipeline(
		videoRepo,
		newTranscripts(logger),
		newSummarizer(),
		getDuration("ENRICH_ITEM_DELAY", 2*time.Minute, logger),
		getDuration("ENRICH_CYCLE_DELAY", 2*time.Minute, logger),
		logger,
	)

	var feed fetcher.FeedSource
	var playlist tui.PlaylistAdder
	switch getParam("FEED_SOURCE", "youtube") {
	case "miniflux":
		feed = fetcher.NewMiniflux(fetcher.MinifluxInfo{
			Endpoint: getParam("MINIFLUX_ENDPOINT", "http://localhost/v1"),
			ApiKey:   getParam("MINIFLUX_APIKEY", ""),
		}, logger)
	default:
		ytClient, err := fetcher.NewAuthenticatedService(ctx,
			getParam("CLIENT_SECRET_FILE", "client_secret.json"),
			getParam("TOKEN_FILE", "token.json"))
		if err != nil {
			// refresh and playlist stay unavailable, the session still runs
			logger.Error("unable to authenticate youtube session", slog.String("error", err.Error()))
		} else {
			yt := fetcher.NewYoutube(ytClient, 50, logger)
			feed = yt
			playlist = yt
		}
	}

	app := tui.New(videoRepo, pipeline, feed, playlist, getParam("PLAYLIST_NAME", "curator-next"), logger)
	if err := app.Run(); err != nil {
		logger.Error("session failed", slog.String("error", err.Error()))
		os.Exit(1)
	}
	logger.Info("session ended")
}

func summarize(videoID string, logger *slog.Logger) {
	ctx := context.Background()

	transcript, err := newTranscripts(logger).Transcript(ctx, videoID)
	if err != nil {
		fmt.Fprintf(os.Stderr, "unable to fetch transcript: %v\n", err)
		os.Exit(1)
	}
	summary, err := newSummarizer().Summarize(ctx, transcript, process.SummaryExtended)
	if err != nil {
		fmt.Fprintf(os.Stderr, "unable to summarize: %v\n", err)
		os.Exit(1)
	}

	fmt.Println(summary)
}

func newTranscripts(logger *slog.Logger) *process.Innertube {
	langs := strings.Split(getParam("TRANSCRIPT_LANGS", "en"), ",")
	return process.NewInnertube(langs, logger)
}

func newSummarizer() *process.OpenAISummarizer {
	client := openai.NewClient(getParam("OPENAI_API_KEY", ""))
	return process.NewOpenAISummarizer(client, getParam("OPENAI_MODEL", openai.GPT4o))
}

func getParam(param, def string) string {
	if val, ok := os.LookupEnv(param); ok {
		return val
	}
	return def
}

func getDuration(param string, def time.Duration, logger *slog.Logger) time.Duration {
	val, ok := os.LookupEnv(param)
	if !ok {
		return def
	}
	d, err := time.ParseDuration(val)
	if err != nil {
		logger.Error("unable to parse duration", slog.String("param", param), slog.String("value", val))
		return def
	}
	return d
}
