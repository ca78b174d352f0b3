package tasks

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/lysyi3m/docket-comb/app/feed"
)

// BuildFeedTask is one fetch, normalize and write run. Nothing is written
// unless every earlier step succeeded.
type BuildFeedTask struct {
	Task
	sourceURL  string
	outputPath string
	userAgent  string
	timeout    time.Duration
	httpClient *http.Client
	normalizer *feed.Normalizer
	verifier   *feed.Verifier
	writer     *feed.Writer

	retryBaseDelay time.Duration
	retryMaxDelay  time.Duration
	sleep          func(ctx context.Context, d time.Duration) error

	Summary *feed.Summary
	Stats   feed.Stats
}

func (t *BuildFeedTask) Execute(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	data, err := t.fetchFeed(ctx, t.sourceURL)
	if err != nil {
		return err
	}
	slog.Debug("Feed fetched", "url", t.sourceURL, "size", humanize.Bytes(uint64(len(data))), "retries", t.RetryCount)

	doc, err := feed.Parse(data)
	if err != nil {
		return err
	}

	t.Stats = t.normalizer.Run(doc)

	out, err := doc.Bytes()
	if err != nil {
		return err
	}

	summary, err := t.verifier.Run(out)
	if err != nil {
		return err
	}

	if err := t.writer.Run(out, t.outputPath); err != nil {
		return err
	}
	t.Summary = summary

	slog.Info("Task completed",
		"type", t.GetType(),
		"docket", t.DocketName,
		"duration", t.GetDuration(),
		"entries", summary.Entries,
		"anchored", summary.AnchoredEntries,
		"links_kept", t.Stats.LinksKept,
		"updated", summary.Updated,
		"output", t.outputPath,
		"size", humanize.Bytes(uint64(summary.Size)))

	return nil
}

