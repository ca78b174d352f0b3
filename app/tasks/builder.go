package tasks

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/lysyi3m/docket-comb/app/cfg"
	"github.com/lysyi3m/docket-comb/app/feed"
)

// Builder creates a BuildFeedTask per run and never runs two at once.
type Builder struct {
	cfg        *cfg.Cfg
	httpClient *http.Client
	normalizer *feed.Normalizer
	verifier   *feed.Verifier
	writer     *feed.Writer

	retryBaseDelay time.Duration
	retryMaxDelay  time.Duration
	sleep          func(ctx context.Context, d time.Duration) error

	// runMu serializes builds; statusMu guards only the recorded outcome so
	// Status never waits on a build in flight.
	runMu       sync.Mutex
	statusMu    sync.RWMutex
	lastBuildAt *time.Time
	lastSummary *feed.Summary
	lastErr     error
}

func NewBuilder(c *cfg.Cfg, httpClient *http.Client) *Builder {
	return &Builder{
		cfg:            c,
		httpClient:     httpClient,
		normalizer:     feed.NewNormalizer(c.DocketPageURL(), c.SelfURL),
		verifier:       feed.NewVerifier(c.SelfURL),
		writer:         feed.NewWriter(),
		retryBaseDelay: DefaultRetryBaseDelay,
		retryMaxDelay:  DefaultRetryMaxDelay,
		sleep:          sleepContext,
	}
}

func (b *Builder) NewBuildFeedTask() *BuildFeedTask {
	docketName := fmt.Sprintf("%d/%s", b.cfg.DocketID, b.cfg.DocketSlug)

	return &BuildFeedTask{
		Task:           NewTask(TaskTypeBuildFeed, docketName, b.cfg.MaxRetries),
		sourceURL:      b.cfg.SourceFeedURL(),
		outputPath:     b.cfg.OutputPath,
		userAgent:      b.cfg.UserAgent,
		timeout:        b.cfg.Timeout,
		httpClient:     b.httpClient,
		normalizer:     b.normalizer,
		verifier:       b.verifier,
		writer:         b.writer,
		retryBaseDelay: b.retryBaseDelay,
		retryMaxDelay:  b.retryMaxDelay,
		sleep:          b.sleep,
	}
}

// Build runs one BuildFeedTask and records its outcome.
func (b *Builder) Build(ctx context.Context) (*feed.Summary, error) {
	b.runMu.Lock()
	defer b.runMu.Unlock()

	task := b.NewBuildFeedTask()
	task.Start()

	slog.Debug("Task started", "type", task.GetType(), "id", task.GetID(), "docket", task.DocketName, "source", task.sourceURL)

	err := task.Execute(ctx)

	b.record(task.Summary, err)
	if err != nil {
		slog.Error("Task failed", "type", task.GetType(), "docket", task.DocketName, "retry_count", task.RetryCount, "error", err)
		return nil, err
	}

	return task.Summary, nil
}

func (b *Builder) record(summary *feed.Summary, err error) {
	b.statusMu.Lock()
	defer b.statusMu.Unlock()

	now := time.Now()
	b.lastBuildAt = &now
	b.lastErr = err
	if err == nil {
		b.lastSummary = summary
	}
}

// Status reports the outcome of the most recent build.
func (b *Builder) Status() (lastBuildAt *time.Time, summary *feed.Summary, lastErr error) {
	b.statusMu.RLock()
	defer b.statusMu.RUnlock()

	return b.lastBuildAt, b.lastSummary, b.lastErr
}

func (b *Builder) OutputPath() string {
	return b.cfg.OutputPath
}
