package api

import (
	"context"
	"time"

	"github.com/lysyi3m/docket-comb/app/feed"
	"github.com/lysyi3m/docket-comb/app/tasks"
)

type BuilderInterface interface {
	Build(ctx context.Context) (*feed.Summary, error)
	Status() (lastBuildAt *time.Time, summary *feed.Summary, lastErr error)
	OutputPath() string
}

var _ BuilderInterface = (*tasks.Builder)(nil)

type Handler struct {
	builder    BuilderInterface
	docketName string
	sourceURL  string
	version    string
}
