package job

import (
	"context"
	"log/slog"
	"sync/atomic"

	"github.com/postpilothq/postpilot/internal/service"
	"github.com/postpilothq/postpilot/internal/transfer"
)

// SweepJob runs the publish sweep on a timer. Runs are serialized: if a
// tick fires while a previous sweep is still publishing (a slow video
// container poll can take minutes), the tick is skipped instead of
// double-publishing the same posts.
type SweepJob struct {
	sweep    service.SweepService
	inFlight atomic.Bool
}

func NewSweepJob(sweep service.SweepService) *SweepJob {
	return &SweepJob{sweep: sweep}
}

// Run is the cron entry point.
func (j *SweepJob) Run() {
	result, ok := j.TryRun(context.Background())
	if !ok {
		slog.Info("publish sweep already running, skipping tick")
		return
	}
	if result.Published > 0 || result.Failed > 0 {
		slog.Info("publish sweep finished", "published", result.Published, "failed", result.Failed)
	}
}

// TryRun executes one sweep unless one is already in flight. The second
// return value reports whether the sweep actually ran.
func (j *SweepJob) TryRun(ctx context.Context) (*transfer.SweepResult, bool) {
	if !j.inFlight.CompareAndSwap(false, true) {
		return nil, false
	}
	defer j.inFlight.Store(false)

	return j.sweep.Run(ctx), true
}
