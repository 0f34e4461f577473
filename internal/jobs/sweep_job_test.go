package job

import (
	"context"
	"testing"
	"time"

	"github.com/postpilothq/postpilot/internal/transfer"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// blockingSweep holds Run open until released so a second tick can arrive
// while the first is still in flight.
type blockingSweep struct {
	started chan struct{}
	release chan struct{}
	runs    int
}

func (s *blockingSweep) Run(_ context.Context) *transfer.SweepResult {
	s.runs++
	if s.started != nil {
		close(s.started)
		<-s.release
	}
	return &transfer.SweepResult{Published: 1}
}

func TestSweepJobSkipsOverlappingRun(t *testing.T) {
	sweep := &blockingSweep{
		started: make(chan struct{}),
		release: make(chan struct{}),
	}
	j := NewSweepJob(sweep)

	done := make(chan *transfer.SweepResult)
	go func() {
		result, ok := j.TryRun(context.Background())
		require.True(t, ok)
		done <- result
	}()

	<-sweep.started

	result, ok := j.TryRun(context.Background())
	assert.False(t, ok, "second run must be rejected while the first is in flight")
	assert.Nil(t, result)

	close(sweep.release)

	select {
	case first := <-done:
		assert.Equal(t, 1, first.Published)
	case <-time.After(time.Second):
		t.Fatal("first run never finished")
	}
	assert.Equal(t, 1, sweep.runs)
}

func TestSweepJobRunsAgainAfterCompletion(t *testing.T) {
	sweep := &blockingSweep{}
	j := NewSweepJob(sweep)

	for i := 0; i < 3; i++ {
		result, ok := j.TryRun(context.Background())
		require.True(t, ok)
		require.NotNil(t, result)
	}
	assert.Equal(t, 3, sweep.runs)
}
