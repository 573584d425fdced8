package schedule

import (
	"context"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/require"
)

type blockingJob struct {
	started chan struct{}
	release chan struct{}
	runs    atomic.Int32
}

func (j *blockingJob) Name() string {
	return "blocking"
}

func (j *blockingJob) Run(ctx context.Context) error {
	j.started <- struct{}{}
	<-j.release
	j.runs.Add(1)
	return nil
}

type noopJob struct{}

func (noopJob) Name() string { return "noop" }

func (noopJob) Run(ctx context.Context) error { return nil }

func TestRunnerRejectsBadSpec(t *testing.T) {
	r := NewRunner()
	require.Error(t, r.Schedule("not a cron spec", noopJob{}))
	require.Error(t, r.Schedule("* * * * * *", noopJob{}))
	require.NoError(t, r.Schedule("*/5 * * * *", noopJob{}))
}

func TestSingleFlightSkipsOverlappingTick(t *testing.T) {
	r := NewRunner()
	job := &blockingJob{
		started: make(chan struct{}),
		release: make(chan struct{}),
	}
	tick := r.singleFlight(job)

	done := make(chan struct{})
	go func() {
		tick()
		close(done)
	}()
	<-job.started

	// second tick arrives while the first is still running
	tick()
	close(job.release)
	<-done
	require.EqualValues(t, 1, job.runs.Load())

	// a later tick runs again once the first finished
	job.release = make(chan struct{})
	go func() { <-job.started; close(job.release) }()
	tick()
	require.EqualValues(t, 2, job.runs.Load())
}
