package schedule

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"
)

// Job is a periodic maintenance task of the gateway, like the vector
// store stats probe.
type Job interface {
	Name() string
	Run(ctx context.Context) error
}

// Runner drives maintenance jobs on standard 5-field cron specs. A job
// still running when its next tick fires has that tick skipped.
type Runner struct {
	cron *cron.Cron
	ctx  context.Context
}

func NewRunner() *Runner {
	parser := cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)
	return &Runner{cron: cron.New(cron.WithParser(parser))}
}

func (r *Runner) Schedule(spec string, j Job) error {
	if _, err := r.cron.AddFunc(spec, r.singleFlight(j)); err != nil {
		return fmt.Errorf("schedule %s: %w", j.Name(), err)
	}
	logutil.GetLogger(context.Background()).Info("job scheduled",
		zap.String("job", j.Name()),
		zap.String("cron", spec),
	)
	return nil
}

func (r *Runner) Start(ctx context.Context) {
	if ctx == nil {
		ctx = context.Background()
	}
	r.ctx = ctx
	r.cron.Start()
}

// Stop waits for any in-flight job to finish.
func (r *Runner) Stop() {
	<-r.cron.Stop().Done()
}

func (r *Runner) singleFlight(j Job) func() {
	var running atomic.Bool
	return func() {
		if !running.CompareAndSwap(false, true) {
			logutil.GetLogger(context.Background()).Warn("job overlap, tick skipped",
				zap.String("job", j.Name()))
			return
		}
		defer running.Store(false)

		ctx := r.ctx
		if ctx == nil {
			ctx = context.Background()
		}
		logger := logutil.GetLogger(ctx).With(zap.String("job", j.Name()))
		start := time.Now()
		if err := j.Run(ctx); err != nil {
			logger.Error("job failed", zap.Error(err), zap.Duration("cost", time.Since(start)))
			return
		}
		logger.Info("job done", zap.Duration("cost", time.Since(start)))
	}
}
