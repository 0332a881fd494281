package workers

import (
	"context"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

// Runner executes fire-and-forget background tasks: STT jobs, analysis
// runs and publish runs are dispatched here after the triggering request
// has returned. Each task gets its own context; a started task is never
// cancelled, matching the restart semantics of the pipeline.
type Runner struct {
	Logger  *logrus.Logger
	Timeout time.Duration

	wg sync.WaitGroup
}

func NewRunner(log *logrus.Logger) *Runner {
	if log == nil {
		log = logrus.New()
	}
	return &Runner{Logger: log, Timeout: 15 * time.Minute}
}

// Go dispatches fn on its own goroutine with panic recovery.
func (r *Runner) Go(name string, fn func(ctx context.Context)) {
	r.wg.Add(1)
	go func() {
		defer r.wg.Done()

		log := r.Logger.WithField("task", name)
		defer func() {
			if rec := recover(); rec != nil {
				log.WithField("panic", rec).Error("background task panicked")
			}
		}()

		ctx, cancel := context.WithTimeout(context.Background(), r.Timeout)
		defer cancel()

		start := time.Now()
		log.Info("background task started")
		fn(ctx)
		log.WithField("elapsed_ms", time.Since(start).Milliseconds()).Info("background task finished")
	}()
}

// Wait blocks until every dispatched task has returned. Used on shutdown
// and in tests.
func (r *Runner) Wait() { r.wg.Wait() }
