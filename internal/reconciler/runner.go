package reconciler

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
)

// Runner invokes RunCycle on a fixed interval. Triggering an extra cycle
// out-of-band (e.g. via the HTTP endpoint) while the runner is active is
// safe: cycles are idempotent and guarded at the store.
type Runner struct {
	reconciler *Reconciler
	interval   time.Duration

	stopCh chan struct{}
	wg     sync.WaitGroup
}

// NewRunner creates a periodic runner for the given reconciler.
func NewRunner(r *Reconciler, interval time.Duration) *Runner {
	if interval <= 0 {
		interval = time.Minute
	}
	return &Runner{
		reconciler: r,
		interval:   interval,
		stopCh:     make(chan struct{}),
	}
}

// Start launches the reconciliation loop. An immediate first cycle runs so
// a freshly started service catches up without waiting one interval.
func (r *Runner) Start(ctx context.Context) {
	log.Info().Dur("interval", r.interval).Msg("Starting reconciler runner")

	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		r.loop(ctx)
	}()
}

// Stop shuts the loop down and waits for an in-flight cycle to finish.
func (r *Runner) Stop() {
	close(r.stopCh)
	r.wg.Wait()
	log.Info().Msg("Reconciler runner stopped")
}

func (r *Runner) loop(ctx context.Context) {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	r.runOnce(ctx)

	for {
		select {
		case <-ticker.C:
			r.runOnce(ctx)
		case <-r.stopCh:
			return
		case <-ctx.Done():
			return
		}
	}
}

func (r *Runner) runOnce(ctx context.Context) {
	result, err := r.reconciler.RunCycle(ctx, time.Now())
	if err != nil {
		// The next tick retries: unmoved meetings remain selectable.
		log.Error().Err(err).Msg("Reconciliation cycle failed")
		return
	}

	if len(result.Activated) > 0 || len(result.Ended) > 0 {
		log.Info().
			Int("activated", len(result.Activated)).
			Int("ended", len(result.Ended)).
			Msg("Reconciliation cycle complete")
	}
}
