package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"

	"github.com/vivulocal/marketplace-api/internal/core/ports"
)

const runTimeout = 30 * time.Second

// Recovery periodically completes decisions that were interrupted between
// their writes.
type Recovery struct {
	cron      *cron.Cron
	decisions ports.DecisionService
	log       zerolog.Logger
	onResumed func(n int)
}

func NewRecovery(schedule string, decisions ports.DecisionService, log zerolog.Logger) (*Recovery, error) {
	r := &Recovery{
		cron:      cron.New(),
		decisions: decisions,
		log:       log,
		onResumed: func(int) {},
	}
	if _, err := r.cron.AddFunc(schedule, func() { r.RunOnce(context.Background()) }); err != nil {
		return nil, fmt.Errorf("recovery schedule %q: %w", schedule, err)
	}
	return r, nil
}

// OnResumed registers a hook receiving the number of decisions completed by
// each run.
func (r *Recovery) OnResumed(fn func(n int)) {
	r.onResumed = fn
}

// RunOnce scans for interrupted decisions and completes them.
func (r *Recovery) RunOnce(ctx context.Context) int {
	ctx, cancel := context.WithTimeout(ctx, runTimeout)
	defer cancel()

	n, err := r.decisions.ResumeInterrupted(ctx)
	if err != nil {
		r.log.Error().Err(err).Int("resumed", n).Msg("decision recovery incomplete")
	} else if n > 0 {
		r.log.Info().Int("resumed", n).Msg("decision recovery completed")
	}
	r.onResumed(n)
	return n
}

func (r *Recovery) Start() {
	r.cron.Start()
}

// Stop waits for a running job to finish or ctx to end.
func (r *Recovery) Stop(ctx context.Context) {
	select {
	case <-r.cron.Stop().Done():
	case <-ctx.Done():
	}
}
