package queue

import (
	"context"
	"hash/fnv"

	"github.com/rs/zerolog"

	"github.com/vivulocal/marketplace-api/internal/core/ports"
)

const (
	defaultWorkers = 8
	channelBuffer  = 256
)

// Dispatcher routes identity changes to a fixed set of workers using
// consistent hashing on the identity id, guaranteeing per-identity ordering
// on the live feed. It implements ports.ChangePublisher.
type Dispatcher struct {
	workers []chan ports.IdentityChange
	feed    ports.ChangePublisher
	log     zerolog.Logger
	depth   func(delta float64)
}

// NewDispatcher creates a Dispatcher with numWorkers sharded workers.
// If numWorkers <= 0, defaultWorkers is used.
func NewDispatcher(numWorkers int, feed ports.ChangePublisher, log zerolog.Logger) *Dispatcher {
	if numWorkers <= 0 {
		numWorkers = defaultWorkers
	}
	d := &Dispatcher{
		workers: make([]chan ports.IdentityChange, numWorkers),
		feed:    feed,
		log:     log,
		depth:   func(float64) {},
	}
	for i := range d.workers {
		d.workers[i] = make(chan ports.IdentityChange, channelBuffer)
	}
	return d
}

// OnDepth registers a hook receiving +1/-1 as changes enter and leave the
// queues.
func (d *Dispatcher) OnDepth(fn func(delta float64)) {
	d.depth = fn
}

// Start launches all worker goroutines. Workers stop when ctx is cancelled.
func (d *Dispatcher) Start(ctx context.Context) {
	for i, ch := range d.workers {
		go d.runWorker(ctx, i, ch)
	}
}

// Publish enqueues a change on the worker responsible for its identity. It
// blocks only while that worker's buffer is full.
func (d *Dispatcher) Publish(ctx context.Context, change ports.IdentityChange) error {
	select {
	case d.workers[d.shardIndex(change.IdentityID)] <- change:
		d.depth(1)
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// shardIndex maps an identity id deterministically to a worker index.
func (d *Dispatcher) shardIndex(identityID string) int {
	h := fnv.New32a()
	_, _ = h.Write([]byte(identityID))
	return int(h.Sum32() % uint32(len(d.workers)))
}

func (d *Dispatcher) runWorker(ctx context.Context, id int, ch <-chan ports.IdentityChange) {
	for {
		select {
		case <-ctx.Done():
			return
		case change, ok := <-ch:
			if !ok {
				return
			}
			d.depth(-1)
			if err := d.feed.Publish(ctx, change); err != nil {
				d.log.Error().Err(err).
					Str("identity_id", change.IdentityID).
					Int("worker_id", id).
					Msg("identity change publish failed")
			}
		}
	}
}
