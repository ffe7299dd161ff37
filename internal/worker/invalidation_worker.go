// Package worker runs the background consumer that keeps this instance's
// response cache consistent with mutations made through other instances.
package worker

import (
	"context"
	"errors"
	"sync"

	"walletlog/internal/amqp"
	"walletlog/internal/log"
)

// Consumer delivers invalidations published by other instances until ctx
// is done.
type Consumer interface {
	ConsumeCacheInvalidations(ctx context.Context, handler func(*amqp.CacheInvalidation)) error
}

// Resetter drops every cached response.
type Resetter interface {
	ResetCache()
}

// InvalidationWorker clears the local response cache whenever a peer
// reports a mutation.
type InvalidationWorker struct {
	consumer Consumer
	cache    Resetter

	mu      sync.Mutex
	cancel  context.CancelFunc
	done    chan struct{}
	handled int64
}

func NewInvalidationWorker(consumer Consumer, cache Resetter) *InvalidationWorker {
	return &InvalidationWorker{consumer: consumer, cache: cache}
}

// HandleInvalidation processes a single invalidation message.
func (w *InvalidationWorker) HandleInvalidation(ctx context.Context, msg *amqp.CacheInvalidation) {
	w.cache.ResetCache()

	w.mu.Lock()
	w.handled++
	w.mu.Unlock()

	log.FromContext(ctx).DebugContext(ctx, "Response cache cleared by peer",
		log.FieldComponent, log.ComponentCache,
		log.FieldOperation, log.OpInvalidate,
		log.FieldGraphQLOp, msg.Operation,
		"origin", msg.Origin)
}

// Handled returns how many invalidations have been applied.
func (w *InvalidationWorker) Handled() int64 {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.handled
}

// Start runs the consumer in the background. Calling Start on a running
// worker does nothing.
func (w *InvalidationWorker) Start(ctx context.Context) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.done != nil {
		return
	}

	ctx, cancel := context.WithCancel(ctx)
	w.cancel = cancel
	w.done = make(chan struct{})

	go func(done chan struct{}) {
		defer close(done)
		err := w.consumer.ConsumeCacheInvalidations(ctx, func(msg *amqp.CacheInvalidation) {
			w.HandleInvalidation(ctx, msg)
		})
		if err != nil && !errors.Is(err, context.Canceled) {
			log.FromContext(ctx).ErrorContext(ctx, "Invalidation consumer exited",
				log.FieldComponent, log.ComponentAMQP,
				log.FieldError, err.Error())
		}
	}(w.done)
}

// Stop cancels the consumer and waits for it to return.
func (w *InvalidationWorker) Stop() {
	w.mu.Lock()
	cancel, done := w.cancel, w.done
	w.mu.Unlock()
	if cancel == nil {
		return
	}
	cancel()
	<-done
}
