package worker

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"walletlog/internal/amqp"
)

type fakeConsumer struct {
	msgs    []*amqp.CacheInvalidation
	stopped atomic.Bool
}

func (f *fakeConsumer) ConsumeCacheInvalidations(ctx context.Context, handler func(*amqp.CacheInvalidation)) error {
	for _, m := range f.msgs {
		handler(m)
	}
	<-ctx.Done()
	f.stopped.Store(true)
	return ctx.Err()
}

type countingCache struct{ resets atomic.Int64 }

func (c *countingCache) ResetCache() { c.resets.Add(1) }

func TestInvalidationWorker(t *testing.T) {
	consumer := &fakeConsumer{msgs: []*amqp.CacheInvalidation{
		amqp.NewCacheInvalidation("peer-a", "AddExpense"),
		amqp.NewCacheInvalidation("peer-b", "DeleteExpense"),
	}}
	cache := &countingCache{}
	w := NewInvalidationWorker(consumer, cache)

	w.Start(context.Background())
	w.Start(context.Background())

	deadline := time.Now().Add(2 * time.Second)
	for w.Handled() < 2 {
		if time.Now().After(deadline) {
			t.Fatalf("handled %d invalidations, want 2", w.Handled())
		}
		time.Sleep(5 * time.Millisecond)
	}

	w.Stop()
	w.Stop()
	if !consumer.stopped.Load() {
		t.Fatal("consumer still running after Stop")
	}
	if got := cache.resets.Load(); got != 2 {
		t.Fatalf("cache reset %d times, want 2", got)
	}
}

func TestStopWithoutStart(t *testing.T) {
	NewInvalidationWorker(&fakeConsumer{}, &countingCache{}).Stop()
}
