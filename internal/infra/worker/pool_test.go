//go:build !integration

package worker

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"
)

func TestPool_RunsSubmittedTasks(t *testing.T) {
	p := NewPool(2, nil)
	p.Start(context.Background())

	var ran int32
	for i := 0; i < 5; i++ {
		if err := p.Submit("test", func(ctx context.Context) error {
			atomic.AddInt32(&ran, 1)
			return nil
		}); err != nil {
			t.Fatalf("submit %d: %v", i, err)
		}
	}
	_ = p.Submit("test", func(ctx context.Context) error { return errors.New("boom") })
	_ = p.Submit("test", func(ctx context.Context) error { panic("kaboom") })

	p.Stop()
	p.Stop()
	if n := atomic.LoadInt32(&ran); n != 5 {
		t.Fatalf("ran %d tasks, want 5", n)
	}
}

func TestPool_QueueFull(t *testing.T) {
	p := NewPool(1, nil) // not started: queue capacity 4
	block := func(ctx context.Context) error { time.Sleep(time.Millisecond); return nil }
	for i := 0; i < 4; i++ {
		if err := p.Submit("test", block); err != nil {
			t.Fatalf("submit %d: %v", i, err)
		}
	}
	if err := p.Submit("test", block); !errors.Is(err, ErrQueueFull) {
		t.Fatalf("expected ErrQueueFull, got %v", err)
	}
	if err := p.Submit("test", nil); err == nil {
		t.Fatal("nil task must be rejected")
	}
}
