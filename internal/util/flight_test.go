package util

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"golang.org/x/sync/singleflight"
)

func TestDoSharedSurvivesFirstCallerCancel(t *testing.T) {
	var g singleflight.Group
	var calls atomic.Int32
	started := make(chan struct{})
	var startOnce sync.Once
	release := make(chan struct{})

	work := func(ctx context.Context) (string, error) {
		calls.Add(1)
		startOnce.Do(func() { close(started) })
		select {
		case <-release:
		case <-ctx.Done():
			return "", ctx.Err()
		}
		return "graph", nil
	}

	firstCtx, cancelFirst := context.WithCancel(context.Background())
	firstErr := make(chan error, 1)
	go func() {
		_, _, err := DoShared(firstCtx, &g, "basic|", time.Second, work)
		firstErr <- err
	}()
	<-started

	type result struct {
		v   string
		err error
	}
	second := make(chan result, 1)
	go func() {
		v, _, err := DoShared(context.Background(), &g, "basic|", time.Second, work)
		second <- result{v, err}
	}()
	// let the second caller join the in-flight call
	time.Sleep(50 * time.Millisecond)

	cancelFirst()
	if err := <-firstErr; !errors.Is(err, context.Canceled) {
		t.Fatalf("first caller err = %v, want context.Canceled", err)
	}

	close(release)
	res := <-second
	if res.err != nil {
		t.Fatalf("second caller err = %v, want nil", res.err)
	}
	if res.v != "graph" {
		t.Fatalf("second caller value = %q, want graph", res.v)
	}
	if n := calls.Load(); n != 1 {
		t.Fatalf("work ran %d times, want 1", n)
	}
}

func TestDoSharedTimeout(t *testing.T) {
	var g singleflight.Group
	_, _, err := DoShared(context.Background(), &g, "k", 20*time.Millisecond, func(ctx context.Context) (int, error) {
		<-ctx.Done()
		return 0, ctx.Err()
	})
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("err = %v, want context.DeadlineExceeded", err)
	}
}

func TestDoSharedNilGroup(t *testing.T) {
	v, shared, err := DoShared(context.Background(), nil, "k", 0, func(context.Context) (int, error) {
		return 7, nil
	})
	if err != nil || v != 7 || shared {
		t.Fatalf("DoShared(nil group) = %d, %v, %v", v, shared, err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	var g singleflight.Group
	if _, _, err := DoShared(ctx, &g, "k", 0, func(context.Context) (int, error) { return 1, nil }); !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v, want context.Canceled", err)
	}
}
