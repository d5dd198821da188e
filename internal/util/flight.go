package util

import (
	"context"
	"time"

	"golang.org/x/sync/singleflight"
)

// DoShared runs fn once per key across concurrent callers of g.
//
// fn runs under a context that keeps ctx's values but not its cancellation,
// bounded by timeout when timeout > 0. A caller whose ctx ends stops waiting
// and gets ctx.Err(); the work continues for the callers still waiting on it.
// A nil g runs fn directly under ctx.
func DoShared[T any](ctx context.Context, g *singleflight.Group, key string, timeout time.Duration, fn func(context.Context) (T, error)) (T, bool, error) {
	var zero T
	if g == nil {
		v, err := fn(ctx)
		return v, false, err
	}
	if err := ctx.Err(); err != nil {
		return zero, false, err
	}

	ch := g.DoChan(key, func() (any, error) {
		workCtx := context.WithoutCancel(ctx)
		if timeout > 0 {
			var cancel context.CancelFunc
			workCtx, cancel = context.WithTimeout(workCtx, timeout)
			defer cancel()
		}
		return fn(workCtx)
	})

	select {
	case <-ctx.Done():
		return zero, false, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return zero, res.Shared, res.Err
		}
		return res.Val.(T), res.Shared, nil
	}
}
