package pipeline

import (
	"context"

	"golang.org/x/sync/errgroup"
)

// forEach calls fn for every item concurrently and returns the results in
// input order. fn reports per-item failure inside T.
func forEach[T any](ctx context.Context, items []string, fn func(ctx context.Context, i int, item string) T) []T {
	out := make([]T, len(items))
	var g errgroup.Group
	for i, item := range items {
		g.Go(func() error {
			out[i] = fn(ctx, i, item)
			return nil
		})
	}
	_ = g.Wait()
	return out
}
