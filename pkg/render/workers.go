package render

import (
	"context"
	"runtime"

	"golang.org/x/sync/errgroup"
)

// Chunk sizes for each kind of work item. A chunk is the unit handed to one
// goroutine.
const (
	vertexChunk   = 512
	triangleChunk = 16
	rowChunk      = 8
)

// normalizeWorkers maps the user-facing worker count to an errgroup limit.
// 0 selects GOMAXPROCS, negative values mean one goroutine per chunk with no cap.
func normalizeWorkers(n int) int {
	switch {
	case n == 0:
		return runtime.GOMAXPROCS(0)
	case n < 0:
		return -1
	default:
		return n
	}
}

// parallelFor splits [0, n) into chunks and runs fn on each chunk concurrently,
// with at most workers chunks in flight. It returns once every chunk has
// finished, so a call is a full barrier.
//
// A panic inside fn is recovered into a *FaultError for stage. The first
// fault cancels the remaining chunks and is returned.
func parallelFor(workers, n, chunk int, stage string, hook func(string), fn func(lo, hi int)) error {
	if n <= 0 {
		return nil
	}
	if chunk <= 0 {
		chunk = 1
	}

	g, ctx := errgroup.WithContext(context.Background())
	g.SetLimit(normalizeWorkers(workers))

	for lo := 0; lo < n; lo += chunk {
		if ctx.Err() != nil {
			break
		}
		hi := min(lo+chunk, n)
		g.Go(func() (err error) {
			if ctx.Err() != nil {
				return nil
			}
			defer func() {
				if v := recover(); v != nil {
					err = &FaultError{Stage: stage, Value: v}
				}
			}()
			if hook != nil {
				hook(stage)
			}
			fn(lo, hi)
			return nil
		})
	}

	return g.Wait()
}
