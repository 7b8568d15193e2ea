package fanout

import (
	"context"
)

// Operation is one independently-failing asynchronous call, already bound to
// its target and payload.
type Operation[T any] func(ctx context.Context) (T, error)

// Aggregate launches every operation concurrently and collects outcomes in
// completion order until either all operations finish or ctx is done,
// whichever comes first. Outcomes arriving after the deadline are discarded.
//
// A failing operation never affects its siblings: each outcome is captured
// into an Exceptional and the returned slice has between 0 and len(ops)
// entries depending on how many completed in time.
func Aggregate[T any](ctx context.Context, ops []Operation[T]) []Exceptional[T] {
	if len(ops) == 0 {
		return nil
	}

	// Buffered to len(ops) so workers finishing after cancellation never
	// block; their results are simply left behind for the GC.
	completions := make(chan Exceptional[T], len(ops))

	for _, op := range ops {
		go func(op Operation[T]) {
			value, err := op(ctx)
			if err != nil {
				completions <- Err[T](err)
				return
			}
			completions <- OK(value)
		}(op)
	}

	results := make([]Exceptional[T], 0, len(ops))
	for range ops {
		select {
		case outcome := <-completions:
			results = append(results, outcome)
		case <-ctx.Done():
			return results
		}
	}
	return results
}
