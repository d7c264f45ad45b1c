// Package accumulate turns a stream of possibly-overlapping snapshots into a
// stream of append-only deltas, so downstream stages process each record
// exactly once.
package accumulate

import (
	"context"
	"reflect"
	"sync"

	"liquidityShield/internal/stream"
)

// Accumulator tracks every item seen so far under a caller-supplied equality
// (nil means deep structural equality).
type Accumulator[T any] struct {
	mu   sync.Mutex
	eq   func(a, b T) bool
	seen []T
}

func New[T any](eq func(a, b T) bool) *Accumulator[T] {
	if eq == nil {
		eq = func(a, b T) bool { return reflect.DeepEqual(a, b) }
	}
	return &Accumulator[T]{eq: eq}
}

// Add returns the batch members not already seen, in batch order, and
// appends them to the seen sequence.
func (a *Accumulator[T]) Add(batch []T) []T {
	a.mu.Lock()
	defer a.mu.Unlock()

	fresh := make([]T, 0, len(batch))
	for _, item := range batch {
		if a.contains(item) {
			continue
		}
		a.seen = append(a.seen, item)
		fresh = append(fresh, item)
	}
	return fresh
}

// Seen returns a copy of the accumulated sequence in arrival order.
func (a *Accumulator[T]) Seen() []T {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := make([]T, len(a.seen))
	copy(out, a.seen)
	return out
}

func (a *Accumulator[T]) contains(item T) bool {
	for _, existing := range a.seen {
		if a.eq(existing, item) {
			return true
		}
	}
	return false
}

// Deltas adapts src through an Accumulator: each emitted batch is reduced to
// its unseen members. Empty deltas are suppressed after the first emission;
// the initial seed batch always passes through, even when empty.
func Deltas[T any](ctx context.Context, src *stream.Subject[[]T], eq func(a, b T) bool) *stream.Subject[[]T] {
	out := stream.NewReplaySubject[[]T](1)
	acc := New(eq)
	in, unsubscribe := src.Subscribe()

	go func() {
		defer unsubscribe()
		defer out.Close()
		first := true
		for {
			select {
			case <-ctx.Done():
				return
			case batch, ok := <-in:
				if !ok {
					return
				}
				fresh := acc.Add(batch)
				if len(fresh) == 0 && !first {
					continue
				}
				first = false
				out.Emit(fresh)
			}
		}
	}()
	return out
}
