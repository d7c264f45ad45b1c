package stream

import (
	"context"
	"reflect"
	"sync"
)

// DeepEqual is the default equality used by the combinators when eq is nil.
func DeepEqual[T any](a, b T) bool {
	return reflect.DeepEqual(a, b)
}

// DistinctUntilChanged forwards only values that differ from the previously
// forwarded one under eq (nil means deep structural equality). The returned
// subject replays its last value to new subscribers.
func DistinctUntilChanged[T any](ctx context.Context, src *Subject[T], eq func(a, b T) bool) *Subject[T] {
	if eq == nil {
		eq = DeepEqual[T]
	}
	out := NewReplaySubject[T](1)
	in, unsubscribe := src.Subscribe()

	go func() {
		defer unsubscribe()
		defer out.Close()
		var last T
		have := false
		for {
			select {
			case <-ctx.Done():
				return
			case v, ok := <-in:
				if !ok {
					return
				}
				if have && eq(last, v) {
					continue
				}
				last = v
				have = true
				out.Emit(v)
			}
		}
	}()
	return out
}

// Map transforms each source value through fn.
func Map[T, U any](ctx context.Context, src *Subject[T], fn func(T) U) *Subject[U] {
	out := NewReplaySubject[U](1)
	in, unsubscribe := src.Subscribe()

	go func() {
		defer unsubscribe()
		defer out.Close()
		for {
			select {
			case <-ctx.Done():
				return
			case v, ok := <-in:
				if !ok {
					return
				}
				out.Emit(fn(v))
			}
		}
	}()
	return out
}

// ReplayLast re-multicasts src through an n-value replay buffer.
func ReplayLast[T any](ctx context.Context, src *Subject[T], n int) *Subject[T] {
	out := NewReplaySubject[T](n)
	in, unsubscribe := src.Subscribe()

	go func() {
		defer unsubscribe()
		defer out.Close()
		for {
			select {
			case <-ctx.Done():
				return
			case v, ok := <-in:
				if !ok {
					return
				}
				out.Emit(v)
			}
		}
	}()
	return out
}

// Pair is the tuple emitted by CombineLatest2.
type Pair[A, B any] struct {
	First  A
	Second B
}

// Triple is the tuple emitted by CombineLatest3.
type Triple[A, B, C any] struct {
	First  A
	Second B
	Third  C
}

// CombineLatest2 emits a pair once both inputs have emitted, then again on
// every input emission, always with the latest value from each.
func CombineLatest2[A, B any](ctx context.Context, a *Subject[A], b *Subject[B]) *Subject[Pair[A, B]] {
	out := NewReplaySubject[Pair[A, B]](1)
	achan, acancel := a.Subscribe()
	bchan, bcancel := b.Subscribe()

	go func() {
		defer acancel()
		defer bcancel()
		defer out.Close()
		var la A
		var lb B
		haveA, haveB := false, false
		for {
			select {
			case <-ctx.Done():
				return
			case v, ok := <-achan:
				if !ok {
					if bchan == nil {
						return
					}
					achan = nil
					continue
				}
				la, haveA = v, true
			case v, ok := <-bchan:
				if !ok {
					if achan == nil {
						return
					}
					bchan = nil
					continue
				}
				lb, haveB = v, true
			}
			if haveA && haveB {
				out.Emit(Pair[A, B]{First: la, Second: lb})
			}
		}
	}()
	return out
}

// CombineLatest3 is CombineLatest2 over three inputs.
func CombineLatest3[A, B, C any](ctx context.Context, a *Subject[A], b *Subject[B], c *Subject[C]) *Subject[Triple[A, B, C]] {
	ab := CombineLatest2(ctx, a, b)
	abc := CombineLatest2(ctx, ab, c)
	return Map(ctx, abc, func(p Pair[Pair[A, B], C]) Triple[A, B, C] {
		return Triple[A, B, C]{First: p.First.First, Second: p.First.Second, Third: p.Second}
	})
}

// SwitchMap runs fn for each source value, cancelling the previous
// invocation's context first. A superseded invocation's result is never
// emitted, even when its fetch has already returned. Failures surface on
// the returned error subject; cancellations do not.
func SwitchMap[T, U any](ctx context.Context, src *Subject[T], fn func(context.Context, T) (U, error)) (*Subject[U], *Subject[error]) {
	out := NewReplaySubject[U](1)
	errs := NewSubject[error]()
	in, unsubscribe := src.Subscribe()

	var mu sync.Mutex
	var gen uint64

	go func() {
		defer unsubscribe()
		var cancelPrev context.CancelFunc
		defer func() {
			if cancelPrev != nil {
				cancelPrev()
			}
			out.Close()
			errs.Close()
		}()
		for {
			select {
			case <-ctx.Done():
				return
			case v, ok := <-in:
				if !ok {
					return
				}
				mu.Lock()
				gen++
				myGen := gen
				mu.Unlock()
				if cancelPrev != nil {
					cancelPrev()
				}
				fetchCtx, cancel := context.WithCancel(ctx)
				cancelPrev = cancel

				go func(value T) {
					res, err := fn(fetchCtx, value)
					mu.Lock()
					defer mu.Unlock()
					if myGen != gen {
						return
					}
					if err != nil {
						if fetchCtx.Err() == nil {
							errs.Emit(err)
						}
						return
					}
					out.Emit(res)
				}(v)
			}
		}
	}()
	return out, errs
}
