package accumulate

import (
	"context"
	"reflect"
	"testing"
	"time"

	"liquidityShield/internal/stream"
)

func recvBatch(t *testing.T, ch <-chan []string) []string {
	t.Helper()
	select {
	case batch, ok := <-ch:
		if !ok {
			t.Fatalf("channel closed")
		}
		return batch
	case <-time.After(2 * time.Second):
		t.Fatalf("timed out waiting for batch")
	}
	panic("unreachable")
}

func TestAccumulatorAdd(t *testing.T) {
	acc := New[string](nil)

	fresh := acc.Add([]string{"a", "b"})
	if !reflect.DeepEqual(fresh, []string{"a", "b"}) {
		t.Fatalf("first batch: got %v", fresh)
	}

	fresh = acc.Add([]string{"a", "b", "c"})
	if !reflect.DeepEqual(fresh, []string{"c"}) {
		t.Fatalf("overlapping batch: got %v, want [c]", fresh)
	}

	fresh = acc.Add([]string{"a", "b", "c"})
	if len(fresh) != 0 {
		t.Fatalf("repeated batch: got %v, want empty", fresh)
	}

	if seen := acc.Seen(); !reflect.DeepEqual(seen, []string{"a", "b", "c"}) {
		t.Fatalf("seen: got %v", seen)
	}
}

func TestAccumulatorCustomEq(t *testing.T) {
	type record struct {
		ID    string
		Noise int
	}
	acc := New(func(a, b record) bool { return a.ID == b.ID })

	acc.Add([]record{{ID: "1", Noise: 10}})
	fresh := acc.Add([]record{{ID: "1", Noise: 99}, {ID: "2"}})
	if len(fresh) != 1 || fresh[0].ID != "2" {
		t.Fatalf("got %v, want only ID 2", fresh)
	}
}

func TestDeltas(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	src := stream.NewSubject[[]string]()
	out := Deltas(ctx, src, nil)
	ch, unsubscribe := out.Subscribe()
	defer unsubscribe()

	src.Emit([]string{"a", "b"})
	if got := recvBatch(t, ch); !reflect.DeepEqual(got, []string{"a", "b"}) {
		t.Fatalf("first delta: got %v", got)
	}

	src.Emit([]string{"a", "b", "c"})
	if got := recvBatch(t, ch); !reflect.DeepEqual(got, []string{"c"}) {
		t.Fatalf("second delta: got %v, want [c]", got)
	}

	// A batch with nothing new is suppressed.
	src.Emit([]string{"b", "c"})
	select {
	case got := <-ch:
		t.Fatalf("unexpected delta: %v", got)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestDeltasEmitsEmptySeed(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	src := stream.NewSubject[[]string]()
	out := Deltas(ctx, src, nil)
	ch, unsubscribe := out.Subscribe()
	defer unsubscribe()

	src.Emit(nil)
	if got := recvBatch(t, ch); len(got) != 0 {
		t.Fatalf("seed delta: got %v, want empty", got)
	}

	src.Emit([]string{"a"})
	if got := recvBatch(t, ch); !reflect.DeepEqual(got, []string{"a"}) {
		t.Fatalf("got %v, want [a]", got)
	}
}
