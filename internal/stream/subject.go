package stream

import "sync"

// Subject is a multicast value stream. Every subscriber receives emissions
// in the order produced; a replay subject additionally hands new subscribers
// the last n buffered values before any live ones.
//
// Each subscriber is drained by its own goroutine through an unbounded
// queue, so a slow consumer never blocks the emitter or other subscribers.
type Subject[T any] struct {
	mu      sync.Mutex
	subs    map[int]*subscriber[T]
	nextID  int
	replayN int
	replay  []T
	closed  bool
}

// NewSubject creates a subject without replay.
func NewSubject[T any]() *Subject[T] {
	return NewReplaySubject[T](0)
}

// NewReplaySubject creates a subject that replays the last n values to each
// new subscriber.
func NewReplaySubject[T any](n int) *Subject[T] {
	return &Subject[T]{
		subs:    make(map[int]*subscriber[T]),
		replayN: n,
	}
}

// Emit delivers v to all current subscribers. Emitting on a closed subject
// is a no-op.
func (s *Subject[T]) Emit(v T) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	if s.replayN > 0 {
		s.replay = append(s.replay, v)
		if len(s.replay) > s.replayN {
			s.replay = s.replay[len(s.replay)-s.replayN:]
		}
	}
	for _, sub := range s.subs {
		sub.push(v)
	}
}

// Subscribe registers a new subscriber and returns its channel plus an
// unsubscribe function. The channel closes after unsubscribe or after the
// subject closes; values still queued at that point are dropped.
func (s *Subject[T]) Subscribe() (<-chan T, func()) {
	s.mu.Lock()
	sub := newSubscriber[T]()
	for _, v := range s.replay {
		sub.push(v)
	}
	if s.closed {
		s.mu.Unlock()
		sub.close()
		return sub.out, func() {}
	}
	id := s.nextID
	s.nextID++
	s.subs[id] = sub
	s.mu.Unlock()

	unsubscribe := func() {
		s.mu.Lock()
		delete(s.subs, id)
		s.mu.Unlock()
		sub.close()
	}
	return sub.out, unsubscribe
}

// Last returns the most recently buffered value, if any.
func (s *Subject[T]) Last() (T, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var zero T
	if len(s.replay) == 0 {
		return zero, false
	}
	return s.replay[len(s.replay)-1], true
}

// Close terminates the subject and all subscriber channels.
func (s *Subject[T]) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	subs := s.subs
	s.subs = make(map[int]*subscriber[T])
	s.mu.Unlock()

	for _, sub := range subs {
		sub.close()
	}
}

type subscriber[T any] struct {
	mu    sync.Mutex
	cond  *sync.Cond
	queue []T
	done  chan struct{}
	out   chan T
}

func newSubscriber[T any]() *subscriber[T] {
	sub := &subscriber[T]{
		out:  make(chan T),
		done: make(chan struct{}),
	}
	sub.cond = sync.NewCond(&sub.mu)
	go sub.drain()
	return sub
}

func (sub *subscriber[T]) push(v T) {
	sub.mu.Lock()
	select {
	case <-sub.done:
		sub.mu.Unlock()
		return
	default:
	}
	sub.queue = append(sub.queue, v)
	sub.mu.Unlock()
	sub.cond.Signal()
}

func (sub *subscriber[T]) close() {
	sub.mu.Lock()
	select {
	case <-sub.done:
		sub.mu.Unlock()
		return
	default:
	}
	close(sub.done)
	sub.mu.Unlock()
	sub.cond.Signal()
}

func (sub *subscriber[T]) closedNow() bool {
	select {
	case <-sub.done:
		return true
	default:
		return false
	}
}

func (sub *subscriber[T]) drain() {
	for {
		sub.mu.Lock()
		for len(sub.queue) == 0 && !sub.closedNow() {
			sub.cond.Wait()
		}
		if sub.closedNow() {
			sub.mu.Unlock()
			close(sub.out)
			return
		}
		v := sub.queue[0]
		sub.queue = sub.queue[1:]
		sub.mu.Unlock()

		select {
		case sub.out <- v:
		case <-sub.done:
			close(sub.out)
			return
		}
	}
}
