package broadcast

import (
	"context"
	"sync"
	"sync/atomic"
)

// MemoryBroadcaster is an in-process Broadcaster. Each subscriber owns a
// bounded buffer; when it is full the oldest buffered message is dropped to
// make room, so a slow subscriber never blocks Broadcast or its peers.
type MemoryBroadcaster[T any] struct {
	mu         sync.RWMutex
	subs       map[*memorySubscriber[T]]struct{}
	bufferSize int
	closed     bool

	published atomic.Uint64
	dropped   atomic.Uint64
}

// NewMemoryBroadcaster creates a broadcaster with bufferSize slots per
// subscriber. Sizes below 1 are raised to 1.
func NewMemoryBroadcaster[T any](bufferSize int) *MemoryBroadcaster[T] {
	return &MemoryBroadcaster[T]{
		subs:       make(map[*memorySubscriber[T]]struct{}),
		bufferSize: max(bufferSize, 1),
	}
}

// Subscribe registers a new subscriber. On a closed broadcaster the returned
// subscriber is already closed.
func (b *MemoryBroadcaster[T]) Subscribe(ctx context.Context) Subscriber[T] {
	sub := &memorySubscriber[T]{
		ch:     make(chan Message[T], b.bufferSize),
		parent: b,
	}

	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		sub.closeChan()
		return sub
	}
	b.subs[sub] = struct{}{}
	b.mu.Unlock()

	sub.watch(ctx)
	return sub
}

// Broadcast delivers msg to every subscriber. It holds the subscriber set
// read lock only while copying msg into the per-subscriber buffers.
func (b *MemoryBroadcaster[T]) Broadcast(ctx context.Context, msg Message[T]) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	b.mu.RLock()
	defer b.mu.RUnlock()

	if b.closed {
		return ErrBroadcasterClosed
	}

	b.published.Add(1)
	for sub := range b.subs {
		if sub.deliver(msg) {
			b.dropped.Add(1)
		}
	}
	return nil
}

// Close closes every subscriber. Further Broadcast calls fail with
// ErrBroadcasterClosed. Closing twice is a no-op.
func (b *MemoryBroadcaster[T]) Close() error {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return nil
	}
	b.closed = true
	subs := make([]*memorySubscriber[T], 0, len(b.subs))
	for sub := range b.subs {
		subs = append(subs, sub)
	}
	clear(b.subs)
	b.mu.Unlock()

	for _, sub := range subs {
		sub.closeChan()
	}
	return nil
}

// Stats reports the current subscriber count and lifetime counters.
func (b *MemoryBroadcaster[T]) Stats() Stats {
	b.mu.RLock()
	n := len(b.subs)
	b.mu.RUnlock()

	return Stats{
		Subscribers: n,
		Published:   b.published.Load(),
		Dropped:     b.dropped.Load(),
	}
}

func (b *MemoryBroadcaster[T]) remove(sub *memorySubscriber[T]) {
	b.mu.Lock()
	delete(b.subs, sub)
	b.mu.Unlock()
}

type memorySubscriber[T any] struct {
	mu     sync.Mutex
	ch     chan Message[T]
	closed bool
	stops  []func() bool

	lagged atomic.Uint64
	parent *MemoryBroadcaster[T]
	once   sync.Once
}

func (s *memorySubscriber[T]) Receive(ctx context.Context) <-chan Message[T] {
	s.watch(ctx)
	return s.ch
}

func (s *memorySubscriber[T]) Lagged() uint64 {
	return s.lagged.Swap(0)
}

// Close unsubscribes and closes the delivery channel. Safe to call repeatedly.
func (s *memorySubscriber[T]) Close() error {
	s.once.Do(func() {
		s.mu.Lock()
		stops := s.stops
		s.stops = nil
		s.mu.Unlock()
		for _, stop := range stops {
			stop()
		}

		s.parent.remove(s)
		s.closeChan()
	})
	return nil
}

func (s *memorySubscriber[T]) watch(ctx context.Context) {
	if ctx == nil || ctx.Done() == nil {
		return
	}
	stop := context.AfterFunc(ctx, func() { _ = s.Close() })

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		stop()
		return
	}
	s.stops = append(s.stops, stop)
}

// deliver enqueues msg, evicting the oldest buffered message when the buffer
// is full. It reports whether a message was dropped.
func (s *memorySubscriber[T]) deliver(msg Message[T]) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return false
	}

	select {
	case s.ch <- msg:
		return false
	default:
	}

	// Buffer full. Only one sender holds s.mu, so after one receive there is room.
	dropped := false
	select {
	case <-s.ch:
		dropped = true
		s.lagged.Add(1)
	default:
	}

	select {
	case s.ch <- msg:
	default:
		dropped = true
		s.lagged.Add(1)
	}
	return dropped
}

func (s *memorySubscriber[T]) closeChan() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.closed = true
	close(s.ch)
}
