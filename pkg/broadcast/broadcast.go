package broadcast

import (
	"context"
	"errors"
)

var (
	ErrBroadcasterClosed = errors.New("broadcaster is closed")
	ErrSubscriberClosed  = errors.New("subscriber is closed")
)

// Message wraps a broadcast payload.
type Message[T any] struct {
	Data T
}

// Broadcaster fans messages out to every current subscriber.
type Broadcaster[T any] interface {
	// Broadcast delivers msg to all subscribers without blocking on any of them.
	Broadcast(ctx context.Context, msg Message[T]) error
	// Subscribe registers a subscriber that is removed when ctx is done.
	Subscribe(ctx context.Context) Subscriber[T]
	Close() error
}

// Subscriber receives broadcast messages in publish order.
type Subscriber[T any] interface {
	// Receive returns the delivery channel. It is closed when the subscriber
	// or the broadcaster is closed, or when ctx is done.
	Receive(ctx context.Context) <-chan Message[T]
	// Lagged returns how many messages were dropped for this subscriber since
	// the previous call and resets the counter.
	Lagged() uint64
	Close() error
}

// Stats is a point-in-time view of broadcaster counters.
type Stats struct {
	Subscribers int    `json:"subscribers"`
	Published   uint64 `json:"published"`
	Dropped     uint64 `json:"dropped"`
}
