// Package broadcast provides a generic pub/sub fan-out with a bounded buffer
// per subscriber.
//
// MemoryBroadcaster never blocks the publisher. When a subscriber's buffer is
// full the oldest buffered message is evicted to make room for the new one and
// the subscriber's lag counter is incremented. Each subscriber therefore sees
// messages in publish order, possibly with a prefix missing, and can learn how
// many it lost through Lagged.
//
//	b := broadcast.NewMemoryBroadcaster[string](50)
//	defer b.Close()
//
//	sub := b.Subscribe(ctx)
//	defer sub.Close()
//
//	go func() {
//		for msg := range sub.Receive(ctx) {
//			if n := sub.Lagged(); n > 0 {
//				log.Printf("missed %d messages", n)
//			}
//			fmt.Println(msg.Data)
//		}
//	}()
//
//	_ = b.Broadcast(ctx, broadcast.Message[string]{Data: "hello"})
//
// Subscriptions end when their context is cancelled, when Close is called on
// the subscriber, or when the broadcaster is closed; in every case the receive
// channel is closed. Broadcast on a closed broadcaster returns
// ErrBroadcasterClosed.
//
// The subscriber set is guarded by a read/write lock held only while copying a
// message into the buffers; each subscriber has its own mutex so that
// eviction and enqueue happen as one step.
package broadcast
