// Package history keeps the bounded window of recent chat messages that is
// replayed to every new connection.
//
// Ring holds at most Limit messages in acceptance order and evicts the oldest
// on overflow. Snapshot hands out a copy, so callers never observe later
// writes.
package history
