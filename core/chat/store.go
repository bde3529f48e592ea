//go:generate go run go.uber.org/mock/mockgen -source=store.go -destination=mocks/mock_store.go -package=mocks
package chat

import "context"

// Store is the persistence collaborator. Persist failures are reported but never
// abort the live accept path. LoadHistory returns up to limit of the most recent
// messages, oldest first, and is called once at startup.
type Store interface {
	Persist(ctx context.Context, msg Message) error
	LoadHistory(ctx context.Context, limit int) ([]Message, error)
}

// NopStore keeps nothing. Used when the relay runs without durable storage.
type NopStore struct{}

func (NopStore) Persist(context.Context, Message) error { return nil }

func (NopStore) LoadHistory(context.Context, int) ([]Message, error) { return nil, nil }
