package redis

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/dmitrymomot/chatrelay/core/chat"
)

const (
	defaultMessagesKey = "chat:messages"
	defaultRetain      = 1000
)

// MessageStore keeps messages as JSON entries in a capped Redis list, oldest at
// the head.
type MessageStore struct {
	client redis.UniversalClient
	key    string
	retain int64
}

var _ chat.Store = (*MessageStore)(nil)

// NewMessageStore returns a store writing to cfg.MessagesKey.
func NewMessageStore(client redis.UniversalClient, cfg Config) *MessageStore {
	s := &MessageStore{client: client, key: cfg.MessagesKey, retain: cfg.MessagesRetain}
	if s.key == "" {
		s.key = defaultMessagesKey
	}
	if s.retain <= 0 {
		s.retain = defaultRetain
	}
	return s
}

// Persist appends msg and trims the list in one MULTI/EXEC.
func (s *MessageStore) Persist(ctx context.Context, msg chat.Message) error {
	data, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("%w: encode: %w", chat.ErrPersist, err)
	}

	_, err = s.client.TxPipelined(ctx, func(p redis.Pipeliner) error {
		p.RPush(ctx, s.key, data)
		p.LTrim(ctx, s.key, -s.retain, -1)
		return nil
	})
	if err != nil {
		return fmt.Errorf("%w: redis rpush: %w", chat.ErrPersist, err)
	}
	return nil
}

// LoadHistory returns the newest limit messages, oldest first. Entries that no
// longer decode are skipped.
func (s *MessageStore) LoadHistory(ctx context.Context, limit int) ([]chat.Message, error) {
	if limit <= 0 {
		return nil, nil
	}

	raw, err := s.client.LRange(ctx, s.key, -int64(limit), -1).Result()
	if err != nil {
		return nil, fmt.Errorf("%w: redis lrange: %w", chat.ErrPersist, err)
	}

	msgs := make([]chat.Message, 0, len(raw))
	for _, entry := range raw {
		var msg chat.Message
		if err := json.Unmarshal([]byte(entry), &msg); err != nil {
			continue
		}
		msgs = append(msgs, msg)
	}
	return msgs, nil
}

// Close closes the client.
func (s *MessageStore) Close() error {
	return s.client.Close()
}
