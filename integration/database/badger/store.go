package badger

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"
	"github.com/samber/lo"

	"github.com/dmitrymomot/chatrelay/core/chat"
)

const (
	messagePrefix = "msg:"
	sequenceKey   = "meta:msg_seq"
	sequenceLease = 128
)

// MessageStore keeps messages under "msg:{sequence padded to 20 digits}" so a
// reverse prefix scan yields the most recently persisted first. The sequence
// follows persist order, not message timestamps.
type MessageStore struct {
	db  *badger.DB
	seq *badger.Sequence
	ttl time.Duration
}

var _ chat.Store = (*MessageStore)(nil)

// NewMessageStore returns a store on db. Entries expire after cfg.Retention
// when it is positive.
func NewMessageStore(db *badger.DB, cfg Config) (*MessageStore, error) {
	seq, err := db.GetSequence([]byte(sequenceKey), sequenceLease)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrFailedToOpen, err)
	}
	return &MessageStore{db: db, seq: seq, ttl: cfg.Retention}, nil
}

func (s *MessageStore) Persist(ctx context.Context, msg chat.Message) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("%w: %w", chat.ErrPersist, err)
	}

	if msg.ID == uuid.Nil {
		msg.ID = uuid.New()
	}
	data, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("%w: encode: %w", chat.ErrPersist, err)
	}

	n, err := s.seq.Next()
	if err != nil {
		return fmt.Errorf("%w: badger sequence: %w", chat.ErrPersist, err)
	}

	err = s.db.Update(func(txn *badger.Txn) error {
		e := badger.NewEntry(messageKey(n), data)
		if s.ttl > 0 {
			e = e.WithTTL(s.ttl)
		}
		return txn.SetEntry(e)
	})
	if err != nil {
		return fmt.Errorf("%w: badger set: %w", chat.ErrPersist, err)
	}
	return nil
}

// LoadHistory returns the newest limit messages, oldest first.
func (s *MessageStore) LoadHistory(ctx context.Context, limit int) ([]chat.Message, error) {
	if limit <= 0 {
		return nil, nil
	}

	msgs := make([]chat.Message, 0, limit)
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Reverse = true
		opts.Prefix = []byte(messagePrefix)
		it := txn.NewIterator(opts)
		defer it.Close()

		// Reverse iteration seeks to the last key <= the seek key.
		seek := []byte(messagePrefix + "\xff")
		for it.Seek(seek); it.ValidForPrefix(opts.Prefix) && len(msgs) < limit; it.Next() {
			if err := ctx.Err(); err != nil {
				return err
			}
			var msg chat.Message
			err := it.Item().Value(func(v []byte) error {
				return json.Unmarshal(v, &msg)
			})
			if err != nil {
				return err
			}
			msgs = append(msgs, msg)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: badger scan: %w", chat.ErrPersist, err)
	}

	return lo.Reverse(msgs), nil
}

// Close returns unused sequence leases and closes the database.
func (s *MessageStore) Close() error {
	return errors.Join(s.seq.Release(), s.db.Close())
}

func messageKey(n uint64) []byte {
	return fmt.Appendf(nil, "%s%020d", messagePrefix, n)
}
