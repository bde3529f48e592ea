package relay_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/dmitrymomot/chatrelay/core/chat"
	"github.com/dmitrymomot/chatrelay/core/chat/mocks"
	"github.com/dmitrymomot/chatrelay/core/relay"
	"github.com/dmitrymomot/chatrelay/pkg/broadcast"
)

func newEngine(t *testing.T, historyLimit, capacity int, opts ...relay.Option) *relay.Engine {
	t.Helper()
	cfg := relay.DefaultConfig()
	cfg.HistoryLimit = historyLimit
	cfg.ChannelCapacity = capacity
	e := relay.New(cfg, opts...)
	t.Cleanup(func() { _ = e.Close() })
	return e
}

func bodies(msgs []chat.Message) []string {
	out := make([]string, 0, len(msgs))
	for _, m := range msgs {
		out = append(out, m.Body)
	}
	return out
}

func recv(t *testing.T, sub broadcast.Subscriber[chat.Message], n int) []string {
	t.Helper()
	ch := sub.Receive(context.Background())
	out := make([]string, 0, n)
	for range n {
		select {
		case m, ok := <-ch:
			require.True(t, ok)
			out = append(out, m.Data.Body)
		case <-time.After(time.Second):
			t.Fatalf("timed out waiting for message %d", len(out)+1)
		}
	}
	return out
}

func TestEngine_AcceptAppendsAndPublishes(t *testing.T) {
	t.Parallel()

	e := newEngine(t, 2, 8)
	ctx := context.Background()

	snap, sub, err := e.Join(ctx)
	require.NoError(t, err)
	assert.Empty(t, snap)

	for _, body := range []string{"A", "B", "C"} {
		_, err := e.Accept(ctx, chat.Draft{Name: "alice", Body: body})
		require.NoError(t, err)
	}

	assert.Equal(t, []string{"B", "C"}, bodies(e.History()))
	assert.Equal(t, []string{"A", "B", "C"}, recv(t, sub, 3))

	stats := e.Stats()
	assert.Equal(t, uint64(3), stats.Accepted)
	assert.Equal(t, 2, stats.History)
	assert.Equal(t, 2, stats.HistoryLimit)
	assert.Nil(t, stats.Journal)
}

func TestEngine_RejectedMessageLeavesNoTrace(t *testing.T) {
	t.Parallel()

	e := newEngine(t, 5, 8)
	ctx := context.Background()
	_, sub, err := e.Join(ctx)
	require.NoError(t, err)

	_, err = e.Accept(ctx, chat.Draft{Name: "", Body: "hi"})
	var verr *chat.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, chat.EmptyField, verr.Kind)
	assert.Equal(t, "name", verr.Field)

	assert.Empty(t, e.History())
	select {
	case m := <-sub.Receive(ctx):
		t.Fatalf("unexpected broadcast %+v", m)
	case <-time.After(20 * time.Millisecond):
	}
	assert.Equal(t, uint64(1), e.Stats().Rejected)
}

func TestEngine_JoinSeesEveryMessageOnce(t *testing.T) {
	t.Parallel()

	const total = 200
	e := newEngine(t, total, total)
	ctx := context.Background()

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := range total {
			_, err := e.Accept(ctx, chat.Draft{Name: "w", Body: fmt.Sprint(i)})
			assert.NoError(t, err)
		}
	}()

	time.Sleep(time.Millisecond)
	snap, sub, err := e.Join(ctx)
	require.NoError(t, err)
	wg.Wait()

	seen := append(bodies(snap), recv(t, sub, total-len(snap))...)
	require.Len(t, seen, total)
	for i, body := range seen {
		assert.Equal(t, fmt.Sprint(i), body)
	}
}

func TestEngine_TwoSubscribersSameOrder(t *testing.T) {
	t.Parallel()

	e := newEngine(t, 10, 16)
	ctx := context.Background()

	_, s1, err := e.Join(ctx)
	require.NoError(t, err)
	_, s2, err := e.Join(ctx)
	require.NoError(t, err)

	_, err = e.Accept(ctx, chat.Draft{Name: "s1", Body: "hello"})
	require.NoError(t, err)
	require.NoError(t, s1.Close())

	_, err = e.Accept(ctx, chat.Draft{Name: "s2", Body: "still here"})
	require.NoError(t, err)

	assert.Equal(t, []string{"hello", "still here"}, recv(t, s2, 2))
}

func TestEngine_Seed(t *testing.T) {
	t.Parallel()

	t.Run("loads_history", func(t *testing.T) {
		t.Parallel()
		ctrl := gomock.NewController(t)
		store := mocks.NewMockStore(ctrl)
		store.EXPECT().LoadHistory(gomock.Any(), 3).Return([]chat.Message{
			{Author: "a", Body: "1"}, {Author: "a", Body: "2"},
		}, nil)

		e := newEngine(t, 3, 4)
		require.NoError(t, e.Seed(context.Background(), store))
		assert.Equal(t, []string{"1", "2"}, bodies(e.History()))
	})

	t.Run("load_error", func(t *testing.T) {
		t.Parallel()
		ctrl := gomock.NewController(t)
		store := mocks.NewMockStore(ctrl)
		store.EXPECT().LoadHistory(gomock.Any(), gomock.Any()).Return(nil, errors.New("boom"))

		e := newEngine(t, 3, 4)
		err := e.Seed(context.Background(), store)
		assert.ErrorIs(t, err, relay.ErrSeed)
		assert.Empty(t, e.History())
	})

	t.Run("nil_store", func(t *testing.T) {
		t.Parallel()
		e := newEngine(t, 3, 4)
		assert.NoError(t, e.Seed(context.Background(), nil))
	})
}

func TestEngine_Closed(t *testing.T) {
	t.Parallel()

	e := newEngine(t, 3, 4)
	ctx := context.Background()
	_, sub, err := e.Join(ctx)
	require.NoError(t, err)

	require.NoError(t, e.Close())
	require.NoError(t, e.Close())

	_, ok := <-sub.Receive(ctx)
	assert.False(t, ok)

	_, err = e.Accept(ctx, chat.Draft{Name: "a", Body: "b"})
	assert.ErrorIs(t, err, relay.ErrEngineClosed)
	_, _, err = e.Join(ctx)
	assert.ErrorIs(t, err, relay.ErrEngineClosed)
}
