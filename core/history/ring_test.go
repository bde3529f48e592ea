package history_test

import (
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/dmitrymomot/chatrelay/core/chat"
	"github.com/dmitrymomot/chatrelay/core/history"
)

func msg(body string) chat.Message {
	return chat.Message{Author: "t", Body: body}
}

func bodies(msgs []chat.Message) []string {
	out := make([]string, 0, len(msgs))
	for _, m := range msgs {
		out = append(out, m.Body)
	}
	return out
}

func TestRing_EvictsOldestFirst(t *testing.T) {
	t.Parallel()

	r := history.New(2)
	assert.False(t, r.Append(msg("A")))
	assert.False(t, r.Append(msg("B")))
	assert.True(t, r.Append(msg("C")))

	assert.Equal(t, []string{"B", "C"}, bodies(r.Snapshot()))
	assert.Equal(t, 2, r.Len())
}

func TestRing_LengthNeverExceedsLimit(t *testing.T) {
	t.Parallel()

	const limit = 5
	r := history.New(limit)
	for i := range 23 {
		r.Append(msg(fmt.Sprint(i)))
		assert.LessOrEqual(t, r.Len(), limit)
	}
	assert.Equal(t, []string{"18", "19", "20", "21", "22"}, bodies(r.Snapshot()))
}

func TestRing_EmptySnapshot(t *testing.T) {
	t.Parallel()

	r := history.New(3)
	assert.Nil(t, r.Snapshot())
	assert.Equal(t, 0, r.Len())
}

func TestRing_DefaultLimit(t *testing.T) {
	t.Parallel()

	assert.Equal(t, history.DefaultLimit, history.New(0).Limit())
	assert.Equal(t, history.DefaultLimit, history.New(-4).Limit())
}

func TestRing_SnapshotIsCopy(t *testing.T) {
	t.Parallel()

	r := history.New(3)
	r.Append(msg("A"))
	snap := r.Snapshot()
	snap[0].Body = "mutated"

	assert.Equal(t, "A", r.Snapshot()[0].Body)
}

func TestRing_Seed(t *testing.T) {
	t.Parallel()

	t.Run("keeps_newest", func(t *testing.T) {
		t.Parallel()
		r := history.New(2)
		r.Seed([]chat.Message{msg("A"), msg("B"), msg("C")})
		assert.Equal(t, []string{"B", "C"}, bodies(r.Snapshot()))
	})

	t.Run("replaces_contents", func(t *testing.T) {
		t.Parallel()
		r := history.New(3)
		r.Append(msg("X"))
		r.Seed([]chat.Message{msg("A")})
		r.Append(msg("B"))
		assert.Equal(t, []string{"A", "B"}, bodies(r.Snapshot()))
	})
}

func TestRing_ConcurrentAccess(t *testing.T) {
	t.Parallel()

	r := history.New(10)
	var wg sync.WaitGroup
	for w := range 4 {
		wg.Add(2)
		go func() {
			defer wg.Done()
			for i := range 100 {
				r.Append(msg(fmt.Sprintf("%d-%d", w, i)))
			}
		}()
		go func() {
			defer wg.Done()
			for range 100 {
				snap := r.Snapshot()
				assert.LessOrEqual(t, len(snap), 10)
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, 10, r.Len())
}
