package chat

import (
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRouterSendReturnsFullRoster(t *testing.T) {
	d := NewDirectory()
	room, err := d.Create("lobby")
	require.NoError(t, err)
	for _, id := range []string{"carol", "alice", "bob"} {
		_, _ = room.add(id)
	}

	recipients, err := NewRouter(d).Send("lobby", "alice", "hi")
	require.NoError(t, err)
	assert.Equal(t, []string{"alice", "bob", "carol"}, recipients)
}

func TestRouterSendFailures(t *testing.T) {
	d := NewDirectory()
	room, err := d.Create("lobby")
	require.NoError(t, err)
	_, _ = room.add("alice")
	r := NewRouter(d)

	_, err = r.Send("missing", "alice", "hi")
	assert.ErrorIs(t, err, ErrRoomNotFound)

	_, err = r.Send("lobby", "mallory", "hi")
	require.ErrorIs(t, err, ErrSenderNotMember)
	assert.EqualError(t, err, "user 'mallory' is not part of the room 'lobby'")
}

func TestRouterSendPassesAnyContent(t *testing.T) {
	d := NewDirectory()
	room, err := d.Create("lobby")
	require.NoError(t, err)
	_, _ = room.add("alice")
	r := NewRouter(d)

	for _, msg := range []string{"", "<script>alert(1)</script>", string(make([]byte, 1<<16))} {
		recipients, err := r.Send("lobby", "alice", msg)
		require.NoError(t, err)
		assert.Equal(t, []string{"alice"}, recipients)
	}
}

// Recipients observed while members churn must always include the sender
// exactly once and never contain duplicates.
func TestRouterSendDuringChurn(t *testing.T) {
	d := NewDirectory()
	room, err := d.Create("lobby")
	require.NoError(t, err)
	_, _ = room.add("sender")
	r := NewRouter(d)

	var wg sync.WaitGroup
	stop := make(chan struct{})
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			id := fmt.Sprintf("user-%d", i)
			for {
				select {
				case <-stop:
					return
				default:
				}
				_, _ = room.add(id)
				_, _ = room.remove(id)
			}
		}(i)
	}

	for i := 0; i < 2000; i++ {
		recipients, err := r.Send("lobby", "sender", "ping")
		require.NoError(t, err)
		seen := make(map[string]int, len(recipients))
		for _, id := range recipients {
			seen[id]++
		}
		for id, n := range seen {
			require.Equal(t, 1, n, "duplicate recipient %s", id)
		}
		require.Equal(t, 1, seen["sender"])
	}
	close(stop)
	wg.Wait()
}
