package hub

import (
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegisterAndUnregisterTracksPresence(t *testing.T) {
	h := New(4)
	user := uuid.New()

	assert.False(t, h.IsOnline(user))

	first, err := h.Register(user)
	require.NoError(t, err)
	second, err := h.Register(user)
	require.NoError(t, err)

	assert.True(t, h.IsOnline(user))
	assert.Equal(t, 2, h.ConnectionCount(user))
	assert.ElementsMatch(t, []uuid.UUID{user}, h.OnlineUsers())

	h.Unregister(first)
	assert.Equal(t, 1, h.ConnectionCount(user))

	h.Unregister(second)
	h.Unregister(second)
	assert.False(t, h.IsOnline(user))
	assert.Empty(t, h.OnlineUsers())

	_, open := <-second.Messages()
	assert.False(t, open, "unregister closes the outbound channel")
}

func TestPushReachesEveryConnectionOfTheUser(t *testing.T) {
	h := New(4)
	alice, bob := uuid.New(), uuid.New()

	a1, _ := h.Register(alice)
	a2, _ := h.Register(alice)
	b1, _ := h.Register(bob)

	delivered := h.Push(alice, []byte("hello"))

	assert.Equal(t, 2, delivered)
	assert.Equal(t, "hello", string(<-a1.Messages()))
	assert.Equal(t, "hello", string(<-a2.Messages()))
	assert.Len(t, b1.Messages(), 0)
}

func TestPushToOfflineUserIsNotAnError(t *testing.T) {
	h := New(1)
	assert.Equal(t, 0, h.Push(uuid.New(), []byte("x")))
}

func TestPushDropsWhenBufferIsFull(t *testing.T) {
	h := New(1)
	user := uuid.New()
	sub, _ := h.Register(user)

	assert.Equal(t, 1, h.Push(user, []byte("first")))
	assert.Equal(t, 0, h.Push(user, []byte("second")))
	assert.Equal(t, "first", string(<-sub.Messages()))
}

func TestCloseRejectsNewConnections(t *testing.T) {
	h := New(1)
	user := uuid.New()
	sub, _ := h.Register(user)

	h.Close()

	_, open := <-sub.Messages()
	assert.False(t, open)
	assert.False(t, h.IsOnline(user))

	_, err := h.Register(user)
	assert.ErrorIs(t, err, ErrClosed)
}

func TestConcurrentPushAndUnregister(t *testing.T) {
	h := New(8)
	user := uuid.New()

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		sub, err := h.Register(user)
		require.NoError(t, err)

		wg.Add(2)
		go func() {
			defer wg.Done()
			for range sub.Messages() {
			}
		}()
		go func() {
			defer wg.Done()
			h.Push(user, []byte("ping"))
			h.Unregister(sub)
		}()
	}
	wg.Wait()

	assert.False(t, h.IsOnline(user))
}

func TestChannelRoundTrip(t *testing.T) {
	user := uuid.New()

	got, ok := UserFromChannel(Channel(user))
	assert.True(t, ok)
	assert.Equal(t, user, got)

	_, ok = UserFromChannel("other:" + user.String())
	assert.False(t, ok)
}
