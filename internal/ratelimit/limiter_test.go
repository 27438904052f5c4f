package ratelimit

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBurstThenDeny(t *testing.T) {
	l, err := New(Config{RequestsPerMinute: 6, Burst: 3, MaxClients: 10})
	require.NoError(t, err)

	for i := 0; i < 3; i++ {
		ok, _ := l.Allow("user-a")
		assert.True(t, ok, "request %d within burst should pass", i)
	}

	ok, wait := l.Allow("user-a")
	assert.False(t, ok)
	assert.Greater(t, wait, time.Duration(0))
}

func TestClientsAreIndependent(t *testing.T) {
	l, err := New(Config{RequestsPerMinute: 6, Burst: 1, MaxClients: 10})
	require.NoError(t, err)

	ok, _ := l.Allow("user-a")
	require.True(t, ok)
	ok, _ = l.Allow("user-a")
	require.False(t, ok)

	ok, _ = l.Allow("user-b")
	assert.True(t, ok, "a throttled client must not affect others")
}

func TestOldestClientEvicted(t *testing.T) {
	l, err := New(Config{RequestsPerMinute: 6, Burst: 1, MaxClients: 2})
	require.NoError(t, err)

	l.Allow("user-a")
	l.Allow("user-b")
	l.Allow("user-c")

	assert.Equal(t, 2, l.Tracked())

	// user-a was evicted; a fresh bucket lets it through again.
	ok, _ := l.Allow("user-a")
	assert.True(t, ok)
}

func TestDefaultsApplied(t *testing.T) {
	l, err := New(Config{})
	require.NoError(t, err)

	for i := 0; i < DefaultConfig().Burst; i++ {
		ok, _ := l.Allow("user-a")
		require.True(t, ok, "burst request %d", i)
	}
	ok, _ := l.Allow("user-a")
	assert.False(t, ok)
}

func TestTrackedBounded(t *testing.T) {
	l, err := New(Config{RequestsPerMinute: 60, Burst: 1, MaxClients: 5})
	require.NoError(t, err)

	for i := 0; i < 50; i++ {
		l.Allow(fmt.Sprintf("user-%d", i))
	}
	assert.Equal(t, 5, l.Tracked())
}
