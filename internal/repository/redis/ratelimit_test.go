package redis

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func TestSlidingCount(t *testing.T) {
	window := 5 * time.Minute

	t.Run("fresh window counts current only", func(t *testing.T) {
		assert.Equal(t, 3.0, slidingCount(0, 3, 0, window))
	})

	t.Run("previous window weighted by overlap", func(t *testing.T) {
		// Halfway through the window, half the previous count carries over.
		assert.Equal(t, 7.0, slidingCount(10, 2, window/2, window))
	})

	t.Run("previous window fully aged out", func(t *testing.T) {
		assert.Equal(t, 2.0, slidingCount(10, 2, window, window))
	})

	t.Run("elapsed beyond window clamps to zero weight", func(t *testing.T) {
		assert.Equal(t, 1.0, slidingCount(100, 1, 2*window, window))
	})

	t.Run("limit boundary admits exactly the quota", func(t *testing.T) {
		// Ten calls at the start of a window: the tenth is admitted, the
		// eleventh is not.
		assert.LessOrEqual(t, slidingCount(0, 10, time.Second, window), 10.0)
		assert.Greater(t, slidingCount(0, 11, time.Second, window), 10.0)
	})
}

func TestIdentityKeys(t *testing.T) {
	userID := uuid.New()
	assert.Equal(t, "user:"+userID.String(), UserIdentity(userID))
	assert.Equal(t, "ip:203.0.113.9", IPIdentity("203.0.113.9"))
}

func TestWindowKey(t *testing.T) {
	start := time.UnixMilli(1700000000000)
	key := windowKey("user:abc", start)
	assert.Equal(t, "ratelimit:user:abc:1700000000000", key)
}
