package signal

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestConnRateLimiterBurst(t *testing.T) {
	rl := NewConnRateLimiter(0.001, 3)
	for range 3 {
		assert.True(t, rl.Allow("a"))
	}
	assert.False(t, rl.Allow("a"))
	assert.True(t, rl.Allow("b"), "buckets are per connection")

	rl.Forget("a")
	assert.Equal(t, 1, rl.Len())
	assert.True(t, rl.Allow("a"))
}

func TestConnRateLimiterDisabled(t *testing.T) {
	rl := NewConnRateLimiter(0, 0)
	for range 1000 {
		assert.True(t, rl.Allow("a"))
	}
	assert.Equal(t, 0, rl.Len())
}
