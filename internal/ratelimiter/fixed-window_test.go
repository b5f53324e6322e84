package ratelimiter

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestFixedWindowLimiter(t *testing.T) {
	rl := NewFixedWindowLimiter(2, time.Minute)

	allow, _ := rl.Allow("10.0.0.1")
	require.True(t, allow)
	allow, _ = rl.Allow("10.0.0.1")
	require.True(t, allow)

	allow, retryAfter := rl.Allow("10.0.0.1")
	require.False(t, allow)
	require.Greater(t, retryAfter, time.Duration(0))

	// other clients are unaffected
	allow, _ = rl.Allow("10.0.0.2")
	require.True(t, allow)
}

func TestFixedWindowResets(t *testing.T) {
	rl := NewFixedWindowLimiter(1, 10*time.Millisecond)

	allow, _ := rl.Allow("10.0.0.1")
	require.True(t, allow)
	allow, _ = rl.Allow("10.0.0.1")
	require.False(t, allow)

	time.Sleep(15 * time.Millisecond)

	allow, _ = rl.Allow("10.0.0.1")
	require.True(t, allow)
}
