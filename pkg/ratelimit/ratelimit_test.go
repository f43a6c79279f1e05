package ratelimit

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestAllow(t *testing.T) {
	l := New(2, time.Minute)
	now := time.Now()
	l.now = func() time.Time { return now }

	ok, _ := l.Allow("10.0.0.1")
	assert.True(t, ok)
	ok, _ = l.Allow("10.0.0.1")
	assert.True(t, ok)
	ok, retry := l.Allow("10.0.0.1")
	assert.False(t, ok)
	assert.InDelta(t, float64(30*time.Second), float64(retry), float64(time.Millisecond))

	ok, _ = l.Allow("10.0.0.2")
	assert.True(t, ok, "keys are independent")

	now = now.Add(30 * time.Second)
	ok, _ = l.Allow("10.0.0.1")
	assert.True(t, ok, "one token refilled")
}

func TestEvictIdle(t *testing.T) {
	l := New(1, time.Second)
	now := time.Now()
	l.now = func() time.Time { return now }
	l.Allow("a")
	now = now.Add(500 * time.Millisecond)
	l.Allow("b")

	now = now.Add(700 * time.Millisecond)
	l.evictIdle()
	assert.Equal(t, 1, l.Len())
}
