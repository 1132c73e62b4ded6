package web

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClientLimitersForgetIdleClients(t *testing.T) {
	l := newClientLimiters(1)
	require.Equal(t, time.Minute, l.idle)

	now := time.Date(2025, time.March, 3, 9, 0, 0, 0, time.UTC)
	l.now = func() time.Time { return now }

	a := l.get("10.0.0.1")
	b := l.get("10.0.0.2")
	assert.Len(t, l.limiters, 2)

	now = now.Add(l.idle / 2)
	assert.Same(t, b, l.get("10.0.0.2"))

	now = now.Add(l.idle / 2)
	l.get("10.0.0.3")
	assert.Len(t, l.limiters, 2)
	assert.NotContains(t, l.limiters, "10.0.0.1")
	assert.Contains(t, l.limiters, "10.0.0.2")

	assert.NotSame(t, a, l.get("10.0.0.1"))

	now = now.Add(10 * l.idle)
	l.get("10.0.0.4")
	assert.Len(t, l.limiters, 1)
}

func TestClientLimitersIdleCoversRefill(t *testing.T) {
	assert.Equal(t, time.Minute, newClientLimiters(30).idle)
	assert.Equal(t, 2*time.Minute, newClientLimiters(0.5).idle)
}
