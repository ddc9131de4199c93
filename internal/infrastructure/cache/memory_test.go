package cache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNameCache_NamespacesAndExpiry(t *testing.T) {
	c := NewNameCache(time.Minute)
	defer c.Stop()

	clock := time.Date(2026, 10, 18, 9, 0, 0, 0, time.UTC)
	c.now = func() time.Time { return clock }

	c.Set("contact", "1", "Ann Lee")
	c.Set("company", "1", "Acme")

	name, ok := c.Get("contact", "1")
	require.True(t, ok)
	assert.Equal(t, "Ann Lee", name)
	name, _ = c.Get("company", "1")
	assert.Equal(t, "Acme", name)

	clock = clock.Add(2 * time.Minute)
	_, ok = c.Get("contact", "1")
	assert.False(t, ok)

	c.purge()
	assert.Equal(t, 0, c.Len())
}

func TestNameCache_GetManySplitsMisses(t *testing.T) {
	c := NewNameCache(time.Hour)
	defer c.Stop()

	c.SetMany("company", map[string]string{"a": "Acme", "b": "Bolt"})
	found, missing := c.GetMany("company", []string{"a", "x", "b"})
	assert.Equal(t, map[string]string{"a": "Acme", "b": "Bolt"}, found)
	assert.Equal(t, []string{"x"}, missing)
}

func TestNameCache_StopIsIdempotent(t *testing.T) {
	c := NewNameCache(0)
	c.Stop()
	c.Stop()
}

func TestNoopLocker(t *testing.T) {
	release, ok, err := NoopLocker{}.TryLock(context.Background(), "score", time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.NoError(t, release(context.Background()))
}
