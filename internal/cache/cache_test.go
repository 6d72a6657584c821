package cache

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestTTLGetSet(t *testing.T) {
	t.Parallel()

	c := New[string](time.Minute)
	now := time.Unix(1000, 0)
	c.now = func() time.Time { return now }

	_, ok := c.Get("a")
	assert.False(t, ok)

	c.Set("a", "one")
	got, ok := c.Get("a")
	assert.True(t, ok)
	assert.Equal(t, "one", got)

	now = now.Add(2 * time.Minute)
	_, ok = c.Get("a")
	assert.False(t, ok)

	c.Set("b", "two")
	assert.Equal(t, 1, c.Len())

	c.Delete("b")
	assert.Equal(t, 0, c.Len())
}

func TestTTLDisabled(t *testing.T) {
	t.Parallel()

	c := New[int](0)
	c.Set("a", 1)
	_, ok := c.Get("a")
	assert.False(t, ok)
}
