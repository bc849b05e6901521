package cache

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestManager_SetGetInvalidate(t *testing.T) {
	m := NewManager(time.Minute)

	key := Key("http://a", "go", "unread")
	_, ok := m.Get(key)
	assert.False(t, ok)

	m.Set(key, []string{"g1"})
	v, ok := m.Get(key)
	assert.True(t, ok)
	assert.Equal(t, []string{"g1"}, v)
	assert.Equal(t, 1, m.Len())

	m.Invalidate()
	_, ok = m.Get(key)
	assert.False(t, ok)
}

func TestManager_SetIfCurrentSkipsStaleResults(t *testing.T) {
	m := NewManager(time.Minute)

	gen := m.Generation()
	assert.True(t, m.SetIfCurrent("k", "fresh", gen))
	v, ok := m.Get("k")
	assert.True(t, ok)
	assert.Equal(t, "fresh", v)

	gen = m.Generation()
	m.Invalidate()
	assert.False(t, m.SetIfCurrent("k", "stale", gen))
	_, ok = m.Get("k")
	assert.False(t, ok)

	assert.True(t, m.SetIfCurrent("k", "next", m.Generation()))
}

func TestManager_Expires(t *testing.T) {
	m := NewManager(10 * time.Millisecond)
	m.Set("k", 1)
	time.Sleep(30 * time.Millisecond)

	_, ok := m.Get("k")
	assert.False(t, ok)
}

func TestKey_Distinct(t *testing.T) {
	assert.NotEqual(t, Key("a", "bc"), Key("ab", "c"))
}
