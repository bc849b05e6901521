package cache

import (
	"strings"
	"sync"
	"time"

	gocache "github.com/patrickmn/go-cache"
)

// Manager caches query results between archive writes.
// Every Invalidate starts a new generation; results computed in an older
// generation are never stored.
type Manager struct {
	cache *gocache.Cache

	mu  sync.Mutex
	gen uint64
}

func NewManager(ttl time.Duration) *Manager {
	return &Manager{
		cache: gocache.New(ttl, 2*ttl),
	}
}

func (m *Manager) Get(key string) (interface{}, bool) {
	return m.cache.Get(key)
}

func (m *Manager) Set(key string, value interface{}) {
	m.cache.SetDefault(key, value)
}

// Generation identifies the current cache contents. Read it before computing a
// result that will be passed to SetIfCurrent.
func (m *Manager) Generation() uint64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.gen
}

// SetIfCurrent stores value unless Invalidate ran since gen was read.
func (m *Manager) SetIfCurrent(key string, value interface{}, gen uint64) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if gen != m.gen {
		return false
	}
	m.cache.SetDefault(key, value)
	return true
}

// Invalidate drops every cached result. Called after each write to the archive.
func (m *Manager) Invalidate() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.gen++
	m.cache.Flush()
}

func (m *Manager) Len() int {
	return m.cache.ItemCount()
}

// Key joins the query parameters into a cache key.
func Key(parts ...string) string {
	return strings.Join(parts, "\x1f")
}
