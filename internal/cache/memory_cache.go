package cache

import (
	"strings"
	"time"

	gocache "github.com/patrickmn/go-cache"
)

// MemoryCache is an in-process cache backed by go-cache.
type MemoryCache struct {
	cache *gocache.Cache
}

// NewMemoryCache creates an in-process cache.
func NewMemoryCache(config Config) (Cache, error) {
	defaultExpiration := config.DefaultTTL
	if defaultExpiration == 0 {
		defaultExpiration = 24 * time.Hour
	}
	cleanupInterval := config.CleanupInterval
	if cleanupInterval == 0 {
		cleanupInterval = 10 * time.Minute
	}

	return &MemoryCache{
		cache: gocache.New(defaultExpiration, cleanupInterval),
	}, nil
}

// Get returns the cached value for a key.
func (m *MemoryCache) Get(key string) (string, bool, error) {
	if value, found := m.cache.Get(key); found {
		str, ok := value.(string)
		if !ok {
			return "", false, nil
		}
		return str, true, nil
	}
	return "", false, nil
}

// Set stores a value. A zero ttl uses the configured default.
func (m *MemoryCache) Set(key string, value string, ttl time.Duration) error {
	if ttl == 0 {
		ttl = gocache.DefaultExpiration
	}
	m.cache.Set(key, value, ttl)
	return nil
}

// Delete removes a key.
func (m *MemoryCache) Delete(key string) error {
	m.cache.Delete(key)
	return nil
}

// DeletePrefix removes every key that starts with prefix.
func (m *MemoryCache) DeletePrefix(prefix string) error {
	for key := range m.cache.Items() {
		if strings.HasPrefix(key, prefix) {
			m.cache.Delete(key)
		}
	}
	return nil
}

// Clear drops every entry.
func (m *MemoryCache) Clear() error {
	m.cache.Flush()
	return nil
}

func init() {
	RegisterCache("memory", NewMemoryCache)
}
