package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"time"
)

// Cache is a string key-value store with per-entry TTL.
type Cache interface {
	Get(key string) (value string, found bool, err error)
	Set(key string, value string, ttl time.Duration) error
	Delete(key string) error
	DeletePrefix(prefix string) error
	Clear() error
}

// Factory constructs a Cache from a config.
type Factory func(config Config) (Cache, error)

var registry = make(map[string]Factory)

// RegisterCache registers a cache backend under a name.
func RegisterCache(name string, factory Factory) {
	registry[name] = factory
}

// NewCache creates a cache by configured backend name. An unknown or
// empty type falls back to the memory backend.
func NewCache(config Config) (Cache, error) {
	if factory, ok := registry[config.Type]; ok {
		return factory(config)
	}
	return NewMemoryCache(config)
}

// Config configures a cache backend.
type Config struct {
	Type            string        // backend name, "memory" or "redis"
	RedisAddr       string        // redis address, redis backend only
	RedisPassword   string        // redis password, redis backend only
	RedisDB         int           // redis database number, redis backend only
	DefaultTTL      time.Duration // expiry applied when Set gets ttl 0
	CleanupInterval time.Duration // expired-entry sweep interval, memory backend only
}

// DefaultConfig returns the default cache settings.
func DefaultConfig() Config {
	return Config{
		Type:            "memory",
		DefaultTTL:      time.Hour * 24,
		CleanupInterval: time.Minute * 10,
	}
}

// AnswerKey derives a stable cache key for a question asked within a
// session. The question is hashed so arbitrary text never leaks into
// key syntax.
func AnswerKey(sessionID, question string) string {
	sum := sha256.Sum256([]byte(question))
	return answerPrefix(sessionID) + hex.EncodeToString(sum[:16])
}

// answerPrefix is the key prefix shared by one session's answers.
func answerPrefix(sessionID string) string {
	return "answer:" + sessionID + ":"
}
