package cache

import (
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mattvess/research-rag/internal/llm"
)

func TestMemoryCache(t *testing.T) {
	cache, err := NewMemoryCache(Config{
		DefaultTTL:      2 * time.Second,
		CleanupInterval: time.Second,
	})
	require.NoError(t, err)

	t.Run("set and get", func(t *testing.T) {
		require.NoError(t, cache.Set("key1", "value1", 0))

		val, found, err := cache.Get("key1")
		require.NoError(t, err)
		assert.True(t, found)
		assert.Equal(t, "value1", val)
	})

	t.Run("missing key", func(t *testing.T) {
		_, found, err := cache.Get("absent")
		require.NoError(t, err)
		assert.False(t, found)
	})

	t.Run("entries expire", func(t *testing.T) {
		require.NoError(t, cache.Set("fleeting", "temp", 50*time.Millisecond))
		time.Sleep(100 * time.Millisecond)

		_, found, err := cache.Get("fleeting")
		require.NoError(t, err)
		assert.False(t, found)
	})

	t.Run("delete", func(t *testing.T) {
		require.NoError(t, cache.Set("doomed", "x", 0))
		require.NoError(t, cache.Delete("doomed"))

		_, found, err := cache.Get("doomed")
		require.NoError(t, err)
		assert.False(t, found)
	})

	t.Run("delete prefix", func(t *testing.T) {
		require.NoError(t, cache.Set("pre:a", "1", 0))
		require.NoError(t, cache.Set("pre:b", "2", 0))
		require.NoError(t, cache.Set("other", "3", 0))
		require.NoError(t, cache.DeletePrefix("pre:"))

		_, found, err := cache.Get("pre:a")
		require.NoError(t, err)
		assert.False(t, found)

		val, found, err := cache.Get("other")
		require.NoError(t, err)
		assert.True(t, found)
		assert.Equal(t, "3", val)
	})

	t.Run("clear", func(t *testing.T) {
		require.NoError(t, cache.Set("key2", "value2", 0))
		require.NoError(t, cache.Clear())

		_, found, err := cache.Get("key2")
		require.NoError(t, err)
		assert.False(t, found)
	})
}

func TestRedisCache(t *testing.T) {
	server := miniredis.RunT(t)

	cache, err := NewRedisCache(Config{Type: "redis", RedisAddr: server.Addr()})
	require.NoError(t, err)

	t.Run("set and get", func(t *testing.T) {
		require.NoError(t, cache.Set("key1", "value1", 0))

		val, found, err := cache.Get("key1")
		require.NoError(t, err)
		assert.True(t, found)
		assert.Equal(t, "value1", val)
	})

	t.Run("missing key", func(t *testing.T) {
		_, found, err := cache.Get("absent")
		require.NoError(t, err)
		assert.False(t, found)
	})

	t.Run("entries expire", func(t *testing.T) {
		require.NoError(t, cache.Set("fleeting", "temp", time.Second))
		server.FastForward(2 * time.Second)

		_, found, err := cache.Get("fleeting")
		require.NoError(t, err)
		assert.False(t, found)
	})

	t.Run("delete", func(t *testing.T) {
		require.NoError(t, cache.Set("doomed", "x", 0))
		require.NoError(t, cache.Delete("doomed"))

		_, found, err := cache.Get("doomed")
		require.NoError(t, err)
		assert.False(t, found)
	})

	t.Run("delete prefix", func(t *testing.T) {
		require.NoError(t, cache.Set("pre:a", "1", 0))
		require.NoError(t, cache.Set("pre:b", "2", 0))
		require.NoError(t, cache.Set("other", "3", 0))
		require.NoError(t, cache.DeletePrefix("pre:"))

		_, found, err := cache.Get("pre:a")
		require.NoError(t, err)
		assert.False(t, found)

		val, found, err := cache.Get("other")
		require.NoError(t, err)
		assert.True(t, found)
		assert.Equal(t, "3", val)
	})
}

func TestCacheFactory(t *testing.T) {
	t.Run("memory by default", func(t *testing.T) {
		c, err := NewCache(DefaultConfig())
		require.NoError(t, err)
		assert.IsType(t, &MemoryCache{}, c)
	})

	t.Run("unknown type falls back to memory", func(t *testing.T) {
		c, err := NewCache(Config{Type: "unknown"})
		require.NoError(t, err)
		assert.IsType(t, &MemoryCache{}, c)
	})
}

func TestAnswerKey(t *testing.T) {
	k1 := AnswerKey("s1", "what is the main finding?")
	k2 := AnswerKey("s1", "what is the main finding?")
	k3 := AnswerKey("s2", "what is the main finding?")
	k4 := AnswerKey("s1", "something else")

	assert.Equal(t, k1, k2)
	assert.NotEqual(t, k1, k3)
	assert.NotEqual(t, k1, k4)
}

func TestAnswerCache(t *testing.T) {
	backend, err := NewMemoryCache(DefaultConfig())
	require.NoError(t, err)
	answers := NewAnswerCache(backend, time.Minute)

	answer := &llm.Answer{
		Text: "the finding",
		Citations: []llm.Citation{
			{ChunkID: "doc-0000", Source: "doc.pdf", Score: 0.91},
		},
	}

	t.Run("round trip", func(t *testing.T) {
		require.NoError(t, answers.Put("s1", "q", answer))

		got, found := answers.Get("s1", "q")
		require.True(t, found)
		assert.Equal(t, answer, got)
	})

	t.Run("miss for unknown question", func(t *testing.T) {
		_, found := answers.Get("s1", "other")
		assert.False(t, found)
	})

	t.Run("corrupt entry degrades to miss", func(t *testing.T) {
		require.NoError(t, backend.Set(AnswerKey("s1", "bad"), "{not json", 0))
		_, found := answers.Get("s1", "bad")
		assert.False(t, found)
	})

	t.Run("invalidate is scoped to one session", func(t *testing.T) {
		require.NoError(t, answers.Put("s1", "q", answer))
		require.NoError(t, answers.Put("s2", "q", answer))

		require.NoError(t, answers.Invalidate("s1"))

		_, found := answers.Get("s1", "q")
		assert.False(t, found)
		_, found = answers.Get("s2", "q")
		assert.True(t, found)
	})
}
