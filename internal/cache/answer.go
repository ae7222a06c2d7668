package cache

import (
	"encoding/json"
	"time"

	"github.com/mattvess/research-rag/internal/llm"
)

// AnswerCache memoizes synthesized answers per session and question,
// so repeating a question skips retrieval and generation entirely.
type AnswerCache struct {
	cache Cache
	ttl   time.Duration
}

// NewAnswerCache wraps a cache backend for answer storage.
func NewAnswerCache(cache Cache, ttl time.Duration) *AnswerCache {
	return &AnswerCache{cache: cache, ttl: ttl}
}

// Get returns a previously cached answer, if any. Cache errors and
// undecodable entries degrade to a miss.
func (a *AnswerCache) Get(sessionID, question string) (*llm.Answer, bool) {
	raw, found, err := a.cache.Get(AnswerKey(sessionID, question))
	if err != nil || !found {
		return nil, false
	}
	var answer llm.Answer
	if err := json.Unmarshal([]byte(raw), &answer); err != nil {
		return nil, false
	}
	return &answer, true
}

// Put stores an answer for later reuse.
func (a *AnswerCache) Put(sessionID, question string, answer *llm.Answer) error {
	data, err := json.Marshal(answer)
	if err != nil {
		return err
	}
	return a.cache.Set(AnswerKey(sessionID, question), string(data), a.ttl)
}

// Invalidate drops one session's cached answers, leaving other
// sessions' entries untouched. Called after the session's index
// changes, since stale answers may cite replaced chunks.
func (a *AnswerCache) Invalidate(sessionID string) error {
	return a.cache.DeletePrefix(answerPrefix(sessionID))
}
