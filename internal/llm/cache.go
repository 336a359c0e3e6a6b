package llm

import (
	"crypto/sha256"
	"encoding/hex"
	"sync"
	"time"
)

type cacheEntry struct {
	expiry  time.Time
	content string
}

// completionCache remembers raw completions for identical prompts so a
// repeated utterance does not cost a second remote call.
type completionCache struct {
	entries  map[string]cacheEntry
	stopCh   chan struct{}
	now      func() time.Time
	ttl      time.Duration
	mu       sync.RWMutex
	stopOnce sync.Once
}

func newCompletionCache(ttl time.Duration) *completionCache {
	if ttl == 0 {
		ttl = 15 * time.Minute
	}

	cache := &completionCache{
		entries: make(map[string]cacheEntry),
		ttl:     ttl,
		now:     time.Now,
		stopCh:  make(chan struct{}),
	}

	go cache.cleanup()

	return cache
}

func cacheKey(systemPrompt, prompt string) string {
	sum := sha256.Sum256([]byte(systemPrompt + "\x00" + prompt))
	return hex.EncodeToString(sum[:])
}

func (c *completionCache) get(key string) (string, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	entry, exists := c.entries[key]
	if !exists || c.now().After(entry.expiry) {
		return "", false
	}
	return entry.content, true
}

func (c *completionCache) set(key, content string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries[key] = cacheEntry{
		content: content,
		expiry:  c.now().Add(c.ttl),
	}
}

func (c *completionCache) cleanup() {
	ticker := time.NewTicker(5 * time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-c.stopCh:
			return
		case <-ticker.C:
			c.mu.Lock()
			now := c.now()
			for key, entry := range c.entries {
				if now.After(entry.expiry) {
					delete(c.entries, key)
				}
			}
			c.mu.Unlock()
		}
	}
}

func (c *completionCache) size() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// Close stops the cleanup goroutine.
func (c *completionCache) Close() {
	c.stopOnce.Do(func() { close(c.stopCh) })
}
