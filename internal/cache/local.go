// Package cache provides the two-level caching used by the image
// workflow: a process-local map for fast repeated lookups and a Redis
// backed remote cache shared across instances. Entries are
// content-addressed — the same prompt key always maps to a semantically
// equivalent value, so last-writer-wins races are harmless.
package cache

import (
	"crypto/md5"
	"encoding/hex"
	"strings"
	"sync"
)

// PromptKey derives the content-addressed cache key for a prompt.
func PromptKey(prompt string) string {
	sum := md5.Sum([]byte(strings.TrimSpace(prompt)))
	return hex.EncodeToString(sum[:])
}

// Local is an in-process key-value cache. Safe for concurrent use.
type Local struct {
	mu      sync.RWMutex
	entries map[string]string
}

// NewLocal returns an empty local cache.
func NewLocal() *Local {
	return &Local{entries: make(map[string]string)}
}

// Get returns the cached value for key, if present.
func (l *Local) Get(key string) (string, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	value, ok := l.entries[key]
	return value, ok
}

// Set stores value under key, replacing any previous entry.
func (l *Local) Set(key, value string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.entries[key] = value
}

// Invalidate removes key from the cache.
func (l *Local) Invalidate(key string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.entries, key)
}
