package utils

import "sync"

// ContentHashSet tracks fingerprints seen during one run
type ContentHashSet struct {
	mu   sync.Mutex
	seen map[string]struct{}
}

// NewContentHashSet creates an empty set
func NewContentHashSet() *ContentHashSet {
	return &ContentHashSet{seen: make(map[string]struct{})}
}

// Add returns true if the hash is new (not seen before), false if duplicate
func (t *ContentHashSet) Add(hash string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if _, exists := t.seen[hash]; exists {
		return false
	}
	t.seen[hash] = struct{}{}
	return true
}

// Contains reports whether hash was added
func (t *ContentHashSet) Contains(hash string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	_, exists := t.seen[hash]
	return exists
}

// Count returns the number of tracked hashes
func (t *ContentHashSet) Count() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.seen)
}
