// Package checksum fingerprints file contents.
package checksum

import (
	"crypto/sha256"
	"encoding/hex"
	"sync"
)

// Sum returns the hex-encoded SHA-256 digest of data.
func Sum(data []byte) string {
	h := sha256.Sum256(data)
	return hex.EncodeToString(h[:])
}

// Tracker remembers the last digest seen per path. It is safe for concurrent use.
type Tracker struct {
	mu   sync.Mutex
	seen map[string]string
}

// NewTracker returns an empty Tracker.
func NewTracker() *Tracker {
	return &Tracker{seen: make(map[string]string)}
}

// Observe records digest for path and reports whether it differs from the
// previous one. The first digest of a path always counts as a change.
func (t *Tracker) Observe(path, digest string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	prev, ok := t.seen[path]
	t.seen[path] = digest
	return !ok || prev != digest
}

// Forget drops path so that its next digest counts as a change.
func (t *Tracker) Forget(path string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.seen, path)
}
