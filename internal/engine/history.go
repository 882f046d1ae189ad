// internal/engine/history.go
package engine

import (
	"sync"
	"time"
)

// HistoryEntry is one resolved round in the display history.
type HistoryEntry struct {
	RoundID    uint64    `json:"round_id"`
	Outcome    Outcome   `json:"outcome"`
	ResolvedAt time.Time `json:"resolved_at"`
}

// History is a fixed-capacity ring buffer of resolved outcomes. Oldest
// entries are evicted first. It only exists for display; nothing beyond
// process lifetime depends on it.
type History struct {
	mu   sync.Mutex
	buf  []HistoryEntry
	head int // index of the next write slot
	size int
}

const defaultHistorySize = 10

// NewHistory creates a buffer holding the last capacity entries. A
// non-positive capacity falls back to the default window of 10.
func NewHistory(capacity int) *History {
	if capacity <= 0 {
		capacity = defaultHistorySize
	}
	return &History{buf: make([]HistoryEntry, capacity)}
}

// Append inserts an entry in O(1), evicting the oldest when full.
func (h *History) Append(e HistoryEntry) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.buf[h.head] = e
	h.head = (h.head + 1) % len(h.buf)
	if h.size < len(h.buf) {
		h.size++
	}
}

// Recent returns the k most recent entries, most recent first. k is clamped
// to the current size; negative k is treated as 0.
func (h *History) Recent(k int) []HistoryEntry {
	h.mu.Lock()
	defer h.mu.Unlock()
	if k < 0 {
		k = 0
	}
	if k > h.size {
		k = h.size
	}
	out := make([]HistoryEntry, 0, k)
	for i := 1; i <= k; i++ {
		idx := (h.head - i + len(h.buf)) % len(h.buf)
		out = append(out, h.buf[idx])
	}
	return out
}

// Size returns the number of entries currently held.
func (h *History) Size() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.size
}
