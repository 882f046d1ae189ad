// internal/engine/history_test.go
package engine

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHistoryCapacityAndOrder(t *testing.T) {
	const capacity = 5
	h := NewHistory(capacity)

	// Append capacity+3 entries; only the last 5 survive.
	for i := 1; i <= capacity+3; i++ {
		h.Append(HistoryEntry{
			RoundID:    uint64(i),
			Outcome:    Outcome{Kind: KindColor, Number: i % 10},
			ResolvedAt: time.Unix(int64(i), 0),
		})
	}

	assert.Equal(t, capacity, h.Size())

	recent := h.Recent(capacity)
	require.Len(t, recent, capacity)
	// Most recent first: 8, 7, 6, 5, 4.
	for i, e := range recent {
		assert.Equal(t, uint64(capacity+3-i), e.RoundID)
	}
}

func TestHistoryRecentClamping(t *testing.T) {
	h := NewHistory(4)
	h.Append(HistoryEntry{RoundID: 1})
	h.Append(HistoryEntry{RoundID: 2})

	assert.Len(t, h.Recent(10), 2, "k above size clamps to size")
	assert.Empty(t, h.Recent(0))
	assert.Empty(t, h.Recent(-3), "negative k treated as 0")

	got := h.Recent(1)
	require.Len(t, got, 1)
	assert.Equal(t, uint64(2), got[0].RoundID)
}

func TestHistoryDefaultCapacity(t *testing.T) {
	h := NewHistory(0)
	for i := 0; i < 50; i++ {
		h.Append(HistoryEntry{RoundID: uint64(i)})
	}
	assert.Equal(t, defaultHistorySize, h.Size())
}
