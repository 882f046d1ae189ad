package wallet

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"github.com/tashanwin/gamesvc/internal/engine"
	"github.com/tashanwin/gamesvc/internal/money"
)

// MemoryStore is an in-process engine.Accounts used by tests and local
// tooling. Unknown players are seeded with the configured starting
// balance on first touch.
type MemoryStore struct {
	mu       sync.Mutex
	balances map[uuid.UUID]money.Amount
	applied  map[string]bool
	seed     money.Amount
}

func NewMemoryStore(seed money.Amount) *MemoryStore {
	return &MemoryStore{
		balances: make(map[uuid.UUID]money.Amount),
		applied:  make(map[string]bool),
		seed:     seed,
	}
}

func (m *MemoryStore) touch(playerID uuid.UUID) {
	if _, ok := m.balances[playerID]; !ok {
		m.balances[playerID] = m.seed
	}
}

func (m *MemoryStore) Balance(_ context.Context, playerID uuid.UUID) (money.Amount, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.touch(playerID)
	return m.balances[playerID], nil
}

func (m *MemoryStore) DebitStake(_ context.Context, w *engine.Wager) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.touch(w.PlayerID)
	ref := "stake:" + w.ID.String()
	if m.applied[ref] {
		return nil
	}
	if m.balances[w.PlayerID] < w.Stake {
		return engine.ErrInsufficientFunds
	}
	m.balances[w.PlayerID] -= w.Stake
	m.applied[ref] = true
	return nil
}

func (m *MemoryStore) Refund(ctx context.Context, w *engine.Wager) error {
	return m.Credit(ctx, w.PlayerID, w.Stake, "refund:"+w.ID.String())
}

func (m *MemoryStore) Credit(_ context.Context, playerID uuid.UUID, amount money.Amount, ref string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.touch(playerID)
	if m.applied[ref] {
		return nil
	}
	m.balances[playerID] += amount
	m.applied[ref] = true
	return nil
}
