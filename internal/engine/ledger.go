// internal/engine/ledger.go
package engine

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/tashanwin/gamesvc/internal/money"
)

// Accounts is the balance service the ledger debits and credits against.
// Every adjustment must be atomic: DebitStake withholds the stake and
// records the wager in one transaction, failing with ErrInsufficientFunds
// rather than letting a balance go negative, so a crash can never leave a
// debit without its wager on the books. Refund is the inverse: it returns
// the stake and marks the wager refunded together, keyed on the wager's
// refund ref so retries are no-ops.
type Accounts interface {
	Balance(ctx context.Context, playerID uuid.UUID) (money.Amount, error)
	DebitStake(ctx context.Context, w *Wager) error
	Credit(ctx context.Context, playerID uuid.UUID, amount money.Amount, ref string) error
	Refund(ctx context.Context, w *Wager) error
}

// Wager is a single player's bet against a specific round. Once the round
// resolves, the wager becomes immutable history.
type Wager struct {
	ID        uuid.UUID    `json:"id"`
	RoundID   uint64       `json:"round_id"`
	Variant   string       `json:"variant"`
	PlayerID  uuid.UUID    `json:"player_id"`
	Stake     money.Amount `json:"stake"`
	Selection Selection    `json:"selection"`
	PlacedAt  time.Time    `json:"placed_at"`

	// Set by resolution. Payout of 0 with ResolvedAt non-nil means lost.
	ResolvedAt *time.Time   `json:"resolved_at,omitempty"`
	Payout     money.Amount `json:"payout"`

	// Refunded marks a wager returned because its round was abandoned.
	Refunded bool `json:"refunded,omitempty"`
}

// StakeBounds are the configured min/max stake for a variant, in paise.
type StakeBounds struct {
	Min money.Amount `yaml:"min"`
	Max money.Amount `yaml:"max"`
}

// Validate rejects bounds that admit no stake.
func (b StakeBounds) Validate() error {
	if b.Min <= 0 || b.Max < b.Min {
		return &ConfigurationError{Field: "stakes", Detail: "require 0 < min <= max"}
	}
	return nil
}

// Ledger accumulates the wagers of the current round and resolves them
// exactly once against its outcome. One ledger serves one game instance;
// OpenRound resets it for each new round.
type Ledger struct {
	mu sync.Mutex

	accounts Accounts
	table    PayoutTable
	bounds   StakeBounds
	variant  string
	kind     Kind

	roundID  uint64
	active   []*Wager
	locked   bool
	resolved bool
}

// NewLedger builds a ledger for one game instance.
func NewLedger(variant string, kind Kind, accounts Accounts, table PayoutTable, bounds StakeBounds) *Ledger {
	return &Ledger{
		accounts: accounts,
		table:    table,
		bounds:   bounds,
		variant:  variant,
		kind:     kind,
	}
}

// OpenRound clears the active set for a new round. The previous round's
// wagers must already be resolved or refunded by then.
func (l *Ledger) OpenRound(roundID uint64) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.roundID = roundID
	l.active = nil
	l.locked = false
	l.resolved = false
}

// Lock closes the betting window. Any placement whose debit is still in
// flight when this runs is rejected on its way back in, so no wager ever
// joins a locked round.
func (l *Ledger) Lock() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.locked = true
}

// Place validates the selection and stake, debits the stake and records
// the wager. The debit happens on placement: the player's balance drops
// before the outcome is known, and wins are credited at resolution. The
// accounts layer commits the debit and the wager record together, so a
// crash can never leave money withheld without a wager on the books.
func (l *Ledger) Place(ctx context.Context, playerID uuid.UUID, stake money.Amount, sel Selection, now time.Time) (*Wager, error) {
	if err := sel.Validate(l.kind); err != nil {
		return nil, err
	}
	if stake < l.bounds.Min || stake > l.bounds.Max {
		return nil, &InvalidStakeError{Stake: stake, Min: l.bounds.Min, Max: l.bounds.Max, Reason: "stake outside configured bounds"}
	}

	l.mu.Lock()
	if l.locked || l.resolved {
		phase := PhaseLocked
		if l.resolved {
			phase = PhaseRevealing
		}
		l.mu.Unlock()
		return nil, &PhaseError{Op: "place_wager", Phase: phase}
	}
	w := &Wager{
		ID:        uuid.New(),
		RoundID:   l.roundID,
		Variant:   l.variant,
		PlayerID:  playerID,
		Stake:     stake,
		Selection: sel,
		PlacedAt:  now,
	}
	l.mu.Unlock()

	// The debit is the balance check: the accounts layer rejects it
	// atomically when funds are short, so a double-submit cannot race
	// past a separate check. It runs outside the ledger lock; wallet I/O
	// must never stall the round clock.
	if err := l.accounts.DebitStake(ctx, w); err != nil {
		if errors.Is(err, ErrInsufficientFunds) {
			return nil, &InvalidStakeError{Stake: stake, Min: l.bounds.Min, Max: l.bounds.Max, Reason: "stake exceeds available balance"}
		}
		return nil, fmt.Errorf("debit stake: %w", err)
	}

	l.mu.Lock()
	if l.locked || l.resolved || l.roundID != w.RoundID {
		// The betting window closed while the debit was in flight. The
		// stake goes straight back; a late wager never joins a locked
		// round.
		l.mu.Unlock()
		if err := l.accounts.Refund(ctx, w); err != nil {
			log.Printf("ledger %s: refund late wager %s failed: %v", l.variant, w.ID, err)
		} else {
			w.Refunded = true
		}
		return nil, &PhaseError{Op: "place_wager", Phase: PhaseLocked}
	}
	l.active = append(l.active, w)
	l.mu.Unlock()
	return w, nil
}

// Resolve computes every active wager's payout against the outcome and
// credits the winners. It is callable once per round; a second call logs
// and returns ErrResolutionConflict without touching any balance.
func (l *Ledger) Resolve(ctx context.Context, out Outcome, at time.Time) ([]*Wager, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.resolved {
		log.Printf("ledger %s: duplicate resolve for round %d ignored", l.variant, l.roundID)
		return nil, ErrResolutionConflict
	}
	l.resolved = true

	resolvedAt := at
	for _, w := range l.active {
		mult := l.table.Multiplier(w.Selection, out)
		w.Payout = w.Stake.MulHundredths(mult)
		t := resolvedAt
		w.ResolvedAt = &t
	}

	// Payouts are fixed for the whole round before the first credit goes
	// out, so every wager sees the same single outcome draw.
	for _, w := range l.active {
		if w.Payout <= 0 {
			continue
		}
		if err := l.accounts.Credit(ctx, w.PlayerID, w.Payout, payoutRef(w)); err != nil {
			// The payout amount is already recorded on the wager; a
			// failed credit is retried by the settlement sweep.
			log.Printf("ledger %s: credit payout %s to %s failed: %v", l.variant, w.Payout, w.PlayerID, err)
		}
	}

	return l.active, nil
}

// RefundAll returns every unresolved stake to its owner and marks the
// wagers refunded. Used when a round is abandoned (shutdown mid-round);
// abandoned wagers are never resolved against a fresh outcome.
func (l *Ledger) RefundAll(ctx context.Context) []*Wager {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.resolved {
		return nil
	}
	l.resolved = true

	for _, w := range l.active {
		if err := l.accounts.Refund(ctx, w); err != nil {
			log.Printf("ledger %s: refund %s to %s failed: %v", l.variant, w.Stake, w.PlayerID, err)
			continue
		}
		w.Refunded = true
	}
	return l.active
}

// ActiveCount reports the number of wagers in the current round.
func (l *Ledger) ActiveCount() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.active)
}

func payoutRef(w *Wager) string { return fmt.Sprintf("payout:%s", w.ID) }
