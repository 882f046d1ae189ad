// internal/engine/errors.go
package engine

import (
	"errors"
	"fmt"

	"github.com/tashanwin/gamesvc/internal/money"
)

// ErrResolutionConflict is returned when Resolve is invoked a second time for
// the same round. The second call is a no-op; balances are never touched twice.
var ErrResolutionConflict = errors.New("round already resolved")

// ErrInsufficientFunds is returned by Accounts implementations when a debit
// would take a player's balance below zero.
var ErrInsufficientFunds = errors.New("insufficient funds")

// ErrNoActiveRound is returned when a wager arrives before the first round of
// a game instance has opened.
var ErrNoActiveRound = errors.New("no active round")

// PhaseError reports an operation attempted outside its valid round phase,
// e.g. a bet placed after the betting window locked. Callers should wait for
// the next round; the condition is not fatal.
type PhaseError struct {
	Op    string
	Phase Phase
}

func (e *PhaseError) Error() string {
	return fmt.Sprintf("%s not allowed in phase %s", e.Op, e.Phase)
}

// InvalidStakeError reports a stake outside the configured bounds or above
// the player's available balance. The wager is rejected whole; nothing is
// partially applied.
type InvalidStakeError struct {
	Stake    money.Amount
	Min, Max money.Amount
	Reason   string
}

func (e *InvalidStakeError) Error() string {
	return fmt.Sprintf("invalid stake %s (bounds %s..%s): %s", e.Stake, e.Min, e.Max, e.Reason)
}

// InvalidSelectionError reports a selection the variant can never draw: a
// prediction type the variant does not offer, or a value outside its
// admissible range. The wager is rejected before any money moves.
type InvalidSelectionError struct {
	Kind   Kind
	Type   SelectionType
	Reason string
}

func (e *InvalidSelectionError) Error() string {
	return fmt.Sprintf("invalid %s selection for %s variant: %s", e.Type, e.Kind, e.Reason)
}

// ConfigurationError reports a malformed outcome table or duration set.
// It is fatal at startup; no round may begin with bad configuration.
type ConfigurationError struct {
	Field  string
	Detail string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("configuration error in %s: %s", e.Field, e.Detail)
}
