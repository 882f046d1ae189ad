// internal/engine/round.go
package engine

import "time"

// Phase is a round's stage in its fixed state machine. Transitions are
// one-directional: Betting -> Locked -> Revealing -> Cooldown, then a new
// round opens.
type Phase string

const (
	PhaseBetting   Phase = "betting"
	PhaseLocked    Phase = "locked"
	PhaseRevealing Phase = "revealing"
	PhaseCooldown  Phase = "cooldown"
)

// Durations configure how long each phase lasts for a variant. Lock and
// Reveal may be zero; crash-style variants collapse them into the live
// multiplier climb.
type Durations struct {
	Betting   time.Duration `yaml:"betting"`
	Locked    time.Duration `yaml:"locked"`
	Revealing time.Duration `yaml:"revealing"`
	Cooldown  time.Duration `yaml:"cooldown"`
}

// Total is the full length of one round cycle.
func (d Durations) Total() time.Duration {
	return d.Betting + d.Locked + d.Revealing + d.Cooldown
}

// Validate rejects duration sets that cannot drive a live round.
func (d Durations) Validate() error {
	if d.Betting <= 0 {
		return &ConfigurationError{Field: "durations", Detail: "betting duration must be positive"}
	}
	if d.Locked < 0 || d.Revealing < 0 || d.Cooldown < 0 {
		return &ConfigurationError{Field: "durations", Detail: "phase durations must not be negative"}
	}
	return nil
}

// PhaseAt computes, in closed form, the phase at a given elapsed time after
// round creation. The ticked state machine must agree with this at every
// instant; the clock tests hold the two against each other.
func (d Durations) PhaseAt(elapsed time.Duration) Phase {
	switch {
	case elapsed < d.Betting:
		return PhaseBetting
	case elapsed < d.Betting+d.Locked:
		return PhaseLocked
	case elapsed < d.Betting+d.Locked+d.Revealing:
		return PhaseRevealing
	default:
		return PhaseCooldown
	}
}

// Round is one cycle of a repeating game. Its timestamps are fixed at
// creation and never move; Outcome is nil until the round reaches Revealing
// and immutable once set.
type Round struct {
	ID      uint64 `json:"round_id"`
	Variant string `json:"variant"`
	Phase   Phase  `json:"phase"`

	OpenedAt time.Time `json:"opened_at"`
	LockAt   time.Time `json:"lock_at"`
	RevealAt time.Time `json:"reveal_at"`
	ClosesAt time.Time `json:"closes_at"`

	Outcome *Outcome `json:"outcome,omitempty"`
}

// newRound opens a round in Betting with its full phase schedule derived
// from the variant durations.
func newRound(id uint64, variant string, now time.Time, d Durations) *Round {
	return &Round{
		ID:       id,
		Variant:  variant,
		Phase:    PhaseBetting,
		OpenedAt: now,
		LockAt:   now.Add(d.Betting),
		RevealAt: now.Add(d.Betting + d.Locked),
		ClosesAt: now.Add(d.Total()),
	}
}

// remaining returns how long the current phase has left at time t, floored
// at zero.
func (r *Round) remaining(t time.Time, d Durations) time.Duration {
	var deadline time.Time
	switch r.Phase {
	case PhaseBetting:
		deadline = r.LockAt
	case PhaseLocked:
		deadline = r.RevealAt
	case PhaseRevealing:
		deadline = r.RevealAt.Add(d.Revealing)
	default:
		deadline = r.ClosesAt
	}
	rem := deadline.Sub(t)
	if rem < 0 {
		rem = 0
	}
	return rem
}
