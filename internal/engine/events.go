// internal/engine/events.go
package engine

import (
	"github.com/google/uuid"
	"github.com/tashanwin/gamesvc/internal/money"
)

// EventType is an enum-like type for the events a game instance broadcasts.
type EventType string

const (
	EventRoundOpen      EventType = "round_open"      // new round accepting bets
	EventRoundTick      EventType = "round_tick"      // once per tick: phase + time remaining
	EventRoundLocked    EventType = "round_locked"    // betting window closed
	EventRoundOutcome   EventType = "round_outcome"   // outcome drawn, wagers resolved
	EventRoundAbandoned EventType = "round_abandoned" // round cancelled, stakes refunded
	EventWagerAccepted  EventType = "wager_accepted"  // private: wager recorded, stake debited
	EventWagerResolved  EventType = "wager_resolved"  // private: wager payout settled
)

// Event is the single message shape pushed to viewers. Viewers are read-only
// subscribers; no client ever computes phase or outcome locally.
type Event struct {
	Type    EventType `json:"type"`
	Variant string    `json:"variant"`
	RoundID uint64    `json:"round_id"`

	Phase     Phase `json:"phase,omitempty"`
	Remaining int64 `json:"time_remaining,omitempty"` // seconds left in phase

	Outcome *Outcome `json:"outcome,omitempty"`

	// Set on wager events only.
	WagerID string       `json:"wager_id,omitempty"`
	Stake   money.Amount `json:"stake,omitempty"`
	Payout  money.Amount `json:"payout,omitempty"`
	Won     *bool        `json:"won,omitempty"`
}

// BroadcastFunc sends an event to every viewer of a variant.
type BroadcastFunc func(ev Event)

// BroadcastToPlayerFunc sends an event to a single player.
type BroadcastToPlayerFunc func(playerID uuid.UUID, ev Event)

// RoundResolvedFunc receives each resolved or abandoned round with its
// wagers, for persistence and the settlement feed.
type RoundResolvedFunc func(r Round, wagers []*Wager)
