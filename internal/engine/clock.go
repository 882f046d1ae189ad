// internal/engine/clock.go
package engine

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/tashanwin/gamesvc/internal/money"
)

// Config bundles everything one game instance needs: how its outcome is
// drawn, how it pays, and how its clock runs. All of it comes from the
// variant configuration and is validated before the first round opens.
type Config struct {
	Variant   string
	Spec      OutcomeSpec
	Payouts   PayoutTable
	Durations Durations
	Stakes    StakeBounds
	Tick      time.Duration
	History   int
}

// Validate is the startup gate: a game must never start on a malformed
// table or duration set.
func (c Config) Validate() error {
	if c.Variant == "" {
		return &ConfigurationError{Field: "variant", Detail: "variant slug required"}
	}
	if err := c.Spec.Validate(); err != nil {
		return err
	}
	if err := c.Payouts.Validate(c.Spec.Kind); err != nil {
		return err
	}
	if err := c.Durations.Validate(); err != nil {
		return err
	}
	return c.Stakes.Validate()
}

// Game is one authoritative game instance: a perpetual round cycle with a
// single timer, a single outcome draw per round and a single ledger. All
// phase transitions happen here, server-side; viewers only ever observe.
type Game struct {
	cfg    Config
	gen    *Generator
	ledger *Ledger
	hist   *History

	mu    sync.Mutex
	round *Round
	seq   uint64

	// now is swappable so the clock tests can drive wall time directly.
	now func() time.Time

	// BroadcastFn sends events to all viewers. If nil, no broadcast is done.
	BroadcastFn BroadcastFunc

	// BroadcastToPlayerFn sends an event to a single specific player.
	BroadcastToPlayerFn BroadcastToPlayerFunc

	// OnRoundResolved is invoked after each resolution or abandonment,
	// outside the game lock, with the round's final wager set.
	OnRoundResolved RoundResolvedFunc
}

const defaultTick = time.Second

// NewGame validates the config and assembles an instance. No round opens
// until Run is called.
func NewGame(cfg Config, accounts Accounts) (*Game, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	gen, err := NewGenerator(cfg.Spec)
	if err != nil {
		return nil, err
	}
	if cfg.Tick <= 0 {
		cfg.Tick = defaultTick
	}
	return &Game{
		cfg:    cfg,
		gen:    gen,
		ledger: NewLedger(cfg.Variant, cfg.Spec.Kind, accounts, cfg.Payouts, cfg.Stakes),
		hist:   NewHistory(cfg.History),
		now:    time.Now,
	}, nil
}

// Variant returns the instance's slug.
func (g *Game) Variant() string { return g.cfg.Variant }

// History exposes the display buffer of recent outcomes.
func (g *Game) History() *History { return g.hist }

// Run drives the round cycle on a fixed tick cadence until ctx is
// cancelled. On cancellation the in-flight round is abandoned and its
// stakes refunded; an interrupted round is never resolved against a fresh
// outcome.
func (g *Game) Run(ctx context.Context) {
	g.openRound(g.now())

	ticker := time.NewTicker(g.cfg.Tick)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			g.Abandon(context.Background())
			return
		case t := <-ticker.C:
			g.Tick(t)
		}
	}
}

// Tick advances the state machine to where wall time t says it should be
// and broadcasts the per-tick phase snapshot. Exported so tests can drive
// the clock without real sleeps.
func (g *Game) Tick(t time.Time) {
	g.mu.Lock()
	r := g.round
	if r == nil {
		g.mu.Unlock()
		return
	}

	// A late tick may cross several deadlines at once; transitions are
	// replayed in order so no phase is skipped.
	var events []Event
	for r.Phase != g.cfg.Durations.PhaseAt(t.Sub(r.OpenedAt)) {
		switch r.Phase {
		case PhaseBetting:
			r.Phase = PhaseLocked
			// The ledger gate closes with the phase, so a placement whose
			// debit is still in flight cannot land in the locked round.
			g.ledger.Lock()
			events = append(events, Event{Type: EventRoundLocked, Variant: r.Variant, RoundID: r.ID, Phase: r.Phase})
		case PhaseLocked:
			if ev, ok := g.revealLocked(r); ok {
				events = append(events, ev)
			}
		case PhaseRevealing:
			r.Phase = PhaseCooldown
		}
		if r.Phase == PhaseCooldown {
			break
		}
	}

	if r.Phase == PhaseCooldown && !t.Before(r.ClosesAt) {
		events = append(events, g.openRoundLocked(t)...)
		r = g.round
	}

	events = append(events, Event{
		Type:      EventRoundTick,
		Variant:   r.Variant,
		RoundID:   r.ID,
		Phase:     r.Phase,
		Remaining: int64(r.remaining(t, g.cfg.Durations) / time.Second),
	})
	g.mu.Unlock()

	for _, ev := range events {
		g.broadcast(ev)
	}
}

// revealLocked draws the outcome, resolves the ledger and appends to
// history. Caller holds the game lock.
func (g *Game) revealLocked(r *Round) (Event, bool) {
	r.Phase = PhaseRevealing
	out := g.gen.Draw()
	r.Outcome = &out
	resolvedAt := g.now()

	wagers, err := g.ledger.Resolve(context.Background(), out, resolvedAt)
	if err != nil {
		// Single invocation is guaranteed by the clock; this is the
		// defensive path and must stay a no-op.
		log.Printf("game %s: resolve round %d: %v", r.Variant, r.ID, err)
		return Event{}, false
	}

	g.hist.Append(HistoryEntry{RoundID: r.ID, Outcome: out, ResolvedAt: resolvedAt})

	for _, w := range wagers {
		won := w.Payout > 0
		g.sendToPlayer(w.PlayerID, Event{
			Type:    EventWagerResolved,
			Variant: r.Variant,
			RoundID: r.ID,
			WagerID: w.ID.String(),
			Stake:   w.Stake,
			Payout:  w.Payout,
			Won:     &won,
		})
	}

	if g.OnRoundResolved != nil {
		snapshot := *r
		go g.OnRoundResolved(snapshot, wagers)
	}
	return Event{
		Type:    EventRoundOutcome,
		Variant: r.Variant,
		RoundID: r.ID,
		Phase:   r.Phase,
		Outcome: &out,
	}, true
}

// openRound opens the first round of the cycle.
func (g *Game) openRound(t time.Time) {
	g.mu.Lock()
	events := g.openRoundLocked(t)
	g.mu.Unlock()
	for _, ev := range events {
		g.broadcast(ev)
	}
}

// openRoundLocked creates the next round. Caller holds the game lock.
// Exactly one round is current at any time; this only runs after the
// previous round reached the end of its cooldown.
func (g *Game) openRoundLocked(t time.Time) []Event {
	g.seq++
	g.round = newRound(g.seq, g.cfg.Variant, t, g.cfg.Durations)
	g.ledger.OpenRound(g.seq)
	return []Event{{
		Type:      EventRoundOpen,
		Variant:   g.cfg.Variant,
		RoundID:   g.seq,
		Phase:     PhaseBetting,
		Remaining: int64(g.cfg.Durations.Betting / time.Second),
	}}
}

// PlaceWager accepts a bet against the current round. It fails with a
// PhaseError outside the betting window, an InvalidSelectionError on a
// prediction the variant does not offer and an InvalidStakeError on a bad
// stake; the stake is debited the moment the wager is accepted.
func (g *Game) PlaceWager(ctx context.Context, playerID uuid.UUID, stake money.Amount, sel Selection) (*Wager, error) {
	g.mu.Lock()
	r := g.round
	if r == nil {
		g.mu.Unlock()
		return nil, ErrNoActiveRound
	}
	if r.Phase != PhaseBetting {
		phase := r.Phase
		g.mu.Unlock()
		return nil, &PhaseError{Op: "place_wager", Phase: phase}
	}
	g.mu.Unlock()

	// The ledger serializes against resolution itself; holding the game
	// lock across the debit would stall the tick loop on wallet I/O.
	w, err := g.ledger.Place(ctx, playerID, stake, sel, g.now())
	if err != nil {
		return nil, err
	}

	g.sendToPlayer(playerID, Event{
		Type:    EventWagerAccepted,
		Variant: g.cfg.Variant,
		RoundID: w.RoundID,
		WagerID: w.ID.String(),
		Stake:   w.Stake,
	})
	return w, nil
}

// Snapshot returns a copy of the current round for request/response reads.
func (g *Game) Snapshot() (Round, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.round == nil {
		return Round{}, false
	}
	return *g.round, true
}

// Abandon cancels the in-flight round, refunding every stake. Used on
// shutdown so no wager is ever left pending forever.
func (g *Game) Abandon(ctx context.Context) {
	g.mu.Lock()
	r := g.round
	if r == nil || r.Outcome != nil {
		g.mu.Unlock()
		return
	}
	refunded := g.ledger.RefundAll(ctx)
	g.round = nil
	g.mu.Unlock()

	g.broadcast(Event{Type: EventRoundAbandoned, Variant: r.Variant, RoundID: r.ID})
	if g.OnRoundResolved != nil && len(refunded) > 0 {
		g.OnRoundResolved(*r, refunded)
	}
	log.Printf("game %s: abandoned round %d, refunded %d wagers", r.Variant, r.ID, len(refunded))
}

func (g *Game) sendToPlayer(playerID uuid.UUID, ev Event) {
	if g.BroadcastToPlayerFn != nil {
		g.BroadcastToPlayerFn(playerID, ev)
	}
}

func (g *Game) broadcast(ev Event) {
	if g.BroadcastFn != nil {
		g.BroadcastFn(ev)
	}
}
