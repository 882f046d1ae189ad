package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/tashanwin/gamesvc/internal/engine"
	"github.com/tashanwin/gamesvc/internal/money"
)

// RoundHandler returns the current round snapshot for a variant. The
// outcome field is populated only once the round has revealed.
func (s *Server) RoundHandler(w http.ResponseWriter, r *http.Request) {
	g, ok := s.game(r)
	if !ok {
		http.Error(w, "unknown variant", http.StatusNotFound)
		return
	}

	round, ok := g.Snapshot()
	if !ok {
		http.Error(w, "no active round", http.StatusServiceUnavailable)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(round)
}

// HistoryHandler returns recent outcomes, most recent first. The optional
// ?limit= parameter is clamped to the variant's retention.
func (s *Server) HistoryHandler(w http.ResponseWriter, r *http.Request) {
	g, ok := s.game(r)
	if !ok {
		http.Error(w, "unknown variant", http.StatusNotFound)
		return
	}

	limit := g.History().Size()
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			http.Error(w, "invalid limit", http.StatusBadRequest)
			return
		}
		limit = n
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(g.History().Recent(limit))
}

type placeBetRequest struct {
	Stake     int64            `json:"stake"`
	Selection engine.Selection `json:"selection"`
}

// PlaceBetHandler accepts a wager over plain HTTP. The WebSocket stream
// accepts the same action; both paths land in Game.PlaceWager.
func (s *Server) PlaceBetHandler(w http.ResponseWriter, r *http.Request) {
	g, ok := s.game(r)
	if !ok {
		http.Error(w, "unknown variant", http.StatusNotFound)
		return
	}

	userID, err := s.currentUser(r)
	if err != nil {
		http.Error(w, "invalid token", http.StatusForbidden)
		return
	}

	var req placeBetRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid payload", http.StatusBadRequest)
		return
	}

	wager, err := g.PlaceWager(r.Context(), userID, money.Amount(req.Stake), req.Selection)
	if err != nil {
		writeWagerError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(wager)
}

// writeWagerError maps engine errors to HTTP statuses: phase violations
// and missing rounds are conflicts the client should retry next round,
// stake and selection problems are unprocessable, anything else is a 500.
func writeWagerError(w http.ResponseWriter, err error) {
	var phaseErr *engine.PhaseError
	var stakeErr *engine.InvalidStakeError
	var selErr *engine.InvalidSelectionError
	switch {
	case errors.As(err, &phaseErr), errors.Is(err, engine.ErrNoActiveRound):
		http.Error(w, err.Error(), http.StatusConflict)
	case errors.As(err, &stakeErr), errors.As(err, &selErr):
		http.Error(w, err.Error(), http.StatusUnprocessableEntity)
	default:
		http.Error(w, "failed to place wager", http.StatusInternalServerError)
	}
}
