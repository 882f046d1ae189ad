// internal/handlers/game_test.go
package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/tashanwin/gamesvc/internal/auth"
	"github.com/tashanwin/gamesvc/internal/engine"
	"github.com/tashanwin/gamesvc/internal/models"
	"github.com/tashanwin/gamesvc/internal/money"
	"github.com/tashanwin/gamesvc/internal/wallet"
)

func testLogger() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

var errFakeNotFound = errors.New("user not found")

// fakeDirectory is an in-memory UserDirectory for handler tests.
type fakeDirectory struct {
	mu      sync.Mutex
	byID    map[uuid.UUID]*models.User
	byEmail map[string]*models.User
}

func newFakeDirectory() *fakeDirectory {
	return &fakeDirectory{
		byID:    make(map[uuid.UUID]*models.User),
		byEmail: make(map[string]*models.User),
	}
}

func (d *fakeDirectory) CreateUser(_ context.Context, user *models.User) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if user.ID == uuid.Nil {
		user.ID = uuid.New()
	}
	cp := *user
	d.byID[user.ID] = &cp
	if user.Email != "" {
		d.byEmail[user.Email] = &cp
	}
	return nil
}

func (d *fakeDirectory) GetUserByID(_ context.Context, id uuid.UUID) (*models.User, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	u, ok := d.byID[id]
	if !ok {
		return nil, errFakeNotFound
	}
	cp := *u
	return &cp, nil
}

func (d *fakeDirectory) GetUserByEmail(_ context.Context, email string) (*models.User, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	u, ok := d.byEmail[email]
	if !ok {
		return nil, errFakeNotFound
	}
	cp := *u
	return &cp, nil
}

func (d *fakeDirectory) UpdateUserCredentials(_ context.Context, user *models.User) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	cp := *user
	d.byID[user.ID] = &cp
	if user.Email != "" {
		d.byEmail[user.Email] = &cp
	}
	return nil
}

func colorConfig() engine.Config {
	return engine.Config{
		Variant: "wingo",
		Spec:    engine.OutcomeSpec{Kind: engine.KindColor},
		Payouts: engine.PayoutTable{
			Color: map[engine.Color]int64{
				engine.ColorRed:    200,
				engine.ColorGreen:  200,
				engine.ColorViolet: 450,
			},
			Number: 900,
			Size:   200,
		},
		Durations: engine.Durations{
			Betting:   time.Minute,
			Locked:    10 * time.Second,
			Revealing: 5 * time.Second,
			Cooldown:  5 * time.Second,
		},
		Stakes: engine.StakeBounds{
			Min: money.FromRupees(10),
			Max: money.FromRupees(1000),
		},
		History: 10,
	}
}

// newTestServer assembles a server over one in-memory wingo instance with
// a live round in its betting window.
func newTestServer(t *testing.T) (*Server, *engine.Game, *wallet.MemoryStore) {
	t.Helper()
	auth.Init() // ephemeral keys, no DB needed

	accounts := wallet.NewMemoryStore(money.FromRupees(500))
	g, err := engine.NewGame(colorConfig(), accounts)
	if err != nil {
		t.Fatalf("failed to build game: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go g.Run(ctx)

	deadline := time.Now().Add(time.Second)
	for {
		if _, ok := g.Snapshot(); ok {
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("round never opened")
		}
		time.Sleep(5 * time.Millisecond)
	}

	logger := testLogger()
	games := engine.NewRegistry()
	games.Add(g)
	hub := NewHub(logger)
	hub.Bind(g)

	return NewServer(logger, games, hub, newFakeDirectory(), accounts), g, accounts
}

func TestRoundEndpoint(t *testing.T) {
	s, _, _ := newTestServer(t)

	req := httptest.NewRequest("GET", "/api/games/wingo/round", nil)
	w := httptest.NewRecorder()
	s.Router().ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200 OK, got %d: %s", w.Code, w.Body.String())
	}
	var round engine.Round
	if err := json.Unmarshal(w.Body.Bytes(), &round); err != nil {
		t.Fatalf("failed to decode round: %v", err)
	}
	if round.Phase != engine.PhaseBetting {
		t.Fatalf("expected betting phase, got %s", round.Phase)
	}
	if round.Outcome != nil {
		t.Fatalf("outcome leaked before reveal")
	}
}

func TestRoundEndpointUnknownVariant(t *testing.T) {
	s, _, _ := newTestServer(t)

	req := httptest.NewRequest("GET", "/api/games/teenpatti/round", nil)
	w := httptest.NewRecorder()
	s.Router().ServeHTTP(w, req)

	if w.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", w.Code)
	}
}

func TestHistoryEndpoint(t *testing.T) {
	s, g, _ := newTestServer(t)

	g.History().Append(engine.HistoryEntry{
		RoundID:    1,
		Outcome:    engine.Outcome{Kind: engine.KindColor, Number: 7},
		ResolvedAt: time.Now(),
	})

	req := httptest.NewRequest("GET", "/api/games/wingo/history?limit=5", nil)
	w := httptest.NewRecorder()
	s.Router().ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200 OK, got %d: %s", w.Code, w.Body.String())
	}
	var entries []engine.HistoryEntry
	if err := json.Unmarshal(w.Body.Bytes(), &entries); err != nil {
		t.Fatalf("failed to decode history: %v", err)
	}
	if len(entries) != 1 || entries[0].Outcome.Number != 7 {
		t.Fatalf("unexpected history: %+v", entries)
	}
}

func TestHistoryEndpointRejectsBadLimit(t *testing.T) {
	s, _, _ := newTestServer(t)

	req := httptest.NewRequest("GET", "/api/games/wingo/history?limit=-3", nil)
	w := httptest.NewRecorder()
	s.Router().ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", w.Code)
	}
}

func placeBet(t *testing.T, s *Server, token string, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest("POST", "/api/games/wingo/bet", bytes.NewBufferString(body))
	req.Header.Set("Cookie", "auth_token="+token)
	w := httptest.NewRecorder()
	s.Router().ServeHTTP(w, req)
	return w
}

func TestPlaceBetEndpoint(t *testing.T) {
	s, _, accounts := newTestServer(t)

	playerID := uuid.New()
	token, _ := auth.CreateJWT(playerID.String())

	w := placeBet(t, s, token, `{"stake":10000,"selection":{"type":"color","color":"red"}}`)
	if w.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", w.Code, w.Body.String())
	}

	var wager engine.Wager
	if err := json.Unmarshal(w.Body.Bytes(), &wager); err != nil {
		t.Fatalf("failed to decode wager: %v", err)
	}
	if wager.PlayerID != playerID {
		t.Fatalf("wager player mismatch: %v", wager.PlayerID)
	}
	if wager.Stake != money.FromRupees(100) {
		t.Fatalf("wager stake mismatch: %v", wager.Stake)
	}

	balance, _ := accounts.Balance(context.Background(), playerID)
	if balance != money.FromRupees(400) {
		t.Fatalf("expected stake debited on placement, balance %v", balance)
	}
}

func TestPlaceBetRejectsBadStake(t *testing.T) {
	s, _, _ := newTestServer(t)

	playerID := uuid.New()
	token, _ := auth.CreateJWT(playerID.String())

	// Below the configured minimum.
	w := placeBet(t, s, token, `{"stake":100,"selection":{"type":"color","color":"red"}}`)
	if w.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422, got %d: %s", w.Code, w.Body.String())
	}

	// Above the available balance.
	w = placeBet(t, s, token, `{"stake":60000,"selection":{"type":"color","color":"red"}}`)
	if w.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422, got %d: %s", w.Code, w.Body.String())
	}
}

func TestPlaceBetRejectsForeignSelection(t *testing.T) {
	s, _, accounts := newTestServer(t)

	playerID := uuid.New()
	token, _ := auth.CreateJWT(playerID.String())

	// A crash auto-cashout has no meaning in a color draw.
	w := placeBet(t, s, token, `{"stake":10000,"selection":{"type":"cashout","cashout":200}}`)
	if w.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422, got %d: %s", w.Code, w.Body.String())
	}

	balance, _ := accounts.Balance(context.Background(), playerID)
	if balance != money.FromRupees(500) {
		t.Fatalf("rejected selection must not touch the balance, got %v", balance)
	}
}

func TestPlaceBetRequiresAuth(t *testing.T) {
	s, _, _ := newTestServer(t)

	req := httptest.NewRequest("POST", "/api/games/wingo/bet", bytes.NewBufferString(`{"stake":10000}`))
	w := httptest.NewRecorder()
	s.Router().ServeHTTP(w, req)

	if w.Code != http.StatusForbidden {
		t.Fatalf("expected 403, got %d", w.Code)
	}
}
