// internal/handlers/hub.go
package handlers

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/coder/websocket"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/tashanwin/gamesvc/internal/engine"
)

// Viewer wraps a single client's WebSocket connection to one variant's
// event stream. A player may hold several viewers (tabs, reconnects); all
// of them receive that player's private events.
type Viewer struct {
	UserID uuid.UUID
	Conn   *websocket.Conn
}

// Hub fans game events out to the viewers of each variant. Broadcast and
// SendToPlayer are called from inside the game's tick path, so the hub
// grabs its lock only to snapshot the recipient set and performs all
// writes asynchronously.
type Hub struct {
	mu      sync.Mutex
	viewers map[string]map[*Viewer]struct{}
	logger  *logrus.Logger
}

func NewHub(logger *logrus.Logger) *Hub {
	return &Hub{
		viewers: make(map[string]map[*Viewer]struct{}),
		logger:  logger,
	}
}

// Attach registers a connection as a viewer of the variant.
func (h *Hub) Attach(variant string, userID uuid.UUID, c *websocket.Conn) *Viewer {
	v := &Viewer{UserID: userID, Conn: c}
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.viewers[variant] == nil {
		h.viewers[variant] = make(map[*Viewer]struct{})
	}
	h.viewers[variant][v] = struct{}{}
	return v
}

// Detach removes the viewer. Safe to call after the connection is gone.
func (h *Hub) Detach(variant string, v *Viewer) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.viewers[variant], v)
}

// ViewerCount reports how many connections watch the variant.
func (h *Hub) ViewerCount(variant string) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.viewers[variant])
}

// Broadcast sends the event to every viewer of the variant. The event is
// marshaled once; writes happen in a goroutine with a per-write timeout so
// a stalled client cannot hold up the round clock.
func (h *Hub) Broadcast(variant string, ev engine.Event) {
	h.mu.Lock()
	targets := make([]*Viewer, 0, len(h.viewers[variant]))
	for v := range h.viewers[variant] {
		targets = append(targets, v)
	}
	h.mu.Unlock()

	if len(targets) == 0 {
		return
	}

	data, err := json.Marshal(ev)
	if err != nil {
		h.logger.Errorf("failed to marshal broadcast event (%s) for %s: %v", ev.Type, variant, err)
		return
	}

	go func() {
		for _, v := range targets {
			h.write(v, variant, data)
		}
	}()
}

// SendToPlayer sends the event to every viewer the player holds on the
// variant.
func (h *Hub) SendToPlayer(variant string, playerID uuid.UUID, ev engine.Event) {
	h.mu.Lock()
	var targets []*Viewer
	for v := range h.viewers[variant] {
		if v.UserID == playerID {
			targets = append(targets, v)
		}
	}
	h.mu.Unlock()

	if len(targets) == 0 {
		return
	}

	data, err := json.Marshal(ev)
	if err != nil {
		h.logger.Errorf("failed to marshal private event (%s) for player %s on %s: %v", ev.Type, playerID, variant, err)
		return
	}

	go func() {
		for _, v := range targets {
			h.write(v, variant, data)
		}
	}()
}

func (h *Hub) write(v *Viewer, variant string, data []byte) {
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if err := v.Conn.Write(ctx, websocket.MessageText, data); err != nil {
		h.logger.Warnf("failed to write to viewer %s on %s: %v", v.UserID, variant, err)
	}
}

// Bind wires a game's broadcast hooks to this hub.
func (h *Hub) Bind(g *engine.Game) {
	variant := g.Variant()
	g.BroadcastFn = func(ev engine.Event) {
		h.Broadcast(variant, ev)
	}
	g.BroadcastToPlayerFn = func(playerID uuid.UUID, ev engine.Event) {
		h.SendToPlayer(variant, playerID, ev)
	}
}
