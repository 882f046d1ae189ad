// internal/handlers/stream.go
package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/coder/websocket"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/tashanwin/gamesvc/internal/engine"
	"github.com/tashanwin/gamesvc/internal/middleware"
	"github.com/tashanwin/gamesvc/internal/money"
)

// StreamMessage is the shape of incoming WebSocket messages on a variant
// stream. The stream is mostly one-way; place_wager and ping are the only
// client actions.
type StreamMessage struct {
	Type string `json:"type"`

	// Set on place_wager.
	Stake     int64             `json:"stake,omitempty"`
	Selection *engine.Selection `json:"selection,omitempty"`
}

// StreamHandler upgrades the connection to WebSocket and attaches it to a
// variant's event stream. The client immediately receives the current
// round snapshot and recent history, then live events as they happen.
func (s *Server) StreamHandler(w http.ResponseWriter, r *http.Request) {
	variant := chi.URLParam(r, "variant")
	g, ok := s.Games.Get(variant)
	if !ok {
		http.Error(w, "unknown variant", http.StatusNotFound)
		return
	}

	c, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		Subprotocols:   []string{"game"},
		OriginPatterns: []string{"*"}, // Adjust for production security.
	})
	if err != nil {
		s.Logger.Warnf("WebSocket accept error for %s: %v", variant, err)
		return
	}
	defer c.Close(websocket.StatusInternalError, "Internal server error during handler exit.")

	if c.Subprotocol() != "game" {
		s.Logger.Warnf("Client for %s connected with invalid subprotocol: %s", variant, c.Subprotocol())
		c.Close(websocket.StatusPolicyViolation, "Client must use the 'game' subprotocol.")
		return
	}
	middleware.LogWebSocketConnect(s.Logger, r.RemoteAddr, r.URL.Path)

	userID, err := s.EnsureEphemeralUser(w, r)
	if err != nil {
		s.Logger.Warnf("User authentication failed for %s: %v", variant, err)
		c.Close(websocket.StatusPolicyViolation, "Authentication failed.")
		return
	}

	viewer := s.Hub.Attach(variant, userID, c)
	defer s.Hub.Detach(variant, viewer)

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	s.sendInitialState(ctx, c, g)

	readErr := s.readStreamMessages(ctx, c, g, userID)
	middleware.LogWebSocketDisconnect(s.Logger, r.RemoteAddr, r.URL.Path, readErr)
}

// sendInitialState pushes the current round and recent outcomes so a
// fresh viewer can render without waiting for the next tick.
func (s *Server) sendInitialState(ctx context.Context, c *websocket.Conn, g *engine.Game) {
	if round, ok := g.Snapshot(); ok {
		sendWsMessage(ctx, c, map[string]interface{}{
			"type":  "round_state",
			"round": round,
		})
	}
	sendWsMessage(ctx, c, map[string]interface{}{
		"type":    "history",
		"variant": g.Variant(),
		"entries": g.History().Recent(g.History().Size()),
	})
}

// readStreamMessages is the blocking read loop for one viewer. It returns
// the error that ended the loop, or nil for a normal closure.
func (s *Server) readStreamMessages(ctx context.Context, c *websocket.Conn, g *engine.Game, userID uuid.UUID) error {
	for {
		msgType, data, err := c.Read(ctx)
		if err != nil {
			status := websocket.CloseStatus(err)
			if status == websocket.StatusNormalClosure || status == websocket.StatusGoingAway {
				return nil
			}
			if strings.Contains(err.Error(), "context canceled") {
				return nil
			}
			return err
		}

		if msgType != websocket.MessageText {
			s.Logger.Warnf("Received non-text message type %d from user %s on %s. Ignoring.", msgType, userID, g.Variant())
			continue
		}

		var msg StreamMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			s.Logger.Warnf("Invalid JSON received from user %s on %s: %v", userID, g.Variant(), err)
			sendWsError(ctx, c, "Invalid JSON format.")
			continue
		}

		switch msg.Type {
		case "place_wager":
			if msg.Selection == nil {
				sendWsError(ctx, c, "place_wager requires a selection.")
				continue
			}
			// Wager acceptance and resolution events come back through
			// the player's private stream; errors go straight to this
			// connection.
			if _, err := g.PlaceWager(ctx, userID, money.Amount(msg.Stake), *msg.Selection); err != nil {
				sendWsError(ctx, c, err.Error())
			}

		case "ping":
			sendWsMessage(ctx, c, map[string]string{"type": "pong"})

		default:
			s.Logger.Warnf("Unknown message type '%s' from user %s on %s.", msg.Type, userID, g.Variant())
			sendWsError(ctx, c, fmt.Sprintf("Unknown message type: %s", msg.Type))
		}

		select {
		case <-ctx.Done():
			return nil
		default:
		}
	}
}

// sendWsMessage marshals a message and sends it to the WebSocket client
// with a write timeout.
func sendWsMessage(ctx context.Context, c *websocket.Conn, message interface{}) {
	msgBytes, err := json.Marshal(message)
	if err != nil {
		return
	}

	writeCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = c.Write(writeCtx, websocket.MessageText, msgBytes)
}

// sendWsError sends a structured error message to the client.
func sendWsError(ctx context.Context, c *websocket.Conn, errorMsg string) {
	sendWsMessage(ctx, c, map[string]interface{}{
		"type":    "error",
		"message": errorMsg,
	})
}
