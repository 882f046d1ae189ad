// internal/handlers/stream_test.go
package handlers

import (
	"context"
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/coder/websocket"
)

// dialStream connects a test client to the variant stream.
func dialStream(t *testing.T, url string) *websocket.Conn {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	wsURL := "ws" + strings.TrimPrefix(url, "http") + "/game/ws/wingo"
	c, _, err := websocket.Dial(ctx, wsURL, &websocket.DialOptions{
		Subprotocols: []string{"game"},
	})
	if err != nil {
		t.Fatalf("failed to dial stream: %v", err)
	}
	t.Cleanup(func() { c.Close(websocket.StatusNormalClosure, "done") })
	return c
}

// readMessage reads and decodes one JSON message with a timeout.
func readMessage(t *testing.T, c *websocket.Conn) map[string]interface{} {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	_, data, err := c.Read(ctx)
	if err != nil {
		t.Fatalf("failed to read message: %v", err)
	}
	var msg map[string]interface{}
	if err := json.Unmarshal(data, &msg); err != nil {
		t.Fatalf("invalid JSON from server: %v", err)
	}
	return msg
}

// readUntil reads messages until one of the wanted type arrives.
func readUntil(t *testing.T, c *websocket.Conn, wantType string) map[string]interface{} {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		msg := readMessage(t, c)
		if msg["type"] == wantType {
			return msg
		}
	}
	t.Fatalf("never received %q message", wantType)
	return nil
}

func TestStreamInitialState(t *testing.T) {
	s, _, _ := newTestServer(t)
	ts := httptest.NewServer(s.Router())
	defer ts.Close()

	c := dialStream(t, ts.URL)

	state := readMessage(t, c)
	if state["type"] != "round_state" {
		t.Fatalf("expected round_state first, got %v", state["type"])
	}
	round, ok := state["round"].(map[string]interface{})
	if !ok {
		t.Fatalf("round_state carries no round: %v", state)
	}
	if round["phase"] != "betting" {
		t.Fatalf("expected betting phase, got %v", round["phase"])
	}

	hist := readMessage(t, c)
	if hist["type"] != "history" {
		t.Fatalf("expected history second, got %v", hist["type"])
	}
}

func TestStreamPingPong(t *testing.T) {
	s, _, _ := newTestServer(t)
	ts := httptest.NewServer(s.Router())
	defer ts.Close()

	c := dialStream(t, ts.URL)
	readMessage(t, c) // round_state
	readMessage(t, c) // history

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := c.Write(ctx, websocket.MessageText, []byte(`{"type":"ping"}`)); err != nil {
		t.Fatalf("failed to write ping: %v", err)
	}

	readUntil(t, c, "pong")
}

func TestStreamPlaceWager(t *testing.T) {
	s, _, _ := newTestServer(t)
	ts := httptest.NewServer(s.Router())
	defer ts.Close()

	c := dialStream(t, ts.URL)
	readMessage(t, c) // round_state
	readMessage(t, c) // history

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	bet := `{"type":"place_wager","stake":10000,"selection":{"type":"color","color":"green"}}`
	if err := c.Write(ctx, websocket.MessageText, []byte(bet)); err != nil {
		t.Fatalf("failed to write wager: %v", err)
	}

	accepted := readUntil(t, c, "wager_accepted")
	if id, ok := accepted["wager_id"].(string); !ok || id == "" {
		t.Fatalf("accepted event has no wager id: %v", accepted)
	}
	if stake, ok := accepted["stake"].(float64); !ok || stake != 10000 {
		t.Fatalf("accepted event stake mismatch: %v", accepted["stake"])
	}
}

func TestStreamRejectsUnknownVariant(t *testing.T) {
	s, _, _ := newTestServer(t)
	ts := httptest.NewServer(s.Router())
	defer ts.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	wsURL := "ws" + strings.TrimPrefix(ts.URL, "http") + "/game/ws/teenpatti"
	_, _, err := websocket.Dial(ctx, wsURL, &websocket.DialOptions{
		Subprotocols: []string{"game"},
	})
	if err == nil {
		t.Fatal("expected dial to fail for unknown variant")
	}
}

func TestStreamInvalidJSON(t *testing.T) {
	s, _, _ := newTestServer(t)
	ts := httptest.NewServer(s.Router())
	defer ts.Close()

	c := dialStream(t, ts.URL)
	readMessage(t, c) // round_state
	readMessage(t, c) // history

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := c.Write(ctx, websocket.MessageText, []byte(`{not json`)); err != nil {
		t.Fatalf("failed to write: %v", err)
	}

	errMsg := readUntil(t, c, "error")
	if text, ok := errMsg["message"].(string); !ok || text == "" {
		t.Fatalf("error event has no message: %v", errMsg)
	}
}
