package main

import (
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/tablemate/scanorder/router"
	"github.com/tablemate/scanorder/ws"
)

type wsEnvelope struct {
	Event string                 `json:"event"`
	Data  map[string]interface{} `json:"data"`
}

func readEnvelope(t *testing.T, conn *websocket.Conn) wsEnvelope {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, data, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("read ws message: %v", err)
	}
	var msg wsEnvelope
	if err := json.Unmarshal(data, &msg); err != nil {
		t.Fatalf("unmarshal ws message: %v", err)
	}
	return msg
}

// TestCustomerWebSocketLifecycle covers the customer connect contract:
// a valid binding gets the full cart snapshot on connect and session events
// afterwards; a stale binding gets an explicit invalidation then the close.
func TestCustomerWebSocketLifecycle(t *testing.T) {
	db, store, table := setupIntegrationDB(t)
	r := router.SetupRouter(db, ws.NewHub())

	server := httptest.NewServer(r)
	defer server.Close()

	sessionID := startSessionTest(t, r, store.ID, table.ID)
	setCartQtyTest(t, r, db, store.ID, table.ID, sessionID)

	wsURL := "ws" + strings.TrimPrefix(server.URL, "http") +
		"/api/mp/ws?store_id=" + store.ID + "&table_id=" + table.ID + "&session_id=" + sessionID

	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("dial customer ws: %v", err)
	}
	defer conn.Close()

	snapshot := readEnvelope(t, conn)
	if snapshot.Event != ws.EventCartSnapshot {
		t.Fatalf("expected %s on connect, got %s", ws.EventCartSnapshot, snapshot.Event)
	}
	if v, _ := snapshot.Data["cart_version"].(float64); int64(v) != 1 {
		t.Fatalf("expected cart_version 1 in snapshot, got %v", snapshot.Data["cart_version"])
	}
	if amount, _ := snapshot.Data["total_amount"].(float64); int64(amount) != 1200 {
		t.Fatalf("expected total_amount 1200 in snapshot, got %v", snapshot.Data["total_amount"])
	}

	token := loginTest(t, r)
	settleSessionTest(t, r, token, sessionID)

	// The open device hears about its own settlement.
	settled := readEnvelope(t, conn)
	if settled.Event != ws.EventSessionSettled {
		t.Fatalf("expected %s after settle, got %s", ws.EventSessionSettled, settled.Event)
	}

	// Reconnecting with the dead binding gets the invalidation and a close.
	stale, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("dial with stale binding: %v", err)
	}
	defer stale.Close()

	invalid := readEnvelope(t, stale)
	if invalid.Event != ws.EventSessionInvalid {
		t.Fatalf("expected %s on stale connect, got %s", ws.EventSessionInvalid, invalid.Event)
	}

	stale.SetReadDeadline(time.Now().Add(2 * time.Second))
	if _, _, err := stale.ReadMessage(); err == nil {
		t.Fatalf("expected server-side close after invalidation")
	}
}
