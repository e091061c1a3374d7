package ws

import (
	"encoding/json"
	"sync"

	"github.com/gorilla/websocket"

	"github.com/tablemate/scanorder/utils"
)

// Event types pushed over the websocket channel.
const (
	EventOrderCreated   = "order.created"
	EventCartSnapshot   = "cart.snapshot"
	EventCartUpdated    = "cart.updated"
	EventSessionSettled = "session.settled"
	EventSessionMoved   = "session.moved"
	EventSessionInvalid = "session.invalid"
)

type Message struct {
	Event string      `json:"event"`
	Data  interface{} `json:"data"`
}

// Hub owns two independent connection pools: staff consoles keyed by store id
// and customer devices keyed by session id. Delivery is best-effort; a failed
// send reaps the connection and never affects the others, and nothing is
// buffered for reconnecting clients.
type Hub struct {
	mu        sync.Mutex
	staff     map[string]map[*websocket.Conn]struct{}
	customers map[string]map[*websocket.Conn]struct{}
}

func NewHub() *Hub {
	return &Hub{
		staff:     make(map[string]map[*websocket.Conn]struct{}),
		customers: make(map[string]map[*websocket.Conn]struct{}),
	}
}

// RegisterStaff adds a staff console connection for a store.
func (h *Hub) RegisterStaff(storeID string, conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.staff[storeID] == nil {
		h.staff[storeID] = make(map[*websocket.Conn]struct{})
	}
	h.staff[storeID][conn] = struct{}{}
}

// UnregisterStaff removes a staff connection and closes it.
func (h *Hub) UnregisterStaff(storeID string, conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.removeLocked(h.staff, storeID, conn)
}

// RegisterCustomer adds a customer device connection for a session.
func (h *Hub) RegisterCustomer(sessionID string, conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.customers[sessionID] == nil {
		h.customers[sessionID] = make(map[*websocket.Conn]struct{})
	}
	h.customers[sessionID][conn] = struct{}{}
}

// UnregisterCustomer removes a customer connection and closes it.
func (h *Hub) UnregisterCustomer(sessionID string, conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.removeLocked(h.customers, sessionID, conn)
}

// EmitStaff broadcasts to every staff console subscribed to the store.
func (h *Hub) EmitStaff(storeID string, msg Message) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.emitLocked(h.staff, storeID, msg)
}

// EmitCustomer broadcasts to every customer device subscribed to the session.
func (h *Hub) EmitCustomer(sessionID string, msg Message) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.emitLocked(h.customers, sessionID, msg)
}

// Send writes one message to a single connection, used for the connect-time
// snapshot and the invalidation notice.
func (h *Hub) Send(conn *websocket.Conn, msg Message) error {
	data, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	return conn.WriteMessage(websocket.TextMessage, data)
}

// StaffCount reports the number of staff connections for a store.
func (h *Hub) StaffCount(storeID string) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.staff[storeID])
}

// CustomerCount reports the number of customer connections for a session.
func (h *Hub) CustomerCount(sessionID string) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.customers[sessionID])
}

func (h *Hub) emitLocked(pool map[string]map[*websocket.Conn]struct{}, key string, msg Message) {
	conns := pool[key]
	if len(conns) == 0 {
		return
	}

	data, err := json.Marshal(msg)
	if err != nil {
		if utils.ErrorLogger != nil {
			utils.ErrorLogger.Printf("ws: marshal %s: %v", msg.Event, err)
		}
		return
	}

	for conn := range conns {
		if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
			// Dead connections are reaped on the first failed send.
			h.removeLocked(pool, key, conn)
		}
	}
}

func (h *Hub) removeLocked(pool map[string]map[*websocket.Conn]struct{}, key string, conn *websocket.Conn) {
	if conns, ok := pool[key]; ok {
		delete(conns, conn)
		if len(conns) == 0 {
			delete(pool, key)
		}
	}
	conn.Close()
}
