package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"gorm.io/gorm"

	"github.com/tablemate/scanorder/services"
	"github.com/tablemate/scanorder/utils"
	"github.com/tablemate/scanorder/ws"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// WSController upgrades and registers the two push channels: staff consoles
// keyed by store, customer devices keyed by session.
type WSController struct {
	DB       *gorm.DB
	Hub      *ws.Hub
	Cart     *services.CartService
	Sessions *services.SessionService
}

func NewWSController(db *gorm.DB, hub *ws.Hub, cart *services.CartService, sessions *services.SessionService) *WSController {
	return &WSController{DB: db, Hub: hub, Cart: cart, Sessions: sessions}
}

// StaffWS subscribes an authenticated staff console to its store's events.
func (wc *WSController) StaffWS(c *gin.Context) {
	storeIDVal, exists := c.Get("storeID")
	if !exists {
		c.AbortWithStatus(http.StatusUnauthorized)
		return
	}
	storeID, _ := storeIDVal.(string)
	if storeID == "" {
		c.AbortWithStatus(http.StatusUnauthorized)
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		return
	}

	wc.Hub.RegisterStaff(storeID, conn)
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			break
		}
	}
	wc.Hub.UnregisterStaff(storeID, conn)
}

// CustomerWS revalidates the claimed table/session binding, pushes the full
// cart snapshot and subscribes the device to session events. An invalid
// binding gets an explicit invalidation message before the close.
func (wc *WSController) CustomerWS(c *gin.Context) {
	storeID := c.Query("store_id")
	tableID := c.Query("table_id")
	sessionID := c.Query("session_id")
	if storeID == "" || tableID == "" || sessionID == "" {
		c.AbortWithStatus(http.StatusBadRequest)
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		return
	}

	if !wc.Sessions.Check(storeID, tableID, sessionID) {
		_ = wc.Hub.Send(conn, ws.Message{Event: ws.EventSessionInvalid, Data: gin.H{
			"session_id": sessionID,
			"message":    "table settled, re-scan to start a new session",
		}})
		conn.Close()
		return
	}

	wc.Hub.RegisterCustomer(sessionID, conn)

	snapshot, err := wc.Cart.BuildCartView(wc.DB, sessionID)
	if err != nil {
		utils.ErrorLogger.Printf("cart snapshot for session %s: %v", sessionID, err)
	} else if err := wc.Hub.Send(conn, ws.Message{Event: ws.EventCartSnapshot, Data: snapshot}); err != nil {
		wc.Hub.UnregisterCustomer(sessionID, conn)
		return
	}

	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			break
		}
	}
	wc.Hub.UnregisterCustomer(sessionID, conn)
}
