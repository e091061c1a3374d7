package controllers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/tablemate/scanorder/services"
	"github.com/tablemate/scanorder/utils"
)

type OrderController struct {
	Orders *services.OrderService
}

func NewOrderController(orders *services.OrderService) *OrderController {
	return &OrderController{Orders: orders}
}

// CreateOrder submits an order for the session, from the request's item list
// or from the current cart when the list is absent.
func (oc *OrderController) CreateOrder(c *gin.Context) {
	var req struct {
		StoreID     string                `json:"store_id" binding:"required"`
		TableID     string                `json:"table_id" binding:"required"`
		SessionID   string                `json:"session_id" binding:"required"`
		DinersCount int                   `json:"diners_count"`
		Channel     string                `json:"channel"`
		SpiceLevel  string                `json:"spice_level"`
		Remark      string                `json:"remark"`
		Items       []services.SubmitItem `json:"items"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.RespondError(c, http.StatusBadRequest, err)
		return
	}

	order, err := oc.Orders.Submit(services.SubmitInput{
		StoreID:     req.StoreID,
		TableID:     req.TableID,
		SessionID:   req.SessionID,
		DinersCount: req.DinersCount,
		Channel:     req.Channel,
		SpiceLevel:  req.SpiceLevel,
		Remark:      req.Remark,
		Items:       req.Items,
	})
	if err != nil {
		respondServiceError(c, err)
		return
	}

	utils.InfoLogger.Printf("order %s created for session %s (amount=%d)",
		order.ID, order.SessionID, order.Amount)
	utils.RespondJSON(c, http.StatusCreated, "Order created", gin.H{"order_id": order.ID})
}

// ListOrders returns the session's open orders.
func (oc *OrderController) ListOrders(c *gin.Context) {
	sessionID := c.Query("session_id")
	if sessionID == "" {
		utils.RespondError(c, http.StatusBadRequest, errors.New("session_id is required"))
		return
	}

	orders, err := oc.Orders.ListBySession(sessionID)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "List of orders", orders)
}

// GetOrderByID returns one order with its item snapshots.
func (oc *OrderController) GetOrderByID(c *gin.Context) {
	order, err := oc.Orders.Get(c.Param("order_id"))
	if err != nil {
		respondServiceError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Order detail", order)
}
