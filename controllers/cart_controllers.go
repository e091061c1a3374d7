package controllers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/tablemate/scanorder/services"
	"github.com/tablemate/scanorder/utils"
)

type CartController struct {
	Cart *services.CartService
}

func NewCartController(cart *services.CartService) *CartController {
	return &CartController{Cart: cart}
}

type cartScope struct {
	StoreID   string `json:"store_id" binding:"required"`
	TableID   string `json:"table_id" binding:"required"`
	SessionID string `json:"session_id" binding:"required"`
}

// GetCart returns the session's current cart with totals and version.
func (cc *CartController) GetCart(c *gin.Context) {
	storeID := c.Query("store_id")
	tableID := c.Query("table_id")
	sessionID := c.Query("session_id")
	if storeID == "" || tableID == "" || sessionID == "" {
		utils.RespondError(c, http.StatusBadRequest, errors.New("store_id, table_id and session_id are required"))
		return
	}

	view, err := cc.Cart.Get(storeID, tableID, sessionID)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Cart", view)
}

// SetQty upserts one cart line; qty zero removes it.
func (cc *CartController) SetQty(c *gin.Context) {
	var req struct {
		cartScope
		ProductID string `json:"product_id" binding:"required"`
		Qty       *int   `json:"qty" binding:"required,min=0"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.RespondError(c, http.StatusBadRequest, err)
		return
	}

	view, err := cc.Cart.SetQty(req.StoreID, req.TableID, req.SessionID, req.ProductID, *req.Qty)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Cart updated", view)
}

// Clear empties the session's cart.
func (cc *CartController) Clear(c *gin.Context) {
	var req cartScope
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.RespondError(c, http.StatusBadRequest, err)
		return
	}

	view, err := cc.Cart.Clear(req.StoreID, req.TableID, req.SessionID)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Cart cleared", view)
}
