package controllers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/tablemate/scanorder/models"
	"github.com/tablemate/scanorder/services"
	"github.com/tablemate/scanorder/utils"
)

// TableController handles the customer-facing table resolution and session
// start flow driven by signed QR codes.
type TableController struct {
	DB       *gorm.DB
	Sessions *services.SessionService
}

func NewTableController(db *gorm.DB, sessions *services.SessionService) *TableController {
	return &TableController{DB: db, Sessions: sessions}
}

func (tc *TableController) verifySign(storeID, tableID, sign string) bool {
	return utils.VerifyTableSign(storeID, tableID, utils.TableSignSecret(), sign)
}

// Resolve validates a scanned table code and returns the table/store names.
func (tc *TableController) Resolve(c *gin.Context) {
	storeID := c.Query("store_id")
	tableID := c.Query("table_id")
	sign := c.Query("sign")

	if !tc.verifySign(storeID, tableID, sign) {
		utils.RespondError(c, http.StatusBadRequest, errors.New("invalid table code, please ask the staff"))
		return
	}

	var table models.Table
	err := tc.DB.Where("id = ? AND store_id = ? AND is_active = ? AND is_deleted = ?",
		tableID, storeID, true, false).First(&table).Error
	if err != nil {
		utils.RespondError(c, http.StatusBadRequest, errors.New("table not found or inactive"))
		return
	}

	var store models.Store
	if err := tc.DB.Where("id = ?", storeID).First(&store).Error; err != nil {
		utils.RespondError(c, http.StatusNotFound, errors.New("store not found"))
		return
	}

	utils.RespondJSON(c, http.StatusOK, "Table resolved", gin.H{
		"store_id":   store.ID,
		"store_name": store.Name,
		"table_id":   table.ID,
		"table_name": table.Name,
	})
}

// StartSession opens (or re-joins) the table's dining session.
func (tc *TableController) StartSession(c *gin.Context) {
	var req struct {
		StoreID     string `json:"store_id" binding:"required"`
		TableID     string `json:"table_id" binding:"required"`
		Sign        string `json:"sign" binding:"required"`
		DinersCount int    `json:"diners_count" binding:"required,min=1"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.RespondError(c, http.StatusBadRequest, err)
		return
	}

	if !tc.verifySign(req.StoreID, req.TableID, req.Sign) {
		utils.RespondError(c, http.StatusBadRequest, errors.New("invalid table code, please ask the staff"))
		return
	}

	result, err := tc.Sessions.Start(req.StoreID, req.TableID, req.DinersCount)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	utils.InfoLogger.Printf("session %s started at table %s (%d diners)",
		result.SessionID, result.TableName, result.DinersCount)
	utils.RespondJSON(c, http.StatusOK, "Session started", result)
}

// CheckSession lets a reconnecting client verify its binding is still valid.
func (tc *TableController) CheckSession(c *gin.Context) {
	storeID := c.Query("store_id")
	tableID := c.Query("table_id")
	sessionID := c.Query("session_id")
	if storeID == "" || tableID == "" || sessionID == "" {
		utils.RespondError(c, http.StatusBadRequest, errors.New("store_id, table_id and session_id are required"))
		return
	}

	valid := tc.Sessions.Check(storeID, tableID, sessionID)
	utils.RespondJSON(c, http.StatusOK, "Session checked", gin.H{"valid": valid})
}
