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

// SessionController exposes the staff console's session lifecycle operations.
type SessionController struct {
	DB       *gorm.DB
	Sessions *services.SessionService
	Print    *services.PrintService
}

func NewSessionController(db *gorm.DB, sessions *services.SessionService, print *services.PrintService) *SessionController {
	return &SessionController{DB: db, Sessions: sessions, Print: print}
}

// operator resolves the authenticated staff identity set by the auth
// middleware.
func operator(c *gin.Context) (uint, string) {
	userID, _ := c.Get("userID")
	storeID, _ := c.Get("storeID")
	id, _ := userID.(uint)
	store, _ := storeID.(string)
	return id, store
}

// operatorName looks up the staff display name for receipt tickets.
func (sc *SessionController) operatorName(operatorID uint) string {
	var user models.User
	if err := sc.DB.First(&user, operatorID).Error; err != nil {
		return ""
	}
	return user.Name
}

// ListSessions returns session rows, optionally filtered by status.
func (sc *SessionController) ListSessions(c *gin.Context) {
	_, storeID := operator(c)
	rows, err := sc.Sessions.List(storeID, c.Query("status"))
	if err != nil {
		respondServiceError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "List of sessions", rows)
}

// SessionDetail returns the merged bill view of one session.
func (sc *SessionController) SessionDetail(c *gin.Context) {
	_, storeID := operator(c)
	sessionID := c.Query("session_id")
	if sessionID == "" {
		utils.RespondError(c, http.StatusBadRequest, errors.New("session_id is required"))
		return
	}

	detail, err := sc.Sessions.Detail(storeID, sessionID)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Session detail", detail)
}

// SettleSession closes the session and frees its table.
func (sc *SessionController) SettleSession(c *gin.Context) {
	operatorID, storeID := operator(c)
	operatorName := sc.operatorName(operatorID)
	sessionID := c.Param("session_id")

	if err := sc.Sessions.Settle(storeID, operatorID, operatorName, sessionID); err != nil {
		respondServiceError(c, err)
		return
	}

	utils.InfoLogger.Printf("session %s settled by operator %d", sessionID, operatorID)
	utils.RespondJSON(c, http.StatusOK, "Session settled", gin.H{"session_id": sessionID})
}

// MoveSession relocates the session to another table.
func (sc *SessionController) MoveSession(c *gin.Context) {
	operatorID, storeID := operator(c)
	sessionID := c.Param("session_id")

	var req struct {
		FromTableID string `json:"from_table_id" binding:"required"`
		ToTableID   string `json:"to_table_id" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.RespondError(c, http.StatusBadRequest, err)
		return
	}

	if err := sc.Sessions.Move(storeID, operatorID, sessionID, req.FromTableID, req.ToTableID); err != nil {
		respondServiceError(c, err)
		return
	}

	utils.InfoLogger.Printf("session %s moved %s -> %s", sessionID, req.FromTableID, req.ToTableID)
	utils.RespondJSON(c, http.StatusOK, "Session moved", gin.H{"session_id": sessionID})
}

// BatchDeleteSessions soft-deletes closed sessions and purges their
// dependents. All-or-nothing.
func (sc *SessionController) BatchDeleteSessions(c *gin.Context) {
	_, storeID := operator(c)

	var req struct {
		SessionIDs []string `json:"session_ids" binding:"required,min=1"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.RespondError(c, http.StatusBadRequest, err)
		return
	}

	count, err := sc.Sessions.BatchDelete(storeID, req.SessionIDs)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Sessions deleted", gin.H{"deleted": count})
}

// PrintBill enqueues a pre-settlement bill ticket for an ACTIVE session.
func (sc *SessionController) PrintBill(c *gin.Context) {
	operatorID, storeID := operator(c)
	sessionID := c.Param("session_id")

	var session models.DiningSession
	if err := sc.DB.Where("id = ? AND store_id = ? AND is_deleted = ?", sessionID, storeID, false).
		First(&session).Error; err != nil {
		respondServiceError(c, services.ErrSessionNotFound)
		return
	}
	if session.Status != models.SessionStatusActive {
		respondServiceError(c, services.ErrSessionClosed)
		return
	}

	job, err := sc.Print.EnqueueBill(sessionID, operatorID)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Bill queued", gin.H{"job_id": job.ID})
}

// PrintReceipt enqueues a receipt ticket for a settled session.
func (sc *SessionController) PrintReceipt(c *gin.Context) {
	operatorID, storeID := operator(c)
	operatorName := sc.operatorName(operatorID)
	sessionID := c.Param("session_id")

	var session models.DiningSession
	if err := sc.DB.Where("id = ? AND store_id = ? AND is_deleted = ?", sessionID, storeID, false).
		First(&session).Error; err != nil {
		respondServiceError(c, services.ErrSessionNotFound)
		return
	}
	if session.Status != models.SessionStatusClosed {
		respondServiceError(c, services.ErrSessionNotSettled)
		return
	}

	job, err := sc.Print.EnqueueReceipt(sessionID, &operatorID, operatorName, false)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Receipt queued", gin.H{"job_id": job.ID})
}
