package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/tablemate/scanorder/models"
	"github.com/tablemate/scanorder/services"
	"github.com/tablemate/scanorder/utils"
)

// PrintController covers the staff printer/job surface and the agent-facing
// pull/report protocol.
type PrintController struct {
	DB    *gorm.DB
	Print *services.PrintService
}

func NewPrintController(db *gorm.DB, print *services.PrintService) *PrintController {
	return &PrintController{DB: db, Print: print}
}

const agentKeyHeader = "X-Agent-Key"

// CreatePrinter registers a printer and returns its agent key exactly once.
func (pc *PrintController) CreatePrinter(c *gin.Context) {
	_, storeID := operator(c)

	var req struct {
		Name string `json:"name" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.RespondError(c, http.StatusBadRequest, err)
		return
	}

	printer := models.Printer{
		StoreID:  storeID,
		Name:     req.Name,
		AgentKey: services.GenerateAgentKey(),
		IsActive: true,
	}
	if err := pc.DB.Create(&printer).Error; err != nil {
		utils.RespondError(c, http.StatusInternalServerError, err)
		return
	}

	utils.InfoLogger.Printf("printer %s registered for store %s", printer.ID, storeID)
	utils.RespondJSON(c, http.StatusCreated, "Printer created", gin.H{
		"id":        printer.ID,
		"name":      printer.Name,
		"agent_key": printer.AgentKey, // shown once at registration
	})
}

// ListPrinters returns the store's printers.
func (pc *PrintController) ListPrinters(c *gin.Context) {
	_, storeID := operator(c)
	var printers []models.Printer
	if err := pc.DB.Where("store_id = ?", storeID).Order("created_at ASC").Find(&printers).Error; err != nil {
		utils.RespondError(c, http.StatusInternalServerError, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "List of printers", printers)
}

// ListJobs returns the store's print jobs, optionally filtered by status.
func (pc *PrintController) ListJobs(c *gin.Context) {
	_, storeID := operator(c)
	jobs, err := pc.Print.ListJobs(storeID, c.Query("status"))
	if err != nil {
		respondServiceError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "List of print jobs", jobs)
}

// RetryJob clones a failed job into a fresh pending one.
func (pc *PrintController) RetryJob(c *gin.Context) {
	operatorID, storeID := operator(c)
	job, err := pc.Print.Retry(storeID, c.Param("job_id"), operatorID)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Job requeued", gin.H{"job_id": job.ID})
}

// AgentPull hands out pending jobs to the print agent.
func (pc *PrintController) AgentPull(c *gin.Context) {
	var req struct {
		PrinterID string `json:"printer_id" binding:"required"`
		Max       int    `json:"max"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.RespondError(c, http.StatusBadRequest, err)
		return
	}
	if req.Max <= 0 {
		req.Max = 5
	}

	jobs, err := pc.Print.Pull(req.PrinterID, c.GetHeader(agentKeyHeader), req.Max)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Jobs", jobs)
}

// AgentReport records the agent's outcome for a picked job.
func (pc *PrintController) AgentReport(c *gin.Context) {
	var req struct {
		PrinterID    string `json:"printer_id" binding:"required"`
		JobID        string `json:"job_id" binding:"required"`
		OK           *bool  `json:"ok" binding:"required"`
		ErrorMessage string `json:"error_message"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.RespondError(c, http.StatusBadRequest, err)
		return
	}

	err := pc.Print.Report(req.PrinterID, c.GetHeader(agentKeyHeader), req.JobID, *req.OK, req.ErrorMessage)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Report accepted", nil)
}
