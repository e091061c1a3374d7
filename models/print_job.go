package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	PrintJobStatusPending = "PENDING"
	PrintJobStatusPicked  = "PICKED"
	PrintJobStatusSent    = "SENT"
	PrintJobStatusFailed  = "FAILED"
)

const (
	PrintJobTypeKitchen = "KITCHEN_TICKET"
	PrintJobTypeBill    = "BILL_TICKET"
	PrintJobTypeReceipt = "RECEIPT_TICKET"
)

// PrintJob is one unit of work for the print agent. Content is frozen on
// creation; only Status and ErrorMessage change afterwards. FAILED is terminal
// for a row, recovery always clones a fresh job so the audit trail survives.
type PrintJob struct {
	ID             string    `gorm:"primaryKey;type:varchar(36)" json:"id"`
	StoreID        string    `gorm:"type:varchar(36);not null;index" json:"store_id"`
	PrinterID      string    `gorm:"type:varchar(36);not null;index" json:"printer_id"`
	Type           string    `gorm:"type:varchar(20);not null" json:"type"`
	Status         string    `gorm:"type:varchar(20);not null;default:'PENDING'" json:"status"`
	Content        string    `gorm:"type:text;not null" json:"content"`
	IdempotencyKey *string   `gorm:"type:varchar(64);uniqueIndex" json:"idempotency_key,omitempty"`
	SessionID      *string   `gorm:"type:varchar(36);index" json:"session_id,omitempty"`
	OrderID        *string   `gorm:"type:varchar(30)" json:"order_id,omitempty"`
	OperatorID     *uint     `json:"operator_id,omitempty"`
	ErrorMessage   *string   `gorm:"type:varchar(255)" json:"error_message,omitempty"`
	CreatedAt      time.Time `gorm:"not null" json:"created_at"`
	UpdatedAt      time.Time `gorm:"not null" json:"updated_at"`
}

func (j *PrintJob) BeforeCreate(tx *gorm.DB) error {
	if j.ID == "" {
		j.ID = uuid.NewString()
	}
	return nil
}
