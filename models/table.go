package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Table is a physical table. CurrentSessionID is the exclusive occupancy
// pointer: while it is set, exactly one ACTIVE session owns this table.
type Table struct {
	ID               string    `gorm:"primaryKey;type:varchar(36)" json:"id"`
	StoreID          string    `gorm:"type:varchar(36);not null;index" json:"store_id"`
	Name             string    `gorm:"type:varchar(50);not null" json:"name"`
	IsActive         bool      `gorm:"not null;default:true" json:"is_active"`
	IsDeleted        bool      `gorm:"not null;default:false" json:"is_deleted"`
	CurrentSessionID *string   `gorm:"type:varchar(36)" json:"current_session_id"`
	CreatedAt        time.Time `gorm:"not null" json:"created_at"`
	UpdatedAt        time.Time `gorm:"not null" json:"updated_at"`
}

func (t *Table) BeforeCreate(tx *gorm.DB) error {
	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	return nil
}
