package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Printer is one physical ticket printer. AgentKey is the shared secret the
// print agent presents on pull/report.
type Printer struct {
	ID        string    `gorm:"primaryKey;type:varchar(36)" json:"id"`
	StoreID   string    `gorm:"type:varchar(36);not null;index" json:"store_id"`
	Name      string    `gorm:"type:varchar(50);not null" json:"name"`
	AgentKey  string    `gorm:"type:varchar(64);not null" json:"-"`
	IsActive  bool      `gorm:"not null;default:true" json:"is_active"`
	CreatedAt time.Time `gorm:"not null" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null" json:"updated_at"`
}

func (p *Printer) BeforeCreate(tx *gorm.DB) error {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	return nil
}
