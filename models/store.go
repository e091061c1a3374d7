package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type Store struct {
	ID                       string    `gorm:"primaryKey;type:varchar(36)" json:"id"`
	Name                     string    `gorm:"type:varchar(100);not null" json:"name"`
	AutoPrintReceiptOnSettle bool      `gorm:"not null;default:false" json:"auto_print_receipt_on_settle"`
	CreatedAt                time.Time `gorm:"not null" json:"created_at"`
	UpdatedAt                time.Time `gorm:"not null" json:"updated_at"`
}

func (s *Store) BeforeCreate(tx *gorm.DB) error {
	if s.ID == "" {
		s.ID = uuid.NewString()
	}
	return nil
}
