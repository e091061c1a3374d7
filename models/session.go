package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	SessionStatusActive = "ACTIVE"
	SessionStatusClosed = "CLOSED"
)

// DiningSession is one continuous occupancy of a table, from scan-in to
// settlement. CartVersion goes up by exactly one for every cart mutation,
// order submission and settlement; clients compare it against the last pushed
// value to detect missed notifications.
type DiningSession struct {
	ID          string     `gorm:"primaryKey;type:varchar(36)" json:"id"`
	StoreID     string     `gorm:"type:varchar(36);not null;index" json:"store_id"`
	TableID     string     `gorm:"type:varchar(36);not null;index" json:"table_id"`
	DinersCount int        `gorm:"not null;default:1" json:"diners_count"`
	Status      string     `gorm:"type:varchar(20);not null;default:'ACTIVE'" json:"status"`
	CartVersion int64      `gorm:"not null;default:0" json:"cart_version"`
	ClosedAt    *time.Time `json:"closed_at,omitempty"`
	IsDeleted   bool       `gorm:"not null;default:false" json:"is_deleted"`
	CreatedAt   time.Time  `gorm:"not null" json:"created_at"`
	UpdatedAt   time.Time  `gorm:"not null" json:"updated_at"`
}

func (s *DiningSession) BeforeCreate(tx *gorm.DB) error {
	if s.ID == "" {
		s.ID = uuid.NewString()
	}
	return nil
}
