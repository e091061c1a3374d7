package models

import "time"

// TableMoveLog is an append-only audit row per successful table relocation.
type TableMoveLog struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	SessionID   string    `gorm:"type:varchar(36);not null;index" json:"session_id"`
	FromTableID string    `gorm:"type:varchar(36);not null" json:"from_table_id"`
	ToTableID   string    `gorm:"type:varchar(36);not null" json:"to_table_id"`
	OperatorID  uint      `gorm:"not null" json:"operator_id"`
	CreatedAt   time.Time `gorm:"not null" json:"created_at"`
}
