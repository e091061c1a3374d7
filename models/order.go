package models

import "time"

const (
	OrderStatusOrdered   = "ORDERED"
	OrderStatusSettled   = "SETTLED"
	OrderStatusCancelled = "CANCELLED"
)

// Order channels decide the human-readable id prefix.
const (
	OrderChannelDineIn   = "DINE_IN"
	OrderChannelDelivery = "DELIVERY"
	OrderChannelPickup   = "PICKUP"
)

// Order is an immutable snapshot submitted from a cart (or an explicit item
// list). Amount is in integer minor currency units. Only Status and SettledAt
// change after creation.
type Order struct {
	ID          string      `gorm:"primaryKey;type:varchar(30)" json:"id"`
	StoreID     string      `gorm:"type:varchar(36);not null;index" json:"store_id"`
	TableID     string      `gorm:"type:varchar(36);not null" json:"table_id"`
	SessionID   string      `gorm:"type:varchar(36);not null;index" json:"session_id"`
	DinersCount int         `gorm:"not null;default:1" json:"diners_count"`
	SpiceLevel  string      `gorm:"type:varchar(20)" json:"spice_level"`
	Remark      string      `gorm:"type:varchar(255)" json:"remark"`
	Amount      int64       `gorm:"not null" json:"amount"`
	Status      string      `gorm:"type:varchar(20);not null;default:'ORDERED'" json:"status"`
	SettledAt   *time.Time  `json:"settled_at,omitempty"`
	CreatedAt   time.Time   `gorm:"not null" json:"created_at"`
	UpdatedAt   time.Time   `gorm:"not null" json:"updated_at"`
	Items       []OrderItem `gorm:"foreignKey:OrderID" json:"items"`
}
