package models

import "time"

type OrderItem struct {
	ID            uint      `gorm:"primaryKey" json:"id"`
	OrderID       string    `gorm:"type:varchar(30);not null;index" json:"order_id"`
	ProductID     string    `gorm:"type:varchar(36);not null" json:"product_id"`
	NameSnapshot  string    `gorm:"type:varchar(100);not null" json:"name_snapshot"`
	PriceSnapshot int64     `gorm:"not null" json:"price_snapshot"`
	Qty           int       `gorm:"not null" json:"qty"`
	CreatedAt     time.Time `gorm:"not null" json:"created_at"`
	UpdatedAt     time.Time `gorm:"not null" json:"updated_at"`
}
