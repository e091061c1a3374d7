package models

import "time"

// CartItem is one staged line of a session's cart. Name, price and image are
// frozen at the time of the last write so later product edits do not drift the
// cart the diner already sees.
type CartItem struct {
	ID            uint      `gorm:"primaryKey" json:"id"`
	SessionID     string    `gorm:"type:varchar(36);not null;uniqueIndex:idx_cart_session_product" json:"session_id"`
	ProductID     string    `gorm:"type:varchar(36);not null;uniqueIndex:idx_cart_session_product" json:"product_id"`
	Qty           int       `gorm:"not null" json:"qty"`
	NameSnapshot  string    `gorm:"type:varchar(100);not null" json:"name_snapshot"`
	PriceSnapshot int64     `gorm:"not null" json:"price_snapshot"`
	ImageSnapshot *string   `gorm:"type:varchar(255)" json:"image_snapshot"`
	CreatedAt     time.Time `gorm:"not null" json:"created_at"`
	UpdatedAt     time.Time `gorm:"not null" json:"updated_at"`
}
