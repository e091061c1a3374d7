package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Product price is in integer minor currency units (cents).
type Product struct {
	ID        string    `gorm:"primaryKey;type:varchar(36)" json:"id"`
	StoreID   string    `gorm:"type:varchar(36);not null;index" json:"store_id"`
	Name      string    `gorm:"type:varchar(100);not null" json:"name"`
	Price     int64     `gorm:"not null" json:"price"`
	ImageURL  *string   `gorm:"type:varchar(255)" json:"image_url"`
	IsOnSale  bool      `gorm:"not null;default:true" json:"is_on_sale"`
	IsSoldOut bool      `gorm:"not null;default:false" json:"is_sold_out"`
	CreatedAt time.Time `gorm:"not null" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null" json:"updated_at"`
}

func (p *Product) BeforeCreate(tx *gorm.DB) error {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	return nil
}

// Sellable reports whether the product may enter a cart or an order right now.
func (p *Product) Sellable() bool {
	return p.IsOnSale && !p.IsSoldOut
}
