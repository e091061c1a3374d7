package services

import (
	"errors"

	"gorm.io/gorm"

	"github.com/tablemate/scanorder/models"
	"github.com/tablemate/scanorder/utils"
	"github.com/tablemate/scanorder/ws"
)

type CartService struct {
	DB  *gorm.DB
	Hub *ws.Hub
}

func NewCartService(db *gorm.DB, hub *ws.Hub) *CartService {
	return &CartService{DB: db, Hub: hub}
}

type CartLine struct {
	ProductID string  `json:"product_id"`
	Name      string  `json:"name"`
	Price     int64   `json:"price"`
	Image     *string `json:"image,omitempty"`
	Qty       int     `json:"qty"`
	LineTotal int64   `json:"line_total"`
}

type CartView struct {
	SessionID   string     `json:"session_id"`
	CartVersion int64      `json:"cart_version"`
	TotalQty    int        `json:"total_qty"`
	TotalAmount int64      `json:"total_amount"`
	Items       []CartLine `json:"items"`
}

// assertSessionBinding checks that the table still points at the claimed
// session and the session is ACTIVE. Every customer-side mutation re-runs this
// inside its transaction so a concurrent settle cannot slip between check and
// write.
func assertSessionBinding(tx *gorm.DB, storeID, tableID, sessionID string) (*models.DiningSession, error) {
	var table models.Table
	err := tx.Where("id = ? AND store_id = ? AND is_active = ? AND is_deleted = ?", tableID, storeID, true, false).
		First(&table).Error
	if err != nil {
		return nil, ErrSessionInvalid
	}
	if table.CurrentSessionID == nil || *table.CurrentSessionID != sessionID {
		return nil, ErrSessionInvalid
	}

	var session models.DiningSession
	err = tx.Where("id = ? AND store_id = ? AND table_id = ? AND status = ?",
		sessionID, storeID, tableID, models.SessionStatusActive).
		First(&session).Error
	if err != nil {
		return nil, ErrSessionInvalid
	}
	return &session, nil
}

// bumpCartVersion increments the session's cart version inside the caller's
// transaction.
func bumpCartVersion(tx *gorm.DB, sessionID string) error {
	return tx.Model(&models.DiningSession{}).
		Where("id = ?", sessionID).
		UpdateColumn("cart_version", gorm.Expr("cart_version + 1")).Error
}

// BuildCartView loads the current cart plus totals and cart version.
func (s *CartService) BuildCartView(db *gorm.DB, sessionID string) (*CartView, error) {
	var items []models.CartItem
	if err := db.Where("session_id = ?", sessionID).Order("updated_at DESC").Find(&items).Error; err != nil {
		return nil, err
	}

	var session models.DiningSession
	if err := db.Select("cart_version").Where("id = ?", sessionID).First(&session).Error; err != nil {
		return nil, err
	}

	view := &CartView{
		SessionID:   sessionID,
		CartVersion: session.CartVersion,
		Items:       make([]CartLine, 0, len(items)),
	}
	for _, it := range items {
		lineTotal := it.PriceSnapshot * int64(it.Qty)
		view.TotalQty += it.Qty
		view.TotalAmount += lineTotal
		view.Items = append(view.Items, CartLine{
			ProductID: it.ProductID,
			Name:      it.NameSnapshot,
			Price:     it.PriceSnapshot,
			Image:     it.ImageSnapshot,
			Qty:       it.Qty,
			LineTotal: lineTotal,
		})
	}
	return view, nil
}

// Get returns the cart for a valid session binding.
func (s *CartService) Get(storeID, tableID, sessionID string) (*CartView, error) {
	if _, err := assertSessionBinding(s.DB, storeID, tableID, sessionID); err != nil {
		return nil, err
	}
	return s.BuildCartView(s.DB, sessionID)
}

// SetQty upserts one cart line. Qty zero deletes the line; a positive qty
// freezes the product's current name/price/image into the line. The write and
// the cart version bump share one transaction.
func (s *CartService) SetQty(storeID, tableID, sessionID, productID string, qty int) (*CartView, error) {
	if qty < 0 {
		qty = 0
	}

	err := s.DB.Transaction(func(tx *gorm.DB) error {
		if _, err := assertSessionBinding(tx, storeID, tableID, sessionID); err != nil {
			return err
		}

		if qty == 0 {
			if err := tx.Where("session_id = ? AND product_id = ?", sessionID, productID).
				Delete(&models.CartItem{}).Error; err != nil {
				return err
			}
			return bumpCartVersion(tx, sessionID)
		}

		var product models.Product
		err := tx.Where("id = ? AND store_id = ?", productID, storeID).First(&product).Error
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrProductUnavailable
			}
			return err
		}
		if !product.Sellable() {
			return ErrProductUnavailable
		}

		var line models.CartItem
		err = tx.Where("session_id = ? AND product_id = ?", sessionID, productID).First(&line).Error
		switch {
		case err == nil:
			line.Qty = qty
			line.NameSnapshot = product.Name
			line.PriceSnapshot = product.Price
			line.ImageSnapshot = product.ImageURL
			if err := tx.Save(&line).Error; err != nil {
				return err
			}
		case errors.Is(err, gorm.ErrRecordNotFound):
			line = models.CartItem{
				SessionID:     sessionID,
				ProductID:     productID,
				Qty:           qty,
				NameSnapshot:  product.Name,
				PriceSnapshot: product.Price,
				ImageSnapshot: product.ImageURL,
			}
			if err := tx.Create(&line).Error; err != nil {
				return err
			}
		default:
			return err
		}

		return bumpCartVersion(tx, sessionID)
	})
	if err != nil {
		return nil, err
	}

	return s.refreshAndBroadcast(sessionID)
}

// Clear removes every line of the session's cart.
func (s *CartService) Clear(storeID, tableID, sessionID string) (*CartView, error) {
	err := s.DB.Transaction(func(tx *gorm.DB) error {
		if _, err := assertSessionBinding(tx, storeID, tableID, sessionID); err != nil {
			return err
		}
		if err := tx.Where("session_id = ?", sessionID).Delete(&models.CartItem{}).Error; err != nil {
			return err
		}
		return bumpCartVersion(tx, sessionID)
	})
	if err != nil {
		return nil, err
	}

	return s.refreshAndBroadcast(sessionID)
}

// refreshAndBroadcast rebuilds the cart view after a committed mutation and
// pushes it to the session's customer devices.
func (s *CartService) refreshAndBroadcast(sessionID string) (*CartView, error) {
	view, err := s.BuildCartView(s.DB, sessionID)
	if err != nil {
		return nil, err
	}
	s.Hub.EmitCustomer(sessionID, ws.Message{Event: ws.EventCartUpdated, Data: view})
	return view, nil
}

// BroadcastCartUpdated pushes the current cart to the session's devices. Used
// by the order engine after it clears the cart.
func (s *CartService) BroadcastCartUpdated(sessionID string) {
	view, err := s.BuildCartView(s.DB, sessionID)
	if err != nil {
		utils.ErrorLogger.Printf("cart broadcast for session %s: %v", sessionID, err)
		return
	}
	s.Hub.EmitCustomer(sessionID, ws.Message{Event: ws.EventCartUpdated, Data: view})
}
